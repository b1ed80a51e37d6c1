// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcserver

import "github.com/prasangapokharel/phnd/internal/chain"

// sendTxRequest and submitBlockRequest carry chain.Transaction and
// chain.Block as-is. Their field names are consensus-bearing: the
// canonical hash/signature preimage (chain/types.go) keys each value by
// the same name, so producers must use those names exactly. The "tx" and
// "block" envelope keys themselves do not enter any preimage.

type sendTxRequest struct {
	Tx *chain.Transaction `json:"tx"`
}

type sendTxResponse struct {
	Status          string `json:"status"`
	TxID            string `json:"txid"`
	MempoolPosition int    `json:"mempool_position"`
}

type submitBlockRequest struct {
	Block *chain.Block `json:"block"`
}

type submitBlockResponse struct {
	Status            string `json:"status"`
	Index             uint64 `json:"index"`
	CurrentDifficulty int    `json:"current_difficulty"`
}

type getPendingResponse struct {
	PendingTransactions []*chain.Transaction `json:"pending_transactions"`
	Count               int                  `json:"count"`
}

type getBlockchainResponse struct {
	Blockchain []*chain.Block `json:"blockchain"`
	Length     int            `json:"length"`
}

type getBalanceRequest struct {
	Address string `json:"address"`
}

type getBalanceResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type getTransactionRequest struct {
	TxID string `json:"txid"`
}

type getTransactionResponse struct {
	Tx            *chain.Transaction `json:"tx"`
	BlockIndex    *uint64            `json:"block_index"`
	Confirmations uint64             `json:"confirmations"`
}

type peersResponse struct {
	Peers []string `json:"peers"`
}

type addPeerRequest struct {
	URL string `json:"url"`
}

type miningInfoResponse struct {
	Difficulty   int     `json:"difficulty"`
	BlockReward  float64 `json:"block_reward"`
	MinFee       float64 `json:"min_fee"`
	Height       uint64  `json:"height"`
	MempoolSize  int     `json:"mempool_size"`
	OwnerAddress string  `json:"owner_address"`
}

type tokenInfoResponse struct {
	Name              string  `json:"name"`
	TotalSupply       float64 `json:"total_supply"`
	CirculatingSupply float64 `json:"circulating_supply"`
	OwnerAddress      string  `json:"owner_address"`
}

type errorResponse struct {
	Error string `json:"error"`
}
