// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcserver

import (
	"encoding/json"
	"net/http"

	"github.com/prasangapokharel/phnd/internal/phnderr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *phnderr.Error) {
	writeJSON(w, err.HTTPStatus(), errorResponse{Error: err.Reason})
}

func writeBadRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: reason})
}

func (s *Server) handleSendTx(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(r) {
		writeError(w, phnderr.New(phnderr.KindRateLimited, "too many requests"))
		return
	}
	var req sendTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tx == nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	result, vErr := s.node.SubmitTx(req.Tx)
	if vErr != nil {
		writeError(w, vErr)
		return
	}
	writeJSON(w, http.StatusOK, sendTxResponse{
		Status:          "accepted",
		TxID:            result.TxID,
		MempoolPosition: result.MempoolPosition,
	})
}

func (s *Server) handleSubmitBlock(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(r) {
		writeError(w, phnderr.New(phnderr.KindRateLimited, "too many requests"))
		return
	}
	var req submitBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Block == nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	result, vErr := s.node.SubmitBlock(r.Context(), req.Block)
	if vErr != nil {
		writeError(w, vErr)
		return
	}
	writeJSON(w, http.StatusOK, submitBlockResponse{
		Status:            "accepted",
		Index:             result.Index,
		CurrentDifficulty: result.AppliedDifficulty,
	})
}

func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	pending := s.node.GetPending()
	writeJSON(w, http.StatusOK, getPendingResponse{PendingTransactions: pending, Count: len(pending)})
}

func (s *Server) handleGetBlockchain(w http.ResponseWriter, r *http.Request) {
	blocks := s.node.GetChain()
	writeJSON(w, http.StatusOK, getBlockchainResponse{Blockchain: blocks, Length: len(blocks)})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(r) {
		writeError(w, phnderr.New(phnderr.KindRateLimited, "too many requests"))
		return
	}
	var req getBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		writeBadRequest(w, "malformed request body")
		return
	}
	bal := s.node.GetBalance(req.Address)
	writeJSON(w, http.StatusOK, getBalanceResponse{Address: req.Address, Balance: bal.ToFloat()})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	var req getTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TxID == "" {
		writeBadRequest(w, "malformed request body")
		return
	}
	lookup, nfErr := s.node.GetTx(req.TxID)
	if nfErr != nil {
		writeError(w, nfErr)
		return
	}
	writeJSON(w, http.StatusOK, getTransactionResponse{
		Tx:            lookup.Tx,
		BlockIndex:    lookup.BlockIndex,
		Confirmations: lookup.Confirmations,
	})
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, peersResponse{Peers: s.node.Sync.Peers()})
}

func (s *Server) handleAddPeer(w http.ResponseWriter, r *http.Request) {
	var req addPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeBadRequest(w, "invalid-url")
		return
	}
	peers := s.node.AddPeer(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, peersResponse{Peers: peers})
}

func (s *Server) handleMiningInfo(w http.ResponseWriter, r *http.Request) {
	info := s.node.MiningInfo()
	writeJSON(w, http.StatusOK, miningInfoResponse{
		Difficulty:   info.Difficulty,
		BlockReward:  info.BlockReward.ToFloat(),
		MinFee:       info.MinFee.ToFloat(),
		Height:       info.Height,
		MempoolSize:  info.MempoolSize,
		OwnerAddress: info.OwnerAddress,
	})
}

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	info := s.node.TokenInfo()
	writeJSON(w, http.StatusOK, tokenInfoResponse{
		Name:              info.Name,
		TotalSupply:       info.TotalSupply.ToFloat(),
		CirculatingSupply: info.CirculatingSupply.ToFloat(),
		OwnerAddress:      info.OwnerAddress,
	})
}
