// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prasangapokharel/phnd/internal/chain"
	"github.com/prasangapokharel/phnd/internal/difficulty"
	"github.com/prasangapokharel/phnd/internal/money"
	"github.com/prasangapokharel/phnd/internal/pcrypto"
	"github.com/prasangapokharel/phnd/internal/store"
	"github.com/stretchr/testify/require"
)

type noopTransport struct{}

func (noopTransport) FetchChain(ctx context.Context, peerURL string) ([]*chain.Block, error) {
	return nil, nil
}

func (noopTransport) SubmitBlock(ctx context.Context, peerURL string, block *chain.Block) error {
	return nil
}

func newTestNode(t *testing.T) (*Node, *pcrypto.KeyPair) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phnd-node-test.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	owner, err := pcrypto.GenerateKeyPair()
	require.NoError(t, err)

	n, err := New(context.Background(), Config{
		Params:    chain.DefaultParams(),
		Store:     st,
		Owner:     owner,
		Transport: noopTransport{},
	})
	require.NoError(t, err)
	return n, owner
}

func TestNewBootstrapsGenesis(t *testing.T) {
	n, owner := newTestNode(t)
	require.Equal(t, 1, n.Chain.Length())
	require.Equal(t, "100000000.00000000", n.GetBalance(owner.Address).String())
}

func TestNewRestoresPersistedChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phnd-node-test.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	owner, err := pcrypto.GenerateKeyPair()
	require.NoError(t, err)

	n1, err := New(context.Background(), Config{Params: chain.DefaultParams(), Store: st, Owner: owner, Transport: noopTransport{}})
	require.NoError(t, err)
	genesisHash := n1.Chain.LastBlock().Hash
	require.NoError(t, st.Close())

	st2, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st2.Close() })
	n2, err := New(context.Background(), Config{Params: chain.DefaultParams(), Store: st2, Owner: owner, Transport: noopTransport{}})
	require.NoError(t, err)
	require.Equal(t, 1, n2.Chain.Length())
	require.Equal(t, genesisHash, n2.Chain.LastBlock().Hash)
}

func TestSubmitTxAdmitsValidTransaction(t *testing.T) {
	n, owner := newTestNode(t)
	now := float64(time.Now().Unix())

	tx := &chain.Transaction{
		Sender:    owner.PublicHex,
		Recipient: "PHNrecipient000000000000000000000000000000",
		Amount:    money.NewFromFloat(10),
		Fee:       money.NewFromFloat(0.01),
		Timestamp: now,
		Nonce:     1,
	}
	tx.TxID = tx.ComputeTxID()
	tx.Signature = pcrypto.Sign(owner.Private, tx.SignaturePreimage())

	result, err := n.SubmitTx(tx)
	require.Nil(t, err)
	require.Equal(t, tx.TxID, result.TxID)
	require.Equal(t, 1, n.Mempool.Size())
}

func TestSubmitTxRejectsInvalidSignature(t *testing.T) {
	n, owner := newTestNode(t)
	now := float64(time.Now().Unix())
	other, err := pcrypto.GenerateKeyPair()
	require.NoError(t, err)

	tx := &chain.Transaction{
		Sender:    owner.PublicHex,
		Recipient: "PHNrecipient000000000000000000000000000000",
		Amount:    money.NewFromFloat(10),
		Fee:       money.NewFromFloat(0.01),
		Timestamp: now,
		Nonce:     1,
	}
	tx.TxID = tx.ComputeTxID()
	tx.Signature = pcrypto.Sign(other.Private, tx.SignaturePreimage())

	_, vErr := n.SubmitTx(tx)
	require.NotNil(t, vErr)
}

func TestSubmitBlockAcceptsMinedBlockAndPursesMempool(t *testing.T) {
	n, owner := newTestNode(t)
	now := float64(time.Now().Unix())

	tx := &chain.Transaction{
		Sender:    owner.PublicHex,
		Recipient: "PHNrecipient000000000000000000000000000000",
		Amount:    money.NewFromFloat(10),
		Fee:       money.NewFromFloat(0.01),
		Timestamp: now,
		Nonce:     1,
	}
	tx.TxID = tx.ComputeTxID()
	tx.Signature = pcrypto.Sign(owner.Private, tx.SignaturePreimage())
	_, sErr := n.SubmitTx(tx)
	require.Nil(t, sErr)

	genesis := n.Chain.LastBlock()
	reward := n.Chain.Params().BlockReward(1)
	minersPool := &chain.Transaction{
		Sender: chain.SenderMinersPool, Recipient: owner.Address,
		Amount: tx.Fee, Signature: "genesis",
	}
	minersPool.TxID = minersPool.ComputeTxID()
	coinbase := &chain.Transaction{
		Sender: chain.SenderCoinbase, Recipient: owner.Address,
		Amount: reward, Signature: "genesis",
	}
	coinbase.TxID = coinbase.ComputeTxID()

	next := &chain.Block{
		Index:        1,
		Timestamp:    genesis.Timestamp + 60,
		PrevHash:     genesis.Hash,
		Transactions: []*chain.Transaction{coinbase, minersPool, tx},
	}
	target := difficulty.ForHeight(1, n.Chain.DifficultyHistory())
	for {
		next.Hash = next.ComputeHash()
		if difficulty.LeadingZeros(next.Hash) >= target {
			break
		}
		next.Nonce++
	}

	result, bErr := n.SubmitBlock(context.Background(), next)
	require.Nil(t, bErr)
	require.Equal(t, uint64(1), result.Index)
	require.Equal(t, 2, n.Chain.Length())
	require.Equal(t, 0, n.Mempool.Size())
}

func TestGetTxFindsConfirmedAndRejectsMissing(t *testing.T) {
	n, owner := newTestNode(t)
	genesis := n.Chain.LastBlock()
	lookup, err := n.GetTx(genesis.Transactions[0].TxID)
	require.Nil(t, err)
	require.NotNil(t, lookup.BlockIndex)
	require.Equal(t, uint64(0), *lookup.BlockIndex)

	_, err = n.GetTx("missing-txid")
	require.NotNil(t, err)

	_ = owner
}

func TestAddPeerPersistsAndReturnsPeerList(t *testing.T) {
	n, _ := newTestNode(t)
	n.SetBackgroundContext(context.Background())
	peers := n.AddPeer(context.Background(), "http://peer-a")
	require.Contains(t, peers, "http://peer-a")
}

func TestMiningInfoAndTokenInfo(t *testing.T) {
	n, owner := newTestNode(t)
	info := n.MiningInfo()
	require.Equal(t, owner.Address, info.OwnerAddress)
	require.Equal(t, uint64(1), info.Height)

	tok := n.TokenInfo()
	require.Equal(t, "PHN", tok.Name)
	require.Equal(t, "100000000.00000000", tok.CirculatingSupply.String())
}
