// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"path/filepath"
	"testing"

	"github.com/prasangapokharel/phnd/internal/chain"
	"github.com/prasangapokharel/phnd/internal/money"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phnd-test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadChainRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.LoadChain()
	require.NoError(t, err)
	require.False(t, ok)

	blocks := []*chain.Block{
		{Index: 0, Timestamp: 1000, PrevHash: chain.GenesisPrevHash, Hash: "hash0"},
		{Index: 1, Timestamp: 1060, PrevHash: "hash0", Hash: "hash1"},
	}
	require.NoError(t, s.SaveChain(blocks))

	loaded, ok, err := s.LoadChain()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 2)
	require.Equal(t, "hash1", loaded[1].Hash)
}

func TestSaveChainReplacesAtomically(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveChain([]*chain.Block{{Index: 0, Hash: "a"}, {Index: 1, Hash: "b"}}))
	require.NoError(t, s.SaveChain([]*chain.Block{{Index: 0, Hash: "only"}}))

	loaded, ok, err := s.LoadChain()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 1)
	require.Equal(t, "only", loaded[0].Hash)
}

func TestSaveLoadMempoolRoundTrip(t *testing.T) {
	s := openTestStore(t)
	txs := []*chain.Transaction{
		{TxID: "a", Sender: "PHNsender", Recipient: "PHNrecipient", Amount: money.NewFromFloat(1)},
	}
	require.NoError(t, s.SaveMempool(txs))

	loaded, err := s.LoadMempool()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "a", loaded[0].TxID)
}

func TestSaveLoadPeersRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SavePeers([]string{"http://peer-a", "http://peer-b"}))

	loaded, err := s.LoadPeers()
	require.NoError(t, err)
	require.Equal(t, []string{"http://peer-a", "http://peer-b"}, loaded)
}

func TestPutGetValidation(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetValidation("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.PutValidation(ValidationRecord{TxID: "a", Status: "valid", Timestamp: 1000}))
	rec, ok, err := s.GetValidation("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "valid", rec.Status)
}
