// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peersync

import (
	"context"
	"errors"
	"testing"

	"github.com/prasangapokharel/phnd/internal/chain"
	"github.com/prasangapokharel/phnd/internal/checkpoint"
	"github.com/prasangapokharel/phnd/internal/difficulty"
	"github.com/stretchr/testify/require"
)

type memLedger struct{ m map[string][2]string }

func newMemLedger() *memLedger { return &memLedger{m: make(map[string][2]string)} }

func (l *memLedger) Get(txid string) (status, reason string, found bool) {
	v, ok := l.m[txid]
	if !ok {
		return "", "", false
	}
	return v[0], v[1], true
}

func (l *memLedger) Put(txid, status, reason string) error {
	l.m[txid] = [2]string{status, reason}
	return nil
}

func mineBlock(b *chain.Block, target int) {
	for {
		b.Hash = b.ComputeHash()
		if difficulty.LeadingZeros(b.Hash) >= target {
			return
		}
		b.Nonce++
	}
}

// buildChain mines a valid n-block chain (including genesis) for test use.
func buildChain(t *testing.T, n int) []*chain.Block {
	t.Helper()
	params := chain.DefaultParams()
	c := chain.New(params)
	genesis := c.InitGenesis("PHNowner", 1000)
	blocks := []*chain.Block{genesis}
	ledger := newMemLedger()
	for i := 1; i < n; i++ {
		prev := blocks[len(blocks)-1]
		next := &chain.Block{
			Index:     uint64(i),
			Timestamp: prev.Timestamp + 60,
			PrevHash:  prev.Hash,
			Transactions: []*chain.Transaction{{
				Sender: chain.SenderCoinbase, Recipient: "PHNowner",
				Amount: params.BlockReward(uint64(i)), Signature: "genesis",
			}},
		}
		next.Transactions[0].TxID = next.Transactions[0].ComputeTxID()
		target := difficulty.ForHeight(uint64(i), c.DifficultyHistory())
		mineBlock(next, target)
		require.NoError(t, c.Append(next, ledger, nil, next.Timestamp))
		blocks = append(blocks, next)
	}
	return blocks
}

type fakeTransport struct {
	chains map[string][]*chain.Block
	errs   map[string]error
}

func (f *fakeTransport) FetchChain(ctx context.Context, peerURL string) ([]*chain.Block, error) {
	if err, ok := f.errs[peerURL]; ok {
		return nil, err
	}
	return f.chains[peerURL], nil
}

func (f *fakeTransport) SubmitBlock(ctx context.Context, peerURL string, block *chain.Block) error {
	if err, ok := f.errs[peerURL]; ok {
		return err
	}
	return nil
}

func newEngine(local []*chain.Block, transport Transport) (*Engine, *chain.Chain) {
	params := chain.DefaultParams()
	c := chain.New(params)
	c.Restore(local)
	cp := checkpoint.New()
	e := New(c, cp, transport, newMemLedger(), nil, nil)
	return e, c
}

func TestSyncWithAdoptsLongerValidChain(t *testing.T) {
	local := buildChain(t, 1)
	longer := buildChain(t, 3)
	transport := &fakeTransport{chains: map[string][]*chain.Block{"peer": longer}}
	e, c := newEngine(local, transport)
	e.AddPeer("peer")

	adopted, err := e.SyncWith(context.Background(), "peer")
	require.NoError(t, err)
	require.True(t, adopted)
	require.Equal(t, 3, c.Length())
}

func TestSyncWithRejectsShorterChain(t *testing.T) {
	local := buildChain(t, 3)
	shorter := buildChain(t, 1)
	transport := &fakeTransport{chains: map[string][]*chain.Block{"peer": shorter}}
	e, c := newEngine(local, transport)
	e.AddPeer("peer")

	adopted, err := e.SyncWith(context.Background(), "peer")
	require.NoError(t, err)
	require.False(t, adopted)
	require.Equal(t, 3, c.Length())
}

func TestSyncWithRecordsFailureOnTransportError(t *testing.T) {
	local := buildChain(t, 1)
	transport := &fakeTransport{errs: map[string]error{"peer": errors.New("unreachable")}}
	e, _ := newEngine(local, transport)
	e.AddPeer("peer")

	_, err := e.SyncWith(context.Background(), "peer")
	require.Error(t, err)
	require.Equal(t, StatusDegraded, e.HealthSnapshot()["peer"].Status)
}

func TestSyncWithRejectsCheckpointViolation(t *testing.T) {
	local := buildChain(t, 1)
	longer := buildChain(t, 3)
	transport := &fakeTransport{chains: map[string][]*chain.Block{"peer": longer}}
	e, c := newEngine(local, transport)
	e.AddPeer("peer")
	e.checkpoint.Restore(map[uint64]string{0: "a-hash-that-will-never-match"})
	_ = c

	adopted, err := e.SyncWith(context.Background(), "peer")
	require.Error(t, err)
	require.False(t, adopted)
}

func TestCommonAncestorHeight(t *testing.T) {
	a := buildChain(t, 3)
	b := buildChain(t, 3)
	require.Equal(t, 2, commonAncestorHeight(a, a))
	b[2] = a[1] // diverge at height 2
	require.Equal(t, 1, commonAncestorHeight(a, b))
}

func TestBroadcastBlockUpdatesHealth(t *testing.T) {
	local := buildChain(t, 1)
	transport := &fakeTransport{errs: map[string]error{"bad": errors.New("down")}}
	e, _ := newEngine(local, transport)
	e.AddPeer("bad")
	e.AddPeer("good")

	e.BroadcastBlock(context.Background(), local[0])
	snap := e.HealthSnapshot()
	require.Equal(t, StatusDegraded, snap["bad"].Status)
	require.Equal(t, StatusHealthy, snap["good"].Status)
}
