// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peersync implements the pull-longest-valid-chain sync engine,
// block gossip broadcast, and per-peer health tracking, in the style
// dcrd's connmgr/addrmgr pair uses for address-book and connection
// bookkeeping, adapted to this protocol's simple HTTP/JSON transport
// instead of the wire P2P protocol.
package peersync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prasangapokharel/phnd/internal/chain"
	"github.com/prasangapokharel/phnd/internal/checkpoint"
)

// RequestTimeout bounds every outbound peer call.
const RequestTimeout = 8 * time.Second

// ProbeInterval is how often periodic probes failed peers for recovery.
const ProbeInterval = 5 * time.Minute

// MaxSyncFailureCycles is the number of consecutive no-adoption
// sync_best cycles after which a network-partition warning is logged.
const MaxSyncFailureCycles = 5

// Transport is the abstract HTTP/JSON peer client. HTTPTransport in
// transport_http.go is the net/http based implementation; tests
// substitute a fake.
type Transport interface {
	FetchChain(ctx context.Context, peerURL string) ([]*chain.Block, error)
	SubmitBlock(ctx context.Context, peerURL string, block *chain.Block) error
}

// Logger is the minimal structured-logging surface this package needs,
// satisfied by the decred/slog Logger phndlog.Subsystem returns or a
// test double.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})     {}
func (noopLogger) Warnf(string, ...interface{})     {}
func (noopLogger) Criticalf(string, ...interface{}) {}
func (noopLogger) Debugf(string, ...interface{})    {}

// Engine binds peer health, the local chain, checkpoints, and transport
// together.
type Engine struct {
	table      *healthTable
	chain      *chain.Chain
	checkpoint *checkpoint.Store
	transport  Transport
	ledger     chain.Ledger
	log        Logger

	mu              sync.Mutex
	failedCycles    int
	onChainReplaced func([]*chain.Block)
}

// New builds a sync engine. onChainReplaced, if non-nil, is called
// after a successful chain adoption with the new chain so the caller
// can persist it and purge the mempool of now-confirmed transactions.
func New(c *chain.Chain, cp *checkpoint.Store, t Transport, ledger chain.Ledger, log Logger, onChainReplaced func([]*chain.Block)) *Engine {
	if log == nil {
		log = noopLogger{}
	}
	return &Engine{
		table:           newHealthTable(),
		chain:           c,
		checkpoint:      cp,
		transport:       t,
		ledger:          ledger,
		log:             log,
		onChainReplaced: onChainReplaced,
	}
}

// AddPeer registers a peer URL, creating healthy initial health state.
func (e *Engine) AddPeer(url string) {
	e.table.add(url)
}

// Peers returns every known peer URL.
func (e *Engine) Peers() []string {
	return e.table.list()
}

// HealthSnapshot returns a copy of the per-peer health table.
func (e *Engine) HealthSnapshot() map[string]Health {
	return e.table.snapshot()
}

// verifyCandidate replays each block of candidate through the same
// append rules a live chain uses, against a scratch chain seeded with
// the candidate's own genesis, so a peer's offered chain is held to
// exactly the same admission standard locally-produced blocks are.
func (e *Engine) verifyCandidate(candidate []*chain.Block) error {
	if len(candidate) == 0 {
		return errors.New("peersync: empty candidate chain")
	}
	scratch := chain.New(e.chain.Params())
	now := float64(time.Now().Unix())
	for _, b := range candidate {
		if err := scratch.Append(b, e.ledger, nil, now); err != nil {
			return err
		}
	}
	return nil
}

// commonAncestorHeight returns the highest height at which the local
// chain and candidate agree on the block hash.
func commonAncestorHeight(local []*chain.Block, candidate []*chain.Block) int {
	n := len(local)
	if len(candidate) < n {
		n = len(candidate)
	}
	h := -1
	for i := 0; i < n; i++ {
		if local[i].Hash != candidate[i].Hash {
			break
		}
		h = i
	}
	return h
}

// SyncWith fetches peerURL's chain and, if it is strictly longer, valid,
// checkpoint-consistent, and not a too-deep reorg, atomically replaces
// the local chain. It returns whether adoption occurred.
func (e *Engine) SyncWith(ctx context.Context, peerURL string) (adopted bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	candidate, ferr := e.transport.FetchChain(ctx, peerURL)
	if ferr != nil {
		e.table.recordFailure(peerURL)
		return false, ferr
	}

	local := e.chain.Snapshot()
	if len(candidate) <= len(local) {
		e.table.recordSuccess(peerURL)
		return false, nil
	}

	hashes := make([]string, len(candidate))
	for i, b := range candidate {
		hashes[i] = b.Hash
	}
	if h, ok := e.checkpoint.Verify(hashes); !ok {
		e.log.Criticalf("peer %s offered a chain disagreeing with checkpoint at height %d", peerURL, h)
		e.table.recordFailure(peerURL)
		return false, errors.New("peersync: candidate chain violates a checkpoint")
	}

	ancestor := commonAncestorHeight(local, candidate)
	if !e.checkpoint.CheckReorgDepth(len(local), ancestor+1) {
		e.log.Criticalf("peer %s offered a reorg deeper than the maximum allowed depth", peerURL)
		e.table.recordFailure(peerURL)
		return false, errors.New("peersync: candidate chain reorg too deep")
	}

	if verr := e.verifyCandidate(candidate); verr != nil {
		e.table.recordFailure(peerURL)
		return false, verr
	}

	e.chain.Restore(candidate)
	for _, b := range candidate {
		e.checkpoint.Record(b.Index, b.Hash)
	}
	e.table.recordSuccess(peerURL)
	if e.onChainReplaced != nil {
		e.onChainReplaced(candidate)
	}
	return true, nil
}

// SyncBest iterates healthy peers once and stops at the first
// successful adoption.
func (e *Engine) SyncBest(ctx context.Context) bool {
	for _, peer := range e.table.healthyList() {
		adopted, err := e.SyncWith(ctx, peer)
		if err != nil {
			e.log.Debugf("sync with %s failed: %v", peer, err)
			continue
		}
		if adopted {
			e.resetFailedCycles()
			return true
		}
	}
	e.incrementFailedCycles()
	return false
}

func (e *Engine) resetFailedCycles() {
	e.mu.Lock()
	e.failedCycles = 0
	e.mu.Unlock()
}

func (e *Engine) incrementFailedCycles() {
	e.mu.Lock()
	e.failedCycles++
	cycles := e.failedCycles
	e.mu.Unlock()
	if cycles >= MaxSyncFailureCycles {
		e.log.Warnf("no chain adoption in %d consecutive sync cycles; possible network partition", cycles)
	}
}

// BroadcastBlock sends block to every currently-healthy peer
// concurrently, updating health from each outcome.
func (e *Engine) BroadcastBlock(ctx context.Context, block *chain.Block) {
	peers := e.table.healthyList()
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func(peerURL string) {
			defer wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
			defer cancel()
			if err := e.transport.SubmitBlock(reqCtx, peerURL, block); err != nil {
				e.table.recordFailure(peerURL)
				return
			}
			e.table.recordSuccess(peerURL)
		}(p)
	}
	wg.Wait()
}

// probeFailed fetches the chain of every failed peer without adopting
// it; a successful fetch alone recovers the peer, since recordSuccess
// only requires reachability, not that the peer's chain would win.
func (e *Engine) probeFailed(ctx context.Context) {
	for _, peer := range e.table.failedList() {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		_, err := e.transport.FetchChain(ctx, peer)
		cancel()
		if err == nil {
			e.table.recordSuccess(peer)
		}
	}
}

// Periodic runs the sync loop until ctx is cancelled: sync_best every
// interval, with a failed-peer recovery probe every ProbeInterval.
func (e *Engine) Periodic(ctx context.Context, interval time.Duration) {
	syncTicker := time.NewTicker(interval)
	defer syncTicker.Stop()
	probeTicker := time.NewTicker(ProbeInterval)
	defer probeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			e.SyncBest(ctx)
		case <-probeTicker.C:
			e.probeFailed(ctx)
		}
	}
}
