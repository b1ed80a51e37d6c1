// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node binds the chain, mempool, peer-sync, checkpoint, and
// store components into the operation set the transport layer consumes.
// It is the one place allowed to know about every other core package;
// none of them know about it.
package node

import (
	"context"
	"time"

	"github.com/prasangapokharel/phnd/internal/chain"
	"github.com/prasangapokharel/phnd/internal/checkpoint"
	"github.com/prasangapokharel/phnd/internal/mempool"
	"github.com/prasangapokharel/phnd/internal/money"
	"github.com/prasangapokharel/phnd/internal/pcrypto"
	"github.com/prasangapokharel/phnd/internal/peersync"
	"github.com/prasangapokharel/phnd/internal/phnderr"
	"github.com/prasangapokharel/phnd/internal/store"
)

// Logger mirrors peersync.Logger so the slog.Logger returned by
// phndlog.Subsystem satisfies both
// without an import cycle between the two leaf packages.
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

// storeLedger adapts *store.Store to chain.Ledger.
type storeLedger struct{ s *store.Store }

func (l storeLedger) Get(txid string) (status, reason string, found bool) {
	rec, ok, err := l.s.GetValidation(txid)
	if err != nil || !ok {
		return "", "", false
	}
	return rec.Status, rec.Reason, true
}

func (l storeLedger) Put(txid, status, reason string) error {
	return l.s.PutValidation(store.ValidationRecord{
		TxID:      txid,
		Status:    status,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	})
}

// Node is the facade the transport layer drives.
type Node struct {
	Chain      *chain.Chain
	Mempool    *mempool.Mempool
	Store      *store.Store
	Checkpoint *checkpoint.Store
	Sync       *peersync.Engine
	Owner      *pcrypto.KeyPair
	ledger     chain.Ledger
	log        Logger

	broadcastCtx context.Context
}

// Config bundles the constructor's dependencies.
type Config struct {
	Params     chain.Params
	Store      *store.Store
	Owner      *pcrypto.KeyPair
	Transport  peersync.Transport
	Log        Logger
	MempoolCap int
	MempoolAge int64
}

// New constructs a Node, restoring persisted state if present or
// initializing genesis otherwise.
func New(ctx context.Context, cfg Config) (*Node, error) {
	log := cfg.Log
	if log == nil {
		log = noopLogger{}
	}

	c := chain.New(cfg.Params)
	ledger := storeLedger{s: cfg.Store}
	cp := checkpoint.New()

	blocks, ok, err := cfg.Store.LoadChain()
	if err != nil {
		return nil, phnderr.New(phnderr.KindStorage, "load chain: "+err.Error())
	}
	if ok && len(blocks) > 0 {
		c.Restore(blocks)
		for _, b := range blocks {
			cp.Record(b.Index, b.Hash)
		}
	} else {
		c.InitGenesis(cfg.Owner.Address, float64(time.Now().Unix()))
		if sErr := cfg.Store.SaveChain(c.Snapshot()); sErr != nil {
			return nil, phnderr.New(phnderr.KindStorage, "persist genesis: "+sErr.Error())
		}
	}

	capacity := cfg.MempoolCap
	if capacity <= 0 {
		capacity = mempool.DefaultCapacity
	}
	maxAge := cfg.MempoolAge
	if maxAge <= 0 {
		maxAge = mempool.DefaultMaxAge
	}
	mp := mempool.New(capacity, maxAge)
	if pending, pErr := cfg.Store.LoadMempool(); pErr == nil {
		now := float64(time.Now().Unix())
		for _, tx := range pending {
			mp.AdmitLocking(tx, now)
		}
	}

	n := &Node{
		Chain:      c,
		Mempool:    mp,
		Store:      cfg.Store,
		Checkpoint: cp,
		Owner:      cfg.Owner,
		ledger:     ledger,
		log:        log,
	}

	n.Sync = peersync.New(c, cp, cfg.Transport, ledger, log, func(newBlocks []*chain.Block) {
		if sErr := cfg.Store.SaveChain(newBlocks); sErr != nil {
			log.Criticalf("failed to persist chain after sync adoption: %v", sErr)
		}
		n.purgeMinedFromMempool(newBlocks)
	})

	if peers, plErr := cfg.Store.LoadPeers(); plErr == nil {
		for _, p := range peers {
			n.Sync.AddPeer(p)
		}
	}

	return n, nil
}

func (n *Node) purgeMinedFromMempool(blocks []*chain.Block) {
	var ids []string
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			if !tx.IsSystem() {
				ids = append(ids, tx.TxID)
			}
		}
	}
	n.Mempool.Remove(ids)
	if err := n.Store.SaveMempool(n.Mempool.Snapshot()); err != nil {
		n.log.Warnf("failed to persist mempool after purge: %v", err)
	}
}

// SubmitTxResult is submit_tx's success shape.
type SubmitTxResult struct {
	TxID            string
	MempoolPosition int
}

// SubmitTx validates and admits tx, holding the mempool lock across the
// balance check and admission so a concurrent double-spend cannot slip
// through the same pending window.
func (n *Node) SubmitTx(tx *chain.Transaction) (*SubmitTxResult, *phnderr.Error) {
	now := float64(time.Now().Unix())

	n.Mempool.Lock()
	defer n.Mempool.Unlock()

	if vErr := chain.ValidateTransaction(tx, n.Chain.Params(), n.ledger, n.Chain, n.Mempool.Snapshot(), now); vErr != nil {
		return nil, vErr
	}
	if mErr := n.Mempool.Admit(tx, now); mErr != nil {
		return nil, mErr
	}
	if err := n.Store.SaveMempool(n.Mempool.Snapshot()); err != nil {
		n.log.Warnf("failed to persist mempool after admission: %v", err)
	}
	return &SubmitTxResult{TxID: tx.TxID, MempoolPosition: n.Mempool.Position(tx.TxID)}, nil
}

// SubmitBlockResult is submit_block's success shape.
type SubmitBlockResult struct {
	Index             uint64
	AppliedDifficulty int
}

// SubmitBlock validates and appends a mined candidate. On success it
// purges the block's transactions from the mempool, records a
// checkpoint if due, persists the chain, and schedules an asynchronous
// gossip broadcast.
func (n *Node) SubmitBlock(ctx context.Context, b *chain.Block) (*SubmitBlockResult, *phnderr.Error) {
	now := float64(time.Now().Unix())
	appliedDifficulty := n.Chain.CurrentDifficulty()

	pending := n.Mempool.Snapshot()
	if err := n.Chain.Append(b, n.ledger, pending, now); err != nil {
		if e, ok := err.(*phnderr.Error); ok {
			return nil, e
		}
		return nil, phnderr.New(phnderr.KindInvalidBlock, err.Error())
	}

	n.Checkpoint.Record(b.Index, b.Hash)

	var minedTxids []string
	for _, tx := range b.Transactions {
		if !tx.IsSystem() {
			minedTxids = append(minedTxids, tx.TxID)
		}
	}
	n.Mempool.Remove(minedTxids)

	if err := n.Store.SaveChain(n.Chain.Snapshot()); err != nil {
		return nil, phnderr.New(phnderr.KindStorage, "persist chain: "+err.Error())
	}
	if err := n.Store.SaveMempool(n.Mempool.Snapshot()); err != nil {
		n.log.Warnf("failed to persist mempool after block acceptance: %v", err)
	}

	go n.Sync.BroadcastBlock(n.backgroundCtx(ctx), b)

	return &SubmitBlockResult{Index: b.Index, AppliedDifficulty: appliedDifficulty}, nil
}

// backgroundCtx returns the long-lived context installed with
// SetBackgroundContext, so asynchronous work outlives the request
// (whose context ends when the HTTP response is written) but still
// stops on node shutdown. If none was installed it returns requestCtx
// unchanged.
func (n *Node) backgroundCtx(requestCtx context.Context) context.Context {
	if n.broadcastCtx != nil {
		return n.broadcastCtx
	}
	return requestCtx
}

// SetBackgroundContext installs the long-lived context asynchronous
// broadcasts should run under, decoupled from any one request.
func (n *Node) SetBackgroundContext(ctx context.Context) {
	n.broadcastCtx = ctx
}

// GetPending returns the mempool snapshot in fee-priority order.
func (n *Node) GetPending() []*chain.Transaction {
	return n.Mempool.Snapshot()
}

// GetChain returns the full chain.
func (n *Node) GetChain() []*chain.Block {
	return n.Chain.Snapshot()
}

// TxLookup is get_tx's success shape.
type TxLookup struct {
	Tx            *chain.Transaction
	BlockIndex    *uint64
	Confirmations uint64
}

// GetTx locates txid in the confirmed chain or the mempool.
func (n *Node) GetTx(txid string) (*TxLookup, *phnderr.Error) {
	blocks := n.Chain.Snapshot()
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			if tx.TxID == txid {
				idx := b.Index
				confirmations := uint64(len(blocks)) - b.Index
				return &TxLookup{Tx: tx, BlockIndex: &idx, Confirmations: confirmations}, nil
			}
		}
	}
	for _, tx := range n.Mempool.Snapshot() {
		if tx.TxID == txid {
			return &TxLookup{Tx: tx, BlockIndex: nil, Confirmations: 0}, nil
		}
	}
	return nil, phnderr.New(phnderr.KindNotFound, "no such transaction")
}

// GetBalance resolves addr (an address, or a user public key coerced to
// its address) to its current balance including pending transactions.
func (n *Node) GetBalance(addr string) money.Amount {
	if len(addr) != 43 {
		if resolved, err := pcrypto.AddressOf(addr); err == nil {
			addr = resolved
		}
	}
	return n.Chain.BalanceOf(addr, n.Mempool.Snapshot())
}

// AddPeer registers url, persists the peer set, and schedules a
// one-shot sync attempt against it.
func (n *Node) AddPeer(ctx context.Context, url string) []string {
	n.Sync.AddPeer(url)
	if err := n.Store.SavePeers(n.Sync.Peers()); err != nil {
		n.log.Warnf("failed to persist peers: %v", err)
	}
	go func() {
		_, _ = n.Sync.SyncWith(n.backgroundCtx(ctx), url)
	}()
	return n.Sync.Peers()
}

// MiningInfo is mining_info's response shape.
type MiningInfo struct {
	Difficulty   int
	BlockReward  money.Amount
	MinFee       money.Amount
	Height       uint64
	MempoolSize  int
	OwnerAddress string
}

// MiningInfo reports the parameters an external miner needs to build
// the next candidate block.
func (n *Node) MiningInfo() MiningInfo {
	height := uint64(n.Chain.Length())
	return MiningInfo{
		Difficulty:   n.Chain.CurrentDifficulty(),
		BlockReward:  n.Chain.Params().BlockReward(height),
		MinFee:       n.Chain.Params().MinTxFee,
		Height:       height,
		MempoolSize:  n.Mempool.Size(),
		OwnerAddress: n.Owner.Address,
	}
}

// TokenInfo is the /token_info read view.
type TokenInfo struct {
	Name               string
	TotalSupply        money.Amount
	CirculatingSupply  money.Amount
	OwnerAddress       string
}

// TokenInfo reports supply totals computed from the chain rather than
// hardcoded, so it stays correct as blocks mint new supply.
func (n *Node) TokenInfo() TokenInfo {
	var minted money.Amount
	for _, b := range n.Chain.Snapshot() {
		for _, tx := range b.Transactions {
			if tx.Sender == chain.SenderCoinbase {
				minted = minted.Add(tx.Amount)
			}
		}
	}
	return TokenInfo{
		Name:              "PHN",
		TotalSupply:       n.Chain.Params().TotalSupply,
		CirculatingSupply: minted,
		OwnerAddress:      n.Owner.Address,
	}
}

// Shutdown flushes the mempool and peer set and closes the store. It is
// safe to call once, after in-flight SubmitTx/SubmitBlock calls have
// drained.
func (n *Node) Shutdown() error {
	if err := n.Store.SaveMempool(n.Mempool.Snapshot()); err != nil {
		n.log.Warnf("failed to flush mempool on shutdown: %v", err)
	}
	if err := n.Store.SavePeers(n.Sync.Peers()); err != nil {
		n.log.Warnf("failed to flush peers on shutdown: %v", err)
	}
	return n.Store.Close()
}
