// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain implements the canonical in-memory chain: genesis
// construction, balance computation, and the two consensus-level
// validation checklists (transaction POUV, block admission).
package chain

import (
	"sync"

	"github.com/prasangapokharel/phnd/internal/difficulty"
	"github.com/prasangapokharel/phnd/internal/money"
)

// GenesisPrevHash is the sentinel prev_hash of block 0: 64 hex zero
// digits, the same width as a real block hash.
const GenesisPrevHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Ledger is the replay/validation ledger contract the chain package
// consumes. The concrete implementation (backed by the embedded store)
// lives outside this package so that chain never depends on store,
// which itself depends on chain's types.
type Ledger interface {
	Get(txid string) (status, reason string, found bool)
	Put(txid, status, reason string) error
}

// Chain is the in-memory, mutex-guarded canonical chain.
type Chain struct {
	mu     sync.RWMutex
	params Params
	blocks []*Block
	txids  map[string]bool // every txid ever confirmed, across all blocks
}

// New returns an empty chain; call InitGenesis or Restore before use.
func New(params Params) *Chain {
	return &Chain{params: params, txids: make(map[string]bool)}
}

// Params returns the chain's configured constants.
func (c *Chain) Params() Params {
	return c.params
}

// InitGenesis builds block 0: a single coinbase transaction paying 10%
// of total supply to ownerAddress. It is a no-op if the chain is
// already non-empty (e.g. restored from the store).
func (c *Chain) InitGenesis(ownerAddress string, timestamp float64) *Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) > 0 {
		return c.blocks[0]
	}
	coinbase := &Transaction{
		Sender:    SenderCoinbase,
		Recipient: ownerAddress,
		Amount:    c.params.OwnerGenesisAmount(),
		Fee:       0,
		Timestamp: timestamp,
		Nonce:     0,
		Signature: "genesis",
	}
	coinbase.TxID = coinbase.ComputeTxID()
	genesis := &Block{
		Index:        0,
		Timestamp:    timestamp,
		Transactions: []*Transaction{coinbase},
		PrevHash:     GenesisPrevHash,
	}
	// Genesis still pays the height-0 target (difficulty.ForHeight
	// returns DefaultDifficulty for height 0), so it is mined the same
	// way any other block would be rather than special-cased to skip
	// proof of work.
	target := difficulty.ForHeight(0, nil)
	for {
		genesis.Hash = genesis.ComputeHash()
		if difficulty.LeadingZeros(genesis.Hash) >= target {
			break
		}
		genesis.Nonce++
	}
	c.blocks = []*Block{genesis}
	c.txids[coinbase.TxID] = true
	return genesis
}

// Restore replaces the in-memory chain with a previously persisted,
// already-validated sequence of blocks (e.g. on process startup). The
// caller is responsible for having verified it (the same append rules
// applied sequentially) before calling Restore.
func (c *Chain) Restore(blocks []*Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = blocks
	c.txids = make(map[string]bool)
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			c.txids[tx.TxID] = true
		}
	}
}

// Length returns the number of blocks in the chain.
func (c *Chain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// LastBlock returns the chain's tip, or nil if empty.
func (c *Chain) LastBlock() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// BlockAt returns the block at index, or nil if out of range.
func (c *Chain) BlockAt(index uint64) *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index >= uint64(len(c.blocks)) {
		return nil
	}
	return c.blocks[index]
}

// Snapshot returns the full chain in index order. Callers must not
// mutate the returned blocks.
func (c *Chain) Snapshot() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Hashes returns every block's hash in index order, for checkpoint
// verification against a candidate chain.
func (c *Chain) Hashes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.Hash
	}
	return out
}

// ContainsTxID reports whether txid has ever been confirmed in a block.
func (c *Chain) ContainsTxID(txid string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.txids[txid]
}

// DifficultyHistory returns the (timestamp, hash) pairs the difficulty
// package's ForHeight needs, for the chain's blocks 0..h-1.
func (c *Chain) DifficultyHistory() []difficulty.BlockInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]difficulty.BlockInfo, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = difficulty.BlockInfo{Timestamp: b.Timestamp, Hash: b.Hash}
	}
	return out
}

// CurrentDifficulty returns the difficulty that applies to the next
// candidate block (height = Length()).
func (c *Chain) CurrentDifficulty() int {
	h := uint64(c.Length())
	return difficulty.ForHeight(h, c.DifficultyHistory())
}

// BalanceOf computes an address's balance over the confirmed chain plus
// an in-flight pending set (typically the current mempool). Coinbase
// and miners_pool senders never subtract from their own "balance" since
// they do not hold one.
func (c *Chain) BalanceOf(address string, pending []*Transaction) money.Amount {
	c.mu.RLock()
	blocks := c.blocks
	c.mu.RUnlock()

	var bal money.Amount
	apply := func(tx *Transaction) {
		senderAddr, err := tx.SenderAddress()
		if err == nil && senderAddr == address && !tx.IsSystem() {
			bal = bal.Sub(tx.Amount.Add(tx.Fee))
		}
		if tx.Recipient == address {
			bal = bal.Add(tx.Amount)
		}
	}
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			apply(tx)
		}
	}
	for _, tx := range pending {
		apply(tx)
	}
	return bal
}

// Append validates candidate against the current tip and, if it passes,
// adds it to the chain and indexes its txids. It does not touch the
// mempool, checkpoints, persistence, or gossip — the node facade
// sequences those side effects after a successful Append.
func (c *Chain) Append(candidate *Block, ledger Ledger, pending []*Transaction, nowUnix float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validateLocked(candidate, ledger, pending, nowUnix); err != nil {
		return err
	}

	c.blocks = append(c.blocks, candidate)
	for _, tx := range candidate.Transactions {
		c.txids[tx.TxID] = true
	}
	return nil
}
