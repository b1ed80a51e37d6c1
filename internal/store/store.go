// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store persists chain, mempool, peer, and validation-ledger
// state in a single embedded memory-mapped key-value file. It plays the
// role dcrd's database/v3 (ffldb over goleveldb) plays for that node,
// but backed by bbolt, whose single-file, single-writer/many-reader
// model is the simpler fit for this node's append-only chain.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/prasangapokharel/phnd/internal/chain"
)

// Bucket names, matching the logical tables the wire/persistence
// contract names.
var (
	bucketBlocks     = []byte("blocks")
	bucketPending    = []byte("pending")
	bucketPeers      = []byte("peers")
	bucketMetadata   = []byte("metadata")
	bucketValidation = []byte("validation")
)

const metaKey = "blockchain_meta"

// ValidationRecord is the replay-ledger entry persisted for every txid
// ever validated.
type ValidationRecord struct {
	TxID      string `json:"txid"`
	Status    string `json:"status"` // "valid" or "invalid"
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

type meta struct {
	BlockCount  uint64 `json:"block_count"`
	LastUpdated int64  `json:"last_updated"`
}

// Store is the embedded KV persistence layer.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the bbolt file at path and ensures every bucket
// this package uses exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBlocks, bucketPending, bucketPeers, bucketMetadata, bucketValidation} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying file and mmap.
func (s *Store) Close() error {
	return s.db.Close()
}

func blockKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%010d", index))
}

// SaveChain atomically replaces the persisted chain: the blocks bucket
// is cleared and repopulated and the metadata counter updated within a
// single bbolt transaction, so a reader's next transaction observes
// either the entire old chain or the entire new one, never a mixture,
// and a process crash mid-write leaves the previous commit intact
// (bbolt only makes a transaction visible after its final fsync).
func (s *Store) SaveChain(blocks []*chain.Block) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketBlocks); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketBlocks)
		if err != nil {
			return err
		}
		for _, blk := range blocks {
			data, err := json.Marshal(blk)
			if err != nil {
				return err
			}
			if err := b.Put(blockKey(blk.Index), data); err != nil {
				return err
			}
		}
		m := meta{BlockCount: uint64(len(blocks)), LastUpdated: time.Now().Unix()}
		mdata, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMetadata).Put([]byte(metaKey), mdata)
	})
}

// LoadChain returns the persisted chain in ascending index order, or
// ok=false if none has ever been saved.
func (s *Store) LoadChain() (blocks []*chain.Block, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var blk chain.Block
			if uErr := json.Unmarshal(v, &blk); uErr != nil {
				return uErr
			}
			blocks = append(blocks, &blk)
			ok = true
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: load chain: %w", err)
	}
	return blocks, ok, nil
}

// SaveMempool persists the current mempool snapshot in priority order.
func (s *Store) SaveMempool(txs []*chain.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPending); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketPending)
		if err != nil {
			return err
		}
		for i, t := range txs {
			data, err := json.Marshal(t)
			if err != nil {
				return err
			}
			if err := b.Put(blockKey(uint64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadMempool returns the persisted mempool snapshot in insertion order.
func (s *Store) LoadMempool() ([]*chain.Transaction, error) {
	var out []*chain.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPending)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var t chain.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			out = append(out, &t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: load mempool: %w", err)
	}
	return out, nil
}

// SavePeers persists the current peer URL set.
func (s *Store) SavePeers(urls []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPeers); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketPeers)
		if err != nil {
			return err
		}
		for i, u := range urls {
			if err := b.Put(blockKey(uint64(i)), []byte(u)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadPeers returns the persisted peer URL set.
func (s *Store) LoadPeers() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			out = append(out, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: load peers: %w", err)
	}
	return out, nil
}

// PutValidation records a validation-ledger entry for txid.
func (s *Store) PutValidation(rec ValidationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketValidation).Put(validationKey(rec.TxID), data)
	})
}

// GetValidation returns the validation-ledger entry for txid, if any.
func (s *Store) GetValidation(txid string) (rec ValidationRecord, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketValidation).Get(validationKey(txid))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return ValidationRecord{}, false, fmt.Errorf("store: get validation: %w", err)
	}
	return rec, ok, nil
}

func validationKey(txid string) []byte {
	return []byte("tx:" + txid)
}
