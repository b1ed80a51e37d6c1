// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"strconv"

	"github.com/prasangapokharel/phnd/internal/codec"
	"github.com/prasangapokharel/phnd/internal/money"
	"github.com/prasangapokharel/phnd/internal/pcrypto"
)

// System sender sentinels. A Sender is either one of these two literals
// or a 128-hex-character secp256k1 public key; SenderKind below tells
// the validator which case it is looking at so it never mistakes a
// system transaction for a user one.
const (
	SenderCoinbase   = "coinbase"
	SenderMinersPool = "miners_pool"
)

// SenderKind classifies a transaction's sender field.
type SenderKind int

const (
	// SenderKindUser is a secp256k1-public-key sender.
	SenderKindUser SenderKind = iota
	// SenderKindCoinbase is the block-reward issuance sentinel.
	SenderKindCoinbase
	// SenderKindMinersPool is the in-block fee-payout sentinel.
	SenderKindMinersPool
)

// Transaction is a signed value transfer, or one of the two synthetic
// system transactions a block carries (coinbase reward, miners_pool fee
// payout).
type Transaction struct {
	Sender    string       `json:"sender"`
	Recipient string       `json:"recipient"`
	Amount    money.Amount `json:"amount"`
	Fee       money.Amount `json:"fee"`
	Timestamp float64      `json:"timestamp"`
	Nonce     uint64       `json:"nonce"`
	TxID      string       `json:"txid"`
	Signature string       `json:"signature"`
}

// Kind reports whether Sender is a system sentinel or a user public key.
func (tx *Transaction) Kind() SenderKind {
	switch tx.Sender {
	case SenderCoinbase:
		return SenderKindCoinbase
	case SenderMinersPool:
		return SenderKindMinersPool
	default:
		return SenderKindUser
	}
}

// IsSystem reports whether tx is a coinbase or miners_pool transaction.
func (tx *Transaction) IsSystem() bool {
	return tx.Kind() != SenderKindUser
}

// SenderAddress resolves the sender field to the address balances are
// keyed by. System senders use their literal sentinel directly (they
// never hold a balance); a user sender is coerced to its derived
// address.
func (tx *Transaction) SenderAddress() (string, error) {
	if tx.IsSystem() {
		return tx.Sender, nil
	}
	return pcrypto.AddressOf(tx.Sender)
}

// formatTimestamp pins the canonical decimal rendering of a timestamp
// for hash and signature preimages: fixed at microsecond precision, no
// exponent notation, matching the fixed-point rule used for amounts.
func formatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', 6, 64)
}

// txIDPreimage builds the exact byte sequence txid is the SHA-256 of:
// the raw concatenation of sender, recipient, amount, fee, timestamp and
// nonce, each in their canonical decimal/hex string form.
func (tx *Transaction) txIDPreimage() []byte {
	var b []byte
	b = append(b, tx.Sender...)
	b = append(b, tx.Recipient...)
	b = append(b, tx.Amount.String()...)
	b = append(b, tx.Fee.String()...)
	b = append(b, formatTimestamp(tx.Timestamp)...)
	b = append(b, strconv.FormatUint(tx.Nonce, 10)...)
	return b
}

// ComputeTxID returns the txid this transaction's content implies.
func (tx *Transaction) ComputeTxID() string {
	return codec.Sha256Hex(tx.txIDPreimage())
}

// canonicalMap renders tx as the ordered-key map codec.CanonicalEncode
// expects. When omitSignature is true, the signature field is left out
// entirely (rather than emitted empty), matching the signing preimage
// rule: "canonical encoding of a transaction with its signature field
// absent".
func (tx *Transaction) canonicalMap(omitSignature bool) map[string]interface{} {
	m := map[string]interface{}{
		"sender":    tx.Sender,
		"recipient": tx.Recipient,
		"amount":    tx.Amount.String(),
		"fee":       tx.Fee.String(),
		"timestamp": formatTimestamp(tx.Timestamp),
		"nonce":     tx.Nonce,
		"txid":      tx.TxID,
	}
	if !omitSignature {
		m["signature"] = tx.Signature
	}
	return m
}

// SignaturePreimage returns the canonical encoding tx must be signed and
// verified over.
func (tx *Transaction) SignaturePreimage() []byte {
	return codec.CanonicalEncode(tx.canonicalMap(true))
}

// CanonicalMap returns tx's full canonical-encoding map, used when a
// containing block is canonically encoded.
func (tx *Transaction) CanonicalMap() map[string]interface{} {
	return tx.canonicalMap(false)
}

// Block is one link of the append-only chain.
type Block struct {
	Index        uint64         `json:"index"`
	Timestamp    float64        `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	PrevHash     string         `json:"prev_hash"`
	Nonce        uint64         `json:"nonce"`
	Hash         string         `json:"hash"`
}

// canonicalMap renders b as the ordered-key map codec.CanonicalEncode
// expects. When omitHash is true the hash field is left out, matching
// the block-hashing rule: "canonical encoding of the block with its
// hash field removed".
func (b *Block) canonicalMap(omitHash bool) map[string]interface{} {
	txs := make([]interface{}, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = tx.CanonicalMap()
	}
	m := map[string]interface{}{
		"index":        b.Index,
		"timestamp":    formatTimestamp(b.Timestamp),
		"transactions": txs,
		"prev_hash":    b.PrevHash,
		"nonce":        b.Nonce,
	}
	if !omitHash {
		m["hash"] = b.Hash
	}
	return m
}

// HashPreimage returns the canonical encoding hash_block hashes.
func (b *Block) HashPreimage() []byte {
	return codec.CanonicalEncode(b.canonicalMap(true))
}

// ComputeHash returns the hash b's content implies.
func (b *Block) ComputeHash() string {
	return codec.Sha256Hex(b.HashPreimage())
}
