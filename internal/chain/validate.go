// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"fmt"

	"github.com/prasangapokharel/phnd/internal/difficulty"
	"github.com/prasangapokharel/phnd/internal/pcrypto"
	"github.com/prasangapokharel/phnd/internal/phnderr"
)

// Timestamp window bounds, per the POUV checklist.
const (
	MaxFutureSkewSeconds = 60
	MaxAgeSeconds        = 3600
)

const amountEpsilon = 1e-9

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

// schemaOK checks presence of the fields every transaction must carry.
// A typed struct can't distinguish "field omitted" from "field present
// with its zero value" the way a dynamically-shaped source dict could,
// so an empty sender/recipient/txid or a zero timestamp stands in for
// "required field missing".
func schemaOK(tx *Transaction) bool {
	if tx.Sender == "" || tx.Recipient == "" || tx.TxID == "" {
		return false
	}
	if tx.Timestamp == 0 {
		return false
	}
	if tx.Kind() == SenderKindUser && tx.Signature == "" {
		return false
	}
	return true
}

func recordValidation(ledger Ledger, txid, status, reason string) *phnderr.Error {
	if ledger == nil {
		return nil
	}
	if err := ledger.Put(txid, status, reason); err != nil {
		return phnderr.New(phnderr.KindStorage, "validation ledger write failed: "+err.Error())
	}
	return nil
}

// ValidateTransaction runs the Proof of Universal Validation checklist
// against tx, in fixed order:
//  1. replay ledger, 2. schema, 3. timestamp window, 4. signature,
//  5. txid shape, 6. amount, 7. fee, 8. solvency.
//
// chain is used for the replay check (has txid ever been confirmed) and
// for balance lookups; pending is the mempool view folded into the
// balance computation alongside the confirmed chain.
func ValidateTransaction(tx *Transaction, params Params, ledger Ledger, ch *Chain, pending []*Transaction, nowUnix float64) *phnderr.Error {
	// 1. Replay ledger.
	if ledger != nil {
		if status, reason, found := ledger.Get(tx.TxID); found {
			if status == "valid" && ch != nil && ch.ContainsTxID(tx.TxID) {
				return phnderr.New(phnderr.KindReplay, "txid already confirmed in chain")
			}
			if status == "invalid" {
				return phnderr.New(phnderr.KindInvalidTransaction, reason)
			}
		}
	}

	// 2. Schema.
	if !schemaOK(tx) {
		const reason = "missing required field"
		if stErr := recordValidation(ledger, tx.TxID, "invalid", reason); stErr != nil {
			return stErr
		}
		return phnderr.New(phnderr.KindInvalidTransaction, reason)
	}

	fail := func(reason string) *phnderr.Error {
		if stErr := recordValidation(ledger, tx.TxID, "invalid", reason); stErr != nil {
			return stErr
		}
		return phnderr.New(phnderr.KindInvalidTransaction, reason)
	}

	// 3. Timestamp window.
	if tx.Timestamp > nowUnix+MaxFutureSkewSeconds {
		return fail("future")
	}
	if nowUnix-tx.Timestamp > MaxAgeSeconds {
		return fail("too old")
	}

	// 4. Signature.
	switch tx.Kind() {
	case SenderKindUser:
		if tx.Signature == "" || tx.Signature == pcrypto.GenesisSignature {
			return fail("invalid signature")
		}
		if !pcrypto.Verify(tx.Sender, tx.Signature, tx.SignaturePreimage()) {
			return fail("invalid signature")
		}
	default:
		if tx.Signature != pcrypto.GenesisSignature {
			return fail("system transaction must carry the genesis signature")
		}
	}

	// 5. Txid shape.
	if !isHex64(tx.TxID) {
		return fail("malformed txid")
	}

	// 6. Amount.
	if !tx.Amount.IsPositive() {
		return fail("amount must be positive")
	}

	// 7. Fee.
	if tx.Kind() == SenderKindUser && tx.Fee.Cmp(params.MinTxFee) < 0 {
		return fail("fee below minimum")
	}

	// 8. Solvency.
	if tx.Kind() == SenderKindUser {
		senderAddr, err := tx.SenderAddress()
		if err != nil {
			return fail("unresolvable sender address")
		}
		balance := ch.BalanceOf(senderAddr, pending)
		if balance.Cmp(tx.Amount.Add(tx.Fee)) < 0 {
			return fail("insufficient balance")
		}
	}

	if stErr := recordValidation(ledger, tx.TxID, "valid", ""); stErr != nil {
		return stErr
	}
	return nil
}

func amountsEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= amountEpsilon
}

// validateLocked implements block admission. The caller must already
// hold c.mu for writing.
func (c *Chain) validateLocked(b *Block, ledger Ledger, pending []*Transaction, nowUnix float64) error {
	// Linkage.
	if len(c.blocks) == 0 {
		if b.Index != 0 {
			return phnderr.New(phnderr.KindInvalidBlock, "genesis block must have index 0")
		}
	} else {
		last := c.blocks[len(c.blocks)-1]
		if b.Index != last.Index+1 {
			return phnderr.New(phnderr.KindInvalidBlock, "block index does not extend the tip")
		}
		if b.PrevHash != last.Hash {
			return phnderr.New(phnderr.KindInvalidBlock, "prev_hash does not match tip hash")
		}
	}

	// Hash integrity and PoW.
	wantHash := b.ComputeHash()
	if b.Hash != wantHash {
		return phnderr.New(phnderr.KindInvalidBlock, "hash does not match block contents")
	}
	d := difficulty.ForHeight(b.Index, c.difficultyHistoryLocked())
	if difficulty.LeadingZeros(b.Hash) < d {
		return phnderr.New(phnderr.KindInvalidBlock, fmt.Sprintf("hash does not satisfy difficulty %d", d))
	}

	// Exactly one coinbase, with the correct reward amount.
	var coinbase *Transaction
	var minersPool *Transaction
	seen := make(map[string]bool, len(b.Transactions))
	var feeTotal float64
	for _, tx := range b.Transactions {
		if seen[tx.TxID] {
			return phnderr.New(phnderr.KindInvalidBlock, "duplicate txid within block")
		}
		seen[tx.TxID] = true

		switch tx.Kind() {
		case SenderKindCoinbase:
			if coinbase != nil {
				return phnderr.New(phnderr.KindInvalidBlock, "more than one coinbase transaction")
			}
			coinbase = tx
		case SenderKindMinersPool:
			if minersPool != nil {
				return phnderr.New(phnderr.KindInvalidBlock, "more than one miners_pool transaction")
			}
			minersPool = tx
		default:
			feeTotal += tx.Fee.ToFloat()
		}
	}
	if coinbase == nil {
		return phnderr.New(phnderr.KindInvalidBlock, "block has no coinbase transaction")
	}
	var wantReward float64
	if b.Index == 0 {
		wantReward = c.params.OwnerGenesisAmount().ToFloat()
	} else {
		wantReward = c.params.BlockReward(b.Index).ToFloat()
	}
	if !amountsEqual(coinbase.Amount.ToFloat(), wantReward) {
		return phnderr.New(phnderr.KindInvalidBlock, "coinbase amount does not match the reward schedule")
	}

	// Fee conservation.
	if feeTotal > amountEpsilon {
		if minersPool == nil {
			return phnderr.New(phnderr.KindInvalidBlock, "block collects fees but has no miners_pool payout")
		}
		if minersPool.Recipient != coinbase.Recipient {
			return phnderr.New(phnderr.KindInvalidBlock, "miners_pool payout must go to this block's coinbase recipient")
		}
		if !amountsEqual(minersPool.Amount.ToFloat(), feeTotal) {
			return phnderr.New(phnderr.KindInvalidBlock, "miners_pool payout does not equal total fees")
		}
	} else if minersPool != nil {
		return phnderr.New(phnderr.KindInvalidBlock, "miners_pool payout present with zero fees collected")
	}

	// Every non-system transaction passes the POUV checklist.
	for _, tx := range b.Transactions {
		if tx.IsSystem() {
			continue
		}
		if vErr := ValidateTransaction(tx, c.params, ledger, c, pending, nowUnix); vErr != nil {
			return phnderr.New(phnderr.KindInvalidBlock, "embedded transaction "+tx.TxID+" failed validation: "+vErr.Reason)
		}
	}

	return nil
}

// difficultyHistoryLocked is DifficultyHistory without re-acquiring the
// lock, for use from validateLocked which already holds it.
func (c *Chain) difficultyHistoryLocked() []difficulty.BlockInfo {
	out := make([]difficulty.BlockInfo, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = difficulty.BlockInfo{Timestamp: b.Timestamp, Hash: b.Hash}
	}
	return out
}
