// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package phnderr defines the error kinds the core distinguishes, mirroring
// the RuleError convention used throughout the dcrd consensus packages:
// a small closed set of codes plus a human-readable reason, never a raw
// panic or exception out of a validation path.
package phnderr

import "net/http"

// Kind identifies the class of failure returned by a core operation.
type Kind int

const (
	// KindInvalidTransaction covers any POUV checklist failure.
	KindInvalidTransaction Kind = iota
	// KindInvalidBlock covers schema, linkage, PoW, coinbase, or
	// fee-payout failures.
	KindInvalidBlock
	// KindReplay indicates the txid already appears in the chain.
	KindReplay
	// KindCheckpointViolation indicates a candidate chain disagrees
	// with a pinned height.
	KindCheckpointViolation
	// KindReorgTooDeep indicates a candidate would rewrite more than
	// MaxReorgDepth tip blocks.
	KindReorgTooDeep
	// KindMempoolFull indicates capacity with no evictable lower-fee
	// entry.
	KindMempoolFull
	// KindNotFound indicates a txid, block index, or address with no
	// history.
	KindNotFound
	// KindPeerUnreachable indicates a peer transport failure.
	KindPeerUnreachable
	// KindPeerInvalid indicates a peer supplied data that failed
	// validation.
	KindPeerInvalid
	// KindRateLimited indicates a caller exceeded its token bucket.
	KindRateLimited
	// KindInvalidInput covers malformed request bodies that never
	// reach consensus-level validation.
	KindInvalidInput
	// KindStorage is fatal: the node must not continue serving writes
	// with a possibly inconsistent store.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalidTransaction:
		return "invalid-transaction"
	case KindInvalidBlock:
		return "invalid-block"
	case KindReplay:
		return "replay"
	case KindCheckpointViolation:
		return "checkpoint-violation"
	case KindReorgTooDeep:
		return "reorg-too-deep"
	case KindMempoolFull:
		return "mempool-full"
	case KindNotFound:
		return "not-found"
	case KindPeerUnreachable:
		return "peer-unreachable"
	case KindPeerInvalid:
		return "peer-invalid"
	case KindRateLimited:
		return "rate-limited"
	case KindInvalidInput:
		return "invalid-input"
	case KindStorage:
		return "storage-error"
	default:
		return "unknown"
	}
}

// Error is the value-based error type every validation and storage path
// returns instead of unwinding. It is never used for flow control inside
// a single call; it is the terminal return value of one.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Reason
}

// New builds an Error of the given kind and reason.
func New(k Kind, reason string) *Error {
	return &Error{Kind: k, Reason: reason}
}

// HTTPStatus maps a Kind to the status code the transport layer should
// return, per the {400, 404, 429, 500} contract.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Is reports whether err is a *Error of the given kind, for use with
// errors.Is-style call sites.
func Is(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}
