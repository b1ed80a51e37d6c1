// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package money implements a fixed-point amount type so that balance and
// fee arithmetic never accumulates floating-point rounding error.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scale is the number of fractional decimal digits an Amount carries.
// It is pinned at 8 so that the canonical decimal formatting used in
// hash and signature preimages never varies across producers.
const Scale = 8

var scaleFactor = math.Pow10(Scale)

// Amount is a quantity of PHN expressed in units of 10^-Scale, stored as
// an int64 atom count. Zero value is zero PHN.
type Amount int64

// NewFromFloat converts a float64 PHN quantity to an Amount, rounding to
// the nearest atom.
func NewFromFloat(v float64) Amount {
	return Amount(math.Round(v * scaleFactor))
}

// ToFloat returns the amount as a float64 number of PHN. Callers doing
// further arithmetic should prefer the Amount methods below, which stay
// in fixed point.
func (a Amount) ToFloat() float64 {
	return float64(a) / scaleFactor
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsPositive reports whether a is strictly greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative reports whether a is strictly less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// String renders the amount using the canonical fixed-point format: exactly
// Scale fractional digits, no trailing-zero trimming, no exponent. This
// exact string is what enters txid and signature preimages, so its shape
// is part of the wire protocol, not merely a display convenience.
func (a Amount) String() string {
	neg := a < 0
	u := int64(a)
	if neg {
		u = -u
	}
	whole := u / int64(scaleFactor)
	frac := u % int64(scaleFactor)
	s := fmt.Sprintf("%d.%0*d", whole, Scale, frac)
	if neg {
		s = "-" + s
	}
	return s
}

// ParseAmount parses the canonical fixed-point string format produced by
// String, as well as plain decimal strings a transport layer might hand
// in from JSON (e.g. "100" or "100.5").
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return NewFromFloat(f), nil
}

// MarshalJSON renders the amount as a JSON number with the canonical
// fixed-point precision so API responses and on-disk snapshots agree
// byte-for-byte with the hashing preimage.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a JSON string, since
// producers on the wire historically send both.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
