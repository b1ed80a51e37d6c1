// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package codec implements the canonical byte encoding that every
// producer must agree on bit-for-bit, since its output feeds directly
// into block hashing and transaction signing. It deliberately does not
// reuse encoding/json's default object output: object keys are sorted
// lexicographically, numbers never use exponent notation, and there is
// no whitespace, so the same logical value always yields the same bytes
// regardless of platform or map iteration order.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sha256Hex returns the lowercase hex encoding of SHA-256(data).
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalEncode renders v deterministically. Supported shapes are the
// ones the chain package actually produces: map[string]any (object,
// recursively sorted by key), []any and []string (array, order
// preserved), string, bool, int, int64, uint64, nil, and any
// fmt.Stringer (encoded as its String() value). Any other type is a
// programmer error and panics.
func CanonicalEncode(v interface{}) []byte {
	var b strings.Builder
	writeCanonical(&b, v)
	return []byte(b.String())
}

func writeCanonical(b *strings.Builder, v interface{}) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]interface{}:
		writeObject(b, t)
	case string:
		writeString(b, t)
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
	case []interface{}:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeString(b, e)
		}
		b.WriteByte(']')
	case fmt.Stringer:
		writeString(b, t.String())
	default:
		panic(fmt.Sprintf("codec: unsupported canonical value type %T", v))
	}
}

func writeObject(b *strings.Builder, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeString(b, k)
		b.WriteByte(':')
		writeCanonical(b, m[k])
	}
	b.WriteByte('}')
}

func writeString(b *strings.Builder, s string) {
	out, _ := jsonQuote(s)
	b.WriteString(out)
}

// jsonQuote renders s as a JSON string literal, escaping only '"', '\\'
// and control characters (unlike encoding/json it does not HTML-escape
// '<', '>' or '&'), without pulling in the full encoder (which would reorder nothing here
// but would re-introduce locale/whitespace variance we want to avoid).
func jsonQuote(s string) (string, error) {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String(), nil
}
