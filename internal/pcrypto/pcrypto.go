// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pcrypto wraps secp256k1 key generation, signing and
// verification, and address derivation behind the exact byte shapes the
// wire protocol expects: a 64-byte (128 hex character) raw public key
// with no format-tag prefix, and a DER-encoded hex signature.
package pcrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// GenesisSignature is the sentinel signature value every system
// transaction (coinbase, miners_pool) must carry instead of a real
// signature.
const GenesisSignature = "genesis"

// AddressPrefix is prepended to the derived address digest.
const AddressPrefix = "PHN"

// addressDigestLen is the number of leading hex characters of the
// SHA-256 digest kept in an address, per the wire protocol's 43-char
// total address length (3-byte prefix + 40 hex chars).
const addressDigestLen = 40

// KeyPair is a generated secp256k1 identity.
type KeyPair struct {
	Private    *secp256k1.PrivateKey
	PublicHex  string
	Address    string
}

// GenerateKeyPair creates a fresh secp256k1 keypair and derives its
// address.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("pcrypto: generate key: %w", err)
	}
	pubHex := encodePublicKey(priv.PubKey())
	addr, err := AddressOf(pubHex)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, PublicHex: pubHex, Address: addr}, nil
}

// encodePublicKey strips the secp256k1 uncompressed-format tag byte,
// leaving the raw 64-byte X||Y coordinate pair the wire protocol uses.
func encodePublicKey(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed() // 0x04 || X(32) || Y(32)
	return hex.EncodeToString(raw[1:])
}

// PrivateKeyHex returns the 32-byte scalar as hex, suitable for the
// owner-key bootstrap file.
func (kp *KeyPair) PrivateKeyHex() string {
	return hex.EncodeToString(kp.Private.Serialize())
}

// KeyPairFromPrivateHex reconstructs a KeyPair from a stored 32-byte hex
// scalar.
func KeyPairFromPrivateHex(privHex string) (*KeyPair, error) {
	raw, err := hex.DecodeString(privHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("pcrypto: malformed private key hex")
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	pubHex := encodePublicKey(priv.PubKey())
	addr, err := AddressOf(pubHex)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, PublicHex: pubHex, Address: addr}, nil
}

// parsePublicKey rebuilds a secp256k1 public key from the wire's raw
// 128-hex-character (64-byte) encoding.
func parsePublicKey(pubHex string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, fmt.Errorf("pcrypto: public key is not valid hex: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("pcrypto: public key must be 64 bytes, got %d", len(raw))
	}
	uncompressed := make([]byte, 0, 65)
	uncompressed = append(uncompressed, 0x04)
	uncompressed = append(uncompressed, raw...)
	pub, err := secp256k1.ParsePubKey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("pcrypto: invalid public key: %w", err)
	}
	return pub, nil
}

// AddressOf derives the canonical "PHN"+hex40 address from a raw 64-byte
// hex-encoded public key.
func AddressOf(pubHex string) (string, error) {
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return "", fmt.Errorf("pcrypto: public key is not valid hex: %w", err)
	}
	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])
	return AddressPrefix + digest[:addressDigestLen], nil
}

// Sign signs message (the canonical encoding of a transaction with its
// signature field absent) and returns a hex-encoded DER signature.
func Sign(priv *secp256k1.PrivateKey, message []byte) string {
	digest := sha256.Sum256(message)
	sig := ecdsa.Sign(priv, digest[:])
	return hex.EncodeToString(sig.Serialize())
}

// Verify checks sigHex against message under the public key encoded by
// pubHex.
func Verify(pubHex, sigHex string, message []byte) bool {
	pub, err := parsePublicKey(pubHex)
	if err != nil {
		return false
	}
	sigRaw, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigRaw)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return sig.Verify(digest[:], pub)
}

// RandomNonce returns a cryptographically random nonce in [0, bound),
// the form user transactions carry to keep otherwise-identical
// transactions from colliding on txid.
func RandomNonce(bound uint64) (uint64, error) {
	if bound == 0 {
		return 0, fmt.Errorf("pcrypto: nonce bound must be positive")
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v % bound, nil
}
