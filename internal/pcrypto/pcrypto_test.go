// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pcrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPairShapes(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Len(t, kp.PublicHex, 128)
	require.Len(t, kp.PrivateKeyHex(), 64)
	require.True(t, len(kp.Address) > len(AddressPrefix))
	require.Equal(t, AddressPrefix, kp.Address[:len(AddressPrefix)])
}

func TestKeyPairFromPrivateHexRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	restored, err := KeyPairFromPrivateHex(kp.PrivateKeyHex())
	require.NoError(t, err)
	require.Equal(t, kp.PublicHex, restored.PublicHex)
	require.Equal(t, kp.Address, restored.Address)
}

func TestKeyPairFromPrivateHexRejectsMalformed(t *testing.T) {
	_, err := KeyPairFromPrivateHex("not-hex")
	require.Error(t, err)

	_, err = KeyPairFromPrivateHex("ab")
	require.Error(t, err)
}

func TestAddressOfDeterministic(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	addr1, err := AddressOf(kp.PublicHex)
	require.NoError(t, err)
	addr2, err := AddressOf(kp.PublicHex)
	require.NoError(t, err)
	require.Equal(t, addr1, addr2)
	require.Equal(t, kp.Address, addr1)
}

func TestSignAndVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("hello phnd")
	sig := Sign(kp.Private, msg)
	require.True(t, Verify(kp.PublicHex, sig, msg))

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	require.False(t, Verify(other.PublicHex, sig, msg))

	require.False(t, Verify(kp.PublicHex, sig, []byte("tampered")))
}

func TestVerifyRejectsMalformedInputs(t *testing.T) {
	require.False(t, Verify("not-hex", "also-not-hex", []byte("msg")))
}

func TestRandomNonceBounded(t *testing.T) {
	for i := 0; i < 50; i++ {
		n, err := RandomNonce(1000)
		require.NoError(t, err)
		require.Less(t, n, uint64(1000))
	}
	_, err := RandomNonce(0)
	require.Error(t, err)
}
