// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFromFloatRoundTrip(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.00000000"},
		{1, "1.00000000"},
		{0.1, "0.10000000"},
		{100.5, "100.50000000"},
		{-42.25, "-42.25000000"},
	}
	for _, c := range cases {
		got := NewFromFloat(c.in).String()
		require.Equal(t, c.want, got, "NewFromFloat(%v)", c.in)
	}
}

func TestAddSubCmp(t *testing.T) {
	a := NewFromFloat(10)
	b := NewFromFloat(3)
	require.Equal(t, "13.00000000", a.Add(b).String())
	require.Equal(t, "7.00000000", a.Sub(b).String())
	require.Equal(t, 1, a.Cmp(b))
	require.Equal(t, -1, b.Cmp(a))
	require.Equal(t, 0, a.Cmp(a))
}

func TestIsPositiveIsNegative(t *testing.T) {
	require.True(t, NewFromFloat(1).IsPositive())
	require.False(t, NewFromFloat(0).IsPositive())
	require.True(t, NewFromFloat(-1).IsNegative())
	require.False(t, NewFromFloat(0).IsNegative())
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("100.5")
	require.NoError(t, err)
	require.Equal(t, "100.50000000", v.String())

	_, err = ParseAmount("")
	require.Error(t, err)

	_, err = ParseAmount("not-a-number")
	require.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	a := NewFromFloat(12.3)
	b, err := json.Marshal(a)
	require.NoError(t, err)
	require.Equal(t, "12.30000000", string(b))

	var back Amount
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, a, back)

	var fromString Amount
	require.NoError(t, json.Unmarshal([]byte(`"12.3"`), &fromString))
	require.Equal(t, a, fromString)
}
