// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package phnderr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindStorage, http.StatusInternalServerError},
		{KindInvalidTransaction, http.StatusBadRequest},
		{KindReplay, http.StatusBadRequest},
	}
	for _, c := range cases {
		err := New(c.kind, "reason")
		require.Equal(t, c.want, err.HTTPStatus(), "kind %v", c.kind)
	}
}

func TestErrorString(t *testing.T) {
	err := New(KindReplay, "txid already confirmed")
	require.Equal(t, "replay: txid already confirmed", err.Error())
}

func TestIs(t *testing.T) {
	err := New(KindMempoolFull, "no evictable entry")
	require.True(t, Is(err, KindMempoolFull))
	require.False(t, Is(err, KindReplay))
	require.False(t, Is(nil, KindMempoolFull))
}
