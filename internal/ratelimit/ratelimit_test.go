// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(1, 3)
	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("1.2.3.4"))
	}
	require.False(t, l.Allow("1.2.3.4"))
}

func TestAllowTracksPerIPIndependently(t *testing.T) {
	l := New(1, 1)
	require.True(t, l.Allow("1.1.1.1"))
	require.False(t, l.Allow("1.1.1.1"))
	require.True(t, l.Allow("2.2.2.2"))
}

func TestBucketEvictionBoundsMemory(t *testing.T) {
	l := New(1, 1)
	for i := 0; i < maxTrackedIPs+10; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	require.LessOrEqual(t, len(l.buckets), maxTrackedIPs)
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:51234"
	require.Equal(t, "203.0.113.5", ClientIP(req))
}

func TestClientIPIgnoresForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:51234"
	req.Header.Set("X-Forwarded-For", "9.9.9.9")
	require.Equal(t, "203.0.113.5", ClientIP(req))
}

func TestClientIPFallsBackToRawRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "not-a-host-port"
	require.Equal(t, "not-a-host-port", ClientIP(req))
}
