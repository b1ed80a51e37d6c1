// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ratelimit guards the transport's write and hot-read
// operations with a per-client-IP token bucket. This is advisory
// policy, not consensus-critical, so it is kept entirely out of the
// chain/mempool packages.
package ratelimit

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Limits bound the default buckets; a node may retune these without
// affecting consensus.
const (
	DefaultRatePerSecond = 5
	DefaultBurst         = 10
	maxTrackedIPs        = 10_000
)

// Limiter keeps one rate.Limiter per client IP.
type Limiter struct {
	mu       sync.Mutex
	perSec   rate.Limit
	burst    int
	buckets  map[string]*rate.Limiter
	order    []string // insertion order, for bounding memory use
}

// New returns a Limiter allowing ratePerSecond sustained requests with
// the given burst, per IP.
func New(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{
		perSec:  rate.Limit(ratePerSecond),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *Limiter) bucketFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if ok {
		return b
	}
	if len(l.order) >= maxTrackedIPs {
		// Evict the oldest tracked IP rather than grow unbounded
		// under a wide scan; a false allow for a just-evicted IP is
		// an acceptable cost for an advisory limiter.
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.buckets, oldest)
	}
	b = rate.NewLimiter(l.perSec, l.burst)
	l.buckets[ip] = b
	l.order = append(l.order, ip)
	return b
}

// Allow reports whether a request from ip may proceed, consuming a
// token if so.
func (l *Limiter) Allow(ip string) bool {
	return l.bucketFor(ip).Allow()
}

// ClientIP extracts the request's source IP from RemoteAddr.
// X-Forwarded-For is deliberately ignored: it is caller-supplied and
// trusting it would let a client bypass its own bucket by claiming a
// different address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
