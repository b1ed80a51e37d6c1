// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peersync

import (
	"sync"
	"time"
)

// Status is a peer's derived health state.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// FailuresUntilFailed is the consecutive-failure threshold at which a
// peer is excluded from sync_best and broadcast_block.
const FailuresUntilFailed = 3

// Health is one peer's tracked state.
type Health struct {
	Failures    int
	LastSuccess time.Time
	LastFailure time.Time
	Status      Status
}

// healthTable guards the peer URL set and per-peer health map together,
// since every mutation touches both.
type healthTable struct {
	mu     sync.Mutex
	peers  map[string]bool
	health map[string]*Health
}

func newHealthTable() *healthTable {
	return &healthTable{peers: make(map[string]bool), health: make(map[string]*Health)}
}

func (t *healthTable) add(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.peers[url] {
		return
	}
	t.peers[url] = true
	t.health[url] = &Health{Status: StatusHealthy}
}

func (t *healthTable) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.peers))
	for u := range t.peers {
		out = append(out, u)
	}
	return out
}

func (t *healthTable) healthyList() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.peers))
	for u := range t.peers {
		if h := t.health[u]; h != nil && h.Status != StatusFailed {
			out = append(out, u)
		}
	}
	return out
}

func (t *healthTable) failedList() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0)
	for u := range t.peers {
		if h := t.health[u]; h != nil && h.Status == StatusFailed {
			out = append(out, u)
		}
	}
	return out
}

func (t *healthTable) recordSuccess(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.health[url]
	if h == nil {
		h = &Health{}
		t.health[url] = h
	}
	h.Failures = 0
	h.LastSuccess = time.Now()
	h.Status = StatusHealthy
}

func (t *healthTable) recordFailure(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.health[url]
	if h == nil {
		h = &Health{}
		t.health[url] = h
	}
	h.Failures++
	h.LastFailure = time.Now()
	if h.Failures >= FailuresUntilFailed {
		h.Status = StatusFailed
	} else {
		h.Status = StatusDegraded
	}
}

func (t *healthTable) snapshot() map[string]Health {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Health, len(t.health))
	for u, h := range t.health {
		out[u] = *h
	}
	return out
}
