// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"sync"
	"time"

	"github.com/rxchain-project/rxchaind/chainhash"
)

// getHeadersRate and getHeadersBurst bound how often one peer may ask us
// for headers. spec.md §4.9 calls for "roughly 10 per minute"; a token
// bucket refilling one token every getHeadersRate lets a peer burst a
// handful of requests after being idle without ever sustaining more than
// the stated rate.
const (
	getHeadersRate  = time.Minute / 10
	getHeadersBurst = 3

	// dedupWindow is how long an identical GETHEADERS locator from the
	// same peer is silently dropped rather than answered a second time,
	// guarding against a peer re-sending the same request faster than we
	// can reply.
	dedupWindow = 5 * time.Second
)

// headersLimiter rate-limits and de-duplicates GETHEADERS requests on a
// per-peer basis. Zero value is not usable; use newHeadersLimiter.
type headersLimiter struct {
	mu    sync.Mutex
	peers map[uint64]*peerLimitState
}

type peerLimitState struct {
	tokens     float64
	lastRefill time.Time

	lastLocator   chainhash.Hash
	lastRequestAt time.Time
}

func newHeadersLimiter() *headersLimiter {
	return &headersLimiter{peers: make(map[uint64]*peerLimitState)}
}

func (l *headersLimiter) forget(peerID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.peers, peerID)
}

// allow reports whether a GETHEADERS from peerID, whose locator hashes to
// locatorKey, should be answered right now. It both enforces the token
// bucket and drops an exact repeat seen within dedupWindow.
func (l *headersLimiter) allow(peerID uint64, locatorKey chainhash.Hash, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.peers[peerID]
	if !ok {
		st = &peerLimitState{tokens: getHeadersBurst, lastRefill: now}
		l.peers[peerID] = st
	}

	if st.lastLocator == locatorKey && now.Sub(st.lastRequestAt) < dedupWindow {
		return false
	}

	elapsed := now.Sub(st.lastRefill)
	st.tokens += elapsed.Seconds() / getHeadersRate.Seconds()
	if st.tokens > getHeadersBurst {
		st.tokens = getHeadersBurst
	}
	st.lastRefill = now

	if st.tokens < 1 {
		return false
	}
	st.tokens--
	st.lastLocator = locatorKey
	st.lastRequestAt = now
	return true
}
