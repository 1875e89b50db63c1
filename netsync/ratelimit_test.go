// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"testing"
	"time"

	"github.com/rxchain-project/rxchaind/chainhash"
)

func TestHeadersLimiterBurstThenThrottles(t *testing.T) {
	l := newHeadersLimiter()
	now := time.Now()
	var keyA chainhash.Hash
	keyA[0] = 0xaa

	for i := 0; i < getHeadersBurst; i++ {
		key := keyA
		key[1] = byte(i) // distinct key each call so dedup never fires
		if !l.allow(1, key, now) {
			t.Fatalf("expected burst request %d to be allowed", i)
		}
	}

	var keyOver chainhash.Hash
	keyOver[0] = 0xff
	if l.allow(1, keyOver, now) {
		t.Fatal("expected request past the burst to be throttled")
	}
}

func TestHeadersLimiterRefillsOverTime(t *testing.T) {
	l := newHeadersLimiter()
	now := time.Now()
	var key chainhash.Hash
	key[0] = 1

	for i := 0; i < getHeadersBurst; i++ {
		k := key
		k[1] = byte(i)
		if !l.allow(1, k, now) {
			t.Fatalf("expected burst request %d to be allowed", i)
		}
	}

	later := now.Add(getHeadersRate + time.Millisecond)
	var keyB chainhash.Hash
	keyB[0] = 2
	if !l.allow(1, keyB, later) {
		t.Fatal("expected a token to have refilled after getHeadersRate elapsed")
	}
}

func TestHeadersLimiterDedupsExactRepeat(t *testing.T) {
	l := newHeadersLimiter()
	now := time.Now()
	var key chainhash.Hash
	key[0] = 7

	if !l.allow(1, key, now) {
		t.Fatal("expected first request to be allowed")
	}
	if l.allow(1, key, now.Add(time.Millisecond)) {
		t.Fatal("expected an identical locator within dedupWindow to be dropped")
	}
	if !l.allow(1, key, now.Add(dedupWindow+time.Millisecond)) {
		t.Fatal("expected the repeat to be allowed again once dedupWindow has passed")
	}
}

func TestHeadersLimiterTracksPeersIndependently(t *testing.T) {
	l := newHeadersLimiter()
	now := time.Now()
	var key chainhash.Hash
	key[0] = 3

	if !l.allow(1, key, now) {
		t.Fatal("expected peer 1's first request to be allowed")
	}
	if !l.allow(2, key, now) {
		t.Fatal("expected peer 2's identical request to be allowed independently of peer 1")
	}
}

func TestHeadersLimiterForgetDropsState(t *testing.T) {
	l := newHeadersLimiter()
	now := time.Now()
	var key chainhash.Hash
	key[0] = 9

	if !l.allow(1, key, now) {
		t.Fatal("expected first request to be allowed")
	}
	l.forget(1)
	if !l.allow(1, key, now.Add(time.Millisecond)) {
		t.Fatal("expected forgetting a peer to clear its dedup/bucket state")
	}
}
