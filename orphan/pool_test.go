// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orphan

import (
	"testing"

	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/wire"
)

func header(prev chainhash.Hash, nonce uint32) wire.BlockHeader {
	return wire.BlockHeader{
		Version:   1,
		PrevBlock: prev,
		Timestamp: 1700000000 + nonce,
		Bits:      0x207fffff,
		Nonce:     nonce,
	}
}

func TestAddAndTake(t *testing.T) {
	p := NewPool(DefaultGlobalCap, DefaultPerPeerCap)
	var missing chainhash.Hash
	missing[0] = 0xAB

	h := header(missing, 1)
	if err := p.Add(h, "peer1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("expected len 1, got %d", p.Len())
	}

	got := p.Take(missing)
	if len(got) != 1 || got[0].BlockHash() != h.BlockHash() {
		t.Fatal("expected Take to return the cached orphan")
	}
	if p.Len() != 0 {
		t.Fatalf("expected pool empty after Take, got %d", p.Len())
	}
}

func TestAddDuplicateIsNoop(t *testing.T) {
	p := NewPool(DefaultGlobalCap, DefaultPerPeerCap)
	var missing chainhash.Hash
	h := header(missing, 1)

	if err := p.Add(h, "peer1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(h, "peer1"); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 {
		t.Fatalf("expected duplicate add to be a no-op, got len %d", p.Len())
	}
}

func TestPerPeerCapEvictsOldestOfSamePeer(t *testing.T) {
	p := NewPool(DefaultGlobalCap, 2)
	var missing chainhash.Hash

	h1 := header(missing, 1)
	h2 := header(missing, 2)
	h3 := header(missing, 3)

	if err := p.Add(h1, "peer1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(h2, "peer1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(h3, "peer1"); err != nil {
		t.Fatal(err)
	}

	if p.PerPeer("peer1") != 2 {
		t.Fatalf("expected per-peer cap of 2 enforced, got %d", p.PerPeer("peer1"))
	}

	got := p.Take(missing)
	hashes := make(map[chainhash.Hash]bool)
	for _, h := range got {
		hashes[h.BlockHash()] = true
	}
	if hashes[h1.BlockHash()] {
		t.Fatal("expected oldest orphan (h1) to have been evicted")
	}
	if !hashes[h2.BlockHash()] || !hashes[h3.BlockHash()] {
		t.Fatal("expected h2 and h3 to survive")
	}
}

func TestGlobalCapEvictsOldest(t *testing.T) {
	p := NewPool(2, 10)
	var m1, m2, m3 chainhash.Hash
	m1[0], m2[0], m3[0] = 1, 2, 3

	h1 := header(m1, 1)
	h2 := header(m2, 2)
	h3 := header(m3, 3)

	if err := p.Add(h1, "peer1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(h2, "peer2"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(h3, "peer3"); err != nil {
		t.Fatal(err)
	}

	if p.Len() != 2 {
		t.Fatalf("expected global cap enforced at 2, got %d", p.Len())
	}
	if len(p.Take(m1)) != 0 {
		t.Fatal("expected h1 (oldest) to have been evicted under global cap")
	}
}

func TestUnlockIterativeDeepChain(t *testing.T) {
	p := NewPool(2000, 2000)

	const depth = 1000
	var root chainhash.Hash
	root[0] = 0xFF

	prev := root
	hashes := make([]chainhash.Hash, 0, depth)
	for i := 0; i < depth; i++ {
		h := header(prev, uint32(i+1))
		if err := p.Add(h, "peer1"); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		hashes = append(hashes, h.BlockHash())
		prev = h.BlockHash()
	}

	var accepted []chainhash.Hash
	p.Unlock(root, func(h wire.BlockHeader) (chainhash.Hash, bool) {
		hash := h.BlockHash()
		accepted = append(accepted, hash)
		return hash, true
	})

	if len(accepted) != depth {
		t.Fatalf("expected all %d orphans unlocked, got %d", depth, len(accepted))
	}
	if p.Len() != 0 {
		t.Fatalf("expected pool drained after unlock, got %d remaining", p.Len())
	}
	if accepted[depth-1] != hashes[depth-1] {
		t.Fatal("expected final unlocked hash to be the deepest orphan")
	}
}

func TestUnlockStopsOnRejection(t *testing.T) {
	p := NewPool(DefaultGlobalCap, DefaultPerPeerCap)
	var root chainhash.Hash
	root[0] = 1

	h1 := header(root, 1)
	h2 := header(h1.BlockHash(), 2)
	if err := p.Add(h1, "peer1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(h2, "peer1"); err != nil {
		t.Fatal(err)
	}

	var calls int
	p.Unlock(root, func(h wire.BlockHeader) (chainhash.Hash, bool) {
		calls++
		return h.BlockHash(), false
	})

	if calls != 1 {
		t.Fatalf("expected unlock to stop after rejecting h1, got %d calls", calls)
	}
	if p.Len() != 1 {
		t.Fatalf("expected h2 to remain cached, pool len %d", p.Len())
	}
}
