// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package orphan caches headers received before their parent, so a chain
// state manager can unlock them iteratively once the missing ancestor
// arrives instead of re-entering acceptance recursively per header
// (spec.md §3.6, §4.3, §9).
package orphan

import (
	"container/list"
	"time"

	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/wire"
)

// DefaultGlobalCap and DefaultPerPeerCap bound the pool before any
// allocation happens, per spec.md §4.3. The per-peer cap deliberately
// tightens the 10-per-peer figure to 3: a misbehaving or merely
// out-of-order peer can still make progress, but can no longer alone
// exhaust most of a 1000-entry global pool.
const (
	DefaultGlobalCap  = 1000
	DefaultPerPeerCap = 3
	// Expiry is how long an orphan may sit in the pool before it is
	// considered stale and evicted regardless of cap pressure.
	Expiry = 10 * time.Minute
)

// entry is one cached header plus the bookkeeping needed to expire and
// evict it.
type entry struct {
	header   wire.BlockHeader
	hash     chainhash.Hash
	peerID   string
	received time.Time
	elem     *list.Element // position in age ordering, oldest at Front
}

// Pool caches headers whose parent has not yet been seen. It is not safe
// for concurrent use on its own; callers needing that (chainstate) wrap it
// in their own lock, matching the single re-entrant lock spec.md §4 places
// over the whole consensus core.
type Pool struct {
	globalCap  int
	perPeerCap int

	byHash   map[chainhash.Hash]*entry
	byParent map[chainhash.Hash][]chainhash.Hash
	perPeer  map[string]int
	age      *list.List // oldest-first list of *entry
}

// NewPool returns an empty Pool enforcing the given caps.
func NewPool(globalCap, perPeerCap int) *Pool {
	return &Pool{
		globalCap:  globalCap,
		perPeerCap: perPeerCap,
		byHash:     make(map[chainhash.Hash]*entry),
		byParent:   make(map[chainhash.Hash][]chainhash.Hash),
		perPeer:    make(map[string]int),
		age:        list.New(),
	}
}

// ErrFull is returned by Add when the pool cannot accept another orphan
// for the given peer even after evicting expired entries.
type ErrFull struct{}

func (ErrFull) Error() string { return "orphan pool full" }

// Add caches header under peerID, evicting expired entries first and then,
// if still at capacity, the oldest entry (preferring the peer with the
// most cached orphans) to make room. Returns ErrFull if no room could be
// made — callers should treat that as the OrphanPoolFull outcome and score
// the submitting peer.
func (p *Pool) Add(header wire.BlockHeader, peerID string) error {
	hash := header.BlockHash()
	if _, ok := p.byHash[hash]; ok {
		return nil
	}

	p.expireLocked(time.Now())

	if p.perPeer[peerID] >= p.perPeerCap {
		if !p.evictWorstOf(peerID) {
			return ErrFull{}
		}
	}
	if len(p.byHash) >= p.globalCap {
		if !p.evictOldest() {
			return ErrFull{}
		}
	}

	e := &entry{
		header:   header,
		hash:     hash,
		peerID:   peerID,
		received: time.Now(),
	}
	e.elem = p.age.PushBack(e)
	p.byHash[hash] = e
	p.byParent[header.PrevBlock] = append(p.byParent[header.PrevBlock], hash)
	p.perPeer[peerID]++
	return nil
}

// Take removes and returns every cached header whose PrevBlock equals
// parent, for the caller to re-submit through acceptance.
func (p *Pool) Take(parent chainhash.Hash) []wire.BlockHeader {
	hashes := p.byParent[parent]
	if len(hashes) == 0 {
		return nil
	}
	delete(p.byParent, parent)

	out := make([]wire.BlockHeader, 0, len(hashes))
	for _, h := range hashes {
		e, ok := p.byHash[h]
		if !ok {
			continue
		}
		out = append(out, e.header)
		p.removeLocked(e)
	}
	return out
}

// Unlock drains every orphan transitively parented by root using an
// explicit work queue rather than recursion, bounding stack depth
// regardless of how deep the unlocked chain runs (spec.md §4.6, §9 —
// the source's equivalent does this by re-entering its accept function
// recursively, which a long enough orphan chain can blow the stack on).
//
// accept is called once per unlocked header in discovery order; it
// should run the same acceptance path a normally-received header would
// (AcceptBlockHeader). When it reports ok, that header's own hash is
// enqueued so any orphans parented on it are considered next.
func (p *Pool) Unlock(root chainhash.Hash, accept func(wire.BlockHeader) (hash chainhash.Hash, ok bool)) {
	queue := []chainhash.Hash{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for _, header := range p.Take(parent) {
			hash, ok := accept(header)
			if ok {
				queue = append(queue, hash)
			}
		}
	}
}

// Len returns the number of orphans currently cached.
func (p *Pool) Len() int {
	return len(p.byHash)
}

// PerPeer returns how many orphans are currently cached for peerID.
func (p *Pool) PerPeer(peerID string) int {
	return p.perPeer[peerID]
}

func (p *Pool) removeLocked(e *entry) {
	delete(p.byHash, e.hash)
	p.age.Remove(e.elem)
	p.perPeer[e.peerID]--
	if p.perPeer[e.peerID] <= 0 {
		delete(p.perPeer, e.peerID)
	}
}

// expireLocked drops every entry older than Expiry relative to now.
func (p *Pool) expireLocked(now time.Time) {
	for {
		front := p.age.Front()
		if front == nil {
			return
		}
		e := front.Value.(*entry)
		if now.Sub(e.received) < Expiry {
			return
		}
		p.dropFromParentIndex(e)
		p.removeLocked(e)
	}
}

// evictOldest drops the single oldest entry in the pool, regardless of
// peer. Returns false if the pool was already empty.
func (p *Pool) evictOldest() bool {
	front := p.age.Front()
	if front == nil {
		return false
	}
	e := front.Value.(*entry)
	p.dropFromParentIndex(e)
	p.removeLocked(e)
	return true
}

// evictWorstOf makes room for peerID by evicting the oldest orphan
// belonging to whichever peer currently holds the most cached orphans —
// preferring peerID itself if it is (or ties for) the worst offender,
// since it is the one about to add yet another. Returns false if nothing
// could be evicted.
func (p *Pool) evictWorstOf(peerID string) bool {
	worstPeer := peerID
	worstCount := p.perPeer[peerID]
	for peer, n := range p.perPeer {
		if n > worstCount {
			worstPeer = peer
			worstCount = n
		}
	}
	if worstCount == 0 {
		return false
	}

	for e := p.age.Front(); e != nil; e = e.Next() {
		ent := e.Value.(*entry)
		if ent.peerID == worstPeer {
			p.dropFromParentIndex(ent)
			p.removeLocked(ent)
			return true
		}
	}
	return false
}

func (p *Pool) dropFromParentIndex(e *entry) {
	siblings := p.byParent[e.header.PrevBlock]
	for i, h := range siblings {
		if h == e.hash {
			siblings = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(siblings) == 0 {
		delete(p.byParent, e.header.PrevBlock)
	} else {
		p.byParent[e.header.PrevBlock] = siblings
	}
}
