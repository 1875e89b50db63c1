// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"container/heap"
	"sync"

	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
)

// CandidateSet holds the subset of Index tips worth considering for
// activation, ordered by cumulative chain work (descending), then height
// (descending), then hash (ascending) as a final deterministic tiebreaker
// (spec.md §3.5).
type CandidateSet struct {
	mu  sync.Mutex
	idx *Index
	pq  candidateHeap
	pos map[NodeIndex]int
}

// NewCandidateSet returns an empty CandidateSet that resolves ordering
// against idx.
func NewCandidateSet(idx *Index) *CandidateSet {
	return &CandidateSet{
		idx: idx,
		pos: make(map[NodeIndex]int),
	}
}

// Add inserts n into the candidate set, or repositions it if already
// present and its ordering key (chain work/height) has since changed.
func (c *CandidateSet) Add(n NodeIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.pos[n]; ok {
		heap.Fix(&c.pq, i)
		return
	}
	heap.Push(&c.pq, candidateEntry{node: n, set: c})
}

// Remove drops n from the candidate set, if present.
func (c *CandidateSet) Remove(n NodeIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.pos[n]
	if !ok {
		return
	}
	heap.Remove(&c.pq, i)
}

// Best returns the highest-priority candidate, or NoNode if the set is
// empty.
func (c *CandidateSet) Best() NodeIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pq) == 0 {
		return NoNode
	}
	return c.pq[0].node
}

// Len returns the number of candidates currently tracked.
func (c *CandidateSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pq)
}

// PruneDominated drops every candidate whose chain work is no greater than
// minWork: once a chain with at least that much work exists, none of them
// can ever out-race it to become the active tip (spec.md §4.5,
// "Prune(active_tip) removes all candidates with work ≤ active_tip.work").
// This is an optimization, not a correctness requirement — Best() always
// returns the true maximum regardless of stale low-work entries left
// behind — so callers may invoke it as infrequently as they like.
func (c *CandidateSet) PruneDominated(minWork *primitives.Work256) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dominated []NodeIndex
	for _, e := range c.pq {
		n, _ := c.idx.Node(e.node)
		if n.ChainWork.Cmp(minWork) <= 0 {
			dominated = append(dominated, e.node)
		}
	}
	for _, node := range dominated {
		if i, ok := c.pos[node]; ok {
			heap.Remove(&c.pq, i)
		}
	}
}

// candidateEntry is a single heap element; it carries a back-reference to
// the owning set so its comparisons can resolve each node's current
// chain-work/height/hash against the live Index.
type candidateEntry struct {
	node NodeIndex
	set  *CandidateSet
}

// candidateHeap implements container/heap.Interface as a max-heap over
// candidateEntry using CandidateSet's ordering rule. There is no
// ecosystem priority-queue package in the retrieved dependency set, so
// this one data structure is built directly on the standard library.
type candidateHeap []candidateEntry

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	ni, _ := h[i].set.idx.Node(h[i].node)
	nj, _ := h[j].set.idx.Node(h[j].node)

	if cmp := ni.ChainWork.Cmp(&nj.ChainWork); cmp != 0 {
		return cmp > 0
	}
	if ni.Height != nj.Height {
		return ni.Height > nj.Height
	}
	return lessHash(ni.Hash, nj.Hash)
}

func lessHash(a, b chainhash.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (h candidateHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].set.pos[h[i].node] = i
	h[j].set.pos[h[j].node] = j
}

func (h *candidateHeap) Push(x interface{}) {
	e := x.(candidateEntry)
	e.set.pos[e.node] = len(*h)
	*h = append(*h, e)
}

func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	delete(e.set.pos, e.node)
	return e
}
