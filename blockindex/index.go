// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"sort"
	"sync"
	"time"

	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/wire"
)

// medianTimeBlocks is the number of previous blocks CalcPastMedianTime
// considers, matching the standard 11-block window.
const medianTimeBlocks = 11

// Index is the arena owning every known node in the header tree, addressed
// by NodeIndex. It is safe for concurrent use; callers needing atomic
// multi-step access (e.g. chainstate's activation logic) should hold their
// own higher-level lock instead of assuming Index's internal lock spans
// more than one call.
type Index struct {
	mu     sync.RWMutex
	nodes  []Node
	byHash map[chainhash.Hash]NodeIndex

	// tips tracks every node with no known child, i.e. every current leaf
	// of the tree. This is the superset CandidateSet filters down to
	// chains worth considering for activation.
	tips map[NodeIndex]struct{}
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		byHash: make(map[chainhash.Hash]NodeIndex),
		tips:   make(map[NodeIndex]struct{}),
	}
}

// AddGenesis seeds the index with the network's genesis header at height 0
// and zero chain work accumulated so far for it (genesis itself contributes
// its own work via the caller, matching how every other node's ChainWork is
// computed by the caller before calling AddNode).
func (idx *Index) AddGenesis(header wire.BlockHeader, work primitives.Work256) NodeIndex {
	return idx.AddNode(NoNode, header, work)
}

// AddNode inserts a new node with the given parent, header and precomputed
// cumulative chain work, returning its NodeIndex. The caller is responsible
// for computing ChainWork (height and parent chain work plus this header's
// own work) before calling AddNode; the index itself does not recompute it.
func (idx *Index) AddNode(parent NodeIndex, header wire.BlockHeader, work primitives.Work256) NodeIndex {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	height := int32(0)
	if parent != NoNode {
		height = idx.nodes[parent].Height + 1
		delete(idx.tips, parent)
	}

	n := Node{
		Hash:      header.BlockHash(),
		Header:    header,
		Parent:    parent,
		Height:    height,
		ChainWork: work,
	}

	i := NodeIndex(len(idx.nodes))
	idx.nodes = append(idx.nodes, n)
	idx.byHash[n.Hash] = i
	idx.tips[i] = struct{}{}

	return i
}

// Lookup returns the NodeIndex for the given hash, or (NoNode, false) if it
// is not known.
func (idx *Index) Lookup(hash chainhash.Hash) (NodeIndex, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	i, ok := idx.byHash[hash]
	return i, ok
}

// Node returns a copy of the node at i. Callers must not hold on to it
// across a call that might grow the arena if they instead want a live
// view; NodeIndex is the stable handle, not *Node.
func (idx *Index) Node(i NodeIndex) (Node, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if i < 0 || int(i) >= len(idx.nodes) {
		return Node{}, false
	}
	return idx.nodes[i], true
}

// SetStatus sets a status flag on the node at i.
func (idx *Index) SetStatus(i NodeIndex, f StatusFlag) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if i >= 0 && int(i) < len(idx.nodes) {
		idx.nodes[i].SetStatus(f)
	}
}

// ClearStatus clears a status flag on the node at i.
func (idx *Index) ClearStatus(i NodeIndex, f StatusFlag) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if i >= 0 && int(i) < len(idx.nodes) {
		idx.nodes[i].ClearStatus(f)
	}
}

// Tips returns every node currently known to have no child.
func (idx *Index) Tips() []NodeIndex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]NodeIndex, 0, len(idx.tips))
	for i := range idx.tips {
		out = append(out, i)
	}
	return out
}

// Ancestor walks parent links from i until it reaches the node at the given
// height, returning NoNode if height is out of range for i's ancestry.
func (idx *Index) Ancestor(i NodeIndex, height int32) NodeIndex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ancestorLocked(i, height)
}

func (idx *Index) ancestorLocked(i NodeIndex, height int32) NodeIndex {
	if i < 0 || int(i) >= len(idx.nodes) {
		return NoNode
	}
	if height < 0 || height > idx.nodes[i].Height {
		return NoNode
	}
	for idx.nodes[i].Height > height {
		i = idx.nodes[i].Parent
		if i == NoNode {
			return NoNode
		}
	}
	return i
}

// CommonAncestor returns the highest node that is an ancestor of both a and
// b, or NoNode if a and b belong to entirely disjoint trees (which should
// never happen once both descend from the same genesis).
func (idx *Index) CommonAncestor(a, b NodeIndex) NodeIndex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if a == NoNode || b == NoNode {
		return NoNode
	}
	if idx.nodes[a].Height > idx.nodes[b].Height {
		a = idx.ancestorLocked(a, idx.nodes[b].Height)
	} else if idx.nodes[b].Height > idx.nodes[a].Height {
		b = idx.ancestorLocked(b, idx.nodes[a].Height)
	}
	for a != b {
		if a == NoNode || b == NoNode {
			return NoNode
		}
		a = idx.nodes[a].Parent
		b = idx.nodes[b].Parent
	}
	return a
}

// CalcPastMedianTime returns the median time of the last medianTimeBlocks
// headers ending at and including i, the value every header's own
// Timestamp must exceed (spec.md §4.2, "header time is not after the
// median time past").
func (idx *Index) CalcPastMedianTime(i NodeIndex) (time.Time, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if i < 0 || int(i) >= len(idx.nodes) {
		return time.Time{}, rxerr.New(rxerr.ErrInternalConsistency, "unknown node index %d", i)
	}

	timestamps := make([]int64, 0, medianTimeBlocks)
	cur := i
	for n := 0; n < medianTimeBlocks && cur != NoNode; n++ {
		timestamps = append(timestamps, int64(idx.nodes[cur].Header.Timestamp))
		cur = idx.nodes[cur].Parent
	}

	sort.Slice(timestamps, func(a, b int) bool { return timestamps[a] < timestamps[b] })
	median := timestamps[(len(timestamps)-1)/2]
	return time.Unix(median, 0), nil
}

// Descendants returns every node descending from root, in no particular
// order. The arena keeps only parent links, so this costs a walk over
// every node in the arena; it is meant for the rare invalidation path
// (spec.md §4.3, "set FAILED_CHILD on every known descendant"), not a hot
// loop.
func (idx *Index) Descendants(root NodeIndex) []NodeIndex {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if root < 0 || int(root) >= len(idx.nodes) {
		return nil
	}
	rootHeight := idx.nodes[root].Height

	var out []NodeIndex
	for i := range idx.nodes {
		ni := NodeIndex(i)
		if ni == root || idx.nodes[i].Height <= rootHeight {
			continue
		}
		if idx.ancestorLocked(ni, rootHeight) == root {
			out = append(out, ni)
		}
	}
	return out
}

// Len returns the number of nodes currently in the arena.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}
