// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/wire"
)

func newTestHeader(prev chainhash.Hash, timestamp int64, nonce uint32) wire.BlockHeader {
	return wire.BlockHeader{
		Version:    1,
		PrevBlock:  prev,
		Timestamp:  uint32(timestamp),
		Bits:       0x207fffff,
		Nonce:      nonce,
	}
}

// buildChain appends len(timestamps) headers on top of parent, one per
// timestamp, each contributing one unit of work. It returns the node index
// of every appended header in order; the last one is the tip.
func buildChain(idx *Index, parent NodeIndex, timestamps []int64) []NodeIndex {
	var prevHash chainhash.Hash
	if parent != NoNode {
		n, _ := idx.Node(parent)
		prevHash = n.Hash
	}

	out := make([]NodeIndex, 0, len(timestamps))
	cur := parent
	for i, ts := range timestamps {
		h := newTestHeader(prevHash, ts, uint32(i))
		var work primitives.Work256
		if cur != NoNode {
			n, _ := idx.Node(cur)
			work = n.ChainWork
		}
		one := *uint256.NewInt(1)
		work.Add(&work, &one)
		cur = idx.AddNode(parent, h, work)
		parent = cur
		prevHash = h.BlockHash()
		out = append(out, cur)
	}
	return out
}

func TestAddNodeHeightAndWork(t *testing.T) {
	idx := NewIndex()
	genesis := newTestHeader(chainhash.Hash{}, 1000, 0)
	one := *uint256.NewInt(1)
	gi := idx.AddGenesis(genesis, one)

	n, ok := idx.Node(gi)
	if !ok {
		t.Fatal("expected genesis node to be found")
	}
	if n.Height != 0 {
		t.Fatalf("expected genesis height 0, got %d", n.Height)
	}
	if n.Parent != NoNode {
		t.Fatalf("expected genesis parent NoNode, got %d", n.Parent)
	}

	nodes := buildChain(idx, gi, []int64{1100, 1200, 1300})
	last, _ := idx.Node(nodes[len(nodes)-1])
	if last.Height != 3 {
		t.Fatalf("expected height 3, got %d", last.Height)
	}
	four := *uint256.NewInt(4)
	if last.ChainWork.Cmp(&four) != 0 {
		t.Fatalf("expected chain work 4, got %v", last.ChainWork.ToBig())
	}
}

func TestLookup(t *testing.T) {
	idx := NewIndex()
	genesis := newTestHeader(chainhash.Hash{}, 1000, 0)
	gi := idx.AddGenesis(genesis, *uint256.NewInt(1))

	got, ok := idx.Lookup(genesis.BlockHash())
	if !ok || got != gi {
		t.Fatalf("expected lookup to find genesis, got %v %v", got, ok)
	}

	if _, ok := idx.Lookup(chainhash.Hash{0xff}); ok {
		t.Fatal("expected lookup of unknown hash to fail")
	}
}

func TestTipsTracksLeaves(t *testing.T) {
	idx := NewIndex()
	genesis := newTestHeader(chainhash.Hash{}, 1000, 0)
	gi := idx.AddGenesis(genesis, *uint256.NewInt(1))

	branchA := buildChain(idx, gi, []int64{1100})
	branchB := idx.AddNode(gi, newTestHeader(genesis.BlockHash(), 1101, 99), *uint256.NewInt(2))

	tips := idx.Tips()
	tipSet := make(map[NodeIndex]bool, len(tips))
	for _, t := range tips {
		tipSet[t] = true
	}

	if tipSet[gi] {
		t.Fatal("genesis should no longer be a tip once it has children")
	}
	if !tipSet[branchA[0]] || !tipSet[branchB] {
		t.Fatal("expected both branch tips present")
	}
	if len(tips) != 2 {
		t.Fatalf("expected 2 tips, got %d", len(tips))
	}
}

func TestAncestorAndCommonAncestor(t *testing.T) {
	idx := NewIndex()
	genesis := newTestHeader(chainhash.Hash{}, 1000, 0)
	gi := idx.AddGenesis(genesis, *uint256.NewInt(1))

	trunk := buildChain(idx, gi, []int64{1100, 1200, 1300})
	fork := idx.AddNode(trunk[0], newTestHeader(func() chainhash.Hash {
		n, _ := idx.Node(trunk[0])
		return n.Hash
	}(), 1250, 55), *uint256.NewInt(3))

	tipHeight := func(n NodeIndex) int32 {
		node, _ := idx.Node(n)
		return node.Height
	}

	a := idx.Ancestor(trunk[2], 1)
	if a != trunk[0] {
		t.Fatalf("expected ancestor at height 1 to be trunk[0], got %v", a)
	}

	if idx.Ancestor(trunk[2], 99) != NoNode {
		t.Fatal("expected out-of-range ancestor query to return NoNode")
	}

	common := idx.CommonAncestor(trunk[2], fork)
	if common != trunk[0] {
		t.Fatalf("expected common ancestor trunk[0], got %v (height %d)", common, tipHeight(common))
	}

	if idx.CommonAncestor(trunk[2], trunk[2]) != trunk[2] {
		t.Fatal("common ancestor of a node with itself should be itself")
	}
}

func TestCalcPastMedianTime(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []int64
		expected   int64
	}{
		{
			name:       "one block",
			timestamps: []int64{1517188771},
			expected:   1517188771,
		},
		{
			name:       "two blocks, in order",
			timestamps: []int64{1517188771, 1517188831},
			expected:   1517188771,
		},
		{
			name:       "three blocks, in order",
			timestamps: []int64{1517188771, 1517188831, 1517188891},
			expected:   1517188831,
		},
		{
			name:       "three blocks, out of order",
			timestamps: []int64{1517188771, 1517188891, 1517188831},
			expected:   1517188831,
		},
		{
			name:       "four blocks, in order",
			timestamps: []int64{1517188771, 1517188831, 1517188891, 1517188951},
			expected:   1517188831,
		},
		{
			name:       "four blocks, out of order",
			timestamps: []int64{1517188831, 1517188771, 1517188951, 1517188891},
			expected:   1517188831,
		},
		{
			name: "eleven blocks, in order",
			timestamps: []int64{1517188771, 1517188831, 1517188891, 1517188951,
				1517189011, 1517189071, 1517189131, 1517189191, 1517189251,
				1517189311, 1517189371},
			expected: 1517189071,
		},
		{
			name: "eleven blocks, out of order",
			timestamps: []int64{1517188831, 1517188771, 1517188891, 1517189011,
				1517188951, 1517189071, 1517189131, 1517189191, 1517189251,
				1517189371, 1517189311},
			expected: 1517189071,
		},
		{
			name: "fifteen blocks, in order",
			timestamps: []int64{1517188771, 1517188831, 1517188891, 1517188951,
				1517189011, 1517189071, 1517189131, 1517189191, 1517189251,
				1517189311, 1517189371, 1517189431, 1517189491, 1517189551,
				1517189611},
			expected: 1517189311,
		},
		{
			name: "fifteen blocks, out of order",
			timestamps: []int64{1517188771, 1517188891, 1517188831, 1517189011,
				1517188951, 1517189131, 1517189071, 1517189251, 1517189191,
				1517189371, 1517189311, 1517189491, 1517189431, 1517189611,
				1517189551},
			expected: 1517189311,
		},
	}

	for _, test := range tests {
		idx := NewIndex()
		var parent NodeIndex = NoNode
		nodes := buildChain(idx, parent, test.timestamps)
		tip := nodes[len(nodes)-1]

		gotTime, err := idx.CalcPastMedianTime(tip)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		wantTime := time.Unix(test.expected, 0)
		if !gotTime.Equal(wantTime) {
			t.Errorf("%s: mismatched median -- got: %v, want: %v",
				test.name, gotTime, wantTime)
		}
	}
}

func TestCalcPastMedianTimeUnknownNode(t *testing.T) {
	idx := NewIndex()
	if _, err := idx.CalcPastMedianTime(NodeIndex(42)); err == nil {
		t.Fatal("expected error for unknown node index")
	}
}

func TestDescendants(t *testing.T) {
	idx := NewIndex()
	genesis := newTestHeader(chainhash.Hash{}, 1000, 0)
	gi := idx.AddGenesis(genesis, *uint256.NewInt(1))

	trunk := buildChain(idx, gi, []int64{1100, 1200, 1300})
	fork := idx.AddNode(trunk[0], newTestHeader(func() chainhash.Hash {
		n, _ := idx.Node(trunk[0])
		return n.Hash
	}(), 1250, 55), *uint256.NewInt(3))

	descendants := idx.Descendants(trunk[0])
	got := make(map[NodeIndex]bool, len(descendants))
	for _, d := range descendants {
		got[d] = true
	}

	if !got[trunk[1]] || !got[trunk[2]] || !got[fork] {
		t.Fatalf("expected trunk[1], trunk[2] and fork all descended from trunk[0], got %v", descendants)
	}
	if got[gi] || got[trunk[0]] {
		t.Fatal("Descendants must not include the root itself or its ancestors")
	}
	if len(descendants) != 3 {
		t.Fatalf("expected exactly 3 descendants, got %d", len(descendants))
	}

	if d := idx.Descendants(trunk[2]); len(d) != 0 {
		t.Fatalf("expected a leaf to have no descendants, got %v", d)
	}
}
