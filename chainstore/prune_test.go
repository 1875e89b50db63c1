// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/wire"
)

func TestPruneBelowMaxAgeIsNoop(t *testing.T) {
	idx, chain, _ := buildTestChain(t)
	pruned := Prune(idx, chain, DefaultPruneMaxAge)
	if len(pruned) != 0 {
		t.Fatalf("expected no pruning on a short chain, got %d entries", len(pruned))
	}
}

func TestPruneDropsOldSideBranchOnly(t *testing.T) {
	idx := blockindex.NewIndex()
	chain := blockindex.NewActiveChain()

	genesis := wire.BlockHeader{Version: 1, Timestamp: 1000, Bits: 0x207fffff}
	gi := idx.AddGenesis(genesis, *uint256.NewInt(1))
	chain.Extend(gi)

	// A short side branch off genesis, deliberately left behind as the
	// trunk races ahead.
	side := idx.AddNode(gi, wire.BlockHeader{
		Version: 1, PrevBlock: genesis.BlockHash(), Timestamp: 1100, Bits: 0x207fffff, Nonce: 99,
	}, *uint256.NewInt(2))

	prevHash := genesis.BlockHash()
	parent := gi
	for i := uint32(1); i <= 10; i++ {
		h := wire.BlockHeader{
			Version: 1, PrevBlock: prevHash, Timestamp: 1000 + i*100, Bits: 0x207fffff, Nonce: i,
		}
		ni := idx.AddNode(parent, h, *uint256.NewInt(uint64(i+1)))
		chain.Extend(ni)
		parent = ni
		prevHash = h.BlockHash()
	}

	pruned := Prune(idx, chain, 5)
	sideNode, _ := idx.Node(side)
	if !pruned[sideNode.Hash] {
		t.Fatal("expected the stale side branch to be pruned")
	}

	tip := chain.Tip()
	tipNode, _ := idx.Node(tip)
	if pruned[tipNode.Hash] {
		t.Fatal("active tip must never be pruned")
	}
	genesisNode, _ := idx.Node(gi)
	if pruned[genesisNode.Hash] {
		t.Fatal("genesis is on the active chain and must never be pruned")
	}
}

func TestPruneEmptyChain(t *testing.T) {
	idx := blockindex.NewIndex()
	chain := blockindex.NewActiveChain()
	if got := Prune(idx, chain, DefaultPruneMaxAge); got != nil {
		t.Fatalf("expected nil for an empty chain, got %v", got)
	}
}
