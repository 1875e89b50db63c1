// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/wire"
)

func buildTestChain(t *testing.T) (*blockindex.Index, *blockindex.ActiveChain, chainhash.Hash) {
	t.Helper()
	idx := blockindex.NewIndex()
	chain := blockindex.NewActiveChain()

	genesis := wire.BlockHeader{Version: 1, Timestamp: 1000, Bits: 0x207fffff}
	gi := idx.AddGenesis(genesis, *uint256.NewInt(1))
	idx.SetStatus(gi, blockindex.StatusValidTree)
	chain.Extend(gi)

	prevHash := genesis.BlockHash()
	parent := gi
	for i := uint32(1); i <= 3; i++ {
		h := wire.BlockHeader{
			Version:   1,
			PrevBlock: prevHash,
			Timestamp: 1000 + i*100,
			Bits:      0x207fffff,
			Nonce:     i,
		}
		work := *uint256.NewInt(uint64(i + 1))
		ni := idx.AddNode(parent, h, work)
		idx.SetStatus(ni, blockindex.StatusValidTree)
		chain.Extend(ni)
		parent = ni
		prevHash = h.BlockHash()
	}

	return idx, chain, genesis.BlockHash()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	idx, chain, genesisHash := buildTestChain(t)
	path := filepath.Join(t.TempDir(), "snapshot.json")

	if err := Save(path, idx, chain, genesisHash, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loadedIdx, loadedChain, err := Load(path, genesisHash)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loadedIdx.Len() != idx.Len() {
		t.Fatalf("expected %d nodes, got %d", idx.Len(), loadedIdx.Len())
	}
	if loadedChain.Height() != chain.Height() {
		t.Fatalf("expected tip height %d, got %d", chain.Height(), loadedChain.Height())
	}

	wantTip, _ := idx.Node(chain.Tip())
	gotTipIdx, ok := loadedIdx.Lookup(wantTip.Hash)
	if !ok {
		t.Fatal("expected reloaded index to contain the original tip hash")
	}
	if loadedChain.Tip() != gotTipIdx {
		t.Fatal("expected reloaded active chain's tip to match the reloaded tip node")
	}

	gotTip, _ := loadedIdx.Node(loadedChain.Tip())
	if gotTip.ChainWork.Cmp(&wantTip.ChainWork) != 0 {
		t.Fatalf("expected chain work to survive round trip, want %v got %v",
			wantTip.ChainWork.ToBig(), gotTip.ChainWork.ToBig())
	}
	if !gotTip.HasStatus(blockindex.StatusValidTree) {
		t.Fatal("expected VALID_TREE status to survive round trip")
	}
}

func TestLoadRejectsWrongGenesis(t *testing.T) {
	idx, chain, genesisHash := buildTestChain(t)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := Save(path, idx, chain, genesisHash, nil); err != nil {
		t.Fatal(err)
	}

	var wrongGenesis chainhash.Hash
	wrongGenesis[0] = 0xEE
	if _, _, err := Load(path, wrongGenesis); err == nil {
		t.Fatal("expected Load to reject a snapshot with mismatched genesis hash")
	}
}

func TestSavePrunesExcludedNodes(t *testing.T) {
	idx, chain, genesisHash := buildTestChain(t)
	gi := chain.NodeAt(0)
	genesisNode, _ := idx.Node(gi)

	pruned := map[chainhash.Hash]bool{genesisNode.Hash: true}
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := Save(path, idx, chain, genesisHash, pruned); err != nil {
		t.Fatal(err)
	}

	// Loading should now fail since genesis itself was excluded and no
	// block in the file has an empty prev_hash / height 0 that matches.
	if _, _, err := Load(path, genesisHash); err == nil {
		t.Fatal("expected Load to fail once genesis itself was pruned from the snapshot")
	}
}
