// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstore owns the durable representation of the header tree:
// a JSON snapshot of the in-memory arena (spec.md §6.2) plus a
// LevelDB-backed secondary index so a restarted node can resolve a hash to
// its position without re-parsing the whole snapshot file.
package chainstore

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"sort"

	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/wire"
)

// snapshotVersion is the only version this package knows how to read or
// write. A future format change bumps this and Load rejects anything
// else outright rather than guessing at compatibility.
const snapshotVersion = 1

// snapshot is the on-disk JSON shape from spec.md §6.2, field names and
// all.
type snapshot struct {
	Version    int             `json:"version"`
	GenesisHash string         `json:"genesis_hash"`
	TipHash    string          `json:"tip_hash"`
	BlockCount int             `json:"block_count"`
	Blocks     []snapshotBlock `json:"blocks"`
}

type snapshotBlock struct {
	Hash         string `json:"hash"`
	Height       int32  `json:"height"`
	ChainWork    string `json:"chainwork"`
	Version      int32  `json:"version"`
	PrevHash     string `json:"prev_hash"`
	MinerAddress string `json:"miner_address"`
	Time         uint32 `json:"time"`
	Bits         uint32 `json:"bits"`
	Nonce        uint32 `json:"nonce"`
	HashRandomX  string `json:"hash_randomx"`
	Status       uint8  `json:"status"`
}

// Save writes a full snapshot of idx/chain to path. Pruned describes
// nodes the caller has already decided to omit (see Prune); pass nil to
// serialize every node.
func Save(path string, idx *blockindex.Index, chain *blockindex.ActiveChain, genesisHash chainhash.Hash, pruned map[chainhash.Hash]bool) error {
	tip := chain.Tip()
	var tipHash chainhash.Hash
	if tip != blockindex.NoNode {
		n, _ := idx.Node(tip)
		tipHash = n.Hash
	}

	s := snapshot{
		Version:     snapshotVersion,
		GenesisHash: genesisHash.String(),
		TipHash:     tipHash.String(),
	}

	total := idx.Len()
	for i := 0; i < total; i++ {
		n, ok := idx.Node(blockindex.NodeIndex(i))
		if !ok {
			continue
		}
		if pruned != nil && pruned[n.Hash] {
			continue
		}

		var prevHash chainhash.Hash
		if n.Parent != blockindex.NoNode {
			p, _ := idx.Node(n.Parent)
			prevHash = p.Hash
		}

		s.Blocks = append(s.Blocks, snapshotBlock{
			Hash:         n.Hash.String(),
			Height:       n.Height,
			ChainWork:    n.ChainWork.ToBig().String(),
			Version:      n.Header.Version,
			PrevHash:     prevHash.String(),
			MinerAddress: n.Header.MinerAddress.String(),
			Time:         n.Header.Timestamp,
			Bits:         n.Header.Bits,
			Nonce:        n.Header.Nonce,
			HashRandomX:  n.Header.RandomXHash.String(),
			Status:       statusByte(n),
		})
	}
	s.BlockCount = len(s.Blocks)

	buf, err := json.MarshalIndent(&s, "", "  ")
	if err != nil {
		return rxerr.Wrap(rxerr.ErrSerialization, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}

func statusByte(n blockindex.Node) uint8 {
	var b uint8
	for _, f := range []blockindex.StatusFlag{
		blockindex.StatusValidHeader,
		blockindex.StatusValidTree,
		blockindex.StatusFailedValid,
		blockindex.StatusFailedChild,
	} {
		if n.HasStatus(f) {
			b |= 1 << uint(f)
		}
	}
	return b
}

// Load reads a snapshot from path, validates its genesis hash against
// expectedGenesis, and rebuilds a fresh Index/ActiveChain from it. Blocks
// are reinserted in height order so each node's parent already exists by
// the time it is added.
func Load(path string, expectedGenesis chainhash.Hash) (*blockindex.Index, *blockindex.ActiveChain, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, rxerr.Wrap(rxerr.ErrIo, err)
	}

	var s snapshot
	if err := json.Unmarshal(buf, &s); err != nil {
		return nil, nil, rxerr.Wrap(rxerr.ErrSerialization, err)
	}
	if s.Version != snapshotVersion {
		return nil, nil, rxerr.New(rxerr.ErrSerialization, "unsupported snapshot version %d", s.Version)
	}
	if s.GenesisHash != expectedGenesis.String() {
		return nil, nil, rxerr.New(rxerr.ErrBadGenesis,
			"snapshot genesis %s does not match consensus genesis %s", s.GenesisHash, expectedGenesis)
	}

	ordered := make([]snapshotBlock, len(s.Blocks))
	copy(ordered, s.Blocks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Height < ordered[j].Height })

	idx := blockindex.NewIndex()
	byHash := make(map[string]blockindex.NodeIndex, len(ordered))

	for _, b := range ordered {
		header, err := blockFromSnapshot(b)
		if err != nil {
			return nil, nil, err
		}

		parsed, ok := new(big.Int).SetString(b.ChainWork, 10)
		if !ok {
			return nil, nil, rxerr.New(rxerr.ErrSerialization, "block %s: bad chainwork %q", b.Hash, b.ChainWork)
		}
		var work primitives.Work256
		work.SetFromBig(parsed)

		parent := blockindex.NoNode
		if b.PrevHash != "" && b.PrevHash != (chainhash.Hash{}).String() {
			p, ok := byHash[b.PrevHash]
			if !ok {
				return nil, nil, rxerr.New(rxerr.ErrInternalConsistency, "block %s: parent %s not yet loaded", b.Hash, b.PrevHash)
			}
			parent = p
		}

		var ni blockindex.NodeIndex
		if parent == blockindex.NoNode {
			ni = idx.AddGenesis(header, work)
		} else {
			ni = idx.AddNode(parent, header, work)
		}
		applyStatus(idx, ni, b.Status)
		byHash[b.Hash] = ni
	}

	chain := blockindex.NewActiveChain()
	if s.TipHash != "" {
		tip, ok := byHash[s.TipHash]
		if !ok {
			return nil, nil, rxerr.New(rxerr.ErrInternalConsistency, "snapshot tip %s not found among loaded blocks", s.TipHash)
		}
		nodes := make([]blockindex.NodeIndex, 0)
		for cur := tip; cur != blockindex.NoNode; {
			nodes = append(nodes, cur)
			n, _ := idx.Node(cur)
			cur = n.Parent
		}
		for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		}
		chain.SetTip(nodes)
	}

	return idx, chain, nil
}

func applyStatus(idx *blockindex.Index, ni blockindex.NodeIndex, status uint8) {
	for _, f := range []blockindex.StatusFlag{
		blockindex.StatusValidHeader,
		blockindex.StatusValidTree,
		blockindex.StatusFailedValid,
		blockindex.StatusFailedChild,
	} {
		if status&(1<<uint(f)) != 0 {
			idx.SetStatus(ni, f)
		}
	}
}

func blockFromSnapshot(b snapshotBlock) (wire.BlockHeader, error) {
	var h wire.BlockHeader
	h.Version = b.Version
	h.Timestamp = b.Time
	h.Bits = b.Bits
	h.Nonce = b.Nonce

	if b.PrevHash != "" {
		if err := chainhash.Decode(&h.PrevBlock, b.PrevHash); err != nil {
			return h, rxerr.Wrap(rxerr.ErrSerialization, err)
		}
	}
	if b.MinerAddress != "" {
		raw, err := hex.DecodeString(b.MinerAddress)
		if err != nil {
			return h, rxerr.Wrap(rxerr.ErrSerialization, err)
		}
		if err := h.MinerAddress.SetBytes(raw); err != nil {
			return h, rxerr.Wrap(rxerr.ErrSerialization, err)
		}
	}
	if b.HashRandomX != "" {
		if err := chainhash.Decode(&h.RandomXHash, b.HashRandomX); err != nil {
			return h, rxerr.Wrap(rxerr.ErrSerialization, err)
		}
	}
	return h, nil
}
