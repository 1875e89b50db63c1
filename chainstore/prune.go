// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chainhash"
)

// DefaultPruneMaxAge is how many blocks behind the active tip a
// non-active-chain node may fall before Prune considers it stale (spec.md
// §9 leaves this as a deployment decision; 2016 mirrors a difficulty-
// retarget window's worth of headers, comfortably longer than any
// plausible reorg depth).
const DefaultPruneMaxAge = 2016

// Prune returns the set of node hashes eligible to be dropped from the
// next snapshot: nodes not on the active chain whose height is more than
// maxAge behind the tip. The live in-memory arena is never mutated by
// this — NodeIndex handles stay valid for the life of the process, and a
// node only actually disappears the next time the snapshot is saved
// without it and then reloaded on a subsequent restart.
func Prune(idx *blockindex.Index, chain *blockindex.ActiveChain, maxAge int32) map[chainhash.Hash]bool {
	tipHeight := chain.Height()
	if tipHeight < 0 {
		return nil
	}
	cutoff := tipHeight - maxAge
	if cutoff < 0 {
		return nil
	}

	pruned := make(map[chainhash.Hash]bool)
	total := idx.Len()
	for i := 0; i < total; i++ {
		n, ok := idx.Node(blockindex.NodeIndex(i))
		if !ok || n.Height >= cutoff {
			continue
		}
		if chain.Contains(blockindex.NodeIndex(i), n.Height) {
			continue
		}
		pruned[n.Hash] = true
	}
	return pruned
}
