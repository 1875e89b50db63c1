// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/validate"
)

// chainAncestor adapts an Index/ActiveChain pair to validate.Ancestor so
// this package can reuse validate.GetLocator instead of re-deriving the
// exponential-backoff locator algorithm a second time.
type chainAncestor struct {
	idx   *blockindex.Index
	chain *blockindex.ActiveChain
}

func (a chainAncestor) Height() int32 {
	return a.chain.Height()
}

func (a chainAncestor) HashAt(height int32) (chainhash.Hash, bool) {
	ni := a.chain.NodeAt(height)
	if ni == blockindex.NoNode {
		return chainhash.Hash{}, false
	}
	node, ok := a.idx.Node(ni)
	if !ok {
		return chainhash.Hash{}, false
	}
	return node.Hash, true
}

// buildLocator constructs a GETHEADERS block locator for the active
// chain's current tip.
func buildLocator(idx *blockindex.Index, chain *blockindex.ActiveChain) []chainhash.Hash {
	if chain.Tip() == blockindex.NoNode {
		return nil
	}
	return validate.GetLocator(chainAncestor{idx: idx, chain: chain})
}
