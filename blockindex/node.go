// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockindex implements the header-tree data structures the
// consensus core is built on: an arena of BlockIndexNode values addressed
// by integer index rather than pointer, the dense height-indexed
// ActiveChain vector, and the CandidateSet of alternative tips ordered by
// cumulative work (spec.md §3.3-3.5, §4.5).
//
// Nodes reference their parent (and callers reference nodes) by NodeIndex
// rather than *Node. Per spec.md §9's re-architecting note, this avoids a
// non-owning raw-pointer graph in favor of a single owning arena that can
// be snapshotted, iterated, and garbage-free-pruned without chasing live
// pointers.
package blockindex

import (
	"github.com/jrick/bitset"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/wire"
)

// NodeIndex addresses a single node inside an Index's arena.
type NodeIndex int32

// NoNode is the sentinel for "no such node", used as a node's
// Parent when it is the genesis, and as a not-found return value.
const NoNode NodeIndex = -1

// StatusFlag is one bit of a node's validation status, matching the
// taxonomy spec.md §3.3 names.
type StatusFlag int

const (
	// StatusValidHeader means the header itself passed every context-free
	// and contextual check (spec.md §4.2 layers 1-3).
	StatusValidHeader StatusFlag = iota

	// StatusValidTree means every ancestor back to genesis also carries
	// StatusValidHeader — the node is connectable.
	StatusValidTree

	// StatusFailedValid means the header itself failed validation.
	StatusFailedValid

	// StatusFailedChild means an ancestor carries StatusFailedValid; the
	// node can never become valid no matter what else is learned.
	StatusFailedChild
)

const statusBits = 4

// Node is a single entry in the block index: a header plus the derived
// fields (height, cumulative chain work, validation status) the chain
// state engine needs without re-walking ancestry.
type Node struct {
	Hash      chainhash.Hash
	Header    wire.BlockHeader
	Parent    NodeIndex
	Height    int32
	ChainWork primitives.Work256

	status bitset.Bytes
}

// HasStatus reports whether the node carries the given status flag.
func (n *Node) HasStatus(f StatusFlag) bool {
	if n.status == nil {
		return false
	}
	return n.status.Get(int(f))
}

// SetStatus sets the given status flag.
func (n *Node) SetStatus(f StatusFlag) {
	if n.status == nil {
		n.status = bitset.NewBytes(statusBits)
	}
	n.status.Set(int(f))
}

// ClearStatus clears the given status flag.
func (n *Node) ClearStatus(f StatusFlag) {
	if n.status == nil {
		return
	}
	n.status.Unset(int(f))
}

// Invalid reports whether the node or one of its ancestors is known bad.
func (n *Node) Invalid() bool {
	return n.HasStatus(StatusFailedValid) || n.HasStatus(StatusFailedChild)
}
