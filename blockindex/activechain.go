// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import "sync"

// ActiveChain is the dense, height-indexed vector of the node currently
// active at each height — the chain chainstate.Manager has activated, as
// opposed to every other node sitting in Index waiting to be considered
// (spec.md §3.4).
type ActiveChain struct {
	mu    sync.RWMutex
	nodes []NodeIndex
}

// NewActiveChain returns an empty ActiveChain.
func NewActiveChain() *ActiveChain {
	return &ActiveChain{}
}

// Tip returns the node at the highest active height, or NoNode if the
// chain is empty.
func (c *ActiveChain) Tip() NodeIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.nodes) == 0 {
		return NoNode
	}
	return c.nodes[len(c.nodes)-1]
}

// Height returns the active chain's height, or -1 if it is empty.
func (c *ActiveChain) Height() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int32(len(c.nodes)) - 1
}

// NodeAt returns the node active at the given height, or NoNode if height
// is out of range.
func (c *ActiveChain) NodeAt(height int32) NodeIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if height < 0 || int(height) >= len(c.nodes) {
		return NoNode
	}
	return c.nodes[height]
}

// Contains reports whether n is on the active chain at all (at any
// height), given n's own height.
func (c *ActiveChain) Contains(n NodeIndex, height int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if height < 0 || int(height) >= len(c.nodes) {
		return false
	}
	return c.nodes[height] == n
}

// SetTip truncates (or extends) the active chain so it holds exactly the
// given height-ordered node list, genesis first. Used by activation to
// install a new best chain after connecting or disconnecting nodes.
func (c *ActiveChain) SetTip(nodes []NodeIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = nodes
}

// Extend appends a single node to the end of the active chain, for the
// common case of connecting one more block on top of the current tip
// without rebuilding the whole vector.
func (c *ActiveChain) Extend(n NodeIndex) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append(c.nodes, n)
}

// Truncate drops every node above (and including) the given height,
// leaving the chain's new tip at height-1. Used when disconnecting blocks
// during a reorg.
func (c *ActiveChain) Truncate(height int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if height < 0 {
		c.nodes = nil
		return
	}
	if int(height) < len(c.nodes) {
		c.nodes = c.nodes[:height]
	}
}

// Snapshot returns a copy of the full height-ordered node list.
func (c *ActiveChain) Snapshot() []NodeIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]NodeIndex, len(c.nodes))
	copy(out, c.nodes)
	return out
}
