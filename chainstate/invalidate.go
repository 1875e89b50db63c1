// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/notify"
	"github.com/rxchain-project/rxchaind/rxerr"
)

// InvalidateBlock marks hash's node FAILED_VALID and every one of its known
// descendants FAILED_CHILD, disconnecting it from the active chain first if
// it is currently on it, then re-activating the best remaining chain. The
// whole operation runs under the single consensus lock with no intermediate
// release — the source's race bug this fixes let another goroutine observe
// the chain mid-disconnect with the invalidated block already gone from the
// index but still nominally active (spec.md §4.3, §5).
func (m *Manager) InvalidateBlock(hash chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ni, ok := m.idx.Lookup(hash)
	if !ok {
		return rxerr.New(rxerr.ErrInternalConsistency, "invalidate: unknown hash %s", hash)
	}
	node, _ := m.idx.Node(ni)

	if m.chain.Contains(ni, node.Height) {
		var disconnected []blockindex.NodeIndex
		cur := m.chain.Tip()
		for {
			n, ok := m.idx.Node(cur)
			if !ok || n.Height < node.Height {
				break
			}
			disconnected = append(disconnected, cur)
			cur = n.Parent
		}
		m.chain.Truncate(node.Height)
		for _, d := range disconnected {
			dn, _ := m.idx.Node(d)
			m.hub.Publish(notify.Event{Type: notify.BlockDisconnected, Data: BlockEventData{Header: dn.Header, Node: d}})
		}
	}

	m.idx.SetStatus(ni, blockindex.StatusFailedValid)
	m.candidates.Remove(ni)
	for _, d := range m.idx.Descendants(ni) {
		m.idx.SetStatus(d, blockindex.StatusFailedChild)
		m.candidates.Remove(d)
	}

	return m.activateLocked(m.chain.Tip(), blockindex.NoNode)
}
