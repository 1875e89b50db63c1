// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/notify"
	"github.com/rxchain-project/rxchaind/rxerr"
)

// ActivateBestChain activates target (or, if target is blockindex.NoNode,
// the current best candidate) onto the active chain, computing reorg depth
// against the chain's current tip (spec.md §4.3).
func (m *Manager) ActivateBestChain(target blockindex.NodeIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked(m.chain.Tip(), target)
}

// ActivateBestChainFrom activates target the same way ActivateBestChain
// does, but measures reorg depth against pivotTip rather than the chain's
// live tip. A sync manager feeding a whole HEADERS batch through
// AcceptBlockHeader captures the tip once before the batch and passes it
// here, so a long incremental accept sequence cannot erode the
// suspicious-reorg check one header at a time (spec.md §4.9, §9).
func (m *Manager) ActivateBestChainFrom(pivotTip, target blockindex.NodeIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked(pivotTip, target)
}

func (m *Manager) activateLocked(pivotTip, target blockindex.NodeIndex) error {
	if target == blockindex.NoNode {
		target = m.candidates.Best()
	}
	if target == blockindex.NoNode {
		return nil
	}

	tip := m.chain.Tip()
	if target == tip {
		return nil
	}

	targetNode, ok := m.idx.Node(target)
	if !ok {
		return rxerr.New(rxerr.ErrInternalConsistency, "activate: unknown target node %d", target)
	}
	if tipNode, ok := m.idx.Node(tip); ok && targetNode.ChainWork.Cmp(&tipNode.ChainWork) <= 0 {
		return nil
	}

	fork := m.idx.CommonAncestor(pivotTip, target)
	if fork == blockindex.NoNode {
		return rxerr.New(rxerr.ErrNoCommonAncestor, "target %d shares no common ancestor with pivot tip %d", target, pivotTip)
	}
	forkNode, _ := m.idx.Node(fork)

	pivotNode, ok := m.idx.Node(pivotTip)
	if ok {
		reorgDepth := pivotNode.Height - forkNode.Height
		if m.SuspiciousReorgDepth > 0 && reorgDepth >= m.SuspiciousReorgDepth {
			m.hub.Publish(notify.Event{
				Type: notify.SuspiciousReorg,
				Data: SuspiciousReorgData{Depth: reorgDepth, AllowedMax: m.SuspiciousReorgDepth},
			})
			return rxerr.New(rxerr.ErrSuspiciousReorg,
				"reorg depth %d at/above configured threshold %d", reorgDepth, m.SuspiciousReorgDepth)
		}
	}

	// Disconnect the live tip down to the fork point. This walks from the
	// chain's actual current tip, which may have moved past pivotTip if
	// headers kept being activated after pivotTip was captured — the suspicious-reorg
	// check above already used pivotTip for its depth measurement, but the
	// mechanical disconnect must operate on what is really installed.
	liveTip := m.chain.Tip()
	var disconnected []blockindex.NodeIndex
	cur := liveTip
	for cur != fork && cur != blockindex.NoNode {
		disconnected = append(disconnected, cur)
		n, _ := m.idx.Node(cur)
		cur = n.Parent
	}
	if cur != fork {
		return rxerr.New(rxerr.ErrNoCommonAncestor, "fork point %d unreachable from the live tip", fork)
	}

	oldTip := liveTip
	m.chain.Truncate(forkNode.Height + 1)
	for _, d := range disconnected {
		dn, _ := m.idx.Node(d)
		m.hub.Publish(notify.Event{Type: notify.BlockDisconnected, Data: BlockEventData{Header: dn.Header, Node: d}})
	}

	// Connect fork -> target. In a headers-only chain every node reaching
	// this point already carries VALID_TREE, so there is no further check
	// that can fail here — unlike a full-block chain, there is no connect
	// primitive to rewind from (see DESIGN.md).
	var path []blockindex.NodeIndex
	cur = target
	for cur != fork {
		path = append(path, cur)
		n, _ := m.idx.Node(cur)
		cur = n.Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	for _, c := range path {
		m.chain.Extend(c)
		cn, _ := m.idx.Node(c)
		m.hub.Publish(notify.Event{Type: notify.BlockConnected, Data: BlockEventData{Header: cn.Header, Node: c}})
	}

	newTip := m.chain.Tip()
	newTipNode, _ := m.idx.Node(newTip)
	m.hub.Publish(notify.Event{Type: notify.NewTip, Data: NewTipData{Node: newTip, Height: m.chain.Height()}})

	reorgDepth := int32(0)
	if ok {
		reorgDepth = pivotNode.Height - forkNode.Height
	}
	if reorgDepth > 0 {
		m.hub.Publish(notify.Event{
			Type: notify.Reorg,
			Data: ReorgData{OldTip: oldTip, NewTip: newTip, ForkHeight: forkNode.Height},
		})
	}

	m.candidates.PruneDominated(&newTipNode.ChainWork)
	return nil
}
