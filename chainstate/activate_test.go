// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"testing"

	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/notify"
	"github.com/rxchain-project/rxchaind/rxerr"
)

// acceptChain mines and accepts (without activating) n headers extending
// parent in sequence, returning every node index in order. nonceFloor keeps
// two independently-built chains off the same parent from colliding.
func acceptChain(t *testing.T, m *Manager, parent blockindex.NodeIndex, n int, nonceFloor uint32) []blockindex.NodeIndex {
	t.Helper()

	out := make([]blockindex.NodeIndex, 0, n)
	cur := parent
	for i := 0; i < n; i++ {
		header := mineOn(t, m, cur, nonceFloor+uint32(i)*1000)
		ni, err := m.AcceptBlockHeader(header, "peerA")
		if err != nil {
			t.Fatalf("AcceptBlockHeader: %v", err)
		}
		out = append(out, ni)
		cur = ni
	}
	return out
}

func TestActivateBestChainReorg(t *testing.T) {
	m, params := newTestManager(t)
	genesisIdx, _ := m.idx.Lookup(params.GenesisHash)

	trunk := acceptChain(t, m, genesisIdx, 2, 0)
	if err := m.ActivateBestChain(blockindex.NoNode); err != nil {
		t.Fatalf("ActivateBestChain(trunk): %v", err)
	}
	if m.chain.Tip() != trunk[1] {
		t.Fatalf("expected trunk tip active, got %v", m.chain.Tip())
	}

	fork := acceptChain(t, m, genesisIdx, 3, 100000)

	var newTips []notify.Event
	var reorgs []notify.Event
	m.hub.Subscribe(notify.NewTip, func(e notify.Event) { newTips = append(newTips, e) })
	m.hub.Subscribe(notify.Reorg, func(e notify.Event) { reorgs = append(reorgs, e) })

	if err := m.ActivateBestChain(fork[2]); err != nil {
		t.Fatalf("ActivateBestChain(fork): %v", err)
	}
	if m.chain.Tip() != fork[2] {
		t.Fatalf("expected fork tip active after reorg, got %v", m.chain.Tip())
	}
	if m.chain.Height() != 3 {
		t.Fatalf("expected active height 3, got %d", m.chain.Height())
	}
	if len(newTips) != 1 {
		t.Fatalf("expected exactly one NewTip event, got %d", len(newTips))
	}
	if len(reorgs) != 1 {
		t.Fatalf("expected exactly one Reorg event, got %d", len(reorgs))
	}
	data := reorgs[0].Data.(ReorgData)
	if data.OldTip != trunk[1] || data.NewTip != fork[2] {
		t.Fatalf("unexpected reorg payload: %+v", data)
	}
}

func TestActivateBestChainRefusesSuspiciousReorg(t *testing.T) {
	m, params := newTestManager(t)
	m.SuspiciousReorgDepth = 1
	genesisIdx, _ := m.idx.Lookup(params.GenesisHash)

	trunk := acceptChain(t, m, genesisIdx, 2, 0)
	if err := m.ActivateBestChain(blockindex.NoNode); err != nil {
		t.Fatalf("ActivateBestChain(trunk): %v", err)
	}

	fork := acceptChain(t, m, genesisIdx, 3, 100000)

	var refusals []notify.Event
	m.hub.Subscribe(notify.SuspiciousReorg, func(e notify.Event) { refusals = append(refusals, e) })

	err := m.ActivateBestChain(fork[2])
	if !rxerr.Is(err, rxerr.ErrSuspiciousReorg) {
		t.Fatalf("expected ErrSuspiciousReorg, got %v", err)
	}
	if m.chain.Tip() != trunk[1] {
		t.Fatalf("expected trunk to remain active after a refused reorg, got %v", m.chain.Tip())
	}
	if len(refusals) != 1 {
		t.Fatalf("expected exactly one SuspiciousReorg event, got %d", len(refusals))
	}
}
