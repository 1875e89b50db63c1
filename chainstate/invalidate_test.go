// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import "testing"

func TestInvalidateBlock(t *testing.T) {
	m, _ := newTestManager(t)

	trunk, err := m.GenerateTestHeaders(3)
	if err != nil {
		t.Fatalf("GenerateTestHeaders: %v", err)
	}
	if m.chain.Tip() != trunk[2] {
		t.Fatalf("expected trunk fully activated before invalidating, tip=%v", m.chain.Tip())
	}

	middle, _ := m.idx.Node(trunk[1])
	if err := m.InvalidateBlock(middle.Hash); err != nil {
		t.Fatalf("InvalidateBlock: %v", err)
	}

	if m.chain.Tip() != trunk[0] {
		t.Fatalf("expected chain to rewind to trunk[0], tip=%v", m.chain.Tip())
	}
	if m.chain.Height() != 1 {
		t.Fatalf("expected active height 1 after invalidation, got %d", m.chain.Height())
	}

	invalidated, _ := m.idx.Node(trunk[1])
	if !invalidated.Invalid() {
		t.Fatal("expected the invalidated node to report Invalid()")
	}
	cascaded, _ := m.idx.Node(trunk[2])
	if !cascaded.Invalid() {
		t.Fatal("expected the invalidated node's descendant to also report Invalid()")
	}
}
