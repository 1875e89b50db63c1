// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import "testing"

func TestNetworkHashPSRequiresHistory(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.NetworkHashPS(10); err == nil {
		t.Fatal("expected an error estimating hash rate from a genesis-only chain")
	}
}

func TestNetworkHashPS(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.GenerateTestHeaders(5); err != nil {
		t.Fatalf("GenerateTestHeaders: %v", err)
	}

	hashps, err := m.NetworkHashPS(3)
	if err != nil {
		t.Fatalf("NetworkHashPS: %v", err)
	}
	if hashps <= 0 {
		t.Fatalf("expected a positive hash rate estimate, got %v", hashps)
	}

	whole, err := m.NetworkHashPS(0)
	if err != nil {
		t.Fatalf("NetworkHashPS(0): %v", err)
	}
	if whole <= 0 {
		t.Fatalf("expected a positive whole-chain estimate, got %v", whole)
	}
}
