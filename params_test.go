// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "testing"

func TestNetParamsForKnownNetworks(t *testing.T) {
	for _, name := range []string{"mainnet", "testnet", "regnet"} {
		np, err := netParamsFor(name)
		if err != nil {
			t.Fatalf("netParamsFor(%q): %v", name, err)
		}
		if np.Params == nil {
			t.Fatalf("netParamsFor(%q) returned nil Params", name)
		}
	}
}

func TestNetParamsForUnknownNetwork(t *testing.T) {
	if _, err := netParamsFor("nonesuch"); err == nil {
		t.Fatal("expected an unknown network name to be rejected")
	}
}
