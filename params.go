// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/rxchain-project/rxchaind/chaincfg"
	"github.com/rxchain-project/rxchaind/wire"
)

// netParams groups a network's consensus parameters with the wire magic
// that identifies it on the connection, keeping "which network" a single
// lookup rather than a switch scattered across every caller.
type netParams struct {
	*chaincfg.Params
	net wire.CurrencyNet
}

func netParamsFor(network string) (netParams, error) {
	switch network {
	case "mainnet":
		return netParams{Params: chaincfg.MainNetParams(), net: wire.MainNet}, nil
	case "testnet":
		return netParams{Params: chaincfg.TestNetParams(), net: wire.TestNet}, nil
	case "regnet":
		return netParams{Params: chaincfg.RegNetParams(), net: wire.RegNet}, nil
	default:
		return netParams{}, fmt.Errorf("unknown network %q", network)
	}
}
