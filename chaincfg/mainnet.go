// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/wire"
)

// MainNetParams returns the consensus parameters for the main network.
func MainNetParams() *Params {
	// mainPowLimit is the easiest allowed proof-of-work target on mainnet:
	// 2^224 - 1.
	mainPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	genesisHeader := wire.BlockHeader{
		Version:      1,
		PrevBlock:    chainhash.Hash{},
		MinerAddress: chainhash.Hash160{},
		Timestamp:    1735689600, // 2025-01-01T00:00:00Z
		Bits:         bigToCompact(mainPowLimit),
		Nonce:        0,
		RandomXHash:  chainhash.Hash{},
	}

	p := &Params{
		Name:        "mainnet",
		Net:         wire.MainNet,
		DefaultPort: "9666",
		DNSSeeds: []DNSSeed{
			{Host: "seed.rxchain.org", HasFiltering: true},
			{Host: "seed2.rxchain.org", HasFiltering: true},
		},

		GenesisHeader: genesisHeader,
		GenesisHash:   genesisHeader.BlockHash(),

		PowTargetSpacing:    120,
		RandomXEpochDuration: 7 * 24 * 3600,
		ASERTHalfLife:        2 * 3600,
		ASERTAnchorHeight:    0,

		NetworkExpirationHeight: 0,
		AntiDoSWorkBufferBlocks: 144,
		MaxFutureBlockTime:      15 * 60,

		Checkpoints: nil,
	}
	p.PowLimit.SetFromBig(mainPowLimit)
	p.PowLimitBits = bigToCompact(mainPowLimit)
	p.MinimumChainWork = *uint256.NewInt(0)

	return p
}
