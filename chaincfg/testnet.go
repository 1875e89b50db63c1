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

// TestNetParams returns the consensus parameters for the public test
// network. Difficulty is easier than mainnet and the network carries an
// expiration height so stale testnets don't linger forever.
func TestNetParams() *Params {
	testPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)

	genesisHeader := wire.BlockHeader{
		Version:      1,
		PrevBlock:    chainhash.Hash{},
		MinerAddress: chainhash.Hash160{},
		Timestamp:    1735689600,
		Bits:         bigToCompact(testPowLimit),
		Nonce:        0,
		RandomXHash:  chainhash.Hash{},
	}

	p := &Params{
		Name:        "testnet",
		Net:         wire.TestNet,
		DefaultPort: "19666",
		DNSSeeds: []DNSSeed{
			{Host: "testnet-seed.rxchain.org", HasFiltering: true},
		},

		GenesisHeader: genesisHeader,
		GenesisHash:   genesisHeader.BlockHash(),

		PowTargetSpacing:     120,
		RandomXEpochDuration: 24 * 3600,
		ASERTHalfLife:        2 * 3600,
		ASERTAnchorHeight:    0,

		// Testnet headers stop being accepted at this height (roughly
		// sixteen years of 120-second blocks) so a long-abandoned testnet
		// can't be mistaken for a live one.
		NetworkExpirationHeight: 4_200_000,
		AntiDoSWorkBufferBlocks: 144,
		MaxFutureBlockTime:      15 * 60,

		Checkpoints: nil,
	}
	p.PowLimit.SetFromBig(testPowLimit)
	p.PowLimitBits = bigToCompact(testPowLimit)
	p.MinimumChainWork = *uint256.NewInt(0)

	return p
}
