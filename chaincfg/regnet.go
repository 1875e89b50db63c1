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

// RegNetParams returns the consensus parameters for the private regression
// test network used by chainstate.GenerateTestHeaders and integration
// tests. Difficulty is trivial so test headers can be produced without
// running RandomX at mainnet cost.
func RegNetParams() *Params {
	regPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	genesisHeader := wire.BlockHeader{
		Version:      1,
		PrevBlock:    chainhash.Hash{},
		MinerAddress: chainhash.Hash160{},
		Timestamp:    1296688602, // shared across runs so GenesisHash is stable
		Bits:         bigToCompact(regPowLimit),
		Nonce:        0,
		RandomXHash:  chainhash.Hash{},
	}

	p := &Params{
		Name:        "regtest",
		Net:         wire.RegNet,
		DefaultPort: "19777",
		DNSSeeds:    nil,

		GenesisHeader: genesisHeader,
		GenesisHash:   genesisHeader.BlockHash(),

		PowTargetSpacing:     1,
		RandomXEpochDuration: 3600,
		ASERTHalfLife:        600,
		ASERTAnchorHeight:    0,

		NetworkExpirationHeight: 0,
		AntiDoSWorkBufferBlocks: 2,
		MaxFutureBlockTime:      15 * 60,

		Checkpoints: nil,
	}
	p.PowLimit.SetFromBig(regPowLimit)
	p.PowLimitBits = bigToCompact(regPowLimit)
	p.MinimumChainWork = *uint256.NewInt(0)

	return p
}
