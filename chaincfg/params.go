// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network-wide consensus parameters: the
// genesis header, difficulty bounds, RandomX epoch schedule, ASERT anchor,
// and anti-DoS thresholds a chainstate.Manager needs to validate headers
// (spec.md §3.8).
package chaincfg

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/wire"
)

var bigOne = big.NewInt(1)

// DNSSeed identifies a DNS seed and whether it supports filtering by
// required services.
type DNSSeed struct {
	Host         string
	HasFiltering bool
}

// Params defines a network's complete consensus parameter set: the
// immutable genesis header, the proof-of-work and difficulty schedule, and
// the anti-DoS thresholds enforced at every header boundary.
type Params struct {
	// Name is the network's canonical identifier ("mainnet", "testnet",
	// "regtest").
	Name string

	// Net is the magic carried in every message header on this network.
	Net wire.CurrencyNet

	// DefaultPort is the TCP port peers listen on by default.
	DefaultPort string

	// DNSSeeds bootstraps address discovery for new nodes.
	DNSSeeds []DNSSeed

	// GenesisHeader is the network's first header. Its hash anchors every
	// other header's ancestry.
	GenesisHeader wire.BlockHeader

	// GenesisHash is GenesisHeader.BlockHash(), precomputed once so
	// callers never have to re-hash the genesis header.
	GenesisHash chainhash.Hash

	// PowLimit is the easiest allowed proof-of-work target; no header may
	// have Bits decode to a target above it.
	PowLimit primitives.Work256

	// PowLimitBits is PowLimit in its compact wire encoding.
	PowLimitBits uint32

	// PowTargetSpacing is the network's intended seconds-per-header
	// interval, the schedule ASERT retargets around.
	PowTargetSpacing int64

	// RandomXEpochDuration is the number of seconds a single RandomX
	// dataset epoch spans. epoch = floor(header.time / RandomXEpochDuration).
	RandomXEpochDuration int64

	// ASERTHalfLife is the number of seconds of schedule drift required to
	// double or halve the difficulty under the ASERT algorithm.
	ASERTHalfLife int64

	// ASERTAnchorHeight is the height of the header ASERT anchors its
	// reference target and schedule origin to.
	ASERTAnchorHeight int32

	// MinimumChainWork is the lowest cumulative chain work this node will
	// accept as a legitimate candidate tip; headers batches below it are
	// treated as a potential low-work DoS attempt.
	MinimumChainWork uint256.Int

	// NetworkExpirationHeight, if non-zero, is the height at or beyond
	// which headers are unconditionally rejected. Zero means the network
	// never expires.
	NetworkExpirationHeight int32

	// AntiDoSWorkBufferBlocks is the number of blocks' worth of the tip's
	// per-block work subtracted from the locally known tip's chain work to
	// give the threshold an unsolicited header batch must clear before it
	// is accepted as plausible (spec.md §4.2, anti-DoS work threshold).
	AntiDoSWorkBufferBlocks int32

	// MaxFutureBlockTime bounds how far into the future (relative to the
	// local clock) a header's timestamp may be before it is rejected
	// outright rather than cached.
	MaxFutureBlockTime int64

	// Checkpoints are known-good (height, hash) pairs used only to reject
	// known-bad branches faster; they are never a substitute for PoW
	// validation.
	Checkpoints []Checkpoint
}

// Checkpoint identifies a block that is assumed to be valid, and any block
// that does not match it at that height is rejected.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// Genesis returns a copy of the network's genesis header.
func (p *Params) Genesis() wire.BlockHeader {
	return p.GenesisHeader
}

func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return hash
}

func bigToCompact(n *big.Int) uint32 {
	var w primitives.Work256
	w.SetFromBig(n)
	return primitives.WorkToCompact(&w)
}

func compactToBig(bits uint32) *big.Int {
	var limit primitives.Work256
	limit.SetAllOne()
	target, _ := primitives.CompactToWork(bits, &limit)
	return target.ToBig()
}
