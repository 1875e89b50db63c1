// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validate implements the header validation layers chainstate runs
// a candidate header through: context-free checks that need nothing but
// the header and consensus parameters, and contextual checks that need the
// header's parent and the network's adjusted clock (spec.md §4.2).
package validate

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/randomx"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/wire"
)

// MaxLocatorEntries mirrors wire.MaxLocatorEntries; kept here too so
// callers of GetLocator don't need to reach into wire for the constant
// this package is itself bounded by.
const MaxLocatorEntries = 101

// ContextFree checks the header's bits decode to a valid target not
// exceeding powLimit, then runs the requested RandomX verification mode
// against that target. It does not look at anything besides the header
// itself and the engine, matching spec.md §4.2 layers 1-2.
func ContextFree(header *wire.BlockHeader, powLimit *primitives.Work256, engine *randomx.Engine, mode randomx.Mode) error {
	target, ok := primitives.CompactToWork(header.Bits, powLimit)
	if !ok {
		return rxerr.New(rxerr.ErrBadDiffBits, "bits 0x%08x do not decode to a valid target", header.Bits)
	}

	ok, err := engine.Verify(header, &target, mode)
	if err != nil {
		return err
	}
	if !ok {
		if mode == randomx.ModeCommitmentOnly {
			return rxerr.New(rxerr.ErrBadPoW, "commitment hash does not meet target")
		}
		return rxerr.New(rxerr.ErrBadCommitment, "randomx hash does not meet target")
	}
	return nil
}

// Contextual is the set of inputs layer-3 checks need beyond the header
// itself: the parent's derived state and the node's view of "now".
type Contextual struct {
	ParentMedianTime   time.Time
	AdjustedTime       time.Time
	MaxFutureBlockTime int64 // seconds
	RequiredBits       uint32
	ParentHeight       int32
	ExpirationHeight   int32 // 0 means "no expiration configured"
}

// Check runs every layer-3 contextual check from spec.md §4.2 against
// header, given the parent-derived facts in c.
func Check(header *wire.BlockHeader, c Contextual) error {
	ts := time.Unix(int64(header.Timestamp), 0)

	if !ts.After(c.ParentMedianTime) {
		return rxerr.New(rxerr.ErrTimeTooOld,
			"header time %s is not after median time past %s", ts, c.ParentMedianTime)
	}

	limit := c.AdjustedTime.Add(time.Duration(c.MaxFutureBlockTime) * time.Second)
	if ts.After(limit) {
		return rxerr.New(rxerr.ErrTimeTooNew,
			"header time %s exceeds adjusted time + max future (%s)", ts, limit)
	}

	if header.Bits != c.RequiredBits {
		return rxerr.New(rxerr.ErrBadDiffBits,
			"header bits 0x%08x does not match required 0x%08x", header.Bits, c.RequiredBits)
	}

	if c.ExpirationHeight > 0 && c.ParentHeight+1 >= c.ExpirationHeight {
		return rxerr.New(rxerr.ErrNetworkExpired,
			"height %d is at or beyond network expiration height %d", c.ParentHeight+1, c.ExpirationHeight)
	}

	return nil
}

// AntiDoSThreshold returns the minimum cumulative work a header batch must
// carry to be accepted outside of a trusted/initial context. During IBD
// the threshold is simply minimumChainWork; otherwise it is the tip's
// chain work minus buffer blocks worth of the tip's own per-block proof,
// saturating at zero when the buffer reaches tipWork rather than
// underflowing (spec.md §4.2).
func AntiDoSThreshold(inIBD bool, tipWork, minimumChainWork, tipBlockProof primitives.Work256, bufferBlocks int32) primitives.Work256 {
	if inIBD {
		return minimumChainWork
	}

	multiplier := uint256.NewInt(uint64(bufferBlocks))
	var buffer primitives.Work256
	buffer.Mul(&tipBlockProof, multiplier)
	if buffer.Cmp(&tipWork) >= 0 {
		return primitives.Work256{}
	}
	var threshold primitives.Work256
	threshold.Sub(&tipWork, &buffer)
	return threshold
}

// Ancestor is the minimal view GetLocator needs of a chain: its tip height
// and the hash at any height along it.
type Ancestor interface {
	// HashAt returns the hash of the node at the given height on the chain
	// ending at the receiver, or false if height is out of range.
	HashAt(height int32) (chainhash.Hash, bool)
	Height() int32
}

// GetLocator builds a block locator for chain starting at its own tip:
// the tip's hash, then exponentially-spaced ancestors (1,1,...,1 for the
// first 10 steps, doubling thereafter), capped at MaxLocatorEntries and
// always terminating at genesis when genesis is reachable within the cap
// (spec.md §4.2 "Locator").
func GetLocator(chain Ancestor) []chainhash.Hash {
	height := chain.Height()
	if height < 0 {
		return nil
	}

	locator := make([]chainhash.Hash, 0, MaxLocatorEntries)
	step := int32(1)
	h := height
	for len(locator) < MaxLocatorEntries {
		hash, ok := chain.HashAt(h)
		if !ok {
			break
		}
		locator = append(locator, hash)
		if h == 0 {
			break
		}
		if len(locator) > 10 {
			step *= 2
		}
		if h < step {
			h = 0
		} else {
			h -= step
		}
	}
	return locator
}
