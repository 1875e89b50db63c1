// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package primitives implements the fixed-width integer arithmetic the
// consensus layer depends on: the compact ("nBits") <-> 256-bit target
// encoding, the per-block "work" contribution used for chain-work
// accumulation, and the 512-bit intermediate ASERT needs to avoid overflow.
package primitives

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/rxchain-project/rxchaind/chainhash"
)

// Work256 is a 256-bit unsigned integer used both for PoW targets and for
// the cumulative chain-work accumulator. It is backed by uint256.Int so
// arithmetic never silently wraps without the caller asking for it.
type Work256 = uint256.Int

// Work512 is used only as an ASERT intermediate, where ref_target * factor
// can exceed 256 bits before being shifted back down. No ecosystem 512-bit
// type is available, so this wraps math/big.Int narrowly for that one
// computation (see NextDifficulty in package randomx).
type Work512 struct {
	v *big.Int
}

// NewWork512FromWork256 promotes a Work256 into a Work512 for overflow-safe
// multiplication.
func NewWork512FromWork256(w *Work256) Work512 {
	return Work512{v: w.ToBig()}
}

// MulUint64 multiplies the receiver by a plain uint64 factor in place.
func (w *Work512) MulUint64(factor uint64) {
	w.v.Mul(w.v, new(big.Int).SetUint64(factor))
}

// Lsh shifts the receiver left by n bits.
func (w *Work512) Lsh(n uint) {
	w.v.Lsh(w.v, n)
}

// Rsh shifts the receiver right by n bits.
func (w *Work512) Rsh(n uint) {
	w.v.Rsh(w.v, n)
}

// Sign reports -1/0/1 for negative/zero/positive.
func (w *Work512) Sign() int {
	return w.v.Sign()
}

// Cmp compares against another Work512.
func (w *Work512) Cmp(o *Work512) int {
	return w.v.Cmp(o.v)
}

// ClampToWork256 truncates/clamps the value into [min, max] and returns it
// as a Work256. It never panics on overflow; values above 2^256-1 are
// clamped to max (the caller is expected to pass pow_limit as max so this
// never actually triggers for valid consensus parameters, but the clamp is
// unconditional per spec so that release builds can never witness UB).
func (w *Work512) ClampToWork256(min, max *Work256) Work256 {
	if w.v.Sign() <= 0 {
		return *min
	}
	maxBig := max.ToBig()
	if w.v.Cmp(maxBig) > 0 {
		return *max
	}
	minBig := min.ToBig()
	if w.v.Cmp(minBig) < 0 {
		return *min
	}
	var out Work256
	out.SetFromBig(w.v)
	return out
}

// bigOne is 1 represented as a big.Int, defined once to avoid repeated
// allocation in the compact<->target conversions below.
var bigOne = big.NewInt(1)

// CompactToWork decodes the compact "bits" representation used in block
// headers into a Work256 target. It rejects a negative mantissa (sign bit
// set), a zero target, and a target exceeding powLimit, returning ok=false
// in each case so callers can surface ErrBadDiffBits without ever trusting
// an out-of-range target.
func CompactToWork(bits uint32, powLimit *Work256) (Work256, bool) {
	mantissa := bits & 0x007fffff
	exponent := uint(bits >> 24)

	// Reject the sign bit (bit 23 of the mantissa byte group).
	if bits&0x00800000 != 0 {
		return Work256{}, false
	}

	var target big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		target.SetUint64(uint64(mantissa))
	} else {
		target.SetUint64(uint64(mantissa))
		target.Lsh(&target, 8*(exponent-3))
	}

	if target.Sign() == 0 {
		return Work256{}, false
	}
	if target.BitLen() > 256 {
		return Work256{}, false
	}

	var out Work256
	out.SetFromBig(&target)
	if powLimit != nil && out.Cmp(powLimit) > 0 {
		return Work256{}, false
	}
	return out, true
}

// WorkToCompact encodes a Work256 target into the compact "bits"
// representation.
func WorkToCompact(target *Work256) uint32 {
	t := target.ToBig()
	if t.Sign() == 0 {
		return 0
	}

	exponent := uint((t.BitLen() + 7) / 8)
	var mantissa uint64
	if exponent <= 3 {
		mantissa = t.Uint64() << (8 * (3 - exponent))
	} else {
		shifted := new(big.Int).Rsh(t, 8*(exponent-3))
		mantissa = shifted.Uint64()
	}

	// Mantissa is greater than 0x7fffff, so the exponent must be increased
	// by one and the mantissa right-shifted by eight to compensate.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	return uint32(mantissa) | uint32(exponent)<<24
}

// CalcWork returns the work value for a single block with the given compact
// difficulty bits: roughly ~target / (target+1) + 1. powLimit bounds the
// decoded target exactly as CompactToWork does; a bits value that fails to
// decode contributes zero work (callers must already have rejected the
// header via validate before accumulating its work, so this only matters
// for defense in depth).
func CalcWork(bits uint32, powLimit *Work256) Work256 {
	target, ok := CompactToWork(bits, powLimit)
	if !ok {
		return Work256{}
	}
	targetBig := target.ToBig()
	if targetBig.Sign() == 0 {
		return Work256{}
	}

	// (2^256 - 1 - target) / (target + 1) + 1
	denominator := new(big.Int).Add(targetBig, bigOne)
	maxVal := new(big.Int).Lsh(bigOne, 256)
	maxVal.Sub(maxVal, bigOne)
	numerator := new(big.Int).Sub(maxVal, targetBig)
	work := numerator.Div(numerator, denominator)
	work.Add(work, bigOne)

	var out Work256
	out.SetFromBig(work)
	return out
}

// HashToWork converts a hash's bytes (raw, non-reversed storage order) into
// a Work256 for direct comparison against a target.
func HashToWork(h *chainhash.Hash) Work256 {
	var be [chainhash.HashSize]byte
	for i, b := range h {
		be[chainhash.HashSize-1-i] = b
	}
	var out Work256
	out.SetBytes(be[:])
	return out
}

// CheckProofOfWork reports whether hash, interpreted as a Work256, satisfies
// the target decoded from bits (hash <= target), bounding the decoded target
// by powLimit exactly as consensus requires.
func CheckProofOfWork(hash *chainhash.Hash, bits uint32, powLimit *Work256) bool {
	target, ok := CompactToWork(bits, powLimit)
	if !ok {
		return false
	}
	hashWork := HashToWork(hash)
	return hashWork.Cmp(&target) <= 0
}
