// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package randomx

import (
	"math/big"

	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
)

// ASERT fixed-point polynomial constants approximating 2^(frac/65536) over
// frac in [0, 65535], to within the precision the algorithm requires.
const (
	asertPolyA = 195766423245049
	asertPolyB = 971821376
	asertPolyC = 5127
)

// Anchor carries the fixed reference point ASERT retargets around: the
// anchor header's own bits, its height, and — critically — its parent's
// timestamp, which defines the schedule's time origin.
type Anchor struct {
	Bits            uint32
	Height          int32
	ParentTimestamp int64
}

// NextDifficulty computes the compact "bits" value required of the block
// that extends parent, using the ASERT algorithm anchored at anchor
// (spec.md §4.1, "ASERT — next required difficulty").
//
// parentHeight and parentTimestamp describe the block being extended;
// spacing is the network's target seconds-per-block and halfLife is the
// number of seconds of schedule drift needed to double or halve the
// difficulty.
func NextDifficulty(
	anchor Anchor,
	parentHeight int32,
	parentTimestamp int64,
	spacing int64,
	halfLife int64,
	powLimit *primitives.Work256,
) (uint32, error) {
	refTarget, ok := primitives.CompactToWork(anchor.Bits, nil)
	if !ok || refTarget.Sign() <= 0 {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty,
			"anchor bits %08x do not decode to a positive target", anchor.Bits)
	}
	if powLimit != nil && refTarget.Cmp(powLimit) > 0 {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty,
			"anchor target exceeds pow limit")
	}

	heightDiff := int64(parentHeight) - int64(anchor.Height)
	if heightDiff < 0 {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty,
			"parent height %d precedes anchor height %d", parentHeight, anchor.Height)
	}

	timeDiff := parentTimestamp - anchor.ParentTimestamp

	expected, overflow := mulOverflowsInt64(spacing, heightDiff+1)
	if overflow {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty,
			"spacing*(height_diff+1) overflows a 64-bit integer")
	}
	drift, overflow := subOverflowsInt64(timeDiff, expected)
	if overflow {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty,
			"time_diff - spacing*(height_diff+1) overflows a 64-bit integer")
	}
	scaledDrift, overflow := mulOverflowsInt64(drift, 65536)
	if overflow {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty,
			"drift*65536 overflows a 64-bit integer")
	}
	if halfLife <= 0 {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty, "half life must be positive")
	}

	// Euclidean/floor division: big.Int.Div rounds toward negative
	// infinity for a positive divisor, matching the spec's intent for a
	// negative drift.
	exponentBig := new(big.Int).Div(big.NewInt(scaledDrift), big.NewInt(halfLife))

	shiftsBig := new(big.Int).Rsh(exponentBig, 16)
	if !shiftsBig.IsInt64() {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty, "asert exponent shift out of range")
	}
	shifts := shiftsBig.Int64()

	fracBig := new(big.Int).Sub(exponentBig, new(big.Int).Lsh(shiftsBig, 16))
	frac := fracBig.Int64()
	if frac < 0 || frac > 0xffff {
		return 0, rxerr.New(rxerr.ErrInvalidDifficulty, "asert fractional exponent out of range")
	}

	factor := asertFactor(frac)

	work512 := primitives.NewWork512FromWork256(&refTarget)
	work512.MulUint64(factor)

	shiftAmt := shifts - 16
	switch {
	case shiftAmt > 0:
		if shiftAmt > 512 {
			return 0, rxerr.New(rxerr.ErrInvalidDifficulty, "asert left shift out of range")
		}
		work512.Lsh(uint(shiftAmt))
	case shiftAmt < 0:
		n := -shiftAmt
		if n > 512 {
			var zeroTarget primitives.Work256
			work512 = primitives.NewWork512FromWork256(&zeroTarget)
		} else {
			work512.Rsh(uint(n))
		}
	}

	one := primitives.Work256{}
	one.SetUint64(1)
	limit := powLimit
	if limit == nil {
		var maxVal primitives.Work256
		maxVal.SetAllOne()
		limit = &maxVal
	}

	next := work512.ClampToWork256(&one, limit)
	return primitives.WorkToCompact(&next), nil
}

// asertFactor approximates 2^(frac/65536) * 65536 for frac in [0, 65535]
// using the fixed-point polynomial named in spec.md §4.1.
func asertFactor(frac int64) uint64 {
	f := big.NewInt(frac)
	f2 := new(big.Int).Mul(f, f)
	f3 := new(big.Int).Mul(f2, f)

	term := new(big.Int).Mul(big.NewInt(asertPolyA), f)
	term.Add(term, new(big.Int).Mul(big.NewInt(asertPolyB), f2))
	term.Add(term, new(big.Int).Mul(big.NewInt(asertPolyC), f3))
	term.Add(term, new(big.Int).Lsh(big.NewInt(1), 47))
	term.Rsh(term, 48)

	factor := new(big.Int).Add(big.NewInt(65536), term)
	return factor.Uint64()
}

func mulOverflowsInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	result := a * b
	if result/b != a {
		return 0, true
	}
	return result, false
}

func subOverflowsInt64(a, b int64) (int64, bool) {
	result := a - b
	// Overflow happened if the sign of the result doesn't follow from the
	// signs of the operands the way subtraction requires.
	if (b > 0 && result > a) || (b < 0 && result < a) {
		return 0, true
	}
	return result, false
}
