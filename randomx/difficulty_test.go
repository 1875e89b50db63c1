// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package randomx

import (
	"math/big"
	"testing"

	"github.com/rxchain-project/rxchaind/primitives"
)

func mustLimit() *primitives.Work256 {
	limit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))
	var w primitives.Work256
	w.SetFromBig(limit)
	return &w
}

func TestNextDifficultyNoDriftHoldsSteady(t *testing.T) {
	limit := mustLimit()
	anchorBits := primitives.WorkToCompact(limit)
	anchor := Anchor{Bits: anchorBits, Height: 0, ParentTimestamp: 1000}

	// parent is exactly on schedule: height 10, time = anchor parent time +
	// spacing*(height_diff+1).
	const spacing = 120
	parentHeight := int32(10)
	parentTime := int64(1000) + spacing*int64(parentHeight-0+1)

	bits, err := NextDifficulty(anchor, parentHeight, parentTime, spacing, 3600, limit)
	if err != nil {
		t.Fatalf("NextDifficulty: %v", err)
	}
	if bits != anchorBits {
		t.Errorf("expected on-schedule drift to hold difficulty steady: got %08x want %08x",
			bits, anchorBits)
	}
}

func TestNextDifficultyFastBlocksIncreaseDifficulty(t *testing.T) {
	limit := mustLimit()
	anchorBits := primitives.WorkToCompact(limit)
	anchor := Anchor{Bits: anchorBits, Height: 0, ParentTimestamp: 1000}

	const spacing = 120
	parentHeight := int32(10)
	// Blocks arrived twice as fast as scheduled; difficulty should rise,
	// meaning the next target shrinks below the anchor's.
	onSchedule := int64(1000) + spacing*int64(parentHeight+1)
	parentTime := int64(1000) + (onSchedule-1000)/2

	bits, err := NextDifficulty(anchor, parentHeight, parentTime, spacing, 3600, limit)
	if err != nil {
		t.Fatalf("NextDifficulty: %v", err)
	}

	nextTarget, ok := primitives.CompactToWork(bits, limit)
	if !ok {
		t.Fatalf("NextDifficulty returned undecodable bits %08x", bits)
	}
	anchorTarget, _ := primitives.CompactToWork(anchorBits, limit)
	if nextTarget.Cmp(&anchorTarget) >= 0 {
		t.Errorf("expected faster-than-scheduled blocks to shrink the target: next=%v anchor=%v",
			nextTarget.ToBig(), anchorTarget.ToBig())
	}
}

func TestNextDifficultySlowBlocksDecreaseDifficulty(t *testing.T) {
	limit := mustLimit()
	// Use a target well below powLimit so there is room for difficulty to
	// decrease (target to grow) without immediately clamping to the limit.
	half := new(big.Int).Rsh(limit.ToBig(), 4)
	var halfTarget primitives.Work256
	halfTarget.SetFromBig(half)
	anchorBits := primitives.WorkToCompact(&halfTarget)
	anchor := Anchor{Bits: anchorBits, Height: 0, ParentTimestamp: 1000}

	const spacing = 120
	parentHeight := int32(10)
	// Blocks arrived at four times the scheduled interval.
	onSchedule := int64(1000) + spacing*int64(parentHeight+1)
	parentTime := int64(1000) + (onSchedule-1000)*4

	bits, err := NextDifficulty(anchor, parentHeight, parentTime, spacing, 3600, limit)
	if err != nil {
		t.Fatalf("NextDifficulty: %v", err)
	}

	nextTarget, ok := primitives.CompactToWork(bits, limit)
	if !ok {
		t.Fatalf("NextDifficulty returned undecodable bits %08x", bits)
	}
	anchorTarget, _ := primitives.CompactToWork(anchorBits, limit)
	if nextTarget.Cmp(&anchorTarget) <= 0 {
		t.Errorf("expected slower-than-scheduled blocks to grow the target: next=%v anchor=%v",
			nextTarget.ToBig(), anchorTarget.ToBig())
	}
}

func TestNextDifficultyRejectsParentBeforeAnchor(t *testing.T) {
	limit := mustLimit()
	anchorBits := primitives.WorkToCompact(limit)
	anchor := Anchor{Bits: anchorBits, Height: 100, ParentTimestamp: 1000}

	_, err := NextDifficulty(anchor, 50, 2000, 120, 3600, limit)
	if err == nil {
		t.Fatal("expected an error when the parent height precedes the anchor height")
	}
}

func TestNextDifficultyClampsToPowLimit(t *testing.T) {
	limit := mustLimit()
	anchorBits := primitives.WorkToCompact(limit)
	anchor := Anchor{Bits: anchorBits, Height: 0, ParentTimestamp: 1000}

	const spacing = 120
	parentHeight := int32(10)
	// Absurdly slow blocks: target should clamp at powLimit, not overflow
	// past it.
	parentTime := int64(1000) + spacing*int64(parentHeight+1)*1_000_000

	bits, err := NextDifficulty(anchor, parentHeight, parentTime, spacing, 3600, limit)
	if err != nil {
		t.Fatalf("NextDifficulty: %v", err)
	}
	nextTarget, ok := primitives.CompactToWork(bits, limit)
	if !ok {
		t.Fatalf("NextDifficulty returned undecodable bits %08x", bits)
	}
	if nextTarget.Cmp(limit) > 0 {
		t.Errorf("expected next target to clamp at powLimit, got %v > %v",
			nextTarget.ToBig(), limit.ToBig())
	}
}
