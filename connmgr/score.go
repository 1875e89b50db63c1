// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import "time"

// Misbehavior reasons and the penalties spec.md §4.8's scoring table
// assigns each one.
type Misbehavior string

const (
	InvalidPoW           Misbehavior = "invalid-pow"
	InvalidHeader        Misbehavior = "invalid-header"
	TooManyUnconnecting  Misbehavior = "too-many-unconnecting-headers"
	TooManyOrphans       Misbehavior = "too-many-orphans"
	OversizedMessage     Misbehavior = "oversized-message"
	NonContinuousHeaders Misbehavior = "non-continuous-headers"
	LowWorkHeaders       Misbehavior = "low-work-headers"
	EpochInitThrottled   Misbehavior = "epoch-init-throttled"
)

// penalties maps each misbehavior reason to its score contribution. No
// other package should hand-compute a penalty value; every call site
// names the reason and looks it up here.
var penalties = map[Misbehavior]int{
	InvalidPoW:           100,
	InvalidHeader:        100,
	TooManyUnconnecting:  100,
	TooManyOrphans:       100,
	OversizedMessage:     20,
	NonContinuousHeaders: 20,
	LowWorkHeaders:       10,
	EpochInitThrottled:   100,
}

// Penalty returns the score an infraction of kind contributes. An unknown
// kind is a programming error in the caller, not a protocol event, so it
// contributes nothing rather than panicking.
func Penalty(kind Misbehavior) int {
	return penalties[kind]
}

// DiscourageThreshold is the cumulative misbehavior score at which a peer
// is discouraged and disconnected (spec.md §4.8).
const DiscourageThreshold = 100

// DiscourageDuration is how long a discouraged peer's address is
// remembered and refused reconnection, decaying in memory rather than
// being written to any ban file (spec.md §4.8, "24-h in-memory decay").
const DiscourageDuration = 24 * time.Hour

// decayStep is subtracted from a peer's score on every successful header
// accept. Kept small and applied every accept (not reset to zero) so a
// peer can't wipe out a building pattern of bad behavior with one good
// header (spec.md §4.8 calls this out directly as the source's bug).
const decayStep = 2

// decayResetBelow is the score floor under which decay simply resets to
// zero instead of subtracting, avoiding an endless fractional tail.
const decayResetBelow = 5

// score tracks one peer's cumulative misbehavior and its decay-on-accept
// schedule.
type score struct {
	value int
}

// add applies a misbehavior penalty and reports whether the peer has now
// crossed the discourage threshold.
func (s *score) add(kind Misbehavior) bool {
	s.value += Penalty(kind)
	return s.value >= DiscourageThreshold
}

// decay is called on every successful header accept from this peer.
func (s *score) decay() {
	if s.value < decayResetBelow {
		s.value = 0
		return
	}
	s.value -= decayStep
}
