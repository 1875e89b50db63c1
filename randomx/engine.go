// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package randomx implements the proof-of-work layer named in spec.md
// §4.1: compact target decoding (delegated to primitives), the ASERT
// difficulty retarget, and RandomX commitment/full/mining verification
// against an epoch-keyed VM cache. RandomX itself — the hashing algorithm —
// is treated as an external, swappable dependency behind the Hasher
// interface; this package owns the epoch schedule, caching, and
// anti-DoS cooldown around it, not the hash function.
package randomx

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/wire"
)

// Mode selects how expensive a RandomX check Verify performs.
type Mode int

const (
	// ModeCommitmentOnly recomputes SHA256(SHA256(header || randomx_hash))
	// and compares it to the target. It never touches the RandomX VM and
	// is the fast pre-filter every header passes through first.
	ModeCommitmentOnly Mode = iota

	// ModeFull runs the RandomX VM over the header for its epoch and
	// requires the result to both match header.RandomXHash and satisfy
	// the target.
	ModeFull

	// ModeMining runs the RandomX VM and returns the resulting hash to the
	// caller instead of comparing it to anything.
	ModeMining
)

// epochSeedDomain domain-separates the epoch seed derivation from any other
// use of double-SHA256 in this codebase.
const epochSeedDomain = "rxchain-randomx-epoch-seed"

// Hasher is the RandomX hashing primitive this package wraps. A production
// build backs it with the real RandomX VM; tests and regtest can back it
// with a cheap stand-in.
type Hasher interface {
	// Hash computes the RandomX output for input under the dataset/cache
	// keyed by seed.
	Hash(seed [32]byte, input []byte) (chainhash.Hash, error)
}

// cooldown is the minimum interval between epoch initializations a single
// peer is allowed to force (spec.md §4.1, "DoS rule").
const cooldown = 5 * time.Minute

// Engine owns the epoch-keyed VM cache and the commitment/full/mining
// verification logic. It is safe for concurrent use.
type Engine struct {
	hasher    Hasher
	epochSecs int64

	mu    sync.Mutex
	seeds *lru.Cache[int64, [32]byte]

	lastInitMu sync.Mutex
	lastInit   map[string]time.Time
}

// NewEngine constructs an Engine backed by hasher, deriving epoch boundaries
// every epochDuration seconds and keeping at least two epochs' worth of
// seeds cached (the current epoch and one neighbor) so switching epochs
// near a boundary doesn't repeatedly rebuild the dataset.
func NewEngine(hasher Hasher, epochDuration int64) (*Engine, error) {
	cache, err := lru.New[int64, [32]byte](4)
	if err != nil {
		return nil, rxerr.Wrap(rxerr.ErrInternalConsistency, err)
	}
	return &Engine{
		hasher:    hasher,
		epochSecs: epochDuration,
		seeds:     cache,
		lastInit:  make(map[string]time.Time),
	}, nil
}

// Epoch returns the epoch number a header with the given timestamp belongs
// to.
func (e *Engine) Epoch(timestamp uint32) int64 {
	return int64(timestamp) / e.epochSecs
}

// seedForEpoch returns (deriving and caching if necessary) the 32-byte
// RandomX seed for the given epoch.
func (e *Engine) seedForEpoch(epoch int64) [32]byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	if seed, ok := e.seeds.Get(epoch); ok {
		return seed
	}

	var buf []byte
	buf = append(buf, epochSeedDomain...)
	var epochBytes [8]byte
	binary.BigEndian.PutUint64(epochBytes[:], uint64(epoch))
	buf = append(buf, epochBytes[:]...)

	first := sha256.Sum256(buf)
	seed := sha256.Sum256(first[:])

	e.seeds.Add(epoch, seed)
	return seed
}

// AllowEpochInit reports whether peerID may force initialization of a new
// epoch right now, recording the attempt if so. A peer that has already
// forced an epoch init within the cooldown window is refused, and the
// caller should score misbehavior and reject the header that triggered it
// (spec.md §4.1, "DoS rule").
func (e *Engine) AllowEpochInit(peerID string, epoch int64, now time.Time) bool {
	e.lastInitMu.Lock()
	defer e.lastInitMu.Unlock()

	key := peerID
	last, ok := e.lastInit[key]
	if ok && now.Sub(last) < cooldown {
		return false
	}

	// Only record an attempt when it actually forces a miss: if the seed
	// is already cached there is nothing to rate limit.
	if _, cached := e.seeds.Peek(epoch); !cached {
		e.lastInit[key] = now
	}
	return true
}

// VerifyFull is the FULL-mode entry point headers actually get accepted
// through. It consults AllowEpochInit before the verification would force
// building a new epoch's seed, rejecting with ErrEpochInitThrottled instead
// of paying the init cost when peerID is still within its cooldown (spec.md
// §4.1, "DoS rule"). A header whose epoch is already cached never consults
// the cooldown at all, since nothing is being forced.
func (e *Engine) VerifyFull(header *wire.BlockHeader, target *primitives.Work256, peerID string, now time.Time) (bool, error) {
	epoch := e.Epoch(header.Timestamp)
	if _, cached := e.seeds.Peek(epoch); !cached {
		if !e.AllowEpochInit(peerID, epoch, now) {
			return false, rxerr.New(rxerr.ErrEpochInitThrottled,
				"peer %s must wait out the epoch-init cooldown before forcing epoch %d", peerID, epoch)
		}
	}
	return e.Verify(header, target, ModeFull)
}

func headerCommitmentPreimage(h *wire.BlockHeader) []byte {
	buf := make([]byte, 0, wire.BlockHeaderLen)
	buf = append(buf, byte(h.Version), byte(h.Version>>8), byte(h.Version>>16), byte(h.Version>>24))
	buf = append(buf, h.PrevBlock[:]...)
	buf = append(buf, h.MinerAddress[:]...)
	buf = append(buf, byte(h.Timestamp), byte(h.Timestamp>>8), byte(h.Timestamp>>16), byte(h.Timestamp>>24))
	buf = append(buf, byte(h.Bits), byte(h.Bits>>8), byte(h.Bits>>16), byte(h.Bits>>24))
	buf = append(buf, byte(h.Nonce), byte(h.Nonce>>8), byte(h.Nonce>>16), byte(h.Nonce>>24))
	return buf
}

// Verify checks header's proof of work at the given mode against target
// (decoded already by the caller from header.Bits). ModeMining is not a
// valid input to Verify; use Mine instead.
func (e *Engine) Verify(header *wire.BlockHeader, target *primitives.Work256, mode Mode) (bool, error) {
	switch mode {
	case ModeCommitmentOnly:
		preimage := headerCommitmentPreimage(header)
		preimage = append(preimage, header.RandomXHash[:]...)
		first := sha256.Sum256(preimage)
		commitment := sha256.Sum256(first[:])
		work := primitives.HashToWork((*chainhash.Hash)(&commitment))
		return work.Cmp(target) <= 0, nil

	case ModeFull:
		epoch := e.Epoch(header.Timestamp)
		seed := e.seedForEpoch(epoch)
		computed, err := e.hasher.Hash(seed, headerCommitmentPreimage(header))
		if err != nil {
			return false, rxerr.Wrap(rxerr.ErrBadCommitment, err)
		}
		if computed != header.RandomXHash {
			return false, nil
		}
		work := primitives.HashToWork(&computed)
		return work.Cmp(target) <= 0, nil

	default:
		return false, rxerr.New(rxerr.ErrInternalConsistency,
			"Verify called with non-verification mode %d", mode)
	}
}

// Mine runs the RandomX VM for header's epoch and returns the resulting
// hash without comparing it to any target; callers in a mining role vary
// Nonce and call Mine repeatedly until CheckProofOfWork passes.
func (e *Engine) Mine(header *wire.BlockHeader) (chainhash.Hash, error) {
	epoch := e.Epoch(header.Timestamp)
	seed := e.seedForEpoch(epoch)
	return e.hasher.Hash(seed, headerCommitmentPreimage(header))
}
