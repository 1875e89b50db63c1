// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package randomx

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/wire"
)

// fakeHasher stands in for the real RandomX VM in tests: a cheap,
// deterministic function of (seed, input) that is still sensitive to both,
// which is all the Engine's epoch/cooldown/verification logic cares about.
type fakeHasher struct{}

func (fakeHasher) Hash(seed [32]byte, input []byte) (chainhash.Hash, error) {
	h := sha256.New()
	h.Write(seed[:])
	h.Write(input)
	sum := h.Sum(nil)
	var out chainhash.Hash
	copy(out[:], sum)
	return out, nil
}

func easyTarget(t *testing.T) *primitives.Work256 {
	t.Helper()
	var w primitives.Work256
	w.SetAllOne()
	return &w
}

func TestVerifyCommitmentOnly(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	header := &wire.BlockHeader{
		Version:     1,
		Timestamp:   1700000000,
		Bits:        0x1d00ffff,
		Nonce:       1,
		RandomXHash: chainhash.Hash{0x01},
	}

	ok, err := eng.Verify(header, easyTarget(t), ModeCommitmentOnly)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected an all-ones target to accept any commitment hash")
	}
}

func TestVerifyFullRejectsMismatch(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	header := &wire.BlockHeader{
		Version:     1,
		Timestamp:   1700000000,
		Bits:        0x1d00ffff,
		Nonce:       1,
		RandomXHash: chainhash.Hash{0xff}, // does not match what Mine would produce
	}

	ok, err := eng.Verify(header, easyTarget(t), ModeFull)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected a header with a fabricated randomx hash to fail ModeFull verification")
	}
}

func TestVerifyFullAcceptsMinedHash(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	header := &wire.BlockHeader{
		Version:   1,
		Timestamp: 1700000000,
		Bits:      0x1d00ffff,
		Nonce:     1,
	}

	mined, err := eng.Mine(header)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	header.RandomXHash = mined

	ok, err := eng.Verify(header, easyTarget(t), ModeFull)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected a correctly mined header to pass ModeFull verification")
	}
}

func TestEpochDerivation(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if got, want := eng.Epoch(0), int64(0); got != want {
		t.Errorf("Epoch(0) = %d, want %d", got, want)
	}
	if got, want := eng.Epoch(3599), int64(0); got != want {
		t.Errorf("Epoch(3599) = %d, want %d", got, want)
	}
	if got, want := eng.Epoch(3600), int64(1); got != want {
		t.Errorf("Epoch(3600) = %d, want %d", got, want)
	}
}

func TestAllowEpochInitCooldown(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	now := time.Unix(1700000000, 0)
	if !eng.AllowEpochInit("peerA", 5, now) {
		t.Fatal("expected the first epoch init from a peer to be allowed")
	}
	eng.seedForEpoch(5) // simulate the init actually happening

	if eng.AllowEpochInit("peerA", 6, now.Add(time.Minute)) {
		t.Fatal("expected a second forced epoch init within the cooldown to be refused")
	}

	if !eng.AllowEpochInit("peerA", 6, now.Add(cooldown+time.Second)) {
		t.Fatal("expected the cooldown to expire and allow a subsequent epoch init")
	}
}

func TestVerifyFullThrottlesUncachedEpoch(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	header := &wire.BlockHeader{
		Version:   1,
		Timestamp: 1700000000,
		Bits:      0x1d00ffff,
		Nonce:     1,
	}
	mined, err := eng.Mine(header)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	header.RandomXHash = mined

	now := time.Unix(1700000000, 0)

	// Exhaust peerA's cooldown forcing some other, still-uncached epoch.
	if !eng.AllowEpochInit("peerA", eng.Epoch(header.Timestamp)+1, now) {
		t.Fatal("expected the priming epoch init to be allowed")
	}

	// Mining above already cached this header's own epoch as a side
	// effect, so clear it to exercise the "about to force a build" path.
	eng.seeds.Remove(eng.Epoch(header.Timestamp))

	ok, err := eng.VerifyFull(header, easyTarget(t), "peerA", now)
	if err == nil || !rxerr.Is(err, rxerr.ErrEpochInitThrottled) {
		t.Fatalf("VerifyFull error = %v, want ErrEpochInitThrottled", err)
	}
	if ok {
		t.Fatal("expected a throttled verification to report false")
	}
}

func TestVerifyFullAllowsCachedEpochRegardlessOfCooldown(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	header := &wire.BlockHeader{
		Version:   1,
		Timestamp: 1700000000,
		Bits:      0x1d00ffff,
		Nonce:     1,
	}
	mined, err := eng.Mine(header) // warms the cache for this epoch
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	header.RandomXHash = mined

	now := time.Unix(1700000000, 0)
	if !eng.AllowEpochInit("peerA", eng.Epoch(header.Timestamp)+1, now) {
		t.Fatal("expected the priming epoch init to be allowed")
	}

	// header's own epoch is already cached, so VerifyFull must not consult
	// the (now-exhausted) cooldown at all.
	ok, err := eng.VerifyFull(header, easyTarget(t), "peerA", now)
	if err != nil {
		t.Fatalf("VerifyFull: %v", err)
	}
	if !ok {
		t.Fatal("expected a correctly mined, already-cached-epoch header to verify")
	}
}

func TestAllowEpochInitPerPeer(t *testing.T) {
	eng, err := NewEngine(fakeHasher{}, 3600)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	now := time.Unix(1700000000, 0)
	if !eng.AllowEpochInit("peerA", 1, now) {
		t.Fatal("expected peerA's first init to be allowed")
	}
	eng.seedForEpoch(1)

	if !eng.AllowEpochInit("peerB", 2, now) {
		t.Fatal("expected peerB's cooldown to be independent of peerA's")
	}
}
