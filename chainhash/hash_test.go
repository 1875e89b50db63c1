// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"bytes"
	"testing"
)

// mustParseHash converts the passed hex string into a Hash and will panic if
// there is an error. It only differs from NewHashFromStr in that it panics on
// error, so it must only be called with hard-coded, known-good hashes.
func mustParseHash(s string) *Hash {
	hash, err := NewHashFromStr(s)
	if err != nil {
		panic("invalid hash in source file: " + s)
	}
	return hash
}

func TestHashRoundTrip(t *testing.T) {
	const s = "00000000000000000000000000000000000000000000000000000000000000ab"
	if len(s) != HashSize*2 {
		t.Fatalf("fixture length mismatch: got %d want %d", len(s), HashSize*2)
	}
	h := mustParseHash(s)
	got := h.String()
	if got != s {
		t.Fatalf("round trip mismatch: got %s want %s", got, s)
	}
}

func TestHashIsEqual(t *testing.T) {
	a := mustParseHash("1234")
	b := mustParseHash("1234")
	c := mustParseHash("5678")

	if !a.IsEqual(b) {
		t.Fatalf("expected a == b")
	}
	if a.IsEqual(c) {
		t.Fatalf("expected a != c")
	}

	var nilHash *Hash
	if !nilHash.IsEqual(nil) {
		t.Fatalf("expected nil == nil")
	}
	if nilHash.IsEqual(a) {
		t.Fatalf("expected nil != a")
	}
}

func TestHashIsZero(t *testing.T) {
	var zero Hash
	if !zero.IsZero() {
		t.Fatalf("expected zero-value hash to be zero")
	}
	nonZero := mustParseHash("01")
	if nonZero.IsZero() {
		t.Fatalf("expected non-zero hash to not be zero")
	}
}

func TestHashFuncDeterministic(t *testing.T) {
	data := []byte("rxchaind header bytes")
	h1 := HashFunc(data)
	h2 := HashFunc(data)
	if h1 != h2 {
		t.Fatalf("HashFunc is not deterministic: %v != %v", h1, h2)
	}
	if !bytes.Equal(HashB(data), h1[:]) {
		t.Fatalf("HashB and HashFunc disagree")
	}
}

func TestDecodeTooLong(t *testing.T) {
	long := make([]byte, MaxHashStringSize+2)
	for i := range long {
		long[i] = '0'
	}
	var h Hash
	if err := Decode(&h, string(long)); err != ErrHashStrSize {
		t.Fatalf("expected ErrHashStrSize, got %v", err)
	}
}
