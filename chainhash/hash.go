// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the fixed-width hash types used throughout the
// header chain: a 256-bit hash (block hashes, the RandomX commitment output)
// and a 160-bit hash (the miner-address field committed into each header).
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the number of bytes in a U256.
const HashSize = 32

// Hash160Size is the number of bytes in a U160.
const Hash160Size = 20

// MaxHashStringSize is the maximum length of a U256 hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has too many characters.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is a 256-bit array used to represent the canonical double-SHA256 hash
// of a block header. Storage order is internal (as produced by the hash
// function); String and the hex constructors use the reversed, big-endian-ish
// display convention Bitcoin-derived chains use.
type Hash [HashSize]byte

// Hash160 is a 160-bit array used to represent the miner_address field of a
// block header. It carries no semantic meaning at the consensus layer beyond
// being an opaque commitment value; this module never derives it from a key.
type Hash160 [Hash160Size]byte

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash, which is the most common display form for block hashes.
func (h Hash) String() string {
	var reversed Hash
	for i, b := range h[:HashSize/2] {
		reversed[i], reversed[HashSize-1-i] = h[HashSize-1-i], b
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (h Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, h[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (h *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", len(newHash), HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as the hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// IsZero reports whether the hash is the all-zero value, used to represent
// "no previous block" for the genesis header.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// NewHash returns a new Hash from a byte slice.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	err := sh.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &sh, err
}

// NewHashFromStr creates a Hash from a hash string. The string should be the
// canonical hex-reversed notation.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	err := Decode(ret, hash)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the byte-reversed hexadecimal string encoding of a Hash to a
// destination.
func Decode(dst *Hash, src string) error {
	// Return error if hash string is too long.
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}

	// Hex decoder expects the hash to be a multiple of two. When not, pad
	// with a leading zero.
	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}

	// Hex decode the source bytes to a temporary destination.
	var reversedHash Hash
	_, err := hex.Decode(reversedHash[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return err
	}

	// Reverse copy from the temporary hash to destination. Because the
	// temporary was zeroed, the written result will be correctly padded.
	for i, b := range reversedHash[:HashSize/2] {
		dst[i], dst[HashSize-1-i] = reversedHash[HashSize-1-i], b
	}
	return nil
}

// String returns the Hash160 as a plain (non-reversed) hex string; unlike
// block hashes, the miner address has no established display convention in
// this protocol.
func (h Hash160) String() string {
	return hex.EncodeToString(h[:])
}

// SetBytes sets the bytes which represent the hash.
func (h *Hash160) SetBytes(newHash []byte) error {
	if len(newHash) != Hash160Size {
		return fmt.Errorf("invalid hash160 length of %v, want %v", len(newHash), Hash160Size)
	}
	copy(h[:], newHash)
	return nil
}

// HashB calculates the double-SHA256 hash (SHA256(SHA256(b))) of the given
// data, returning the raw digest (not byte-reversed).
func HashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// HashFunc calculates the double-SHA256 hash of the given data and returns
// it as a Hash with storage byte order (not yet reversed for display).
func HashFunc(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}
