// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/rxchain-project/rxchaind/chainhash"
)

// BlockHeaderLen is the number of bytes in the serialized block header
// layout named in spec.md §3.2: version(4) + prev_hash(32) +
// miner_address(20) + time(4) + bits(4) + nonce(4) + randomx_hash(32).
const BlockHeaderLen = 100

// blockHeaderWireSize sums the same fields BlockHeaderLen's doc comment
// lists; the blank array below fails to compile if the two ever drift
// apart, catching a layout change that read/write forgot to match.
const blockHeaderWireSize = 4 + chainhash.HashSize + chainhash.Hash160Size + 4 + 4 + 4 + chainhash.HashSize

var _ [BlockHeaderLen]byte = [blockHeaderWireSize]byte{}

// BlockHeader is the headers-only chain's sole unit of consensus data. It
// carries no transactions; the commitment to work lives entirely in
// RandomXHash.
type BlockHeader struct {
	// Version is the header format/consensus-rules version active at this
	// header's height.
	Version int32

	// PrevBlock is the hash of the parent header.
	PrevBlock chainhash.Hash

	// MinerAddress identifies the beneficiary the header commits to; it is
	// opaque payment routing data to this layer.
	MinerAddress chainhash.Hash160

	// Timestamp is the header's claimed creation time, seconds since the
	// Unix epoch.
	Timestamp uint32

	// Bits is the compact-encoded target this header's PoW must satisfy.
	Bits uint32

	// Nonce is the miner-chosen value varied to search for a valid PoW.
	Nonce uint32

	// RandomXHash is the RandomX commitment produced for (header minus this
	// field, Nonce) under the epoch key active at Timestamp.
	RandomXHash chainhash.Hash
}

// BlockHash computes the header's canonical identifying hash: double-SHA256
// over the full 100-byte serialization, matching chainhash's usual
// byte-reversed display convention.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	buf := make([]byte, 0, BlockHeaderLen)
	buf = h.appendBytes(buf)
	return chainhash.HashFunc(buf)
}

func (h *BlockHeader) appendBytes(buf []byte) []byte {
	var scratch [4]byte

	putU32 := func(v uint32) {
		scratch[0] = byte(v)
		scratch[1] = byte(v >> 8)
		scratch[2] = byte(v >> 16)
		scratch[3] = byte(v >> 24)
		buf = append(buf, scratch[:]...)
	}

	putU32(uint32(h.Version))
	buf = append(buf, h.PrevBlock[:]...)
	buf = append(buf, h.MinerAddress[:]...)
	putU32(h.Timestamp)
	putU32(h.Bits)
	putU32(h.Nonce)
	buf = append(buf, h.RandomXHash[:]...)
	return buf
}

// Encode writes the header's 100-byte wire representation to w.
func (h *BlockHeader) Encode(w io.Writer) error {
	return writeBlockHeader(w, 0, h)
}

// Decode reads a 100-byte wire representation from r into h.
func (h *BlockHeader) Decode(r io.Reader) error {
	return readBlockHeader(r, 0, h)
}

func writeBlockHeader(w io.Writer, pver uint32, h *BlockHeader) error {
	sec := h.Timestamp
	return writeElements(w,
		h.Version,
		&h.PrevBlock,
		&h.MinerAddress,
		sec,
		h.Bits,
		h.Nonce,
		&h.RandomXHash,
	)
}

func readBlockHeader(r io.Reader, pver uint32, h *BlockHeader) error {
	return readElements(r,
		&h.Version,
		&h.PrevBlock,
		&h.MinerAddress,
		&h.Timestamp,
		&h.Bits,
		&h.Nonce,
		&h.RandomXHash,
	)
}

// writeElements is a small variadic convenience over writeElement, used by
// multi-field types like BlockHeader so the field list reads top to bottom
// exactly as the wire layout defines it.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := writeElement(w, element); err != nil {
			return err
		}
	}
	return nil
}

// readElements is the read-side counterpart of writeElements.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := readElement(r, element); err != nil {
			return err
		}
	}
	return nil
}
