// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the peer-to-peer wire protocol: 24-byte framed
// messages, CompactSize integers, and the typed message payloads named in
// spec.md §4.6 (version, verack, ping/pong, addr, getaddr, inv, getdata,
// notfound, getheaders, headers, sendheaders) plus the 100-byte BlockHeader.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rxchain-project/rxchaind/chainhash"
)

// MaxMessagePayload is the maximum bytes a message payload may be, enforced
// before any allocation happens (spec.md §4.6, "Size limits").
const MaxMessagePayload = 32 * 1024 * 1024 // 32 MiB

// MaxInvPerMsg is the maximum number of inventory vectors in a single INV.
const MaxInvPerMsg = 50000

// MaxHeadersPerMsg is the maximum number of headers in a single HEADERS.
const MaxHeadersPerMsg = 2000

// MaxAddrPerMsg is the maximum number of addresses in a single ADDR.
const MaxAddrPerMsg = 1000

// MaxLocatorEntries is the maximum number of block locator hashes allowed in
// a single GETHEADERS message.
const MaxLocatorEntries = 101

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// MaxSize is the ceiling CompactSize decoding enforces before any
// message-specific bound is applied.
const MaxSize = MaxMessagePayload

// CommandSize is the fixed size, in bytes, of a message command field.
const CommandSize = 12

// MessageHeaderSize is the number of bytes in a wire message header: magic 4
// + command 12 + payload length 4 + checksum 4.
const MessageHeaderSize = 24

// CurrentProtocolVersion is the latest protocol version this package knows
// how to encode/decode.
const CurrentProtocolVersion uint32 = 1

// binaryFreeList carries a fixed-size scratch buffer for the handful of
// fixed-width reads/writes below, avoiding a fresh allocation per call: a
// small "codec" helper shared by every message's encode/decode, simplified
// since this protocol only ever needs little-endian scalars.
type binaryFreeList chan []byte

func (l binaryFreeList) Borrow() []byte {
	var buf []byte
	select {
	case buf = <-l:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
	}
}

func (l binaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (l binaryFreeList) Uint16(r io.Reader) (uint16, error) {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (l binaryFreeList) Uint32(r io.Reader) (uint32, error) {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (l binaryFreeList) Uint64(r io.Reader) (uint64, error) {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (l binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint16(w io.Writer, val uint16) error {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	binary.LittleEndian.PutUint16(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint32(w io.Writer, val uint32) error {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	binary.LittleEndian.PutUint32(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint64(w io.Writer, val uint64) error {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	binary.LittleEndian.PutUint64(buf, val)
	_, err := w.Write(buf)
	return err
}

// binarySerializer is shared by every message's BtcEncode/BtcDecode rather
// than allocated per call.
var binarySerializer binaryFreeList = make(chan []byte, 8)

// messageError creates an error for the given function and description.
func messageError(function, description string) error {
	return fmt.Errorf("%s: %s", function, description)
}

// ReadVarInt reads a CompactSize-encoded integer from r. Values encoding to
// more than MaxSize are rejected outright, before the caller ever has a
// chance to size an allocation off of the result (spec.md §4.6).
func ReadVarInt(r io.Reader) (uint64, error) {
	discriminant, err := binarySerializer.Uint8(r)
	if err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		sv, err := binarySerializer.Uint64(r)
		if err != nil {
			return 0, err
		}
		rv = sv

		// Minimal encoding check, same as upstream CompactSize rules: the
		// value must not be representable by a shorter encoding.
		if rv <= 0xffffffff {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}
	case 0xfe:
		sv, err := binarySerializer.Uint32(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

		if rv <= 0xffff {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}
	case 0xfd:
		sv, err := binarySerializer.Uint16(r)
		if err != nil {
			return 0, err
		}
		rv = uint64(sv)

		if rv < 0xfd {
			return 0, messageError("ReadVarInt", "non-canonical varint")
		}
	default:
		rv = uint64(discriminant)
	}

	if rv > MaxSize {
		return 0, messageError("ReadVarInt",
			fmt.Sprintf("varint %d exceeds max allowed size %d", rv, MaxSize))
	}

	return rv, nil
}

// WriteVarInt writes val to w using the CompactSize encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		return binarySerializer.PutUint8(w, uint8(val))
	}
	if val <= 0xffff {
		if err := binarySerializer.PutUint8(w, 0xfd); err != nil {
			return err
		}
		return binarySerializer.PutUint16(w, uint16(val))
	}
	if val <= 0xffffffff {
		if err := binarySerializer.PutUint8(w, 0xfe); err != nil {
			return err
		}
		return binarySerializer.PutUint32(w, uint32(val))
	}
	if err := binarySerializer.PutUint8(w, 0xff); err != nil {
		return err
	}
	return binarySerializer.PutUint64(w, val)
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a CompactSize integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= 0xffff {
		return 3
	}
	if val <= 0xffffffff {
		return 5
	}
	return 9
}

// ReadVarBytes reads a CompactSize-prefixed byte slice from r, rejecting a
// length above maxAllowed before allocating.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, messageError("ReadVarBytes", fmt.Sprintf(
			"%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed))
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes writes a CompactSize-prefixed byte slice to w.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarString reads a CompactSize-prefixed string (e.g. user_agent) from r.
func ReadVarString(r io.Reader, maxAllowed uint64) (string, error) {
	b, err := ReadVarBytes(r, maxAllowed, "varstring")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteVarString writes a CompactSize-prefixed string to w.
func WriteVarString(w io.Writer, s string) error {
	return WriteVarBytes(w, []byte(s))
}

// writeElement writes the little-endian encoding of element to w. It is a
// convenience wrapper so message encoders read like a flat list of fields
// across every Msg* type.
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case int32:
		return binarySerializer.PutUint32(w, uint32(e))
	case uint32:
		return binarySerializer.PutUint32(w, e)
	case int64:
		return binarySerializer.PutUint64(w, uint64(e))
	case uint64:
		return binarySerializer.PutUint64(w, e)
	case uint16:
		return binarySerializer.PutUint16(w, e)
	case bool:
		var v uint8
		if e {
			v = 1
		}
		return binarySerializer.PutUint8(w, v)
	case *chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	case chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	case *chainhash.Hash160:
		_, err := w.Write(e[:])
		return err
	case chainhash.Hash160:
		_, err := w.Write(e[:])
		return err
	case [8]byte:
		_, err := w.Write(e[:])
		return err
	case InvType:
		return binarySerializer.PutUint32(w, uint32(e))
	default:
		return fmt.Errorf("writeElement: unsupported type %T", element)
	}
}

// readElement reads the little-endian encoding of element from r.
func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *int32:
		rv, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = int32(rv)
		return nil
	case *uint32:
		rv, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil
	case *int64:
		rv, err := binarySerializer.Uint64(r)
		if err != nil {
			return err
		}
		*e = int64(rv)
		return nil
	case *uint64:
		rv, err := binarySerializer.Uint64(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil
	case *bool:
		rv, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = rv != 0
		return nil
	case *uint16:
		rv, err := binarySerializer.Uint16(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil
	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err
	case *chainhash.Hash160:
		_, err := io.ReadFull(r, e[:])
		return err
	case *[8]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	case *InvType:
		rv, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = InvType(rv)
		return nil
	default:
		return fmt.Errorf("readElement: unsupported type %T", element)
	}
}
