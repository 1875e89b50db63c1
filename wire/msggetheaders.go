// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/rxchain-project/rxchaind/chainhash"
)

// MsgGetHeaders requests headers starting after the best block the sender
// and recipient have in common, identified by a block locator (spec.md
// §4.10, sync manager header-sync orchestration).
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

// AddBlockLocatorHash adds a new block locator hash to the message.
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > MaxLocatorEntries {
		return messageError("MsgGetHeaders.AddBlockLocatorHash",
			"too many block locator hashes for message")
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

// BtcDecode decodes r using the wire protocol encoding into msg.
func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxLocatorEntries {
		return messageError("MsgGetHeaders.BtcDecode", fmt.Sprintf(
			"too many block locator hashes for message [count %d, max %d]",
			count, MaxLocatorEntries))
	}

	locatorHashes := make([]chainhash.Hash, count)
	msg.BlockLocatorHashes = make([]*chainhash.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		hash := &locatorHashes[i]
		if err := readElement(r, hash); err != nil {
			return err
		}
		msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	}

	return readElement(r, &msg.HashStop)
}

// BtcEncode encodes msg to w using the wire protocol encoding.
func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	count := len(msg.BlockLocatorHashes)
	if count > MaxLocatorEntries {
		return messageError("MsgGetHeaders.BtcEncode", fmt.Sprintf(
			"too many block locator hashes for message [count %d, max %d]",
			count, MaxLocatorEntries))
	}

	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, hash := range msg.BlockLocatorHashes {
		if err := writeElement(w, hash); err != nil {
			return err
		}
	}
	return writeElement(w, &msg.HashStop)
}

// Command returns the protocol command string for this message.
func (msg *MsgGetHeaders) Command() string { return CmdGetHeaders }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 {
	return 4 + uint32(VarIntSerializeSize(MaxLocatorEntries)) +
		MaxLocatorEntries*chainhash.HashSize + chainhash.HashSize
}

// NewMsgGetHeaders returns a new getheaders message with an empty locator.
func NewMsgGetHeaders() *MsgGetHeaders {
	return &MsgGetHeaders{
		ProtocolVersion:    CurrentProtocolVersion,
		BlockLocatorHashes: make([]*chainhash.Hash, 0, MaxLocatorEntries),
	}
}
