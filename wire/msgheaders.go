// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MsgHeaders delivers up to MaxHeadersPerMsg headers, sent in reply to a
// getheaders request (or pushed unsolicited once a peer has announced
// sendheaders support).
type MsgHeaders struct {
	Headers []*BlockHeader
}

// AddBlockHeader adds a new block header to the message.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxHeadersPerMsg {
		return messageError("MsgHeaders.AddBlockHeader", "too many block headers for message")
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

// BtcDecode decodes r using the wire protocol encoding into msg.
func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxHeadersPerMsg {
		return messageError("MsgHeaders.BtcDecode", fmt.Sprintf(
			"too many block headers for message [count %d, max %d]",
			count, MaxHeadersPerMsg))
	}

	headers := make([]BlockHeader, count)
	msg.Headers = make([]*BlockHeader, 0, count)
	for i := uint64(0); i < count; i++ {
		bh := &headers[i]
		if err := readBlockHeader(r, pver, bh); err != nil {
			return err
		}
		msg.Headers = append(msg.Headers, bh)
	}
	return nil
}

// BtcEncode encodes msg to w using the wire protocol encoding.
func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	count := len(msg.Headers)
	if count > MaxHeadersPerMsg {
		return messageError("MsgHeaders.BtcEncode", fmt.Sprintf(
			"too many block headers for message [count %d, max %d]",
			count, MaxHeadersPerMsg))
	}

	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, bh := range msg.Headers {
		if err := writeBlockHeader(w, pver, bh); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for this message.
func (msg *MsgHeaders) Command() string { return CmdHeaders }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxHeadersPerMsg)) + MaxHeadersPerMsg*BlockHeaderLen
}

// NewMsgHeaders returns a new headers message with an empty header list.
func NewMsgHeaders() *MsgHeaders {
	return &MsgHeaders{Headers: make([]*BlockHeader, 0, MaxHeadersPerMsg)}
}

// MsgSendHeaders announces that the sender would rather receive new tip
// headers pushed directly via MsgHeaders than advertised first via MsgInv.
// It carries no payload and, once sent, applies for the life of the
// connection.
type MsgSendHeaders struct{}

// BtcDecode decodes r using the wire protocol encoding into msg.
func (msg *MsgSendHeaders) BtcDecode(r io.Reader, pver uint32) error { return nil }

// BtcEncode encodes msg to w using the wire protocol encoding.
func (msg *MsgSendHeaders) BtcEncode(w io.Writer, pver uint32) error { return nil }

// Command returns the protocol command string for this message.
func (msg *MsgSendHeaders) Command() string { return CmdSendHeaders }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (msg *MsgSendHeaders) MaxPayloadLength(pver uint32) uint32 { return 0 }

// NewMsgSendHeaders returns a new sendheaders message.
func NewMsgSendHeaders() *MsgSendHeaders {
	return &MsgSendHeaders{}
}
