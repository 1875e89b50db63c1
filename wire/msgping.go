// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgPing is used to periodically probe a connection for liveness (spec.md
// §4.7, ping/pong timers). A peer that doesn't answer within the
// inactivity window is disconnected.
type MsgPing struct {
	Nonce uint64
}

// BtcDecode decodes r using the wire protocol encoding into m.
func (m *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &m.Nonce)
}

// BtcEncode encodes m to w using the wire protocol encoding.
func (m *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, m.Nonce)
}

// Command returns the protocol command string for this message.
func (m *MsgPing) Command() string { return CmdPing }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (m *MsgPing) MaxPayloadLength(pver uint32) uint32 { return 8 }

// NewMsgPing returns a new ping message carrying the given nonce.
func NewMsgPing(nonce uint64) *MsgPing {
	return &MsgPing{Nonce: nonce}
}

// MsgPong replies to a MsgPing, echoing back its nonce so the sender can
// match the round trip.
type MsgPong struct {
	Nonce uint64
}

// BtcDecode decodes r using the wire protocol encoding into m.
func (m *MsgPong) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &m.Nonce)
}

// BtcEncode encodes m to w using the wire protocol encoding.
func (m *MsgPong) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, m.Nonce)
}

// Command returns the protocol command string for this message.
func (m *MsgPong) Command() string { return CmdPong }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (m *MsgPong) MaxPayloadLength(pver uint32) uint32 { return 8 }

// NewMsgPong returns a new pong message echoing the given nonce.
func NewMsgPong(nonce uint64) *MsgPong {
	return &MsgPong{Nonce: nonce}
}
