// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVerAck defines a message which is sent in response to a version
// message (MsgVersion) once a connection's handshake parameters have been
// validated. It carries no payload.
type MsgVerAck struct{}

// BtcDecode decodes r using the wire protocol encoding into v. MsgVerAck
// has no payload so this is a no-op.
func (v *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error {
	return nil
}

// BtcEncode encodes v to w using the wire protocol encoding.
func (v *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error {
	return nil
}

// Command returns the protocol command string for this message.
func (v *MsgVerAck) Command() string { return CmdVerAck }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (v *MsgVerAck) MaxPayloadLength(pver uint32) uint32 { return 0 }

// NewMsgVerAck returns a new verack message.
func NewMsgVerAck() *MsgVerAck {
	return &MsgVerAck{}
}
