// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
	"time"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in
// a version message.
const MaxUserAgentLen = 256

// DefaultUserAgent is the user agent this package reports absent any
// caller-supplied override.
const DefaultUserAgent = "/rxchaind:0.1.0/"

// MsgVersion is the first message a peer sends after dialing (or accepting)
// a connection; it carries the protocol version, services, and chain tip
// height the handshake uses to decide whether to proceed.
type MsgVersion struct {
	// ProtocolVersion is the highest protocol version understood by the
	// sending peer.
	ProtocolVersion int32

	// Services are the services supported by the sending peer.
	Services uint64

	// Timestamp is the time the message was generated.
	Timestamp time.Time

	// AddrYou is the address of the receiving peer, as seen by the sender.
	AddrYou NetAddress

	// AddrMe is the address of the sending peer.
	AddrMe NetAddress

	// Nonce is a random nonce used to detect self-connections.
	Nonce uint64

	// UserAgent identifies the sending peer's software.
	UserAgent string

	// LastBlock is the height of the sender's active chain tip.
	LastBlock int32
}

// BtcDecode decodes r using the wire protocol encoding into v.
func (v *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	var sec int64
	if err := readElement(r, &v.ProtocolVersion); err != nil {
		return err
	}
	if err := readElement(r, &v.Services); err != nil {
		return err
	}
	if err := readElement(r, &sec); err != nil {
		return err
	}
	v.Timestamp = time.Unix(sec, 0)

	if err := readNetAddress(r, pver, &v.AddrYou, false); err != nil {
		return err
	}
	if err := readNetAddress(r, pver, &v.AddrMe, false); err != nil {
		return err
	}
	if err := readElement(r, &v.Nonce); err != nil {
		return err
	}

	userAgent, err := ReadVarString(r, MaxUserAgentLen)
	if err != nil {
		return err
	}
	if len(userAgent) > MaxUserAgentLen {
		return messageError("MsgVersion.BtcDecode", fmt.Sprintf(
			"user agent too long [len %d, max %d]", len(userAgent), MaxUserAgentLen))
	}
	v.UserAgent = userAgent

	return readElement(r, &v.LastBlock)
}

// BtcEncode encodes v to w using the wire protocol encoding.
func (v *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if len(v.UserAgent) > MaxUserAgentLen {
		return messageError("MsgVersion.BtcEncode", fmt.Sprintf(
			"user agent too long [len %d, max %d]", len(v.UserAgent), MaxUserAgentLen))
	}

	if err := writeElement(w, v.ProtocolVersion); err != nil {
		return err
	}
	if err := writeElement(w, v.Services); err != nil {
		return err
	}
	if err := writeElement(w, v.Timestamp.Unix()); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &v.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &v.AddrMe, false); err != nil {
		return err
	}
	if err := writeElement(w, v.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, v.UserAgent); err != nil {
		return err
	}
	return writeElement(w, v.LastBlock)
}

// Command returns the protocol command string for this message.
func (v *MsgVersion) Command() string { return CmdVersion }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (v *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 29 + 2*26 + MaxUserAgentLen + 9
}

// NewMsgVersion returns a new version message using the given parameters
// and defaults for the remaining fields.
func NewMsgVersion(me, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(CurrentProtocolVersion),
		Services:        0,
		Timestamp:       time.Now(),
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
	}
}
