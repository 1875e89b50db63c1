// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MsgAddr gossips known peer addresses (spec.md §4.9, address manager
// bootstrap and discovery).
type MsgAddr struct {
	AddrList []*NetAddress
}

// AddAddress adds a known active peer to the message.
func (msg *MsgAddr) AddAddress(na *NetAddress) error {
	if len(msg.AddrList)+1 > MaxAddrPerMsg {
		return messageError("MsgAddr.AddAddress", "too many addresses for message")
	}
	msg.AddrList = append(msg.AddrList, na)
	return nil
}

// BtcDecode decodes r using the wire protocol encoding into msg.
func (msg *MsgAddr) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxAddrPerMsg {
		return messageError("MsgAddr.BtcDecode", fmt.Sprintf(
			"too many addresses for message [count %d, max %d]", count, MaxAddrPerMsg))
	}

	addrList := make([]NetAddress, count)
	msg.AddrList = make([]*NetAddress, 0, count)
	for i := uint64(0); i < count; i++ {
		na := &addrList[i]
		if err := readNetAddress(r, pver, na, true); err != nil {
			return err
		}
		msg.AddrList = append(msg.AddrList, na)
	}
	return nil
}

// BtcEncode encodes msg to w using the wire protocol encoding.
func (msg *MsgAddr) BtcEncode(w io.Writer, pver uint32) error {
	count := len(msg.AddrList)
	if count > MaxAddrPerMsg {
		return messageError("MsgAddr.BtcEncode", fmt.Sprintf(
			"too many addresses for message [count %d, max %d]", count, MaxAddrPerMsg))
	}

	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, na := range msg.AddrList {
		if err := writeNetAddress(w, pver, na, true); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for this message.
func (msg *MsgAddr) Command() string { return CmdAddr }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (msg *MsgAddr) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxAddrPerMsg)) + MaxAddrPerMsg*30
}

// NewMsgAddr returns a new addr message with an empty address list, ready
// to have addresses appended with AddAddress.
func NewMsgAddr() *MsgAddr {
	return &MsgAddr{AddrList: make([]*NetAddress, 0, MaxAddrPerMsg)}
}

// MsgGetAddr asks a peer for known addresses. It carries no payload.
type MsgGetAddr struct{}

// BtcDecode decodes r using the wire protocol encoding into msg.
func (msg *MsgGetAddr) BtcDecode(r io.Reader, pver uint32) error { return nil }

// BtcEncode encodes msg to w using the wire protocol encoding.
func (msg *MsgGetAddr) BtcEncode(w io.Writer, pver uint32) error { return nil }

// Command returns the protocol command string for this message.
func (msg *MsgGetAddr) Command() string { return CmdGetAddr }

// MaxPayloadLength returns the maximum length the payload can be for this
// message.
func (msg *MsgGetAddr) MaxPayloadLength(pver uint32) uint32 { return 0 }

// NewMsgGetAddr returns a new getaddr message.
func NewMsgGetAddr() *MsgGetAddr {
	return &MsgGetAddr{}
}
