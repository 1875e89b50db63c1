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

// InvType represents the type of inventory vector carried by an INV,
// GETDATA or NOTFOUND message.
type InvType uint32

// Supported inventory vector types. This protocol only ever announces
// headers; there is no transaction or filtered-block inventory.
const (
	InvTypeHeader InvType = 1
)

func (t InvType) String() string {
	if t == InvTypeHeader {
		return "MSG_HEADER"
	}
	return fmt.Sprintf("Unknown InvType (%d)", uint32(t))
}

// InvVect defines a single inventory vector: a type/hash pair identifying a
// header announced or requested over the wire.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect returns a new InvVect.
func NewInvVect(typ InvType, hash *chainhash.Hash) *InvVect {
	return &InvVect{Type: typ, Hash: *hash}
}

func readInvVect(r io.Reader, pver uint32, iv *InvVect) error {
	return readElements(r, &iv.Type, &iv.Hash)
}

func writeInvVect(w io.Writer, pver uint32, iv *InvVect) error {
	return writeElements(w, iv.Type, &iv.Hash)
}

// maxInvVectPayload is the maximum serialized size, in bytes, of a single
// inventory vector: 4-byte type + 32-byte hash.
const maxInvVectPayload = 4 + chainhash.HashSize

// baseInvMessage is the shared implementation behind MsgInv, MsgGetData and
// MsgNotFound, which differ only in their command string.
type baseInvMessage struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message, rejecting the add if
// it would push the list past MaxInvPerMsg.
func (msg *baseInvMessage) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return messageError("baseInvMessage.AddInvVect", "too many inventory vectors for message")
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

func (msg *baseInvMessage) decode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxInvPerMsg {
		return messageError("baseInvMessage.decode", fmt.Sprintf(
			"too many inventory vectors for message [count %d, max %d]", count, MaxInvPerMsg))
	}

	invList := make([]InvVect, count)
	msg.InvList = make([]*InvVect, 0, count)
	for i := uint64(0); i < count; i++ {
		iv := &invList[i]
		if err := readInvVect(r, pver, iv); err != nil {
			return err
		}
		msg.InvList = append(msg.InvList, iv)
	}
	return nil
}

func (msg *baseInvMessage) encode(w io.Writer, pver uint32) error {
	count := len(msg.InvList)
	if count > MaxInvPerMsg {
		return messageError("baseInvMessage.encode", fmt.Sprintf(
			"too many inventory vectors for message [count %d, max %d]", count, MaxInvPerMsg))
	}

	if err := WriteVarInt(w, uint64(count)); err != nil {
		return err
	}
	for _, iv := range msg.InvList {
		if err := writeInvVect(w, pver, iv); err != nil {
			return err
		}
	}
	return nil
}

func (msg *baseInvMessage) maxPayloadLength() uint32 {
	return uint32(VarIntSerializeSize(MaxInvPerMsg)) + MaxInvPerMsg*maxInvVectPayload
}

// MsgInv announces headers a peer has available, leaving it to the
// recipient to request the ones it doesn't already have via GETDATA.
type MsgInv struct{ baseInvMessage }

func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r, pver) }
func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w, pver) }
func (msg *MsgInv) Command() string                         { return CmdInv }
func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }

// NewMsgInv returns a new inv message with an empty inventory list.
func NewMsgInv() *MsgInv {
	return &MsgInv{baseInvMessage{InvList: make([]*InvVect, 0, MaxInvPerMsg)}}
}

// MsgGetData requests the full headers named by its inventory list, sent in
// response to an MsgInv the recipient found interesting.
type MsgGetData struct{ baseInvMessage }

func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r, pver) }
func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w, pver) }
func (msg *MsgGetData) Command() string                         { return CmdGetData }
func (msg *MsgGetData) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }

// NewMsgGetData returns a new getdata message with an empty inventory list.
func NewMsgGetData() *MsgGetData {
	return &MsgGetData{baseInvMessage{InvList: make([]*InvVect, 0, MaxInvPerMsg)}}
}

// MsgNotFound is sent in response to a GETDATA naming inventory the
// responding peer no longer has.
type MsgNotFound struct{ baseInvMessage }

func (msg *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r, pver) }
func (msg *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w, pver) }
func (msg *MsgNotFound) Command() string                         { return CmdNotFound }
func (msg *MsgNotFound) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }

// NewMsgNotFound returns a new notfound message with an empty inventory list.
func NewMsgNotFound() *MsgNotFound {
	return &MsgNotFound{baseInvMessage{InvList: make([]*InvVect, 0, MaxInvPerMsg)}}
}
