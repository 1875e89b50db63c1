// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// CurrencyNet represents which network a message belongs to, carried in the
// 4-byte magic field of every message header.
type CurrencyNet uint32

// Network magics. Each network has its own so a node can never mistake a
// message from one network for another.
const (
	MainNet CurrencyNet = 0xd9b4bef9
	TestNet CurrencyNet = 0x0709110b
	RegNet  CurrencyNet = 0xdab5bffa
)

func (n CurrencyNet) String() string {
	switch n {
	case MainNet:
		return "MainNet"
	case TestNet:
		return "TestNet"
	case RegNet:
		return "RegNet"
	default:
		return fmt.Sprintf("Unknown CurrencyNet (%d)", uint32(n))
	}
}

// Command strings for every message type named in spec.md §4.6.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdAddr        = "addr"
	CmdGetAddr     = "getaddr"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdSendHeaders = "sendheaders"
)

// Message is the interface every wire payload implements, mirroring the
// teacher's BtcEncode/BtcDecode/Command/MaxPayloadLength shape (see
// wire/msgcfilter.go in the retrieved pack).
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// makeEmptyMessage returns a fresh, zero-valued Message for the given
// command string so ReadMessage can decode into it.
func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	case CmdAddr:
		return &MsgAddr{}, nil
	case CmdGetAddr:
		return &MsgGetAddr{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdNotFound:
		return &MsgNotFound{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdSendHeaders:
		return &MsgSendHeaders{}, nil
	default:
		return nil, messageError("makeEmptyMessage",
			fmt.Sprintf("unhandled command [%s]", command))
	}
}

// messageHeader is the 24-byte frame preceding every message payload
// (spec.md §4.6, "Framing"): magic | 12-byte command | length | checksum.
type messageHeader struct {
	magic    CurrencyNet
	command  string
	length   uint32
	checksum [4]byte
}

func readMessageHeader(r io.Reader) (int, *messageHeader, error) {
	var headerBytes [MessageHeaderSize]byte
	n, err := io.ReadFull(r, headerBytes[:])
	if err != nil {
		return n, nil, err
	}

	hdr := messageHeader{}
	hdr.magic = CurrencyNet(binary.LittleEndian.Uint32(headerBytes[0:4]))

	command := headerBytes[4 : 4+CommandSize]
	end := bytes.IndexByte(command, 0)
	if end == -1 {
		end = CommandSize
	}
	hdr.command = string(command[:end])

	hdr.length = binary.LittleEndian.Uint32(headerBytes[16:20])
	copy(hdr.checksum[:], headerBytes[20:24])

	return n, &hdr, nil
}

func writeMessageHeaderBytes(magic CurrencyNet, command string, payload []byte) ([]byte, error) {
	if len(command) > CommandSize {
		return nil, messageError("writeMessageHeader",
			fmt.Sprintf("command [%s] is too long", command))
	}

	var buf [MessageHeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(magic))
	copy(buf[4:4+CommandSize], command)

	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(payload)))

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	copy(buf[20:24], second[:4])

	return buf[:], nil
}

// WriteMessageN writes a fully framed message (header + payload) to w and
// returns the number of bytes written.
func WriteMessageN(w io.Writer, msg Message, pver uint32, net CurrencyNet) (int, error) {
	command := msg.Command()
	if len(command) > CommandSize {
		return 0, messageError("WriteMessageN",
			fmt.Sprintf("command [%s] is too long", command))
	}

	var bw bytes.Buffer
	if err := msg.BtcEncode(&bw, pver); err != nil {
		return 0, err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		return 0, messageError("WriteMessageN", fmt.Sprintf(
			"message payload is too large - encoded %d bytes, but maximum "+
				"message payload is %d bytes", lenp, mpl))
	}
	if lenp > MaxMessagePayload {
		return 0, messageError("WriteMessageN", fmt.Sprintf(
			"message payload is too large - encoded %d bytes, but maximum "+
				"message payload size for the protocol is %d bytes",
			lenp, MaxMessagePayload))
	}

	header, err := writeMessageHeaderBytes(net, command, payload)
	if err != nil {
		return 0, err
	}

	n1, err := w.Write(header)
	if err != nil {
		return n1, err
	}
	n2, err := w.Write(payload)
	return n1 + n2, err
}

// WriteMessage is a convenience wrapper around WriteMessageN that discards
// the byte count.
func WriteMessage(w io.Writer, msg Message, pver uint32, net CurrencyNet) error {
	_, err := WriteMessageN(w, msg, pver, net)
	return err
}

// ReadMessageN reads a single framed message from r, enforcing the
// protocol's size limits before any payload buffer is allocated (spec.md
// §4.6, "Size limits"). It returns the number of header+payload bytes
// consumed, the decoded message, and the raw payload bytes (callers that
// need to re-verify the checksum or re-frame the message can use the raw
// bytes instead of re-encoding).
func ReadMessageN(r io.Reader, pver uint32, net CurrencyNet) (int, Message, []byte, error) {
	totalBytes := 0
	n, hdr, err := readMessageHeader(r)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, err
	}

	if hdr.magic != net {
		return totalBytes, nil, nil, messageError("ReadMessageN",
			fmt.Sprintf("unexpected network magic: got %v, want %v", hdr.magic, net))
	}

	for i, c := range []byte(hdr.command) {
		if c < 0x20 || c > 0x7e {
			return totalBytes, nil, nil, messageError("ReadMessageN",
				fmt.Sprintf("invalid command byte at offset %d", i))
		}
	}

	if hdr.length > MaxMessagePayload {
		return totalBytes, nil, nil, messageError("ReadMessageN", fmt.Sprintf(
			"message payload of %d bytes exceeds the protocol maximum of %d "+
				"bytes", hdr.length, MaxMessagePayload))
	}

	msg, err := makeEmptyMessage(hdr.command)
	if err != nil {
		// Unknown command: drain and discard the payload rather than
		// leaving the stream desynchronized, but never allocate beyond the
		// already-validated MaxMessagePayload bound.
		io.CopyN(io.Discard, r, int64(hdr.length))
		return totalBytes, nil, nil, err
	}

	mpl := msg.MaxPayloadLength(pver)
	if hdr.length > mpl {
		io.CopyN(io.Discard, r, int64(hdr.length))
		return totalBytes, nil, nil, messageError("ReadMessageN", fmt.Sprintf(
			"payload exceeds max length for command [%s] - header "+
				"indicates %d bytes, but max payload size is %d bytes",
			hdr.command, hdr.length, mpl))
	}

	payload := make([]byte, hdr.length)
	n, err = io.ReadFull(r, payload)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, err
	}

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], hdr.checksum[:]) {
		return totalBytes, nil, nil, messageError("ReadMessageN",
			fmt.Sprintf("payload checksum failed for command [%s]", hdr.command))
	}

	if err := msg.BtcDecode(bytes.NewReader(payload), pver); err != nil {
		return totalBytes, nil, nil, err
	}

	return totalBytes, msg, payload, nil
}

// ReadMessage is a convenience wrapper around ReadMessageN that discards the
// byte count and raw payload.
func ReadMessage(r io.Reader, pver uint32, net CurrencyNet) (Message, error) {
	_, msg, _, err := ReadMessageN(r, pver, net)
	return msg, err
}
