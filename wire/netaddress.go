// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"net"
	"time"
)

// sfNodeNetwork is the only service flag this protocol currently defines: a
// peer that serves full headers history.
const sfNodeNetwork = 1 << 0

// NetAddress carries a single peer's reachable address, as gossiped in ADDR
// messages and used for locally dialing.
type NetAddress struct {
	// Timestamp is the last time this address was seen alive. It is omitted
	// from the version handshake's own address fields (see MsgVersion).
	Timestamp time.Time

	// Services are the advertised service flags for this address.
	Services uint64

	// IP is the peer's address; stored as the 16-byte form regardless of
	// whether it is IPv4 or IPv6.
	IP net.IP

	// Port is the peer's listening port, host byte order.
	Port uint16
}

// HasService reports whether the address advertises the given service flag.
func (na *NetAddress) HasService(service uint64) bool {
	return na.Services&service == service
}

// AddService adds service as one of the services supported by the address.
func (na *NetAddress) AddService(service uint64) {
	na.Services |= service
}

// NewNetAddressIPPort constructs a NetAddress from an IP, port and service
// flags, defaulting its timestamp to now.
func NewNetAddressIPPort(ip net.IP, port uint16, services uint64) *NetAddress {
	return &NetAddress{
		Timestamp: time.Now(),
		Services:  services,
		IP:        ip,
		Port:      port,
	}
}

func readNetAddress(r io.Reader, pver uint32, na *NetAddress, hasTimestamp bool) error {
	var ip [16]byte

	if hasTimestamp {
		var timestamp uint32
		if err := readElement(r, &timestamp); err != nil {
			return err
		}
		na.Timestamp = time.Unix(int64(timestamp), 0)
	}

	if err := readElement(r, &na.Services); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}

	var port uint16
	if err := readElement(r, &port); err != nil {
		return err
	}

	*na = NetAddress{
		Timestamp: na.Timestamp,
		Services:  na.Services,
		IP:        net.IP(ip[:]),
		Port:      port,
	}
	return nil
}

func writeNetAddress(w io.Writer, pver uint32, na *NetAddress, hasTimestamp bool) error {
	if hasTimestamp {
		if err := writeElement(w, uint32(na.Timestamp.Unix())); err != nil {
			return err
		}
	}

	if err := writeElement(w, na.Services); err != nil {
		return err
	}

	var ip [16]byte
	if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	return writeElement(w, na.Port)
}
