// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// State is a peer connection's position in the handshake state machine
// defined by spec.md §4.7.
type State int32

const (
	// StateDisconnected is the zero state: never connected, or torn down.
	StateDisconnected State = iota

	// StateConnecting names an outbound dial in flight. Peer never enters
	// it itself: Run moves a new peer straight to StateConnected.
	StateConnecting

	// StateConnected means the transport is up but no VERSION has gone
	// either direction yet.
	StateConnected

	// StateVersionSent means this side's VERSION has been sent (outbound:
	// immediately after connecting; inbound: after replying to the
	// remote's VERSION with VERACK and our own VERSION) but the
	// handshake-completing VERACK from the remote side hasn't arrived.
	StateVersionSent

	// StateReady means the handshake completed in both directions; normal
	// protocol messages may now be exchanged.
	StateReady

	// StateDisconnecting means teardown has been requested; the
	// connection and its goroutines are being torn down.
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateVersionSent:
		return "version-sent"
	case StateReady:
		return "ready"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}
