// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"
	"time"

	"github.com/rxchain-project/rxchaind/wire"
)

func testConfig() Config {
	return Config{
		Net:               wire.RegNet,
		ProtocolVersion:   wire.CurrentProtocolVersion,
		UserAgent:         "/rxtest:0.0.1/",
		HandshakeTimeout:  500 * time.Millisecond,
		InactivityTimeout: time.Second,
		PingTimeout:       time.Second,
		PingInterval:      time.Hour, // tests drive pings explicitly
	}
}

// waitFor polls cond until it returns true or the deadline passes, failing
// the test otherwise. Handshakes complete across two real goroutines
// talking over a net.Pipe, so tests can't just check state synchronously.
func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	start := time.Now()
	for time.Since(start) < deadline {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", deadline)
	}
}

func newHandshakingPair(t *testing.T) (client, server *Peer) {
	t.Helper()
	c1, c2 := net.Pipe()
	client = New(testConfig(), c1, false)
	server = New(testConfig(), c2, true)
	client.Run()
	server.Run()
	return client, server
}

func TestHandshakeReachesReady(t *testing.T) {
	client, server := newHandshakingPair(t)
	defer client.Disconnect()
	defer server.Disconnect()

	waitFor(t, 2*time.Second, func() bool {
		return client.Ready() && server.Ready() &&
			client.ProtocolVersion() != 0 && server.ProtocolVersion() != 0
	})

	if client.ProtocolVersion() != int32(wire.CurrentProtocolVersion) {
		t.Fatalf("client didn't record server's protocol version: got %d", client.ProtocolVersion())
	}
	if server.ProtocolVersion() != int32(wire.CurrentProtocolVersion) {
		t.Fatalf("server didn't record client's protocol version: got %d", server.ProtocolVersion())
	}
	if client.RemoteNonce() != server.LocalNonce() {
		t.Fatalf("client's recorded remote nonce %d != server's local nonce %d",
			client.RemoteNonce(), server.LocalNonce())
	}
	if server.RemoteNonce() != client.LocalNonce() {
		t.Fatalf("server's recorded remote nonce %d != client's local nonce %d",
			server.RemoteNonce(), client.LocalNonce())
	}
}

func TestHandshakeDispatchesListeners(t *testing.T) {
	c1, c2 := net.Pipe()

	clientCfg := testConfig()
	var serverSawVersion, serverVerAckd bool
	serverCfg := testConfig()
	serverCfg.Listeners.OnVersion = func(p *Peer, msg *wire.MsgVersion) { serverSawVersion = true }
	serverCfg.Listeners.OnVerAck = func(p *Peer) { serverVerAckd = true }

	client := New(clientCfg, c1, false)
	server := New(serverCfg, c2, true)
	client.Run()
	server.Run()
	defer client.Disconnect()
	defer server.Disconnect()

	waitFor(t, 2*time.Second, func() bool { return client.Ready() && server.Ready() })
	if !serverSawVersion {
		t.Fatal("expected server's OnVersion listener to fire")
	}
	if !serverVerAckd {
		t.Fatal("expected server's OnVerAck listener to fire")
	}
}

func TestPreVersionMessageDisconnects(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()

	var disconnected bool
	serverCfg := testConfig()
	serverCfg.Listeners.OnDisconnect = func(p *Peer) { disconnected = true }
	server := New(serverCfg, c2, true)
	server.Run()
	defer server.Disconnect()

	// Send a GETADDR before any VERSION: this must be rejected outright.
	if err := wire.WriteMessage(c1, wire.NewMsgGetAddr(), wire.CurrentProtocolVersion, wire.RegNet); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return disconnected })
}

func TestDuplicateVerAckAfterReadyIsIgnored(t *testing.T) {
	c1, c2 := net.Pipe()

	var disconnected bool
	serverCfg := testConfig()
	serverCfg.Listeners.OnDisconnect = func(p *Peer) { disconnected = true }

	client := New(testConfig(), c1, false)
	server := New(serverCfg, c2, true)
	client.Run()
	server.Run()
	defer client.Disconnect()
	defer server.Disconnect()

	waitFor(t, 2*time.Second, func() bool { return client.Ready() && server.Ready() })

	if err := client.QueueMessage(wire.NewMsgVerAck()); err != nil {
		t.Fatalf("QueueMessage: %v", err)
	}

	// Give the duplicate verack time to arrive and be processed; the peer
	// must stay up and ready rather than treat it as a protocol error.
	time.Sleep(50 * time.Millisecond)
	if !server.Ready() {
		t.Fatal("expected server to remain ready after a duplicate verack")
	}
	if disconnected {
		t.Fatal("expected a duplicate verack to be silently ignored, not disconnect")
	}
}

func TestPingPong(t *testing.T) {
	c1, c2 := net.Pipe()

	clientCfg := testConfig()
	clientCfg.PingInterval = 20 * time.Millisecond
	serverCfg := testConfig()

	client := New(clientCfg, c1, false)
	server := New(serverCfg, c2, true)
	client.Run()
	server.Run()
	defer client.Disconnect()
	defer server.Disconnect()

	waitFor(t, 2*time.Second, func() bool { return client.Ready() && server.Ready() })

	// The ping ticker fires on its own; once the matching pong round trips
	// the client records a non-negative round-trip time.
	waitFor(t, 2*time.Second, func() bool { return client.pingSentAt.Load() != 0 })
	waitFor(t, 2*time.Second, func() bool { return client.pingSentAt.Load() == 0 })

	if client.Stats().BytesRecv == 0 {
		t.Fatal("expected the pong reply to have produced received bytes")
	}
	if server.Stats().BytesRecv == 0 {
		t.Fatal("expected the ping to have produced received bytes on the server")
	}
}

func TestHandshakeTimeout(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()

	var disconnected bool
	serverCfg := testConfig()
	serverCfg.HandshakeTimeout = 50 * time.Millisecond
	serverCfg.Listeners.OnDisconnect = func(p *Peer) { disconnected = true }
	server := New(serverCfg, c2, true)
	server.Run()

	// Never send anything: the server should give up on the handshake.
	waitFor(t, time.Second, func() bool { return disconnected })
}
