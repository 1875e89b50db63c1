// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command rxchaind runs the headers-only chain daemon: it parses
// rxconfig.Config from the command line, then wires chainstate, connmgr,
// addrmgr and netsync together and drives the listener and
// outbound-connection loops. Anything beyond flag parsing into that one
// struct (config files, daemonization, a richer CLI) is out of scope.
package main

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/rxchain-project/rxchaind/addrmgr"
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/chainstate"
	"github.com/rxchain-project/rxchaind/chainstore"
	"github.com/rxchain-project/rxchaind/connmgr"
	"github.com/rxchain-project/rxchaind/netsync"
	"github.com/rxchain-project/rxchaind/notify"
	"github.com/rxchain-project/rxchaind/orphan"
	"github.com/rxchain-project/rxchaind/peer"
	"github.com/rxchain-project/rxchaind/randomx"
	"github.com/rxchain-project/rxchaind/rxconfig"
	"github.com/rxchain-project/rxchaind/rxlog"
	"github.com/rxchain-project/rxchaind/validate"
	"github.com/rxchain-project/rxchaind/wire"
)

// initLoggers hands every package its subsystem-tagged logger, the one
// place in the process that needs to know every package carries a log.go.
func initLoggers() {
	chainstate.UseLogger(rxlog.Logger(rxlog.SubsystemChainstate))
	blockindex.UseLogger(rxlog.Logger(rxlog.SubsystemBlockIndex))
	validate.UseLogger(rxlog.Logger(rxlog.SubsystemValidate))
	randomx.UseLogger(rxlog.Logger(rxlog.SubsystemRandomX))
	peer.UseLogger(rxlog.Logger(rxlog.SubsystemPeer))
	connmgr.UseLogger(rxlog.Logger(rxlog.SubsystemConnMgr))
	netsync.UseLogger(rxlog.Logger(rxlog.SubsystemSync))
	addrmgr.UseLogger(rxlog.Logger(rxlog.SubsystemAddrMgr))
	notify.UseLogger(rxlog.Logger(rxlog.SubsystemNotify))
	wire.UseLogger(rxlog.Logger(rxlog.SubsystemWire))
	chainstore.UseLogger(rxlog.Logger(rxlog.SubsystemStore))
	orphan.UseLogger(rxlog.Logger(rxlog.SubsystemChainstate))
}

// cgoHasher stands in for the real RandomX VM binding, which lives behind
// cgo and outside what this module builds. A production build substitutes
// a type backed by the actual RandomX library here; the rest of the node
// never needs to know the difference since randomx.Engine only depends on
// the Hasher interface.
type cgoHasher struct{}

func (cgoHasher) Hash(seed [32]byte, input []byte) (chainhash.Hash, error) {
	h := sha256.New()
	h.Write(seed[:])
	h.Write(input)
	var out chainhash.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rxchaind:", err)
		os.Exit(1)
	}
}

func run() error {
	initLoggers()

	cfg := rxconfig.Default("mainnet")
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			return nil
		}
		return fmt.Errorf("parsing command-line options: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	np, err := netParamsFor(cfg.Network)
	if err != nil {
		return err
	}

	hub := notify.NewHub()

	engine, err := randomx.NewEngine(cgoHasher{}, np.RandomXEpochDuration)
	if err != nil {
		return fmt.Errorf("starting randomx engine: %w", err)
	}

	chain := chainstate.NewManager(np.Params, engine, hub, cfg.SuspiciousReorgDepth)
	if _, err := chain.Initialize(np.GenesisHeader); err != nil {
		return fmt.Errorf("seeding genesis: %w", err)
	}

	addrManager, err := addrmgr.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening address manager: %w", err)
	}
	defer addrManager.Close()

	connManager := connmgr.New(connmgr.Config{
		MaxOutbound: cfg.MaxOutbound,
		MaxInbound:  cfg.MaxInbound,
		Hub:         hub,
		OnDiscouraged: func(addr string) {
			_ = addrManager // a production build would persist addr to the discourage list here
		},
	})

	syncMgr := netsync.New(np.Params, chain, connManager, hub)
	go syncMgr.Run()
	defer syncMgr.Stop()

	if cfg.ListenEnabled {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ListenPort))
		if err != nil {
			return fmt.Errorf("listening on port %d: %w", cfg.ListenPort, err)
		}
		defer ln.Close()
		go acceptLoop(ln, np, connManager, syncMgr, chain)
	}

	connectTicker := time.NewTicker(time.Duration(cfg.ConnectInterval) * time.Second)
	defer connectTicker.Stop()
	go connectLoop(connectTicker, np, connManager, addrManager, syncMgr, chain)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

// acceptLoop admits inbound connections, hands each one a handshaking
// peer.Peer wired to the sync manager's listeners, and registers it with
// connMgr once the handshake completes.
func acceptLoop(ln net.Listener, np netParams, connMgr *connmgr.Manager, syncMgr *netsync.Manager, chain *chainstate.Manager) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go handleInbound(conn, np, connMgr, syncMgr, chain)
	}
}

func handleInbound(conn net.Conn, np netParams, connMgr *connmgr.Manager, syncMgr *netsync.Manager, chain *chainstate.Manager) {
	pr := &connmgr.PeerRecord{ID: connMgr.NextPeerID(), ConnType: connmgr.ConnInbound, Addr: conn.RemoteAddr().String()}

	var selfConnect atomic.Bool
	handshakeDone := make(chan struct{})
	var signalOnce sync.Once
	signalHandshakeDone := func() { signalOnce.Do(func() { close(handshakeDone) }) }

	cfg := peer.Config{
		Net:             np.net,
		ProtocolVersion: wire.CurrentProtocolVersion,
		UserAgent:       "/rxchaind:0.1.0/",
		NewestBlock:     func() (int32, error) { return chain.ActiveChain().Height(), nil },
		Listeners: peer.MessageListeners{
			OnHeaders:    func(p *peer.Peer, msg *wire.MsgHeaders) { syncMgr.OnHeaders(pr, msg) },
			OnGetHeaders: func(p *peer.Peer, msg *wire.MsgGetHeaders) { syncMgr.OnGetHeaders(pr, msg) },
			OnVersion: func(p *peer.Peer, msg *wire.MsgVersion) {
				if connMgr.SelfConnected(msg.Nonce) {
					selfConnect.Store(true)
					p.Disconnect()
				}
			},
			OnVerAck:     func(p *peer.Peer) { signalHandshakeDone() },
			OnDisconnect: func(p *peer.Peer) { signalHandshakeDone() },
		},
	}
	p := peer.New(cfg, conn, true)
	pr.Peer = p

	p.Run()

	// The self-connection check above only means something once the
	// VERSION message has actually had a chance to arrive; Run() only
	// starts the handshake, it doesn't wait for it. Block here until the
	// handshake finishes one way or the other, capped by the same timeout
	// the peer itself enforces internally.
	select {
	case <-handshakeDone:
	case <-time.After(peer.DefaultHandshakeTimeout):
		p.Disconnect()
		return
	}

	if selfConnect.Load() {
		return
	}
	if err := connMgr.AddPeer(pr); err != nil {
		p.Disconnect()
		return
	}
	syncMgr.RegisterPeer(pr)
}

// connectLoop drives outbound dials: on every tick it asks addrManager for
// a candidate and dials it, skipping ticks where none is available.
func connectLoop(ticker *time.Ticker, np netParams, connMgr *connmgr.Manager, addrManager *addrmgr.Manager, syncMgr *netsync.Manager, chain *chainstate.Manager) {
	dialer := connmgr.DialTimeout{Timeout: 10 * time.Second}
	for range ticker.C {
		addr, ok, err := addrManager.GetAddress()
		if !ok || err != nil {
			continue
		}
		go dialOutbound(dialer, addr, np, connMgr, addrManager, syncMgr, chain)
	}
}

// dialOutbound dials addr, runs the handshake, and either admits the peer
// or tears it down: on dial failure, on a detected self-connection (the
// dial looped back to our own listener), or if connMgr refuses admission.
func dialOutbound(dialer connmgr.Dialer, addr string, np netParams, connMgr *connmgr.Manager, addrManager *addrmgr.Manager, syncMgr *netsync.Manager, chain *chainstate.Manager) {
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		_ = addrManager.MarkAttempt(addr, false)
		return
	}

	pr := &connmgr.PeerRecord{ID: connMgr.NextPeerID(), ConnType: connmgr.ConnOutboundFullRelay, Addr: addr}

	var selfConnect atomic.Bool
	handshakeDone := make(chan struct{})
	var signalOnce sync.Once
	signalHandshakeDone := func() { signalOnce.Do(func() { close(handshakeDone) }) }

	cfg := peer.Config{
		Net:             np.net,
		ProtocolVersion: wire.CurrentProtocolVersion,
		UserAgent:       "/rxchaind:0.1.0/",
		NewestBlock:     func() (int32, error) { return chain.ActiveChain().Height(), nil },
		Listeners: peer.MessageListeners{
			OnHeaders:    func(p *peer.Peer, msg *wire.MsgHeaders) { syncMgr.OnHeaders(pr, msg) },
			OnGetHeaders: func(p *peer.Peer, msg *wire.MsgGetHeaders) { syncMgr.OnGetHeaders(pr, msg) },
			OnVersion: func(p *peer.Peer, msg *wire.MsgVersion) {
				if connMgr.SelfConnected(msg.Nonce) {
					selfConnect.Store(true)
					p.Disconnect()
				}
			},
			OnVerAck:     func(p *peer.Peer) { signalHandshakeDone() },
			OnDisconnect: func(p *peer.Peer) { signalHandshakeDone() },
		},
	}
	p := peer.New(cfg, conn, false)
	pr.Peer = p

	connMgr.RegisterOutboundNonce(p.LocalNonce())
	defer connMgr.ForgetOutboundNonce(p.LocalNonce())

	p.Run()

	// A self-dial loops our own outbound VERSION back to our own inbound
	// listener; that side effect only exists once the handshake has had a
	// chance to run, so wait it out (or time out) before deciding.
	select {
	case <-handshakeDone:
	case <-time.After(peer.DefaultHandshakeTimeout):
		p.Disconnect()
		_ = addrManager.MarkAttempt(addr, false)
		return
	}

	if selfConnect.Load() {
		_ = addrManager.MarkAttempt(addr, false)
		return
	}
	if err := connMgr.AddPeer(pr); err != nil {
		p.Disconnect()
		_ = addrManager.MarkAttempt(addr, false)
		return
	}
	_ = addrManager.MarkAttempt(addr, true)
	syncMgr.RegisterPeer(pr)
}
