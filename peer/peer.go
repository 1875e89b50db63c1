// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements the per-connection handshake state machine and
// framed message pump spec.md §4.7 defines: VERSION/VERACK negotiation,
// keepalive ping/pong, idle and handshake timeouts, and the lock-free
// per-peer statistics §5 requires. It knows nothing about peer selection,
// scoring, or address books; connmgr and netsync own that, driven by the
// MessageListeners this package dispatches into.
package peer

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/wire"
)

// Default timeouts named in spec.md §4.7/§5.
const (
	DefaultHandshakeTimeout  = 60 * time.Second
	DefaultInactivityTimeout = 20 * time.Minute
	DefaultPingTimeout       = 20 * time.Minute
	DefaultPingInterval      = 2 * time.Minute
)

// outQueueSize bounds how many outbound messages may be pending for a
// single peer before it is treated as unresponsive and disconnected,
// mirroring the "hard cap checked before appending" discipline spec.md
// §4.6 applies to inbound framing.
const outQueueSize = 100

// MessageListeners are the callbacks a Peer dispatches decoded, post-
// handshake messages into. Every listener is optional; a nil listener
// means the message is silently dropped after the enforcement checks in
// handleMessage run.
type MessageListeners struct {
	OnVersion     func(p *Peer, msg *wire.MsgVersion)
	OnVerAck      func(p *Peer)
	OnHeaders     func(p *Peer, msg *wire.MsgHeaders)
	OnGetHeaders  func(p *Peer, msg *wire.MsgGetHeaders)
	OnInv         func(p *Peer, msg *wire.MsgInv)
	OnGetData     func(p *Peer, msg *wire.MsgGetData)
	OnNotFound    func(p *Peer, msg *wire.MsgNotFound)
	OnAddr        func(p *Peer, msg *wire.MsgAddr)
	OnGetAddr     func(p *Peer)
	OnSendHeaders func(p *Peer)

	// OnDisconnect fires exactly once, from the teardown goroutine, after
	// the connection is closed and every reader/writer goroutine has
	// exited. It never runs on the goroutine that requested the
	// disconnect (spec.md §9, "Cooperative cancellation via posted
	// disconnect").
	OnDisconnect func(p *Peer)
}

// Config holds everything a Peer needs to run the handshake and message
// pump that isn't specific to one connection.
type Config struct {
	// Net is the magic this peer's messages must carry.
	Net wire.CurrencyNet

	// ProtocolVersion is the version this node speaks.
	ProtocolVersion uint32

	// Services are the service flags this node advertises.
	Services uint64

	// UserAgent identifies this node's software in the VERSION handshake.
	UserAgent string

	// NewestBlock reports the local active chain tip height, used to
	// populate the VERSION message's LastBlock field.
	NewestBlock func() (height int32, err error)

	// Listeners dispatches decoded post-handshake messages.
	Listeners MessageListeners

	HandshakeTimeout  time.Duration
	InactivityTimeout time.Duration
	PingTimeout       time.Duration
	PingInterval      time.Duration
}

func (cfg *Config) handshakeTimeout() time.Duration {
	if cfg.HandshakeTimeout > 0 {
		return cfg.HandshakeTimeout
	}
	return DefaultHandshakeTimeout
}

func (cfg *Config) inactivityTimeout() time.Duration {
	if cfg.InactivityTimeout > 0 {
		return cfg.InactivityTimeout
	}
	return DefaultInactivityTimeout
}

func (cfg *Config) pingTimeout() time.Duration {
	if cfg.PingTimeout > 0 {
		return cfg.PingTimeout
	}
	return DefaultPingTimeout
}

func (cfg *Config) pingInterval() time.Duration {
	if cfg.PingInterval > 0 {
		return cfg.PingInterval
	}
	return DefaultPingInterval
}

// Peer manages one connection's handshake and message pump. Every
// exported method is safe to call from any goroutine.
type Peer struct {
	cfg  Config
	conn net.Conn

	inbound bool
	addr    string

	localNonce uint64

	// stateMu guards state; it changes rarely (a handful of times over a
	// connection's life) so a mutex is simpler and no less correct than a
	// CAS loop here. The frequently-touched counters below are atomics
	// instead, per spec.md §5.
	stateMu sync.Mutex
	state   State

	connectedTime time.Time

	lastSend   atomic.Int64 // unix nano
	lastRecv   atomic.Int64 // unix nano
	bytesSent  atomic.Uint64
	bytesRecv  atomic.Uint64
	pingTimeMs atomic.Int64

	sendHeadersNegotiated atomic.Bool

	haveRemoteVersion atomic.Bool
	remoteVersion     atomic.Int32
	remoteNonce       atomic.Uint64
	userAgent         atomic.Value // string
	startHeight       atomic.Int32

	pingSentAt atomic.Int64 // unix nano, 0 when no ping outstanding
	pingNonce  atomic.Uint64

	outQueue chan wire.Message

	quit     chan struct{}
	quitOnce sync.Once

	handshakeTimer *time.Timer
	idleTimer      *time.Timer
	pingTicker     *time.Ticker
	pingDeadline   *time.Timer
	timerMu        sync.Mutex // guards Stop/Reset races against teardown

	wg sync.WaitGroup
}

// New constructs a Peer for conn. inbound selects which side of the
// handshake this peer runs: outbound sends VERSION first, inbound waits
// for the remote's.
func New(cfg Config, conn net.Conn, inbound bool) *Peer {
	p := &Peer{
		cfg:      cfg,
		conn:     conn,
		inbound:  inbound,
		addr:     conn.RemoteAddr().String(),
		quit:     make(chan struct{}),
		outQueue: make(chan wire.Message, outQueueSize),
	}
	p.userAgent.Store("")
	p.localNonce = randomNonce()
	return p
}

func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is a fatal environment problem; a
		// time-derived fallback still serves the self-connection check's
		// purpose (collision, not security).
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Addr returns the remote address string.
func (p *Peer) Addr() string { return p.addr }

// Inbound reports whether this peer connected to us, as opposed to us
// dialing it.
func (p *Peer) Inbound() bool { return p.inbound }

// LocalNonce returns the nonce this peer sent in its own VERSION message,
// so a connection manager can detect self-connections across its whole
// set of in-flight outbound dials.
func (p *Peer) LocalNonce() uint64 { return p.localNonce }

// RemoteNonce returns the nonce the remote side sent in its VERSION
// message. It is zero until the handshake's VERSION step completes.
func (p *Peer) RemoteNonce() uint64 { return p.remoteNonce.Load() }

// State returns the peer's current handshake state.
func (p *Peer) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

func (p *Peer) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// Ready reports whether the handshake has completed.
func (p *Peer) Ready() bool { return p.State() == StateReady }

// NegotiatedSendHeaders reports whether this peer asked to receive tip
// announcements as unsolicited HEADERS rather than INV.
func (p *Peer) NegotiatedSendHeaders() bool { return p.sendHeadersNegotiated.Load() }

// ProtocolVersion returns the version the remote side reported in its
// VERSION message.
func (p *Peer) ProtocolVersion() int32 { return p.remoteVersion.Load() }

// UserAgent returns the remote side's declared user agent string.
func (p *Peer) UserAgent() string { return p.userAgent.Load().(string) }

// StartHeight returns the remote side's reported active chain tip height.
func (p *Peer) StartHeight() int32 { return p.startHeight.Load() }

// Stats is a point-in-time snapshot of a peer's connection statistics
// (spec.md §5).
type Stats struct {
	LastSend      time.Time
	LastRecv      time.Time
	ConnectedTime time.Time
	BytesSent     uint64
	BytesRecv     uint64
	PingTimeMs    int64
}

// Stats returns a snapshot of this peer's lock-free counters.
func (p *Peer) Stats() Stats {
	return Stats{
		LastSend:      unixNanoOrZero(p.lastSend.Load()),
		LastRecv:      unixNanoOrZero(p.lastRecv.Load()),
		ConnectedTime: p.connectedTime,
		BytesSent:     p.bytesSent.Load(),
		BytesRecv:     p.bytesRecv.Load(),
		PingTimeMs:    p.pingTimeMs.Load(),
	}
}

func unixNanoOrZero(nsec int64) time.Time {
	if nsec == 0 {
		return time.Time{}
	}
	return time.Unix(0, nsec)
}

// Run starts the handshake and message pump and returns immediately,
// without waiting for the handshake to complete; the handshake and the
// peer itself run in the background (callers observe handshake
// completion via OnVerAck and the peer's lifetime via OnDisconnect).
func (p *Peer) Run() {
	p.connectedTime = time.Now()
	p.lastRecv.Store(p.connectedTime.UnixNano())
	p.setState(StateConnected)

	p.handshakeTimer = time.AfterFunc(p.cfg.handshakeTimeout(), func() {
		log.Debugf("%s: handshake timed out", p.addr)
		p.Disconnect()
	})
	p.idleTimer = time.AfterFunc(p.cfg.inactivityTimeout(), func() {
		log.Debugf("%s: inactivity timeout", p.addr)
		p.Disconnect()
	})
	p.pingTicker = time.NewTicker(p.cfg.pingInterval())

	p.wg.Add(3)
	go p.inHandler()
	go p.outHandler()
	go p.pingHandler()

	go p.teardownOnQuit()

	if !p.inbound {
		p.queueVersion()
		p.setState(StateVersionSent)
	}
}

func (p *Peer) queueVersion() {
	height := int32(0)
	if p.cfg.NewestBlock != nil {
		h, err := p.cfg.NewestBlock()
		if err == nil {
			height = h
		}
	}
	me := wire.NewNetAddressIPPort(net.IPv4zero, 0, p.cfg.Services)
	you := wire.NewNetAddressIPPort(net.IPv4zero, 0, 0)
	msg := wire.NewMsgVersion(me, you, p.localNonce, height)
	msg.ProtocolVersion = int32(p.cfg.ProtocolVersion)
	if p.cfg.UserAgent != "" {
		msg.UserAgent = p.cfg.UserAgent
	}
	p.QueueMessage(msg)
}

// writeMessage frames and writes msg. outHandler is its only caller, so
// the connection only ever has one writer at a time.
func (p *Peer) writeMessage(msg wire.Message) error {
	n, err := wire.WriteMessageN(p.conn, msg, p.cfg.ProtocolVersion, p.cfg.Net)
	if err != nil {
		return err
	}
	p.bytesSent.Add(uint64(n))
	p.lastSend.Store(time.Now().UnixNano())
	return nil
}

// QueueMessage enqueues msg for the connection's single writer goroutine,
// which sends it as soon as it is dequeued whatever the handshake state.
// The handshake's own VERSION and VERACK messages go through this same
// queue.
func (p *Peer) QueueMessage(msg wire.Message) error {
	select {
	case p.outQueue <- msg:
		return nil
	case <-p.quit:
		return rxerr.New(rxerr.ErrIo, "peer %s disconnected", p.addr)
	default:
		// Queue is saturated: the peer isn't draining fast enough to be
		// useful. Treat it the same as an oversized inbound message and
		// close the connection rather than block the caller.
		log.Warnf("%s: outbound queue full, disconnecting", p.addr)
		p.Disconnect()
		return rxerr.New(rxerr.ErrIo, "peer %s outbound queue full", p.addr)
	}
}

// Disconnect requests teardown. It is safe to call from any goroutine,
// including from inside a MessageListeners callback, any number of times
// concurrently: the actual teardown work always runs later, on a
// dedicated goroutine, never synchronously inside the caller (spec.md §9).
func (p *Peer) Disconnect() {
	p.quitOnce.Do(func() {
		p.setState(StateDisconnecting)
		close(p.quit)
	})
}

func (p *Peer) teardownOnQuit() {
	<-p.quit

	p.conn.Close()

	p.timerMu.Lock()
	p.handshakeTimer.Stop()
	p.idleTimer.Stop()
	p.pingTicker.Stop()
	if p.pingDeadline != nil {
		p.pingDeadline.Stop()
	}
	p.timerMu.Unlock()

	p.wg.Wait()
	p.setState(StateDisconnected)

	if p.cfg.Listeners.OnDisconnect != nil {
		p.cfg.Listeners.OnDisconnect(p)
	}
}

func (p *Peer) inHandler() {
	defer p.wg.Done()
	for {
		n, msg, _, err := wire.ReadMessageN(p.conn, p.cfg.ProtocolVersion, p.cfg.Net)
		if err != nil {
			if p.State() != StateDisconnecting && p.State() != StateDisconnected {
				log.Debugf("%s: read error: %v", p.addr, err)
			}
			p.Disconnect()
			return
		}

		p.bytesRecv.Add(uint64(n))
		p.lastRecv.Store(time.Now().UnixNano())
		p.timerMu.Lock()
		p.idleTimer.Reset(p.cfg.inactivityTimeout())
		p.timerMu.Unlock()

		if err := p.handleMessage(msg); err != nil {
			log.Debugf("%s: %v", p.addr, err)
			p.Disconnect()
			return
		}
	}
}

func (p *Peer) outHandler() {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.outQueue:
			if err := p.writeMessage(msg); err != nil {
				log.Debugf("%s: write error: %v", p.addr, err)
				p.Disconnect()
				return
			}
		case <-p.quit:
			return
		}
	}
}

func (p *Peer) pingHandler() {
	defer p.wg.Done()
	for {
		select {
		case <-p.pingTicker.C:
			if !p.Ready() {
				continue
			}
			nonce := randomNonce()
			p.pingNonce.Store(nonce)
			p.pingSentAt.Store(time.Now().UnixNano())
			if err := p.QueueMessage(wire.NewMsgPing(nonce)); err != nil {
				continue
			}
			p.timerMu.Lock()
			if p.pingDeadline != nil {
				p.pingDeadline.Stop()
			}
			p.pingDeadline = time.AfterFunc(p.cfg.pingTimeout(), func() {
				log.Debugf("%s: ping timed out", p.addr)
				p.Disconnect()
			})
			p.timerMu.Unlock()
		case <-p.quit:
			return
		}
	}
}

// handleMessage enforces the handshake ordering rules of spec.md §4.7
// before dispatching into the configured listeners: no application
// message may precede a completed VERSION/VERACK exchange, and a VERSION
// or VERACK arriving after the handshake already finished is silently
// ignored rather than treated as an error.
func (p *Peer) handleMessage(msg wire.Message) error {
	state := p.State()

	switch m := msg.(type) {
	case *wire.MsgVersion:
		return p.handleVersion(state, m)
	case *wire.MsgVerAck:
		return p.handleVerAck(state)
	}

	if state != StateReady {
		return fmt.Errorf("received %s before handshake completed (state %s)", msg.Command(), state)
	}

	switch m := msg.(type) {
	case *wire.MsgPing:
		return p.QueueMessage(wire.NewMsgPong(m.Nonce))
	case *wire.MsgPong:
		p.handlePong(m)
	case *wire.MsgSendHeaders:
		p.sendHeadersNegotiated.Store(true)
		if p.cfg.Listeners.OnSendHeaders != nil {
			p.cfg.Listeners.OnSendHeaders(p)
		}
	case *wire.MsgHeaders:
		if p.cfg.Listeners.OnHeaders != nil {
			p.cfg.Listeners.OnHeaders(p, m)
		}
	case *wire.MsgGetHeaders:
		if p.cfg.Listeners.OnGetHeaders != nil {
			p.cfg.Listeners.OnGetHeaders(p, m)
		}
	case *wire.MsgInv:
		if p.cfg.Listeners.OnInv != nil {
			p.cfg.Listeners.OnInv(p, m)
		}
	case *wire.MsgGetData:
		if p.cfg.Listeners.OnGetData != nil {
			p.cfg.Listeners.OnGetData(p, m)
		}
	case *wire.MsgNotFound:
		if p.cfg.Listeners.OnNotFound != nil {
			p.cfg.Listeners.OnNotFound(p, m)
		}
	case *wire.MsgAddr:
		if p.cfg.Listeners.OnAddr != nil {
			p.cfg.Listeners.OnAddr(p, m)
		}
	case *wire.MsgGetAddr:
		if p.cfg.Listeners.OnGetAddr != nil {
			p.cfg.Listeners.OnGetAddr(p)
		}
	default:
		return fmt.Errorf("unhandled message type %T", msg)
	}
	return nil
}

func (p *Peer) handleVersion(state State, m *wire.MsgVersion) error {
	switch state {
	case StateConnected:
		// Inbound, first message: reply VERACK then our own VERSION.
		if !p.inbound {
			return fmt.Errorf("unexpected version from outbound peer in state %s", state)
		}
		p.storeRemoteVersion(m)
		if err := p.QueueMessage(wire.NewMsgVerAck()); err != nil {
			return err
		}
		p.queueVersion()
		p.setState(StateVersionSent)
		if p.cfg.Listeners.OnVersion != nil {
			p.cfg.Listeners.OnVersion(p, m)
		}
		return nil

	case StateVersionSent:
		// Outbound, expecting the remote's version after having sent ours.
		if p.inbound {
			return fmt.Errorf("unexpected duplicate version from inbound peer")
		}
		if p.haveRemoteVersion.Load() {
			return fmt.Errorf("duplicate version before handshake completed")
		}
		p.storeRemoteVersion(m)
		if err := p.QueueMessage(wire.NewMsgVerAck()); err != nil {
			return err
		}
		if p.cfg.Listeners.OnVersion != nil {
			p.cfg.Listeners.OnVersion(p, m)
		}
		return nil

	case StateReady:
		// An inbound peer answers with VERACK before its own VERSION, so
		// an outbound peer can flip to ready (on the VERACK) before its
		// one and only VERSION from the remote side has arrived. Accept
		// that single deferred delivery; anything after it is a genuine
		// duplicate and is ignored.
		if p.haveRemoteVersion.Load() {
			return nil
		}
		p.storeRemoteVersion(m)
		if p.cfg.Listeners.OnVersion != nil {
			p.cfg.Listeners.OnVersion(p, m)
		}
		return nil

	default:
		return fmt.Errorf("version received in unexpected state %s", state)
	}
}

func (p *Peer) storeRemoteVersion(m *wire.MsgVersion) {
	p.remoteVersion.Store(m.ProtocolVersion)
	p.remoteNonce.Store(m.Nonce)
	p.userAgent.Store(m.UserAgent)
	p.startHeight.Store(m.LastBlock)
	p.haveRemoteVersion.Store(true)
}

func (p *Peer) handleVerAck(state State) error {
	switch state {
	case StateVersionSent:
		p.timerMu.Lock()
		p.handshakeTimer.Stop()
		p.timerMu.Unlock()
		p.setState(StateReady)
		if p.cfg.Listeners.OnVerAck != nil {
			p.cfg.Listeners.OnVerAck(p)
		}
		return nil
	case StateReady:
		// Duplicate verack after a completed handshake: ignored.
		return nil
	default:
		return fmt.Errorf("verack received in unexpected state %s", state)
	}
}

func (p *Peer) handlePong(m *wire.MsgPong) {
	if m.Nonce != p.pingNonce.Load() {
		return
	}
	p.timerMu.Lock()
	if p.pingDeadline != nil {
		p.pingDeadline.Stop()
	}
	p.timerMu.Unlock()
	sentAt := p.pingSentAt.Load()
	if sentAt == 0 {
		return
	}
	p.pingTimeMs.Store(time.Since(time.Unix(0, sentAt)).Milliseconds())
	p.pingSentAt.Store(0)
}
