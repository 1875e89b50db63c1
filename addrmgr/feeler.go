// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/rxchain-project/rxchaind/peer"
	"github.com/rxchain-project/rxchaind/wire"
)

// DefaultFeelerMean is the mean interval between feeler connections
// (spec.md §4.10: "every ~2 min").
const DefaultFeelerMean = 2 * time.Minute

// feelerHandshakeTimeout bounds how long a feeler waits for VERSION/VERACK
// before giving up and recording a failed attempt.
const feelerHandshakeTimeout = 10 * time.Second

// FeelerConfig configures the feeler scheduler.
type FeelerConfig struct {
	Mean            time.Duration
	Net             wire.CurrencyNet
	ProtocolVersion uint32
	UserAgent       string

	// Dial opens the outbound TCP connection; tests substitute a fake.
	Dial func(network, addr string) (net.Conn, error)
}

func (cfg FeelerConfig) mean() time.Duration {
	if cfg.Mean > 0 {
		return cfg.Mean
	}
	return DefaultFeelerMean
}

// Feeler periodically dials one address from the new table, performs a
// minimal handshake, records the result, and disconnects (spec.md
// §4.10). Scheduling uses Poisson jitter (an exponential distribution
// around Mean) instead of a fixed period, per §9 Vector 8: a constant
// interval lets an observer fingerprint a node's feeler traffic.
type Feeler struct {
	mgr *Manager
	cfg FeelerConfig
}

// NewFeeler constructs a Feeler over mgr.
func NewFeeler(mgr *Manager, cfg FeelerConfig) *Feeler {
	return &Feeler{mgr: mgr, cfg: cfg}
}

// Run blocks, firing feeler connections on a Poisson-jittered schedule
// until ctx is canceled.
func (f *Feeler) Run(ctx context.Context) {
	for {
		wait := time.Duration(rand.ExpFloat64() * float64(f.cfg.mean()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		f.tryOnce(ctx)
	}
}

func (f *Feeler) tryOnce(ctx context.Context) {
	addr, ok, err := f.mgr.GetNewAddress()
	if err != nil {
		log.Warnf("feeler: GetNewAddress: %v", err)
		return
	}
	if !ok {
		return
	}

	success := f.probe(ctx, addr)
	if err := f.mgr.MarkAttempt(addr, success); err != nil {
		log.Warnf("feeler: MarkAttempt(%s): %v", addr, err)
	}
}

// probe dials addr and waits for the handshake to reach peer.StateReady,
// then tears the connection down either way. It never relays any
// application message: a feeler exists purely to verify reachability.
func (f *Feeler) probe(ctx context.Context, addr string) (success bool) {
	conn, err := f.cfg.Dial("tcp", addr)
	if err != nil {
		log.Debugf("feeler: dial %s: %v", addr, err)
		return false
	}

	ready := make(chan struct{}, 1)
	p := peer.New(peer.Config{
		Net:              f.cfg.Net,
		ProtocolVersion:  f.cfg.ProtocolVersion,
		UserAgent:        f.cfg.UserAgent,
		HandshakeTimeout: feelerHandshakeTimeout,
		Listeners: peer.MessageListeners{
			OnVerAck: func(conn *peer.Peer) {
				if conn.Ready() {
					select {
					case ready <- struct{}{}:
					default:
					}
				}
			},
		},
	}, conn, false)
	p.Run()
	defer p.Disconnect()

	select {
	case <-ready:
		return true
	case <-time.After(feelerHandshakeTimeout):
		return false
	case <-ctx.Done():
		return false
	}
}
