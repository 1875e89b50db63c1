// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"net"
	"time"

	"github.com/decred/go-socks/socks"
	"golang.org/x/net/proxy"
)

// Dialer opens outbound peer connections, optionally routed through a
// SOCKS proxy so operators can run over Tor without the rest of connmgr
// knowing the difference.
type Dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

// DialTimeout wraps net.Dialer as the default, proxy-less Dialer.
type DialTimeout struct {
	Timeout time.Duration
}

// Dial implements Dialer.
func (d DialTimeout) Dial(network, addr string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	return nd.Dial(network, addr)
}

// ProxyConfig describes an upstream SOCKS proxy.
type ProxyConfig struct {
	Addr     string
	Username string
	Password string
}

// NewProxyDialer builds a Dialer that routes through a SOCKS proxy via
// decred/go-socks. The returned value also satisfies
// golang.org/x/net/proxy.Dialer, so it composes with anything in the
// ecosystem written against that interface (feeler/address-book dialing
// included).
func NewProxyDialer(cfg ProxyConfig) Dialer {
	return &socks.Proxy{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

// chainedDialer lets a proxy.Dialer (x/net/proxy's broader ecosystem,
// e.g. chained SOCKS-over-SOCKS or a system proxy resolved via
// proxy.FromEnvironment) stand in for our narrower Dialer interface.
type chainedDialer struct {
	inner proxy.Dialer
}

// Dial implements Dialer.
func (c chainedDialer) Dial(network, addr string) (net.Conn, error) {
	return c.inner.Dial(network, addr)
}

// FromProxyDialer adapts any golang.org/x/net/proxy.Dialer to this
// package's Dialer interface.
func FromProxyDialer(d proxy.Dialer) Dialer {
	return chainedDialer{inner: d}
}
