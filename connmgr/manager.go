// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr is the peer manager spec.md §4.8 describes: admission
// under max_outbound/max_inbound caps, Bitcoin-style inbound eviction,
// misbehavior scoring feeding a 24-hour in-memory discourage list, typed
// connection roles (outbound-full-relay, block-relay-only, feeler,
// inbound), and anchor persistence across restarts. It owns no transport
// itself; callers hand it an already-handshaking *peer.Peer via AddPeer.
package connmgr

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxchain-project/rxchaind/notify"
	"github.com/rxchain-project/rxchaind/peer"
	"github.com/rxchain-project/rxchaind/rxerr"
)

// ConnType is a peer's role in the topology, named in spec.md §4.8
// "Connection types".
type ConnType int

const (
	ConnOutboundFullRelay ConnType = iota
	ConnBlockRelayOnly
	ConnFeeler
	ConnInbound
)

func (t ConnType) String() string {
	switch t {
	case ConnOutboundFullRelay:
		return "outbound-full-relay"
	case ConnBlockRelayOnly:
		return "block-relay-only"
	case ConnFeeler:
		return "feeler"
	case ConnInbound:
		return "inbound"
	default:
		return "unknown"
	}
}

// Outbound reports whether this connection type is one we dialed.
func (t ConnType) Outbound() bool { return t != ConnInbound }

// Permission is a bitmask of exemptions a peer can carry that the
// eviction and discouragement logic must respect.
type Permission uint8

const (
	// PermissionNoBan exempts a peer from misbehavior-triggered
	// discouragement and disconnection.
	PermissionNoBan Permission = 1 << iota

	// PermissionManual exempts a peer from inbound eviction (spec.md
	// §4.8, "Exclude peers with Manual/NoBan permission").
	PermissionManual
)

func (p Permission) has(flag Permission) bool { return p&flag == flag }

// PeerRecord is the peer manager's bookkeeping for one connection,
// wrapping the handshake state peer.Peer owns.
type PeerRecord struct {
	ID          uint64
	Peer        *peer.Peer
	ConnType    ConnType
	Permissions Permission
	Addr        string
	ConnectedAt time.Time

	score score
}

// Misbehaving reports the peer's current cumulative misbehavior score.
func (pr *PeerRecord) Misbehaving() int { return pr.score.value }

// evictionMaxNewest bounds how many of the most-recently-connected inbound
// peers are exempt from eviction (spec.md §4.8: "N ≤ 8, not 'everything
// under 10 seconds' which allows the rotation attack").
const evictionMaxNewest = 8

// Config configures a Manager. Every field has a sensible zero-equivalent
// default applied by New.
type Config struct {
	MaxOutbound int
	MaxInbound  int
	Hub         *notify.Hub

	// OnDiscouraged is called, with the peer's address, after every
	// Misbehave call that leaves a non-NoBan peer's score at or above
	// DiscourageThreshold. Callers use this to persist the address to the
	// on-disk discourage list.
	OnDiscouraged func(addr string)
}

func (cfg Config) maxOutbound() int {
	if cfg.MaxOutbound > 0 {
		return cfg.MaxOutbound
	}
	return 8
}

func (cfg Config) maxInbound() int {
	if cfg.MaxInbound > 0 {
		return cfg.MaxInbound
	}
	return 125
}

// Manager admits, evicts, and scores peer connections. All exported
// methods are safe for concurrent use.
type Manager struct {
	cfg Config

	mu              sync.Mutex
	peers           map[uint64]*PeerRecord
	nextID          atomic.Uint64
	discour         *discourageList
	pendingOutbound map[uint64]struct{}
}

// New constructs a Manager.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:             cfg,
		peers:           make(map[uint64]*PeerRecord),
		discour:         newDiscourageList(),
		pendingOutbound: make(map[uint64]struct{}),
	}
}

// RegisterOutboundNonce records the nonce an outbound peer.Peer generated
// for its own VERSION message, before its handshake has completed and it
// has been admitted via AddPeer. Self-connection detection needs this
// nonce available the moment it's sent, not just once the peer is fully
// up, since the self-dial's VERSION can arrive back at our own listener
// mid-handshake (spec.md §4.6, "self-connection detection").
func (m *Manager) RegisterOutboundNonce(nonce uint64) {
	m.mu.Lock()
	m.pendingOutbound[nonce] = struct{}{}
	m.mu.Unlock()
}

// ForgetOutboundNonce drops bookkeeping for a nonce once its dial has
// resolved, whether by completing the handshake or failing outright.
func (m *Manager) ForgetOutboundNonce(nonce uint64) {
	m.mu.Lock()
	delete(m.pendingOutbound, nonce)
	m.mu.Unlock()
}

// SelfConnected reports whether remoteNonce, just received in some
// connection's VERSION message, matches the nonce of one of our own
// still-pending outbound dials. A match means the connection looped back
// to this process rather than reaching a distinct peer.
func (m *Manager) SelfConnected(remoteNonce uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pendingOutbound[remoteNonce]
	return ok
}

// NextPeerID allocates the next peer ID, used by a caller constructing a
// PeerRecord before it has been admitted.
func (m *Manager) NextPeerID() uint64 { return m.nextID.Add(1) }

func (m *Manager) counts() (outbound, inbound int) {
	for _, pr := range m.peers {
		if pr.ConnType.Outbound() {
			outbound++
		} else {
			inbound++
		}
	}
	return outbound, inbound
}

// AddPeer admits pr, evicting an existing inbound connection under the
// same lock acquisition if the inbound cap has already been reached
// (spec.md §4.8: fixing the admit/evict TOCTOU race called out in §9 by
// never releasing the lock between the capacity check and the evict).
func (m *Manager) AddPeer(pr *PeerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.discour.isDiscouraged(pr.Addr) {
		return rxerr.New(rxerr.ErrIo, "peer %s is discouraged", pr.Addr)
	}

	outbound, inbound := m.counts()
	if pr.ConnType.Outbound() {
		if outbound >= m.cfg.maxOutbound() {
			return rxerr.New(rxerr.ErrIo, "outbound connection cap reached")
		}
	} else if inbound >= m.cfg.maxInbound() {
		victim := m.selectEvictionVictimLocked()
		if victim == nil {
			return rxerr.New(rxerr.ErrIo, "inbound connection cap reached, no evictable peer")
		}
		delete(m.peers, victim.ID)
		victim.Peer.Disconnect()
		log.Infof("evicted peer %d (%s) to admit %s", victim.ID, victim.Addr, pr.Addr)
	}

	pr.ConnectedAt = time.Now()
	m.peers[pr.ID] = pr
	return nil
}

// selectEvictionVictimLocked picks the inbound peer to drop to make room
// for a new one: exclude Manual/NoBan-permission peers and the newest
// evictionMaxNewest connections, then take the highest-misbehavior, then
// oldest remaining candidate (spec.md §4.8 "Eviction").
func (m *Manager) selectEvictionVictimLocked() *PeerRecord {
	var candidates []*PeerRecord
	for _, pr := range m.peers {
		if pr.ConnType.Outbound() {
			continue
		}
		if pr.Permissions.has(PermissionManual) || pr.Permissions.has(PermissionNoBan) {
			continue
		}
		candidates = append(candidates, pr)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ConnectedAt.After(candidates[j].ConnectedAt)
	})
	// Exclude the newest connections from eviction so an attacker can't
	// force churn by repeatedly reconnecting. Never exclude so many that
	// nobody is left to evict: at least one candidate always survives the
	// cut when the pool is non-empty.
	n := evictionMaxNewest
	if n > len(candidates)-1 {
		n = len(candidates) - 1
	}
	candidates = candidates[n:]

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Misbehaving() != candidates[j].Misbehaving() {
			return candidates[i].Misbehaving() > candidates[j].Misbehaving()
		}
		return candidates[i].ConnectedAt.Before(candidates[j].ConnectedAt)
	})
	return candidates[0]
}

// RemovePeer drops bookkeeping for id. It does not itself disconnect the
// peer; callers remove a record in response to peer.Peer's OnDisconnect.
func (m *Manager) RemovePeer(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pr, ok := m.peers[id]; ok {
		delete(m.peers, id)
		if m.cfg.Hub != nil {
			m.cfg.Hub.Publish(notify.Event{Type: notify.PeerDisconnected, Data: pr.Addr})
		}
	}
}

// Peer returns the record for id, if still tracked.
func (m *Manager) Peer(id uint64) (*PeerRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.peers[id]
	return pr, ok
}

// Peers returns a snapshot of every currently tracked peer.
func (m *Manager) Peers() []*PeerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*PeerRecord, 0, len(m.peers))
	for _, pr := range m.peers {
		out = append(out, pr)
	}
	return out
}

// Misbehave applies a misbehavior penalty to id's peer. If the peer
// crosses DiscourageThreshold and doesn't carry PermissionNoBan, it is
// discouraged for DiscourageDuration and disconnected.
func (m *Manager) Misbehave(id uint64, kind Misbehavior) {
	m.mu.Lock()
	pr, ok := m.peers[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	crossed := pr.score.add(kind)
	exempt := pr.Permissions.has(PermissionNoBan)
	m.mu.Unlock()

	if crossed && !exempt {
		m.discour.add(pr.Addr, string(kind))
		if m.cfg.OnDiscouraged != nil {
			m.cfg.OnDiscouraged(pr.Addr)
		}
		log.Warnf("peer %d (%s) discouraged: score %d after %s", id, pr.Addr, pr.Misbehaving(), kind)
		pr.Peer.Disconnect()
	}
}

// DecayScore is called on every successful header accept from id's peer,
// applying the slow decay spec.md §4.8 requires instead of resetting the
// unconnecting-headers counter to zero on each success.
func (m *Manager) DecayScore(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pr, ok := m.peers[id]; ok {
		pr.score.decay()
	}
}

// IsDiscouraged reports whether addr is currently serving out its
// discourage window.
func (m *Manager) IsDiscouraged(addr string) bool {
	return m.discour.isDiscouraged(addr)
}

// LoadDiscourageList seeds the in-memory discourage list from a
// previously saved file, skipping entries whose window has already
// elapsed.
func (m *Manager) LoadDiscourageList(path string) error {
	entries, err := loadDiscourageFile(path)
	if err != nil {
		return err
	}
	m.discour.replace(entries)
	return nil
}

// SaveDiscourageList persists the current discourage list to path (mode
// 0600, spec.md §6.2).
func (m *Manager) SaveDiscourageList(path string) error {
	return saveDiscourageFile(path, m.discour.snapshot())
}

// OutboundAnchorCandidates returns up to 2 currently connected
// block-relay-only outbound peers, suitable for persisting as anchors on
// shutdown (spec.md §4.8 "Anchors").
func (m *Manager) OutboundAnchorCandidates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []*PeerRecord
	for _, pr := range m.peers {
		if pr.ConnType == ConnBlockRelayOnly {
			candidates = append(candidates, pr)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ConnectedAt.Before(candidates[j].ConnectedAt)
	})

	addrs := dedupBySubnet16(peerAddrs(candidates))
	if len(addrs) > maxAnchors {
		addrs = addrs[:maxAnchors]
	}
	return addrs
}

func peerAddrs(records []*PeerRecord) []string {
	out := make([]string, len(records))
	for i, pr := range records {
		out[i] = pr.Addr
	}
	return out
}
