// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"strconv"
	"sync"
	"time"

	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chaincfg"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/chainstate"
	"github.com/rxchain-project/rxchaind/connmgr"
	"github.com/rxchain-project/rxchaind/notify"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/validate"
	"github.com/rxchain-project/rxchaind/wire"
)

// SyncTimeout is how long a sync peer may go without delivering a HEADERS
// reply before it is abandoned in favor of another candidate (spec.md
// §4.9, "stall detection").
const SyncTimeout = 60 * time.Second

// stallCheckInterval is how often the background loop looks for a stalled
// sync peer. It only needs to be a fraction of SyncTimeout.
const stallCheckInterval = 10 * time.Second

// Manager drives header sync against exactly one peer at a time: locator
// construction, GETHEADERS/HEADERS pumping, Layer-1/Layer-2 batch
// filtering ahead of chainstate, chase-mode continuation, stall detection
// and reselection, and post-activation block relay to every other ready
// peer (spec.md §4.9).
type Manager struct {
	params  *chaincfg.Params
	chain   *chainstate.Manager
	connMgr *connmgr.Manager
	hub     *notify.Hub
	limiter *headersLimiter

	mu            sync.Mutex
	syncPeer      uint64
	lastHeadersAt time.Time
	pivotTip      blockindex.NodeIndex

	// announced tracks the last tip hash pushed or advertised to each
	// peer, so a tip that hasn't moved since the last announcement isn't
	// re-sent on every activation.
	announced map[uint64]chainhash.Hash

	// unconnecting counts, per peer, how many consecutive HEADERS batches
	// opened with a header whose parent we don't know. One orphaned batch
	// is cached and retried without penalty; a peer that keeps doing it is
	// scored once the count crosses unconnectingThreshold (spec.md §4.8,
	// "the unconnecting-headers counter must not be reset to zero on
	// every successful header accept").
	unconnecting map[uint64]int

	quit chan struct{}
	wg   sync.WaitGroup
}

// unconnectingThreshold is how many consecutive non-connecting batches a
// peer may deliver before it is scored TooManyUnconnecting.
const unconnectingThreshold = 10

// New constructs a Manager. hub must be the same notify.Hub chain was
// built with, so Manager can subscribe to NewTip and drive relay off the
// same events chainstate already publishes rather than polling the chain.
func New(params *chaincfg.Params, chain *chainstate.Manager, connMgr *connmgr.Manager, hub *notify.Hub) *Manager {
	m := &Manager{
		params:    params,
		chain:     chain,
		connMgr:   connMgr,
		hub:       hub,
		limiter:      newHeadersLimiter(),
		announced:    make(map[uint64]chainhash.Hash),
		unconnecting: make(map[uint64]int),
		quit:         make(chan struct{}),
	}
	if hub != nil {
		hub.Subscribe(notify.NewTip, func(notify.Event) { m.relayTip() })
	}
	return m
}

// Run starts the stall-detection loop. It blocks until Stop is called.
func (m *Manager) Run() {
	m.wg.Add(1)
	defer m.wg.Done()
	ticker := time.NewTicker(stallCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.checkStall()
		case <-m.quit:
			return
		}
	}
}

// Stop halts the stall-detection loop and waits for it to exit.
func (m *Manager) Stop() {
	close(m.quit)
	m.wg.Wait()
}

// SyncPeerID reports the peer ID currently driving header sync, or 0 if
// none is active.
func (m *Manager) SyncPeerID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncPeer
}

// RegisterPeer tells the sync manager about a peer that has just reached
// the ready state. If no sync peer is currently active and pr is a
// plausible candidate (outbound, and claiming a tip higher than ours), it
// becomes the sync peer and is immediately sent a GETHEADERS.
func (m *Manager) RegisterPeer(pr *connmgr.PeerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.syncPeer != 0 {
		return
	}
	if m.candidateLocked(pr) {
		m.startSyncLocked(pr)
	}
}

// UnregisterPeer tells the sync manager a peer has disconnected. If it
// was the active sync peer, a replacement is selected from connMgr's
// current peer set, if any qualifies.
func (m *Manager) UnregisterPeer(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiter.forget(id)
	delete(m.announced, id)
	delete(m.unconnecting, id)
	if m.syncPeer != id {
		return
	}
	m.syncPeer = 0
	m.selectReplacementLocked(id)
}

func (m *Manager) candidateLocked(pr *connmgr.PeerRecord) bool {
	if !pr.ConnType.Outbound() || !pr.Peer.Ready() {
		return false
	}
	return pr.Peer.StartHeight() > m.chain.ActiveChain().Height()
}

// selectReplacementLocked picks the lowest-ID outbound, ready peer other
// than exclude (the sync peer being replaced) that still claims a higher
// tip than ours. Preferring the lowest ID keeps selection deterministic
// rather than depending on map iteration order.
func (m *Manager) selectReplacementLocked(exclude uint64) {
	var best *connmgr.PeerRecord
	for _, pr := range m.connMgr.Peers() {
		if pr.ID == exclude || !m.candidateLocked(pr) {
			continue
		}
		if best == nil || pr.ID < best.ID {
			best = pr
		}
	}
	if best != nil {
		m.startSyncLocked(best)
	}
}

func (m *Manager) startSyncLocked(pr *connmgr.PeerRecord) {
	m.syncPeer = pr.ID
	m.lastHeadersAt = time.Now()
	m.pivotTip = m.chain.ActiveChain().Tip()
	m.sendGetHeaders(pr)
}

// sendGetHeaders builds a fresh locator off the active chain and queues a
// GETHEADERS to pr.
func (m *Manager) sendGetHeaders(pr *connmgr.PeerRecord) {
	locator := buildLocator(m.chain.Index(), m.chain.ActiveChain())
	msg := wire.NewMsgGetHeaders()
	for i := range locator {
		msg.AddBlockLocatorHash(&locator[i])
	}
	if err := pr.Peer.QueueMessage(msg); err != nil {
		log.Warnf("sync: failed to send getheaders to peer %d: %v", pr.ID, err)
	}
}

// checkStall disconnects the current sync peer and selects a replacement
// if it has gone SyncTimeout without delivering a HEADERS reply.
func (m *Manager) checkStall() {
	m.mu.Lock()
	id := m.syncPeer
	stalled := id != 0 && time.Since(m.lastHeadersAt) >= SyncTimeout
	m.mu.Unlock()
	if !stalled {
		return
	}

	pr, ok := m.connMgr.Peer(id)
	log.Warnf("sync: peer %d stalled, reselecting", id)
	m.mu.Lock()
	if m.syncPeer == id {
		m.syncPeer = 0
		m.selectReplacementLocked(id)
	}
	m.mu.Unlock()
	// A stall disconnects the peer outright but isn't scored: a slow or
	// congested link looks identical to a deliberately silent one, and
	// spec.md treats ErrStalled as retryable rather than a misbehavior
	// category.
	if ok {
		pr.Peer.Disconnect()
	}
}

// OnGetHeaders answers a peer's GETHEADERS with up to wire.MaxHeadersPerMsg
// headers following the highest locator hash we recognize on the active
// chain, rate-limited and deduplicated per peer (spec.md §4.9). When that
// hash is genesis, or no locator hash is recognized, the reply starts at
// genesis itself.
func (m *Manager) OnGetHeaders(pr *connmgr.PeerRecord, msg *wire.MsgGetHeaders) {
	var key chainhash.Hash
	if len(msg.BlockLocatorHashes) > 0 {
		key = *msg.BlockLocatorHashes[0]
	}
	if !m.limiter.allow(pr.ID, key, time.Now()) {
		return
	}

	idx := m.chain.Index()
	chain := m.chain.ActiveChain()

	startHeight := int32(0)
	for _, hash := range msg.BlockLocatorHashes {
		if *hash == m.params.GenesisHash {
			startHeight = 0
			break
		}
		ni, ok := idx.Lookup(*hash)
		if !ok {
			continue
		}
		node, ok := idx.Node(ni)
		if !ok || !chain.Contains(ni, node.Height) {
			continue
		}
		startHeight = node.Height + 1
		break
	}

	reply := wire.NewMsgHeaders()
	for h := startHeight; h <= chain.Height(); h++ {
		ni := chain.NodeAt(h)
		if ni == blockindex.NoNode {
			break
		}
		node, ok := idx.Node(ni)
		if !ok {
			break
		}
		hdr := node.Header
		if err := reply.AddBlockHeader(&hdr); err != nil {
			break
		}
		if len(reply.Headers) >= wire.MaxHeadersPerMsg {
			break
		}
	}
	if err := pr.Peer.QueueMessage(reply); err != nil {
		log.Warnf("sync: failed to send headers to peer %d: %v", pr.ID, err)
	}
}

// OnHeaders processes a HEADERS batch from pr: Layer-1 continuity, Layer-2
// anti-DoS work, then per-header acceptance into chainstate, chase-mode
// continuation, and activation (spec.md §4.9).
func (m *Manager) OnHeaders(pr *connmgr.PeerRecord, msg *wire.MsgHeaders) {
	m.mu.Lock()
	isSyncPeer := m.syncPeer == pr.ID
	pivot := m.pivotTip
	if isSyncPeer {
		m.lastHeadersAt = time.Now()
	}
	m.mu.Unlock()

	if len(msg.Headers) == 0 {
		if isSyncPeer {
			m.mu.Lock()
			m.syncPeer = 0
			m.selectReplacementLocked(pr.ID)
			m.mu.Unlock()
		}
		return
	}

	if !headersAreContinuous(msg.Headers) {
		m.connMgr.Misbehave(pr.ID, connmgr.NonContinuousHeaders)
		if m.hub != nil {
			m.hub.Publish(notify.Event{Type: notify.InvalidHeader, Data: pr.Addr})
		}
		return
	}

	if !isSyncPeer {
		// Unsolicited push (a sendheaders tip announcement, typically a
		// single header). Feed it through the same acceptance path but
		// skip the anti-DoS batch-work gate, which only makes sense
		// against a full sync batch.
		m.acceptBatch(pr, msg.Headers, pivot)
		return
	}

	if !m.passesAntiDoSThreshold(msg.Headers) {
		m.connMgr.Misbehave(pr.ID, connmgr.LowWorkHeaders)
		if m.hub != nil {
			m.hub.Publish(notify.Event{Type: notify.LowWorkHeaders, Data: pr.Addr})
		}
		return
	}

	if !m.acceptBatch(pr, msg.Headers, pivot) {
		return
	}

	if len(msg.Headers) >= wire.MaxHeadersPerMsg {
		m.sendGetHeaders(pr)
	}
}

// headersAreContinuous reports whether each header after the first chains
// directly onto its predecessor (Layer-1, spec.md §4.9).
func headersAreContinuous(headers []*wire.BlockHeader) bool {
	for i := 1; i < len(headers); i++ {
		prevHash := headers[i-1].BlockHash()
		if headers[i].PrevBlock != prevHash {
			return false
		}
	}
	return true
}

// passesAntiDoSThreshold reports whether the batch's cumulative work, added
// to the current tip's chain work, clears validate.AntiDoSThreshold
// (Layer-2, spec.md §4.2, §4.9).
func (m *Manager) passesAntiDoSThreshold(headers []*wire.BlockHeader) bool {
	tip := m.chain.ActiveChain().Tip()
	tipNode, ok := m.chain.Index().Node(tip)
	if !ok {
		// No tip yet (pre-genesis); nothing to gate on.
		return true
	}

	var batchWork primitives.Work256
	for _, h := range headers {
		w := primitives.CalcWork(h.Bits, &m.params.PowLimit)
		batchWork.Add(&batchWork, &w)
	}

	inIBD := m.chain.InInitialBlockDownload(time.Now())
	tipBlockProof := primitives.CalcWork(tipNode.Header.Bits, &m.params.PowLimit)
	threshold := validate.AntiDoSThreshold(inIBD, tipNode.ChainWork, m.params.MinimumChainWork, tipBlockProof, m.params.AntiDoSWorkBufferBlocks)

	var projected primitives.Work256
	projected.Add(&tipNode.ChainWork, &batchWork)
	return projected.Cmp(&threshold) >= 0
}

// acceptBatch feeds every header in order through chainstate, scoring and
// stopping on the first hard failure, decaying the peer's score on every
// success, and activating the resulting best candidate once the whole
// batch has been processed. It reports whether the batch was accepted
// without a disconnecting failure.
func (m *Manager) acceptBatch(pr *connmgr.PeerRecord, headers []*wire.BlockHeader, pivot blockindex.NodeIndex) bool {
	peerKey := peerIDString(pr.ID)
	for i, h := range headers {
		_, err := m.chain.AcceptBlockHeader(*h, peerKey)
		switch {
		case err == nil:
			m.connMgr.DecayScore(pr.ID)
			if i == 0 {
				m.clearUnconnecting(pr.ID)
			}
		case rxerr.Is(err, rxerr.ErrOrphan):
			if i == 0 {
				m.noteUnconnecting(pr.ID)
			}
		case rxerr.Is(err, rxerr.ErrOrphanPoolFull):
			m.connMgr.Misbehave(pr.ID, connmgr.TooManyOrphans)
			return false
		case rxerr.Is(err, rxerr.ErrBadPoW), rxerr.Is(err, rxerr.ErrBadCommitment):
			m.connMgr.Misbehave(pr.ID, connmgr.InvalidPoW)
			return false
		case rxerr.Is(err, rxerr.ErrEpochInitThrottled):
			m.connMgr.Misbehave(pr.ID, connmgr.EpochInitThrottled)
			return false
		default:
			m.connMgr.Misbehave(pr.ID, connmgr.InvalidHeader)
			return false
		}
	}

	if err := m.chain.ActivateBestChainFrom(pivot, blockindex.NoNode); err != nil {
		log.Debugf("sync: activation from peer %d batch did not advance the tip: %v", pr.ID, err)
	}
	return true
}

// noteUnconnecting records a batch that opened with an orphaned header,
// scoring the peer once it has done this unconnectingThreshold times in a
// row without an intervening connecting batch.
func (m *Manager) noteUnconnecting(id uint64) {
	m.mu.Lock()
	m.unconnecting[id]++
	crossed := m.unconnecting[id] >= unconnectingThreshold
	if crossed {
		m.unconnecting[id] = 0
	}
	m.mu.Unlock()
	if crossed {
		m.connMgr.Misbehave(id, connmgr.TooManyUnconnecting)
	}
}

func (m *Manager) clearUnconnecting(id uint64) {
	m.mu.Lock()
	delete(m.unconnecting, id)
	m.mu.Unlock()
}

func peerIDString(id uint64) string {
	return "peer:" + strconv.FormatUint(id, 10)
}

// relayTip announces the current tip to every ready peer it has not yet
// announced that tip to, pushing a HEADERS message to peers that
// negotiated sendheaders and an INV to everyone else (spec.md §4.9,
// "Block relay"). The peer that delivered the tip is not skipped; it is
// announced to like any other.
func (m *Manager) relayTip() {
	tip := m.chain.ActiveChain().Tip()
	if tip == blockindex.NoNode {
		return
	}
	node, ok := m.chain.Index().Node(tip)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pr := range m.connMgr.Peers() {
		if !pr.Peer.Ready() {
			continue
		}
		if m.announced[pr.ID] == node.Hash {
			continue
		}
		m.announced[pr.ID] = node.Hash

		if pr.Peer.NegotiatedSendHeaders() {
			hdrs := wire.NewMsgHeaders()
			hdr := node.Header
			hdrs.AddBlockHeader(&hdr)
			if err := pr.Peer.QueueMessage(hdrs); err != nil {
				log.Debugf("sync: failed to push headers to peer %d: %v", pr.ID, err)
			}
			continue
		}

		inv := wire.NewMsgInv()
		h := node.Hash
		inv.AddInvVect(wire.NewInvVect(wire.InvTypeHeader, &h))
		if err := pr.Peer.QueueMessage(inv); err != nil {
			log.Debugf("sync: failed to announce tip to peer %d: %v", pr.ID, err)
		}
	}
}
