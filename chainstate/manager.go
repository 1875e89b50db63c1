// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstate ties together the block index, the candidate set, the
// orphan pool and the validation layers into the single operation a peer's
// headers ultimately drive: "does this extend a chain worth activating"
// (spec.md §4.3). Every mutation is serialized by one non-reentrant lock;
// where the source relies on re-entering its own locked entry point to
// drain the orphan pool, this package instead threads an explicit,
// already-locked internal path through orphan.Pool's iterative Unlock
// (spec.md §9, "re-architecting source patterns").
package chainstate

import (
	"sync"
	"sync/atomic"

	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/chaincfg"
	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/notify"
	"github.com/rxchain-project/rxchaind/orphan"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/randomx"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/validate"
	"github.com/rxchain-project/rxchaind/wire"
)

// Manager owns the consensus core: the block index, the active chain, the
// candidate set and the orphan pool, plus everything derived from them
// (best header, IBD latch). All public methods serialize through mu.
type Manager struct {
	params *chaincfg.Params
	engine *randomx.Engine
	hub    *notify.Hub

	idx        *blockindex.Index
	chain      *blockindex.ActiveChain
	candidates *blockindex.CandidateSet
	orphans    *orphan.Pool

	// SuspiciousReorgDepth bounds how deep a reorg ActivateBestChain will
	// accept before refusing and emitting SuspiciousReorg (spec.md §4.3
	// step 3).
	SuspiciousReorgDepth int32

	mu         sync.Mutex
	bestHeader blockindex.NodeIndex

	ibdLatched atomic.Bool
}

// NewManager returns a Manager with an empty block index. Callers must call
// Initialize with the network's genesis header before accepting any other
// header.
func NewManager(params *chaincfg.Params, engine *randomx.Engine, hub *notify.Hub, suspiciousReorgDepth int32) *Manager {
	idx := blockindex.NewIndex()
	return &Manager{
		params:                params,
		engine:                engine,
		hub:                   hub,
		idx:                   idx,
		chain:                 blockindex.NewActiveChain(),
		candidates:            blockindex.NewCandidateSet(idx),
		orphans:               orphan.NewPool(orphan.DefaultGlobalCap, orphan.DefaultPerPeerCap),
		SuspiciousReorgDepth:  suspiciousReorgDepth,
		bestHeader:            blockindex.NoNode,
	}
}

// Index returns the manager's underlying block index, for read-only
// inspection by callers such as chainstore.Save or the sync manager.
func (m *Manager) Index() *blockindex.Index { return m.idx }

// ActiveChain returns the manager's underlying active chain vector.
func (m *Manager) ActiveChain() *blockindex.ActiveChain { return m.chain }

// BestHeader returns the most-worked header ever accepted, whether or not
// it is on the active chain.
func (m *Manager) BestHeader() blockindex.NodeIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bestHeader
}

// Initialize seeds the index with the network's genesis header. It is the
// only path genesis may enter the index through; AcceptBlockHeader refuses
// any header with a null PrevBlock outright (spec.md §4.3 step 3, §9).
// Calling it a second time is a no-op returning the existing genesis node.
func (m *Manager) Initialize(genesis wire.BlockHeader) (blockindex.NodeIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := genesis.BlockHash()
	if hash != m.params.GenesisHash {
		return blockindex.NoNode, rxerr.New(rxerr.ErrBadGenesis,
			"genesis hash %s does not match consensus genesis %s", hash, m.params.GenesisHash)
	}
	if ni, ok := m.idx.Lookup(hash); ok {
		return ni, nil
	}

	work := primitives.CalcWork(genesis.Bits, &m.params.PowLimit)
	ni := m.idx.AddGenesis(genesis, work)
	m.idx.SetStatus(ni, blockindex.StatusValidHeader)
	m.idx.SetStatus(ni, blockindex.StatusValidTree)
	m.chain.Extend(ni)
	m.candidates.Add(ni)
	m.bestHeader = ni
	return ni, nil
}

// AcceptBlockHeader runs header through every validation layer and, if it
// passes, inserts it into the block index as a new candidate tip. It does
// not itself activate the header onto the active chain — callers (the sync
// manager, tests) call ActivateBestChain once they are ready to, typically
// after a whole batch has been accepted (spec.md §4.3).
func (m *Manager) AcceptBlockHeader(header wire.BlockHeader, peerID string) (blockindex.NodeIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acceptLocked(header, peerID)
}

func (m *Manager) acceptLocked(header wire.BlockHeader, peerID string) (blockindex.NodeIndex, error) {
	hash := header.BlockHash()

	// 1. Duplicate.
	if ni, ok := m.idx.Lookup(hash); ok {
		n, _ := m.idx.Node(ni)
		if n.Invalid() {
			return blockindex.NoNode, rxerr.New(rxerr.ErrInvalidHeader, "header %s is already marked failed", hash)
		}
		return ni, nil
	}

	// 2. Pre-check: COMMITMENT_ONLY PoW.
	if err := validate.ContextFree(&header, &m.params.PowLimit, m.engine, randomx.ModeCommitmentOnly); err != nil {
		return blockindex.NoNode, err
	}

	// 3. Genesis clause: never accepted through this path.
	var zero chainhash.Hash
	if header.PrevBlock == zero {
		return blockindex.NoNode, rxerr.New(rxerr.ErrBadGenesis,
			"genesis headers may only be submitted through Initialize")
	}

	// 4. Parent lookup.
	parentIdx, ok := m.idx.Lookup(header.PrevBlock)
	if !ok {
		if err := m.orphans.Add(header, peerID); err != nil {
			return blockindex.NoNode, rxerr.New(rxerr.ErrOrphanPoolFull, "orphan pool full, dropping header %s", hash)
		}
		return blockindex.NoNode, rxerr.New(rxerr.ErrOrphan, "parent %s of %s is not yet known", header.PrevBlock, hash)
	}

	// 5. Reject if parent is known-failed. No FAILED_CHILD cascade runs
	// here: header is rejected before a node for it ever exists, so there
	// is no child to mark. The cascade over already-indexed descendants
	// is InvalidateBlock's job.
	parent, _ := m.idx.Node(parentIdx)
	if parent.Invalid() {
		return blockindex.NoNode, rxerr.New(rxerr.ErrBadPrevBlock, "parent %s of %s is known invalid", header.PrevBlock, hash)
	}

	// 6. Create the index node.
	blockWork := primitives.CalcWork(header.Bits, &m.params.PowLimit)
	var chainWork primitives.Work256
	chainWork.Add(&parent.ChainWork, &blockWork)
	ni := m.idx.AddNode(parentIdx, header, chainWork)

	// 7. Contextual checks.
	requiredBits, err := m.computeRequiredBits(parentIdx)
	if err != nil {
		m.idx.SetStatus(ni, blockindex.StatusFailedValid)
		return ni, err
	}
	parentMTP, err := m.idx.CalcPastMedianTime(parentIdx)
	if err != nil {
		m.idx.SetStatus(ni, blockindex.StatusFailedValid)
		return ni, err
	}
	contextual := validate.Contextual{
		ParentMedianTime:   parentMTP,
		AdjustedTime:       now(),
		MaxFutureBlockTime: m.params.MaxFutureBlockTime,
		RequiredBits:       requiredBits,
		ParentHeight:       parent.Height,
		ExpirationHeight:   m.params.NetworkExpirationHeight,
	}
	if err := validate.Check(&header, contextual); err != nil {
		m.idx.SetStatus(ni, blockindex.StatusFailedValid)
		return ni, err
	}

	// 8. FULL-mode PoW.
	target, ok := primitives.CompactToWork(header.Bits, &m.params.PowLimit)
	if !ok {
		m.idx.SetStatus(ni, blockindex.StatusFailedValid)
		return ni, rxerr.New(rxerr.ErrBadDiffBits, "bits 0x%08x do not decode to a valid target", header.Bits)
	}
	verified, err := m.engine.VerifyFull(&header, &target, peerID, now())
	if err != nil {
		m.idx.SetStatus(ni, blockindex.StatusFailedValid)
		return ni, err
	}
	if !verified {
		m.idx.SetStatus(ni, blockindex.StatusFailedValid)
		return ni, rxerr.New(rxerr.ErrBadCommitment, "randomx hash for %s does not satisfy target", hash)
	}

	// 9. Raise status; update best header.
	m.idx.SetStatus(ni, blockindex.StatusValidTree)
	if m.bestHeader == blockindex.NoNode {
		m.bestHeader = ni
	} else {
		best, _ := m.idx.Node(m.bestHeader)
		if chainWork.Cmp(&best.ChainWork) > 0 {
			m.bestHeader = ni
		}
	}

	// 10. Register as a candidate tip; the parent is no longer a leaf.
	m.candidates.Add(ni)
	m.candidates.Remove(parentIdx)

	// 11. Unlock any orphans parented on this header, iteratively.
	m.processOrphansLocked(hash)

	return ni, nil
}

// processOrphansLocked feeds every orphan transitively parented on hash
// back through acceptLocked, using orphan.Pool's iterative work queue
// rather than recursion so an arbitrarily long orphan chain never grows
// this call's stack (spec.md §4.3 step 11, §9).
func (m *Manager) processOrphansLocked(hash chainhash.Hash) {
	m.orphans.Unlock(hash, func(header wire.BlockHeader) (chainhash.Hash, bool) {
		ni, err := m.acceptLocked(header, "")
		if err != nil {
			return chainhash.Hash{}, false
		}
		n, _ := m.idx.Node(ni)
		return n.Hash, true
	})
}

// RequiredBits reports the difficulty bits a header extending parentIdx
// must carry. Callers building a header to submit (miners, netsync mining
// a test fixture) need this without re-deriving the ASERT schedule
// themselves.
func (m *Manager) RequiredBits(parentIdx blockindex.NodeIndex) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computeRequiredBits(parentIdx)
}

// computeRequiredBits runs the ASERT retarget for the block extending
// parentIdx, anchored at the consensus-configured anchor height. When the
// anchor is the genesis node (height 0, no parent of its own), the
// anchor's own timestamp stands in for its missing parent's as the
// schedule's time origin — there is no earlier header to take it from.
func (m *Manager) computeRequiredBits(parentIdx blockindex.NodeIndex) (uint32, error) {
	parent, ok := m.idx.Node(parentIdx)
	if !ok {
		return 0, rxerr.New(rxerr.ErrInternalConsistency, "unknown parent node %d", parentIdx)
	}

	anchorIdx := m.idx.Ancestor(parentIdx, m.params.ASERTAnchorHeight)
	if anchorIdx == blockindex.NoNode {
		return 0, rxerr.New(rxerr.ErrInternalConsistency,
			"asert anchor height %d is not reachable from parent at height %d", m.params.ASERTAnchorHeight, parent.Height)
	}
	anchorNode, _ := m.idx.Node(anchorIdx)

	anchorParentTime := int64(anchorNode.Header.Timestamp)
	if anchorNode.Parent != blockindex.NoNode {
		anchorParent, _ := m.idx.Node(anchorNode.Parent)
		anchorParentTime = int64(anchorParent.Header.Timestamp)
	}

	anchor := randomx.Anchor{
		Bits:            anchorNode.Header.Bits,
		Height:          anchorNode.Height,
		ParentTimestamp: anchorParentTime,
	}
	return randomx.NextDifficulty(anchor, parent.Height, int64(parent.Header.Timestamp),
		m.params.PowTargetSpacing, m.params.ASERTHalfLife, &m.params.PowLimit)
}
