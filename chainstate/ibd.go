// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"time"

	"github.com/rxchain-project/rxchaind/blockindex"
)

// maxTipAgeForSynced is how recent the active tip's timestamp must be for
// the node to consider itself caught up (spec.md §4.3, IBD flag).
const maxTipAgeForSynced = time.Hour

// InInitialBlockDownload reports whether the node should still consider
// itself in initial block download as of now. The flag is a one-way latch:
// once the conditions are met and it returns false, it returns false for
// the rest of the process's lifetime even if the tip later goes stale
// (spec.md §4.3, "Computed, then latched true on first transition to
// synced").
func (m *Manager) InInitialBlockDownload(now time.Time) bool {
	if m.ibdLatched.Load() {
		return false
	}

	m.mu.Lock()
	tip := m.chain.Tip()
	m.mu.Unlock()

	if tip == blockindex.NoNode {
		return true
	}
	node, _ := m.idx.Node(tip)

	tipTime := time.Unix(int64(node.Header.Timestamp), 0)
	synced := now.Sub(tipTime) <= maxTipAgeForSynced &&
		node.ChainWork.Cmp(&m.params.MinimumChainWork) >= 0
	if !synced {
		return true
	}

	m.ibdLatched.Store(true)
	return false
}
