// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"math/big"

	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
)

// NetworkHashPS estimates the network's aggregate hash rate over the last
// lastNBlocks blocks of the active chain, as chain-work delta divided by
// wall-clock delta — the same shape as the getnetworkhashps RPC verb named
// in spec.md §6.3, exposed here as the capability the core must provide
// even though the RPC server itself is out of scope. lastNBlocks <= 0 (or
// larger than the chain's height) samples the whole chain.
func (m *Manager) NetworkHashPS(lastNBlocks int32) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	height := m.chain.Height()
	if height <= 0 {
		return 0, rxerr.New(rxerr.ErrInternalConsistency, "not enough chain history to estimate hash rate")
	}
	if lastNBlocks <= 0 || lastNBlocks > height {
		lastNBlocks = height
	}

	tip, _ := m.idx.Node(m.chain.Tip())
	start, _ := m.idx.Node(m.chain.NodeAt(height - lastNBlocks))

	var workDelta primitives.Work256
	workDelta.Sub(&tip.ChainWork, &start.ChainWork)

	timeDelta := int64(tip.Header.Timestamp) - int64(start.Header.Timestamp)
	if timeDelta <= 0 {
		return 0, rxerr.New(rxerr.ErrInternalConsistency, "non-positive time delta over the sampled window")
	}

	workFloat := new(big.Float).SetInt(workDelta.ToBig())
	hashps := new(big.Float).Quo(workFloat, big.NewFloat(float64(timeDelta)))
	result, _ := hashps.Float64()
	return result, nil
}
