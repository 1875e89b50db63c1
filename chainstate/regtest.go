// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/primitives"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/rxchain-project/rxchaind/wire"
)

// GenerateTestHeaders mines and activates n headers on top of the current
// tip using Manager's own engine, varying only the nonce until the
// commitment satisfies the required target. It stands in for the
// generate(n)-shaped RPC verb a full node would expose, without pulling in
// the genesis-mining utility or a real RandomX dataset — callers must only
// use this against chaincfg.RegNetParams, whose trivial PoW limit makes the
// search fast (spec.md §D.4). It is not reachable from any production entry
// point.
func (m *Manager) GenerateTestHeaders(n int) ([]blockindex.NodeIndex, error) {
	out := make([]blockindex.NodeIndex, 0, n)

	for i := 0; i < n; i++ {
		m.mu.Lock()
		tipIdx := m.chain.Tip()
		if tipIdx == blockindex.NoNode {
			m.mu.Unlock()
			return nil, rxerr.New(rxerr.ErrInternalConsistency, "chain must be initialized before generating test headers")
		}
		parent, _ := m.idx.Node(tipIdx)
		bits, err := m.computeRequiredBits(tipIdx)
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}

		header := wire.BlockHeader{
			Version:   parent.Header.Version,
			PrevBlock: parent.Hash,
			Timestamp: parent.Header.Timestamp + uint32(m.params.PowTargetSpacing),
			Bits:      bits,
		}

		for nonce := uint32(0); ; nonce++ {
			header.Nonce = nonce
			hash, err := m.engine.Mine(&header)
			if err != nil {
				return nil, err
			}
			header.RandomXHash = hash
			if primitives.CheckProofOfWork(&hash, header.Bits, &m.params.PowLimit) {
				break
			}
		}

		ni, err := m.AcceptBlockHeader(header, "regtest")
		if err != nil {
			return nil, err
		}
		if err := m.ActivateBestChain(blockindex.NoNode); err != nil {
			return nil, err
		}
		out = append(out, ni)
	}

	return out, nil
}
