// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"github.com/rxchain-project/rxchaind/blockindex"
	"github.com/rxchain-project/rxchaind/wire"
)

// NewTipData is the Data payload of a notify.NewTip event.
type NewTipData struct {
	Node   blockindex.NodeIndex
	Height int32
}

// ReorgData is the Data payload of a notify.Reorg event.
type ReorgData struct {
	OldTip     blockindex.NodeIndex
	NewTip     blockindex.NodeIndex
	ForkHeight int32
}

// BlockEventData is the Data payload of notify.BlockConnected and
// notify.BlockDisconnected events.
type BlockEventData struct {
	Header wire.BlockHeader
	Node   blockindex.NodeIndex
}

// SuspiciousReorgData is the Data payload of a notify.SuspiciousReorg
// event.
type SuspiciousReorgData struct {
	Depth      int32
	AllowedMax int32
}
