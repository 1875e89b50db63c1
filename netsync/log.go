// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package netsync is the header sync orchestrator spec.md §4.9 describes:
// single sync-peer selection, GETHEADERS/HEADERS pumping with stall
// detection and chase-mode continuation, reorg-depth tracking against a
// pre-batch pivot tip, and post-activation block relay. The name follows
// the dcrd/btcd family's own convention for this exact component.
package netsync

import "github.com/decred/slog"

// log is the package-wide logger; it starts disabled so importers that
// never call UseLogger pay no logging cost.
var log = slog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger slog.Logger) {
	log = logger
}
