// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"testing"
	"time"
)

func TestInInitialBlockDownload(t *testing.T) {
	m, params := newTestManager(t)

	genesisTime := time.Unix(int64(params.GenesisHeader.Timestamp), 0)

	// Genesis is ancient relative to the real clock, so the node should
	// still consider itself in IBD.
	if !m.InInitialBlockDownload(time.Now()) {
		t.Fatal("expected IBD to be true while the tip is far behind real time")
	}

	// Once asked with a reference time close to the tip's own timestamp,
	// the tip reads as recent and the flag clears.
	if m.InInitialBlockDownload(genesisTime.Add(time.Minute)) {
		t.Fatal("expected IBD to clear once queried with a reference time close to the tip")
	}
}

func TestInInitialBlockDownloadLatchesPermanently(t *testing.T) {
	m, params := newTestManager(t)
	genesisTime := time.Unix(int64(params.GenesisHeader.Timestamp), 0)

	if m.InInitialBlockDownload(genesisTime) {
		t.Fatal("expected IBD to clear once the reference time matches the tip's own timestamp")
	}

	// Even a reference time far in the future (which would otherwise make
	// the tip look stale again) must not re-trigger IBD once latched.
	if m.InInitialBlockDownload(genesisTime.Add(24 * time.Hour)) {
		t.Fatal("expected the IBD latch to stay cleared even once the tip goes stale again")
	}
}
