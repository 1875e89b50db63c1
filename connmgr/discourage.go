// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rxchain-project/rxchaind/rxerr"
)

// banEntry is one discourage-list record, matching spec.md §6.2's ban
// list encoding (`{ip, ban_until, reason}`) even though nothing here is
// a true permanent ban: it's the same shape reused for a 24-hour
// in-memory discourage window, so a restart mid-window doesn't forget it.
type banEntry struct {
	IP       string    `json:"ip"`
	BanUntil time.Time `json:"ban_until"`
	Reason   string    `json:"reason"`
}

// discourageList tracks addresses currently serving out a
// DiscourageDuration window after crossing DiscourageThreshold. It holds
// expiry times rather than remaining durations so a save/load round trip
// across a restart keeps counting down instead of resetting the clock.
type discourageList struct {
	mu      sync.Mutex
	entries map[string]banEntry
}

func newDiscourageList() *discourageList {
	return &discourageList{entries: make(map[string]banEntry)}
}

func (d *discourageList) add(addr, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[addr] = banEntry{
		IP:       addr,
		BanUntil: time.Now().Add(DiscourageDuration),
		Reason:   reason,
	}
}

func (d *discourageList) isDiscouraged(addr string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[addr]
	if !ok {
		return false
	}
	if time.Now().After(e.BanUntil) {
		delete(d.entries, addr)
		return false
	}
	return true
}

func (d *discourageList) replace(entries []banEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	d.entries = make(map[string]banEntry, len(entries))
	for _, e := range entries {
		if e.BanUntil.After(now) {
			d.entries[e.IP] = e
		}
	}
}

func (d *discourageList) snapshot() []banEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]banEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	return out
}

func loadDiscourageFile(path string) ([]banEntry, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, rxerr.Wrap(rxerr.ErrIo, err)
	}
	var entries []banEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, rxerr.Wrap(rxerr.ErrSerialization, err)
	}
	return entries, nil
}

// saveDiscourageFile writes entries to path at mode 0600 (spec.md §6.2),
// via a tmp-file-then-rename so a crash mid-write can't leave a truncated
// file behind, matching chainstore's snapshot persistence idiom.
func saveDiscourageFile(path string, entries []banEntry) error {
	buf, err := json.Marshal(entries)
	if err != nil {
		return rxerr.Wrap(rxerr.ErrSerialization, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}
