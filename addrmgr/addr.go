// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr is the address book spec.md §4.10 describes: a tried
// table (addresses we've successfully connected to) and a new table
// (addresses only heard about), 50/50 selection between them for
// outbound dialing, staleness/failure eviction, DNS seed bootstrap, and
// feeler-driven verification of new entries.
package addrmgr

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// staleAfter and maxFailures are the eviction rules spec.md §4.10 names:
// "Stale (> 30 d) addresses and addresses with ≥ 10 failures are
// dropped."
const (
	staleAfter  = 30 * 24 * time.Hour
	maxFailures = 10
)

const (
	triedPrefix = "tried:"
	newPrefix   = "new:"
)

// knownAddr is one address book entry. It tracks just enough history to
// implement the staleness/failure eviction rule and 50/50 selection;
// anything more (subnet grouping, bucket placement) is outside what
// spec.md asks for.
type knownAddr struct {
	Addr        string    `json:"addr"`
	LastSeen    time.Time `json:"last_seen"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Failures    int       `json:"failures"`
}

func (a *knownAddr) stale(now time.Time) bool {
	return now.Sub(a.LastSeen) > staleAfter || a.Failures >= maxFailures
}

// Manager is a LevelDB-backed address book, safe for concurrent use.
type Manager struct {
	db *leveldb.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) an address book at dir.
func Open(dir string) (*Manager, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, rxerr.Wrap(rxerr.ErrIo, err)
	}
	return &Manager{db: db}, nil
}

// Close releases the underlying database handle.
func (m *Manager) Close() error {
	if err := m.db.Close(); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}

func (m *Manager) get(key string) (*knownAddr, bool, error) {
	raw, err := m.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, rxerr.Wrap(rxerr.ErrIo, err)
	}
	var ka knownAddr
	if err := json.Unmarshal(raw, &ka); err != nil {
		return nil, false, rxerr.Wrap(rxerr.ErrSerialization, err)
	}
	return &ka, true, nil
}

func (m *Manager) put(key string, ka *knownAddr) error {
	raw, err := json.Marshal(ka)
	if err != nil {
		return rxerr.Wrap(rxerr.ErrSerialization, err)
	}
	if err := m.db.Put([]byte(key), raw, nil); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}

func (m *Manager) delete(key string) error {
	if err := m.db.Delete([]byte(key), nil); err != nil && err != leveldb.ErrNotFound {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}

// AddAddress records addr as a new, unverified entry, unless it is
// already present in either table.
func (m *Manager) AddAddress(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok, err := m.get(triedPrefix + addr); err != nil {
		return err
	} else if ok {
		return nil
	}
	if _, ok, err := m.get(newPrefix + addr); err != nil {
		return err
	} else if ok {
		return nil
	}
	return m.put(newPrefix+addr, &knownAddr{Addr: addr, LastSeen: time.Now()})
}

// MarkAttempt records a connection attempt against addr, wherever it
// currently lives. A caller that doesn't know which table addr is in can
// call this unconditionally; entries in neither table are silently
// ignored.
func (m *Manager) MarkAttempt(addr string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, prefix := range [...]string{triedPrefix, newPrefix} {
		ka, ok, err := m.get(prefix + addr)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		now := time.Now()
		ka.LastAttempt = now
		if success {
			ka.Failures = 0
			ka.LastSuccess = now
			ka.LastSeen = now
			// A successful connection promotes a new-table entry into
			// tried (spec.md §4.10 implies tried == "we have connected
			// to these").
			if prefix == newPrefix {
				if err := m.delete(newPrefix + addr); err != nil {
					return err
				}
				prefix = triedPrefix
			}
		} else {
			ka.Failures++
		}
		if ka.stale(now) {
			return m.delete(prefix + addr)
		}
		return m.put(prefix+addr, ka)
	}
	return nil
}

// listPrefix returns every address currently stored under prefix,
// dropping (and deleting) any entry that has gone stale.
func (m *Manager) listPrefix(prefix string) ([]string, error) {
	now := time.Now()
	iter := m.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var addrs []string
	var toDelete []string
	for iter.Next() {
		var ka knownAddr
		if err := json.Unmarshal(iter.Value(), &ka); err != nil {
			return nil, rxerr.Wrap(rxerr.ErrSerialization, err)
		}
		if ka.stale(now) {
			toDelete = append(toDelete, string(iter.Key()))
			continue
		}
		addrs = append(addrs, ka.Addr)
	}
	if err := iter.Error(); err != nil {
		return nil, rxerr.Wrap(rxerr.ErrIo, err)
	}
	for _, key := range toDelete {
		if err := m.delete(key); err != nil {
			return nil, err
		}
	}
	return addrs, nil
}

// TriedAddresses returns every live entry in the tried table.
func (m *Manager) TriedAddresses() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPrefix(triedPrefix)
}

// NewAddresses returns every live entry in the new table.
func (m *Manager) NewAddresses() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPrefix(newPrefix)
}

// IsEmpty reports whether both tables are empty, the trigger condition
// for DNS seed bootstrap (spec.md §4.10).
func (m *Manager) IsEmpty() (bool, error) {
	tried, err := m.TriedAddresses()
	if err != nil {
		return false, err
	}
	if len(tried) > 0 {
		return false, nil
	}
	news, err := m.NewAddresses()
	if err != nil {
		return false, err
	}
	return len(news) == 0, nil
}

// GetAddress picks one address for an outbound attempt, selecting 50/50
// between the tried and new tables (spec.md §4.10). Returns ok=false if
// both tables are empty.
func (m *Manager) GetAddress() (addr string, ok bool, err error) {
	tried, err := m.TriedAddresses()
	if err != nil {
		return "", false, err
	}
	news, err := m.NewAddresses()
	if err != nil {
		return "", false, err
	}
	if len(tried) == 0 && len(news) == 0 {
		return "", false, nil
	}

	wantTried := len(tried) > 0 && (len(news) == 0 || randBool())
	pool := news
	if wantTried {
		pool = tried
	}
	if len(pool) == 0 {
		pool = tried
		if len(pool) == 0 {
			pool = news
		}
	}
	return pool[randIntn(len(pool))], true, nil
}

// GetNewAddress picks one address from the new table only, used by the
// feeler (spec.md §4.10: "pick a new address").
func (m *Manager) GetNewAddress() (addr string, ok bool, err error) {
	news, err := m.NewAddresses()
	if err != nil {
		return "", false, err
	}
	if len(news) == 0 {
		return "", false, nil
	}
	return news[randIntn(len(news))], true, nil
}

func randBool() bool { return rand.Intn(2) == 0 }

func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.Intn(n)
}
