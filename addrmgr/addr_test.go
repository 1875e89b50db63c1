// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "addrdb")
	m, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAddAddressGoesToNewTable(t *testing.T) {
	m := openTestManager(t)
	if err := m.AddAddress("10.0.0.1:8333"); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}

	news, err := m.NewAddresses()
	if err != nil {
		t.Fatalf("NewAddresses: %v", err)
	}
	if len(news) != 1 || news[0] != "10.0.0.1:8333" {
		t.Fatalf("expected one new address, got %v", news)
	}

	tried, err := m.TriedAddresses()
	if err != nil {
		t.Fatalf("TriedAddresses: %v", err)
	}
	if len(tried) != 0 {
		t.Fatalf("expected no tried addresses yet, got %v", tried)
	}
}

func TestMarkAttemptSuccessPromotesToTried(t *testing.T) {
	m := openTestManager(t)
	if err := m.AddAddress("10.0.0.2:8333"); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	if err := m.MarkAttempt("10.0.0.2:8333", true); err != nil {
		t.Fatalf("MarkAttempt: %v", err)
	}

	tried, err := m.TriedAddresses()
	if err != nil {
		t.Fatalf("TriedAddresses: %v", err)
	}
	if len(tried) != 1 || tried[0] != "10.0.0.2:8333" {
		t.Fatalf("expected address promoted to tried, got %v", tried)
	}

	news, err := m.NewAddresses()
	if err != nil {
		t.Fatalf("NewAddresses: %v", err)
	}
	if len(news) != 0 {
		t.Fatalf("expected the address to be removed from new, got %v", news)
	}
}

func TestMarkAttemptFailureDropsAfterTenFailures(t *testing.T) {
	m := openTestManager(t)
	if err := m.AddAddress("10.0.0.3:8333"); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}

	for i := 0; i < maxFailures; i++ {
		if err := m.MarkAttempt("10.0.0.3:8333", false); err != nil {
			t.Fatalf("MarkAttempt %d: %v", i, err)
		}
	}

	news, err := m.NewAddresses()
	if err != nil {
		t.Fatalf("NewAddresses: %v", err)
	}
	if len(news) != 0 {
		t.Fatalf("expected the address to be dropped after %d failures, got %v", maxFailures, news)
	}
}

func TestListPrefixDropsStaleEntries(t *testing.T) {
	m := openTestManager(t)
	if err := m.AddAddress("10.0.0.4:8333"); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	ka, ok, err := m.get(newPrefix + "10.0.0.4:8333")
	if err != nil || !ok {
		t.Fatalf("get: %v, ok=%v", err, ok)
	}
	ka.LastSeen = time.Now().Add(-31 * 24 * time.Hour)
	if err := m.put(newPrefix+"10.0.0.4:8333", ka); err != nil {
		t.Fatalf("put: %v", err)
	}

	news, err := m.NewAddresses()
	if err != nil {
		t.Fatalf("NewAddresses: %v", err)
	}
	if len(news) != 0 {
		t.Fatalf("expected a 31-day-old entry to be dropped as stale, got %v", news)
	}
}

func TestGetAddressEmptyBook(t *testing.T) {
	m := openTestManager(t)
	_, ok, err := m.GetAddress()
	if err != nil {
		t.Fatalf("GetAddress: %v", err)
	}
	if ok {
		t.Fatal("expected GetAddress to report false on an empty address book")
	}
}

func TestIsEmpty(t *testing.T) {
	m := openTestManager(t)
	empty, err := m.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatal("expected a freshly opened address book to be empty")
	}

	if err := m.AddAddress("10.0.0.5:8333"); err != nil {
		t.Fatalf("AddAddress: %v", err)
	}
	empty, err = m.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if empty {
		t.Fatal("expected the address book to be non-empty after AddAddress")
	}
}
