// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"path/filepath"
	"testing"

	"github.com/rxchain-project/rxchaind/chainhash"
)

func TestHeightIndexPutGetDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "heightidx")
	idx, err := OpenHeightIndex(dir)
	if err != nil {
		t.Fatalf("OpenHeightIndex failed: %v", err)
	}
	defer idx.Close()

	var hash chainhash.Hash
	hash[0] = 0x42

	if _, ok, err := idx.Get(hash); err != nil || ok {
		t.Fatalf("expected miss on empty index, got ok=%v err=%v", ok, err)
	}

	if err := idx.Put(hash, 1234); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	height, ok, err := idx.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || height != 1234 {
		t.Fatalf("expected (1234, true), got (%d, %v)", height, ok)
	}

	if err := idx.Delete(hash); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, err := idx.Get(hash); err != nil || ok {
		t.Fatalf("expected miss after delete, got ok=%v err=%v", ok, err)
	}
}

func TestHeightIndexOverwrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "heightidx")
	idx, err := OpenHeightIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	var hash chainhash.Hash
	hash[0] = 0x01

	if err := idx.Put(hash, 1); err != nil {
		t.Fatal(err)
	}
	if err := idx.Put(hash, 2); err != nil {
		t.Fatal(err)
	}

	height, ok, err := idx.Get(hash)
	if err != nil || !ok || height != 2 {
		t.Fatalf("expected overwritten height 2, got (%d, %v, %v)", height, ok, err)
	}
}
