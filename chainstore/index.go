// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"encoding/binary"

	"github.com/rxchain-project/rxchaind/chainhash"
	"github.com/rxchain-project/rxchaind/rxerr"
	"github.com/syndtr/goleveldb/leveldb"
)

// HeightIndex is a LevelDB-backed hash -> height map. It exists purely as
// an acceleration structure: the authoritative state is the in-memory
// arena and its JSON snapshot, but at the ~10^7-header scale a cold start
// that only needs "does this hash exist, and at what height" shouldn't
// have to parse the entire snapshot file first.
type HeightIndex struct {
	db *leveldb.DB
}

// OpenHeightIndex opens (creating if necessary) a LevelDB database at dir.
func OpenHeightIndex(dir string) (*HeightIndex, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, rxerr.Wrap(rxerr.ErrIo, err)
	}
	return &HeightIndex{db: db}, nil
}

// Close releases the underlying database handle.
func (h *HeightIndex) Close() error {
	if err := h.db.Close(); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}

// Put records hash's height, overwriting any prior entry.
func (h *HeightIndex) Put(hash chainhash.Hash, height int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(height))
	if err := h.db.Put(hash[:], buf[:], nil); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}

// Get returns the height recorded for hash, or ok=false if it is not
// present.
func (h *HeightIndex) Get(hash chainhash.Hash) (height int32, ok bool, err error) {
	val, getErr := h.db.Get(hash[:], nil)
	if getErr == leveldb.ErrNotFound {
		return 0, false, nil
	}
	if getErr != nil {
		return 0, false, rxerr.Wrap(rxerr.ErrIo, getErr)
	}
	return int32(binary.LittleEndian.Uint32(val)), true, nil
}

// Delete removes hash's entry, if present.
func (h *HeightIndex) Delete(hash chainhash.Hash) error {
	if err := h.db.Delete(hash[:], nil); err != nil && err != leveldb.ErrNotFound {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}
