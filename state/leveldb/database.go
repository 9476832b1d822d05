// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package leveldb implements the cache layer's Database contract on top of
// a single syndtr/goleveldb handle, using a one-byte key prefix per table
// (spec.md §4.7) rather than separate column families.
package leveldb

import (
	"encoding/binary"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/Fantom-foundation/execstate/common"
	"github.com/Fantom-foundation/execstate/common/amount"
	"github.com/Fantom-foundation/execstate/state"
)

const (
	accountPrefix   = 'a'
	codePrefix      = 'c'
	storagePrefix   = 's'
	blockHashPrefix = 'h'
)

// Database is a state.Database backed by a single *leveldb.DB handle.
type Database struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a LevelDB database at path.
func Open(path string) (*Database, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// OpenMemory opens an in-memory LevelDB database, used by tests to keep the
// suite hermetic.
func OpenMemory() (*Database, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func accountKey(addr common.Address) []byte {
	key := make([]byte, 1+common.AddressSize)
	key[0] = accountPrefix
	copy(key[1:], addr[:])
	return key
}

func codeKey(hash common.CodeHash) []byte {
	key := make([]byte, 1+common.B256Size)
	key[0] = codePrefix
	copy(key[1:], hash[:])
	return key
}

func storageKey(addr common.Address, slot common.StorageKey) []byte {
	key := make([]byte, 1+common.AddressSize+common.StorageKeySize)
	key[0] = storagePrefix
	copy(key[1:], addr[:])
	copy(key[1+common.AddressSize:], slot[:])
	return key
}

func blockHashKey(number uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = blockHashPrefix
	binary.BigEndian.PutUint64(key[1:], number)
	return key
}

// encodeAccountInfo packs balance (32 BE bytes), nonce (8 BE bytes), and
// code hash (32 bytes) into a fixed 72-byte record. Code itself lives under
// the code table, addressed by hash.
func encodeAccountInfo(info *state.AccountInfo) []byte {
	buf := make([]byte, 72)
	balance := info.Balance.Bytes32()
	copy(buf[0:32], balance[:32])
	binary.BigEndian.PutUint64(buf[32:40], info.Nonce)
	copy(buf[40:72], info.CodeHash[:])
	return buf
}

func decodeAccountInfo(raw []byte) (*state.AccountInfo, error) {
	if len(raw) != 72 {
		return nil, errors.New("leveldb: corrupt account record")
	}
	info := &state.AccountInfo{
		Balance: amount.NewFromBytes(raw[0:32]...),
		Nonce:   binary.BigEndian.Uint64(raw[32:40]),
	}
	copy(info.CodeHash[:], raw[40:72])
	return info, nil
}

// Basic implements state.Database.
func (d *Database) Basic(addr common.Address) (*state.AccountInfo, error) {
	raw, err := d.db.Get(accountKey(addr), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeAccountInfo(raw)
}

// CodeByHash implements state.Database.
func (d *Database) CodeByHash(hash common.CodeHash) (state.Bytecode, error) {
	raw, err := d.db.Get(codeKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Storage implements state.Database.
func (d *Database) Storage(addr common.Address, key common.StorageKey) (common.StorageValue, error) {
	raw, err := d.db.Get(storageKey(addr, key), nil)
	if err == leveldb.ErrNotFound {
		return common.ZeroStorageValue, nil
	}
	if err != nil {
		return common.ZeroStorageValue, err
	}
	var v common.StorageValue
	copy(v[:], raw)
	return v, nil
}

// BlockHash implements state.Database.
func (d *Database) BlockHash(number uint64) (common.B256, error) {
	raw, err := d.db.Get(blockHashKey(number), nil)
	if err == leveldb.ErrNotFound {
		return common.B256{}, nil
	}
	if err != nil {
		return common.B256{}, err
	}
	var h common.B256
	copy(h[:], raw)
	return h, nil
}

// PutAccount writes info for addr, and its code if non-empty.
func (d *Database) PutAccount(addr common.Address, info *state.AccountInfo) error {
	if err := d.db.Put(accountKey(addr), encodeAccountInfo(info), nil); err != nil {
		return err
	}
	if len(info.Code) > 0 {
		if err := d.db.Put(codeKey(info.CodeHash), info.Code, nil); err != nil {
			return err
		}
	}
	return nil
}

// PutStorage writes a single storage slot.
func (d *Database) PutStorage(addr common.Address, key common.StorageKey, value common.StorageValue) error {
	return d.db.Put(storageKey(addr, key), value[:], nil)
}

// PutBlockHash writes a block's hash.
func (d *Database) PutBlockHash(number uint64, hash common.B256) error {
	return d.db.Put(blockHashKey(number), hash[:], nil)
}

// Flush implements common.Flusher.
func (d *Database) Flush() error {
	return nil
}

// Close implements common.FlushAndCloser.
func (d *Database) Close() error {
	return d.db.Close()
}

var _ state.Database = (*Database)(nil)
var _ common.FlushAndCloser = (*Database)(nil)
