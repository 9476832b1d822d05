// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

//go:generate mockgen -source database.go -destination mock_database.go -package state

import (
	"github.com/Fantom-foundation/execstate/common"
)

// Database is the four-operation contract the cache reads through. All
// operations are fallible; errors are surfaced verbatim to the façade's
// caller (see SPEC_FULL.md §7) with no retry or wrapping. A nil AccountInfo
// or Bytecode with a nil error means the entry is absent, mirroring the
// Option-returning contract of the source spec.
type Database interface {
	// Basic returns the account info for addr, or nil if the address is
	// unknown to the database.
	Basic(addr common.Address) (*AccountInfo, error)

	// CodeByHash returns the bytecode for the given hash, or nil if unknown.
	CodeByHash(hash common.CodeHash) (Bytecode, error)

	// Storage returns the value of a storage slot. Unset slots read as the
	// zero value with no error.
	Storage(addr common.Address, key common.StorageKey) (common.StorageValue, error)

	// BlockHash returns the hash of the block at the given number.
	BlockHash(number uint64) (common.B256, error)
}

// EmptyDatabase is a Database with no accounts, code, or block hashes. It is
// the default backing store a Builder produces when none is configured.
type EmptyDatabase struct{}

func (EmptyDatabase) Basic(common.Address) (*AccountInfo, error)             { return nil, nil }
func (EmptyDatabase) CodeByHash(common.CodeHash) (Bytecode, error)           { return nil, nil }
func (EmptyDatabase) Storage(common.Address, common.StorageKey) (common.StorageValue, error) {
	return common.ZeroStorageValue, nil
}
func (EmptyDatabase) BlockHash(uint64) (common.B256, error) { return common.B256{}, nil }
