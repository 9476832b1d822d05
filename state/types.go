// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state implements the read-through cache, per-transaction
// transition buffer, and block-level bundle that sit between a VM and its
// backing account database.
package state

import (
	"github.com/Fantom-foundation/execstate/common"
	"github.com/Fantom-foundation/execstate/common/amount"
)

// AccountStatus is the closed set of lifecycle states a cached account can
// be in. The presence of a PlainAccount and the status must be kept in
// lockstep (invariant 1 of the data model): a status in
// {LoadedNotExisting, Destroyed, DestroyedAgain} implies no account data.
type AccountStatus int

const (
	// LoadedNotExisting marks an address known to be absent from the database.
	LoadedNotExisting AccountStatus = iota
	// Loaded marks an account present in the database and unmodified this block.
	Loaded
	// LoadedEmptyEIP161 marks an account present but empty; deletable by the
	// state-clear rule.
	LoadedEmptyEIP161
	// InMemoryChange marks an account created or modified this block that was
	// never previously destroyed.
	InMemoryChange
	// Changed marks an account modified this block over a prior Loaded state.
	Changed
	// Destroyed marks an account self-destructed this block; its storage is wiped.
	Destroyed
	// DestroyedChanged marks an account re-created after destruction.
	DestroyedChanged
	// DestroyedAgain marks an account destroyed again after re-creation.
	DestroyedAgain
)

func (s AccountStatus) String() string {
	switch s {
	case LoadedNotExisting:
		return "LoadedNotExisting"
	case Loaded:
		return "Loaded"
	case LoadedEmptyEIP161:
		return "LoadedEmptyEIP161"
	case InMemoryChange:
		return "InMemoryChange"
	case Changed:
		return "Changed"
	case Destroyed:
		return "Destroyed"
	case DestroyedChanged:
		return "DestroyedChanged"
	case DestroyedAgain:
		return "DestroyedAgain"
	default:
		return "Unknown"
	}
}

// IsStorageKnown reports whether a storage read may return ZERO for an
// unknown slot without consulting the database (invariant 2). False only
// for Loaded, Changed, and LoadedEmptyEIP161.
func (s AccountStatus) IsStorageKnown() bool {
	switch s {
	case Loaded, Changed, LoadedEmptyEIP161:
		return false
	default:
		return true
	}
}

// IsCreated reports whether the account was (re-)created this block.
func (s AccountStatus) IsCreated() bool {
	return s == InMemoryChange || s == DestroyedChanged
}

// WasDestroyed reports whether the account's current status stems from a
// self-destruct this block.
func (s AccountStatus) WasDestroyed() bool {
	return s == Destroyed || s == DestroyedAgain
}

// HasNoAccount reports whether this status implies no PlainAccount is held.
func (s AccountStatus) HasNoAccount() bool {
	return s == LoadedNotExisting || s == Destroyed || s == DestroyedAgain
}

// Bytecode is a contract's deployed bytes. Callers must not mutate a slice
// obtained from the cache or bundle; ownership is effectively shared.
type Bytecode []byte

// AccountInfo is the account-level data the VM observes and modifies:
// balance, nonce, and a reference to its code.
type AccountInfo struct {
	Balance  amount.Amount
	Nonce    uint64
	CodeHash common.CodeHash
	Code     Bytecode
}

// NewEmptyAccountInfo returns the AccountInfo of an account with zero
// balance, zero nonce, and no code -- the EIP-161 empty account.
func NewEmptyAccountInfo() AccountInfo {
	return AccountInfo{CodeHash: common.EmptyCodeHash}
}

// IsEmpty reports whether this is the EIP-161 empty account: zero balance,
// zero nonce, and the code hash of the empty byte string.
func (a AccountInfo) IsEmpty() bool {
	return a.Balance.IsZero() && a.Nonce == 0 && a.CodeHash == common.EmptyCodeHash
}

// PlainAccount is an account's info plus its known storage slots.
type PlainAccount struct {
	Info    AccountInfo
	Storage map[common.StorageKey]common.StorageValue
}

// NewPlainAccount builds a PlainAccount with an initialized, empty storage map.
func NewPlainAccount(info AccountInfo) PlainAccount {
	return PlainAccount{Info: info, Storage: map[common.StorageKey]common.StorageValue{}}
}

// CacheAccount is the cache's per-address entry: the account data (absent
// for statuses that carry none) tagged with its lifecycle status.
type CacheAccount struct {
	Account *PlainAccount
	Status  AccountStatus
}

// NewLoadedCacheAccount builds a CacheAccount for data found non-empty in the DB.
func NewLoadedCacheAccount(account PlainAccount) CacheAccount {
	return CacheAccount{Account: &account, Status: Loaded}
}

// NewLoadedEmptyCacheAccount builds a CacheAccount for data found empty in the DB.
func NewLoadedEmptyCacheAccount(account PlainAccount) CacheAccount {
	return CacheAccount{Account: &account, Status: LoadedEmptyEIP161}
}

// NewLoadedNotExistingCacheAccount builds a CacheAccount for an address
// confirmed absent from the DB.
func NewLoadedNotExistingCacheAccount() CacheAccount {
	return CacheAccount{Status: LoadedNotExisting}
}

// StorageSlot tracks a slot's original value and its current value. For a
// transition slot the original is the value at the start of the transaction
// (or, once composed, of the block); for a bundle slot it is the value when
// the slot first entered the bundle, kept across later blocks.
type StorageSlot struct {
	OriginalValue common.StorageValue
	PresentValue  common.StorageValue
}

// Changed reports whether the slot's value differs from its original.
func (s StorageSlot) Changed() bool {
	return s.OriginalValue != s.PresentValue
}

// TransitionAccount is one transaction's effect on one account.
type TransitionAccount struct {
	Status              AccountStatus
	Info                *AccountInfo
	PreviousStatus      AccountStatus
	PreviousInfo        *AccountInfo
	Storage             map[common.StorageKey]StorageSlot
	StorageWasDestroyed bool
}

// RevertToSlotKind distinguishes restoring a value from wiping a slot outright.
type RevertToSlotKind int

const (
	// RevertToSlotValue means the slot reverts to a captured original value.
	RevertToSlotValue RevertToSlotKind = iota
	// RevertToSlotDestroyed means the slot must be wiped rather than restored.
	RevertToSlotDestroyed
)

// RevertToSlot is the revert instruction for a single storage slot.
type RevertToSlot struct {
	Kind  RevertToSlotKind
	Value common.StorageValue
}

// DestroyedRevertToSlot is the RevertToSlot that wipes a slot on revert.
func DestroyedRevertToSlot() RevertToSlot {
	return RevertToSlot{Kind: RevertToSlotDestroyed}
}

// ValueRevertToSlot is the RevertToSlot that restores a captured value on revert.
func ValueRevertToSlot(v common.StorageValue) RevertToSlot {
	return RevertToSlot{Kind: RevertToSlotValue, Value: v}
}

// AccountInfoRevertKind distinguishes the three ways an account's info can
// be reverted.
type AccountInfoRevertKind int

const (
	// DoNothing leaves the account's info untouched on revert.
	DoNothing AccountInfoRevertKind = iota
	// DeleteIt removes the account entirely on revert.
	DeleteIt
	// RevertToInfo restores a captured AccountInfo on revert.
	RevertToInfo
)

// AccountInfoRevert is the revert instruction for an account's info.
type AccountInfoRevert struct {
	Kind AccountInfoRevertKind
	Info AccountInfo
}

// AccountRevert is everything needed to undo one block's effect on one
// account: its info, its pre-block status, and per-slot storage reverts.
type AccountRevert struct {
	Info           AccountInfoRevert
	PreviousStatus AccountStatus
	Storage        map[common.StorageKey]RevertToSlot
	WipeStorage    bool
}

// IsEmptyNoOp reports whether applying this revert would be a no-op: no
// info change, no wiped storage, and no storage slots to restore.
func (r AccountRevert) IsEmptyNoOp() bool {
	return r.Info.Kind == DoNothing && !r.WipeStorage && len(r.Storage) == 0
}

// BundleAccount is the durable, block-spanning view of one address: its
// current info/storage, the info as first observed this bundle (compared
// with the current info to decide whether a block's effect collapses to a
// no-op), and its current lifecycle status.
type BundleAccount struct {
	Info         *AccountInfo
	OriginalInfo *AccountInfo
	Storage      map[common.StorageKey]StorageSlot
	Status       AccountStatus
}

// NewBundleAccount builds an empty BundleAccount with an initialized storage map.
func NewBundleAccount() BundleAccount {
	return BundleAccount{Storage: map[common.StorageKey]StorageSlot{}, Status: LoadedNotExisting}
}

// infoEqual compares two optional AccountInfo values for equality,
// including the Code slice by content rather than identity.
func infoEqual(a, b *AccountInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Balance != b.Balance || a.Nonce != b.Nonce || a.CodeHash != b.CodeHash {
		return false
	}
	if len(a.Code) != len(b.Code) {
		return false
	}
	for i := range a.Code {
		if a.Code[i] != b.Code[i] {
			return false
		}
	}
	return true
}
