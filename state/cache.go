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

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Fantom-foundation/execstate/common"
)

// EVMAccount is one account as committed by the VM at the end of a
// transaction: its post-state info, its touched storage slots (each
// already carrying the value as of the start of the transaction and its
// present value), and the lifecycle flags the VM observed.
type EVMAccount struct {
	Info           AccountInfo
	Storage        map[common.StorageKey]StorageSlot
	Touched        bool
	Created        bool
	SelfDestructed bool
}

// AddressTransition pairs an address with the TransitionAccount produced
// for it by a single call to ApplyEVMState.
type AddressTransition struct {
	Address common.Address
	Account TransitionAccount
}

// Cache is the read-through layer (C2): a map of address to CacheAccount
// and code hash to bytecode, backed by a Database for misses.
type Cache struct {
	accounts  map[common.Address]*CacheAccount
	contracts map[common.CodeHash]Bytecode

	db Database

	usePreloadedBundle bool
	preloadedBundle    *BundleState

	stateClearEnabled bool
}

// NewCache builds an empty Cache reading through db, with the state-clear
// rule enabled.
func NewCache(db Database) *Cache {
	return &Cache{
		accounts:          map[common.Address]*CacheAccount{},
		contracts:         map[common.CodeHash]Bytecode{},
		db:                db,
		stateClearEnabled: true,
	}
}

// enablePreloadedBundle makes the cache consult bundle for account and code
// misses before falling through to the database. Used by the Builder when
// with_bundle_prestate is configured.
func (c *Cache) enablePreloadedBundle(bundle *BundleState) {
	c.usePreloadedBundle = true
	c.preloadedBundle = bundle
}

// SetStateClearFlag toggles EIP-161 empty-touch deletion. When disabled,
// empty accounts are treated as ordinary Loaded accounts and never deleted
// by the empty-touch rule.
func (c *Cache) SetStateClearFlag(enabled bool) {
	c.stateClearEnabled = enabled
}

// Load returns the CacheAccount for addr, consulting the preloaded bundle
// (if enabled) or the database on a first miss. The returned pointer is
// owned by the cache; mutate it through the cache's own methods only.
func (c *Cache) Load(addr common.Address) (*CacheAccount, error) {
	if acc, ok := c.accounts[addr]; ok {
		return acc, nil
	}

	if c.usePreloadedBundle && c.preloadedBundle != nil {
		if b, ok := c.preloadedBundle.State[addr]; ok {
			acc := cacheAccountFromBundleAccount(b)
			if acc.Status == LoadedEmptyEIP161 && !c.stateClearEnabled {
				acc.Status = Loaded
			}
			c.accounts[addr] = &acc
			return &acc, nil
		}
	}

	info, err := c.db.Basic(addr)
	if err != nil {
		return nil, err
	}

	var acc CacheAccount
	switch {
	case info == nil:
		acc = NewLoadedNotExistingCacheAccount()
	case info.IsEmpty() && c.stateClearEnabled:
		acc = NewLoadedEmptyCacheAccount(NewPlainAccount(*info))
	default:
		acc = NewLoadedCacheAccount(NewPlainAccount(*info))
	}
	c.accounts[addr] = &acc
	return &acc, nil
}

func cacheAccountFromBundleAccount(b BundleAccount) CacheAccount {
	if b.Info == nil {
		return NewLoadedNotExistingCacheAccount()
	}
	account := NewPlainAccount(*b.Info)
	for k, v := range b.Storage {
		account.Storage[k] = v.PresentValue
	}
	if b.Info.IsEmpty() {
		return NewLoadedEmptyCacheAccount(account)
	}
	return NewLoadedCacheAccount(account)
}

// CodeByHash returns the bytecode for hash, cache-through the preloaded
// bundle (if enabled) and the database.
//
// The preloaded bundle's contracts table is consulted unconditionally on a
// code-cache miss, whether or not the account owning the code was itself
// loaded through the preload path: code is addressed by hash alone and has
// no notion of "owning account" once deployed -- there is nothing
// account-specific to gate it on.
func (c *Cache) CodeByHash(hash common.CodeHash) (Bytecode, error) {
	if code, ok := c.contracts[hash]; ok {
		return code, nil
	}
	if c.usePreloadedBundle && c.preloadedBundle != nil {
		if code, ok := c.preloadedBundle.Contracts[hash]; ok {
			c.contracts[hash] = code
			return code, nil
		}
	}
	code, err := c.db.CodeByHash(hash)
	if err != nil {
		return nil, err
	}
	if code != nil {
		c.contracts[hash] = code
	}
	return code, nil
}

// StorageAt returns the value of a storage slot. The address must already
// be loaded; calling this before Load for addr is a programmer error and
// panics (spec.md §7).
func (c *Cache) StorageAt(addr common.Address, key common.StorageKey) (common.StorageValue, error) {
	acc, ok := c.accounts[addr]
	if !ok {
		panic("state: storage read requires a previously loaded account: " + addr.String())
	}
	if acc.Account == nil {
		return common.ZeroStorageValue, nil
	}
	if v, ok := acc.Account.Storage[key]; ok {
		return v, nil
	}
	if acc.Status.IsStorageKnown() {
		return common.ZeroStorageValue, nil
	}
	v, err := c.db.Storage(addr, key)
	if err != nil {
		return common.ZeroStorageValue, err
	}
	acc.Account.Storage[key] = v
	return v, nil
}

// InsertAccount installs info for addr, bypassing the database.
func (c *Cache) InsertAccount(addr common.Address, info AccountInfo) {
	account := NewPlainAccount(info)
	c.accounts[addr] = &CacheAccount{Account: &account, Status: InMemoryChange}
}

// InsertAccountWithStorage installs info and storage for addr, bypassing the database.
func (c *Cache) InsertAccountWithStorage(addr common.Address, info AccountInfo, storage map[common.StorageKey]common.StorageValue) {
	account := PlainAccount{Info: info, Storage: storage}
	c.accounts[addr] = &CacheAccount{Account: &account, Status: InMemoryChange}
}

// InsertNotExisting marks addr as known absent, bypassing the database.
func (c *Cache) InsertNotExisting(addr common.Address) {
	c.accounts[addr] = &CacheAccount{Status: LoadedNotExisting}
}

// destroyedStatusFrom computes the resulting status of a self-destructed
// account given its status before this transaction.
func destroyedStatusFrom(prev AccountStatus) AccountStatus {
	switch prev {
	case DestroyedChanged:
		return DestroyedAgain
	case Destroyed, DestroyedAgain:
		return prev
	default:
		return Destroyed
	}
}

// createdStatusFrom computes the resulting status of a freshly created
// account given its status before this transaction.
func createdStatusFrom(prev AccountStatus) AccountStatus {
	if prev == Destroyed || prev == DestroyedAgain {
		return DestroyedChanged
	}
	return InMemoryChange
}

// modifiedStatusFrom computes the resulting status of a modified (but not
// newly created or destroyed) account given its status before this
// transaction.
func modifiedStatusFrom(prev AccountStatus) AccountStatus {
	if prev.IsCreated() {
		return prev
	}
	return Changed
}

// ApplyEVMState folds the VM's post-transaction state into the cache,
// producing one TransitionAccount per touched address (spec.md §4.2). The
// accounts map is consumed in address order for determinism; the cache
// must already have entries for every touched address (callers are
// expected to have routed every read through Load during execution).
func (c *Cache) ApplyEVMState(accounts map[common.Address]EVMAccount) []AddressTransition {
	addrs := maps.Keys(accounts)
	slices.SortFunc(addrs, func(a, b common.Address) bool { return a.Compare(&b) < 0 })

	result := make([]AddressTransition, 0, len(addrs))
	for _, addr := range addrs {
		evm := accounts[addr]

		existing := c.accounts[addr]
		previousStatus := LoadedNotExisting
		var previousInfo *AccountInfo
		if existing != nil {
			previousStatus = existing.Status
			if existing.Account != nil {
				info := existing.Account.Info
				previousInfo = &info
			}
		}

		var newStatus AccountStatus
		var newInfo *AccountInfo
		storageWasDestroyed := false

		switch {
		case evm.SelfDestructed:
			newStatus = destroyedStatusFrom(previousStatus)
			storageWasDestroyed = true
			c.accounts[addr] = &CacheAccount{Status: newStatus}

		case evm.Created:
			newStatus = createdStatusFrom(previousStatus)
			info := evm.Info
			newInfo = &info
			account := NewPlainAccount(info)
			for k, slot := range evm.Storage {
				account.Storage[k] = slot.PresentValue
			}
			c.accounts[addr] = &CacheAccount{Account: &account, Status: newStatus}

		default:
			newStatus = modifiedStatusFrom(previousStatus)
			var account PlainAccount
			if existing != nil && existing.Account != nil {
				account = PlainAccount{Info: evm.Info, Storage: maps.Clone(existing.Account.Storage)}
			} else {
				account = NewPlainAccount(evm.Info)
			}
			for k, slot := range evm.Storage {
				account.Storage[k] = slot.PresentValue
			}
			info := evm.Info
			newInfo = &info
			c.accounts[addr] = &CacheAccount{Account: &account, Status: newStatus}
		}

		if c.stateClearEnabled && evm.Touched && newInfo != nil && newInfo.IsEmpty() && !newStatus.WasDestroyed() {
			newStatus = Destroyed
			storageWasDestroyed = true
			newInfo = nil
			c.accounts[addr] = &CacheAccount{Status: newStatus}
		}

		result = append(result, AddressTransition{
			Address: addr,
			Account: TransitionAccount{
				Status:              newStatus,
				Info:                newInfo,
				PreviousStatus:      previousStatus,
				PreviousInfo:        previousInfo,
				Storage:             evm.Storage,
				StorageWasDestroyed: storageWasDestroyed,
			},
		})
	}
	return result
}
