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

	"github.com/Fantom-foundation/execstate/common"
	"github.com/Fantom-foundation/execstate/common/amount"
)

// BlockHashHistory is the retention window for cached block hashes (invariant 3).
const BlockHashHistory = 256

// NoTransitionBufferError is returned by MergeTransitions when the state was
// built without with_bundle_update, so there is nothing to merge.
const NoTransitionBufferError = common.ConstError("state: no transition buffer configured, build with WithBundleUpdate")

// BalanceIncrement pairs an address with an unsigned balance delta for
// IncrementBalances; order matters since repeated addresses compose.
type BalanceIncrement struct {
	Address common.Address
	Delta   amount.Amount
}

// State is the façade (C5) tying the cache, transition buffer, and bundle
// together, and implementing the VM-visible database contract.
type State struct {
	cache           *Cache
	db              Database
	transitionState *TransitionState
	bundleState     *BundleState
	blockHashes     map[uint64]common.B256
}

// Basic returns the account info for addr, or nil if it does not exist.
func (s *State) Basic(addr common.Address) (*AccountInfo, error) {
	acc, err := s.cache.Load(addr)
	if err != nil {
		return nil, err
	}
	if acc.Account == nil {
		return nil, nil
	}
	info := acc.Account.Info
	return &info, nil
}

// CodeByHash returns the bytecode for hash, or nil if unknown.
func (s *State) CodeByHash(hash common.CodeHash) (Bytecode, error) {
	return s.cache.CodeByHash(hash)
}

// Storage returns the value of a storage slot. addr must already be loaded
// via Basic (or an Insert* call); violating this traps (spec.md §7).
func (s *State) Storage(addr common.Address, key common.StorageKey) (common.StorageValue, error) {
	return s.cache.StorageAt(addr, key)
}

// BlockHash returns the hash of the block at number, consulting and
// maintaining the self-pruning block-hash window (invariant 3).
func (s *State) BlockHash(number uint64) (common.B256, error) {
	if h, ok := s.blockHashes[number]; ok {
		return h, nil
	}
	h, err := s.db.BlockHash(number)
	if err != nil {
		return common.B256{}, err
	}
	s.blockHashes[number] = h
	s.pruneBlockHashes(number)
	return h, nil
}

func (s *State) pruneBlockHashes(latest uint64) {
	if latest < BlockHashHistory {
		return
	}
	floor := latest - BlockHashHistory
	for n := range s.blockHashes {
		if n < floor {
			delete(s.blockHashes, n)
		}
	}
}

// BasicRef, CodeByHashRef, StorageRef and BlockHashRef mirror their
// mutating counterparts without installing new entries into the cache or
// block-hash window (spec.md §4.5): a read that already hits the cache
// still returns the cached value, but a miss is served straight from the
// database and discarded afterwards.

func (s *State) BasicRef(addr common.Address) (*AccountInfo, error) {
	if acc, ok := s.cache.accounts[addr]; ok {
		if acc.Account == nil {
			return nil, nil
		}
		info := acc.Account.Info
		return &info, nil
	}
	return s.db.Basic(addr)
}

func (s *State) CodeByHashRef(hash common.CodeHash) (Bytecode, error) {
	if code, ok := s.cache.contracts[hash]; ok {
		return code, nil
	}
	return s.db.CodeByHash(hash)
}

func (s *State) StorageRef(addr common.Address, key common.StorageKey) (common.StorageValue, error) {
	acc, ok := s.cache.accounts[addr]
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
	return s.db.Storage(addr, key)
}

func (s *State) BlockHashRef(number uint64) (common.B256, error) {
	if h, ok := s.blockHashes[number]; ok {
		return h, nil
	}
	return s.db.BlockHash(number)
}

// Commit folds the VM's post-transaction state into the cache and, if a
// transition buffer is configured, records the resulting per-account diffs.
func (s *State) Commit(accounts map[common.Address]EVMAccount) {
	transitions := s.cache.ApplyEVMState(accounts)
	s.pushTransitions(transitions)
}

// ApplyTransition records pre-built transitions directly, bypassing the
// cache's EVM-state folding. Used when transitions are replayed rather than
// produced fresh by a VM step.
func (s *State) ApplyTransition(transitions []AddressTransition) {
	s.pushTransitions(transitions)
}

func (s *State) pushTransitions(transitions []AddressTransition) {
	if s.transitionState == nil || len(transitions) == 0 {
		return
	}
	s.transitionState.AddTransitions(transitions)
}

// MergeTransitions drains the transition buffer into the bundle, computing
// reverts per retention. Returns NoTransitionBufferError if the state was
// not built with WithBundleUpdate.
func (s *State) MergeTransitions(retention RetentionMode) error {
	if s.transitionState == nil {
		return NoTransitionBufferError
	}
	drained := s.transitionState.Take()
	s.bundleState.ApplyTransitionsAndCreateReverts(drained, retention)
	return nil
}

// TakeBundle replaces the bundle with an empty one and returns the previous contents.
func (s *State) TakeBundle() *BundleState {
	return s.bundleState.Take()
}

// BundleSizeHint returns the current bundle's SizeHint.
func (s *State) BundleSizeHint() int {
	return s.bundleState.SizeHint()
}

// InsertNotExisting marks addr as known absent, bypassing the database.
func (s *State) InsertNotExisting(addr common.Address) {
	s.cache.InsertNotExisting(addr)
}

// InsertAccount installs info for addr, bypassing the database.
func (s *State) InsertAccount(addr common.Address, info AccountInfo) {
	s.cache.InsertAccount(addr, info)
}

// InsertAccountWithStorage installs info and storage for addr, bypassing the database.
func (s *State) InsertAccountWithStorage(addr common.Address, info AccountInfo, storage map[common.StorageKey]common.StorageValue) {
	s.cache.InsertAccountWithStorage(addr, info, storage)
}

// IncrementBalances adds each delta to the addressed account's balance,
// loading (or implicitly creating an empty account for) each address and
// emitting one transition per non-zero entry. Entries are processed in
// order, so a repeated address sees the cumulative effect of earlier
// entries in the same call.
func (s *State) IncrementBalances(increments []BalanceIncrement) error {
	transitions := make([]AddressTransition, 0, len(increments))
	for _, inc := range increments {
		if inc.Delta.IsZero() {
			continue
		}
		at, err := s.applyBalanceDelta(inc.Address, func(b amount.Amount) amount.Amount {
			return amount.Add(b, inc.Delta)
		})
		if err != nil {
			return err
		}
		transitions = append(transitions, at)
	}
	s.pushTransitions(transitions)
	return nil
}

// DrainBalances loads each address, zeroes its balance, emits one
// transition per address, and returns the balances taken.
func (s *State) DrainBalances(addrs []common.Address) ([]amount.Amount, error) {
	taken := make([]amount.Amount, len(addrs))
	transitions := make([]AddressTransition, 0, len(addrs))
	for i, addr := range addrs {
		var drained amount.Amount
		at, err := s.applyBalanceDelta(addr, func(b amount.Amount) amount.Amount {
			drained = b
			return amount.New()
		})
		if err != nil {
			return nil, err
		}
		taken[i] = drained
		transitions = append(transitions, at)
	}
	s.pushTransitions(transitions)
	return taken, nil
}

// applyBalanceDelta loads addr, derives its new balance via transform, and
// installs the result in the cache, returning the TransitionAccount it
// produced. Shared by IncrementBalances and DrainBalances.
func (s *State) applyBalanceDelta(addr common.Address, transform func(amount.Amount) amount.Amount) (AddressTransition, error) {
	acc, err := s.cache.Load(addr)
	if err != nil {
		return AddressTransition{}, err
	}

	previousStatus := acc.Status
	var previousInfo *AccountInfo
	info := NewEmptyAccountInfo()
	if acc.Account != nil {
		previousInfo = &acc.Account.Info
		info = acc.Account.Info
	}
	info.Balance = transform(info.Balance)

	var newStatus AccountStatus
	var account PlainAccount
	if acc.Account != nil {
		account = PlainAccount{Info: info, Storage: maps.Clone(acc.Account.Storage)}
		newStatus = modifiedStatusFrom(previousStatus)
	} else {
		account = NewPlainAccount(info)
		newStatus = createdStatusFrom(previousStatus)
	}
	s.cache.accounts[addr] = &CacheAccount{Account: &account, Status: newStatus}

	return AddressTransition{
		Address: addr,
		Account: TransitionAccount{
			Status:         newStatus,
			Info:           &info,
			PreviousStatus: previousStatus,
			PreviousInfo:   previousInfo,
		},
	}, nil
}

// GetMemoryFootprint approximates the memory used by this state's cache and bundle.
func (s *State) GetMemoryFootprint() *common.MemoryFootprint {
	footprint := common.NewMemoryFootprint(0)
	footprint.AddChild("cacheAccounts", common.NewMemoryFootprint(uintptr(len(s.cache.accounts))*64))
	footprint.AddChild("cacheContracts", common.NewMemoryFootprint(uintptr(len(s.cache.contracts))*32))
	footprint.AddChild("bundleAccounts", common.NewMemoryFootprint(uintptr(len(s.bundleState.State))*64))
	return footprint
}

// Flush flushes the backing database, if it supports flushing.
func (s *State) Flush() error {
	if f, ok := s.db.(common.Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and closes the backing database, if it supports it.
func (s *State) Close() error {
	if c, ok := s.db.(common.FlushAndCloser); ok {
		if err := c.Flush(); err != nil {
			return err
		}
		return c.Close()
	}
	return nil
}
