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

// AddressRevert pairs an address with the AccountRevert that undoes its
// portion of a single block.
type AddressRevert struct {
	Address common.Address
	Revert  AccountRevert
}

// BundleState is the durable, block-spanning accumulation of state changes
// (C4): the current per-address view, a deduplicated contract table, and an
// ordered sequence of per-block revert sets produced by merge_transitions.
type BundleState struct {
	State     map[common.Address]BundleAccount
	Contracts map[common.CodeHash]Bytecode
	Reverts   [][]AddressRevert
}

// NewBundleState builds an empty bundle.
func NewBundleState() *BundleState {
	return &BundleState{
		State:     map[common.Address]BundleAccount{},
		Contracts: map[common.CodeHash]Bytecode{},
	}
}

// SizeHint returns the cumulative count of state entries and reverts, a
// cheap proxy for how large take()ing the bundle would be.
func (b *BundleState) SizeHint() int {
	reverts := 0
	for _, block := range b.Reverts {
		reverts += len(block)
	}
	return len(b.State) + reverts
}

// Take replaces the bundle with an empty one and returns the previous contents.
func (b *BundleState) Take() *BundleState {
	taken := &BundleState{State: b.State, Contracts: b.Contracts, Reverts: b.Reverts}
	b.State = map[common.Address]BundleAccount{}
	b.Contracts = map[common.CodeHash]Bytecode{}
	b.Reverts = nil
	return taken
}

// SortRevertsByAddress returns a copy of a per-block revert vector sorted by
// address. ApplyTransitionsAndCreateReverts already records each block's
// reverts in ascending address order; the order in which transitions were
// applied within the block is not kept.
func SortRevertsByAddress(block []AddressRevert) []AddressRevert {
	sorted := append([]AddressRevert(nil), block...)
	slices.SortFunc(sorted, func(a, b AddressRevert) bool {
		return a.Address.Compare(&b.Address) < 0
	})
	return sorted
}

// ApplyTransitionsAndCreateReverts merges one block's drained transitions
// into the bundle (spec.md §4.4), appending a new per-block revert vector
// to b.Reverts when retention is RetentionReverts. Addresses are processed,
// and their reverts recorded, in ascending address order.
func (b *BundleState) ApplyTransitionsAndCreateReverts(transitions map[common.Address]TransitionAccount, retention RetentionMode) {
	addrs := maps.Keys(transitions)
	slices.SortFunc(addrs, func(a, c common.Address) bool { return a.Compare(&c) < 0 })

	blockReverts := make([]AddressRevert, 0, len(addrs))

	for _, addr := range addrs {
		t := transitions[addr]
		account, exists := b.State[addr]
		if !exists {
			account = NewBundleAccount()
		}

		infoRevert := computeInfoRevert(t)
		wipeStorage := t.StorageWasDestroyed

		if !exists {
			account.OriginalInfo = t.PreviousInfo
		}
		if wipeStorage {
			account.Storage = map[common.StorageKey]StorageSlot{}
		}

		// Each slot's revert must restore the value as of the *start of this
		// block*, not the bundle's all-time original: a slot already present
		// in account.Storage was captured by an earlier block's merge, and
		// its PresentValue there is exactly this block's starting value.
		// Only a slot genuinely new to the bundle falls back to the
		// transition's own OriginalValue.
		storageRevert := map[common.StorageKey]RevertToSlot{}
		for key, slot := range t.Storage {
			if !slot.Changed() {
				continue
			}
			if existing, known := account.Storage[key]; known {
				storageRevert[key] = ValueRevertToSlot(existing.PresentValue)
				existing.PresentValue = slot.PresentValue
				account.Storage[key] = existing
			} else if wipeStorage {
				storageRevert[key] = DestroyedRevertToSlot()
				account.Storage[key] = slot
			} else {
				storageRevert[key] = ValueRevertToSlot(slot.OriginalValue)
				account.Storage[key] = slot
			}
		}

		account.Status = t.Status
		account.Info = t.Info
		if t.Info != nil && t.Info.CodeHash != common.EmptyCodeHash && len(t.Info.Code) > 0 {
			b.Contracts[t.Info.CodeHash] = t.Info.Code
		}
		b.State[addr] = account

		revert := AccountRevert{
			Info:           infoRevert,
			PreviousStatus: t.PreviousStatus,
			Storage:        storageRevert,
			WipeStorage:    wipeStorage,
		}

		if collapses(account, revert) {
			continue
		}
		blockReverts = append(blockReverts, AddressRevert{Address: addr, Revert: revert})
	}

	if retention == RetentionReverts {
		b.Reverts = append(b.Reverts, blockReverts)
	}
}

// computeInfoRevert decides how to undo this block's effect on an
// account's info (spec.md §4.4(b)). t.PreviousInfo is always the value as of
// the start of this block, so the decision depends only on this block's
// transition -- never on the bundle's all-time OriginalInfo, which would
// make every block after the first fall through to DoNothing.
func computeInfoRevert(t TransitionAccount) AccountInfoRevert {
	switch {
	case t.PreviousStatus == LoadedNotExisting:
		return AccountInfoRevert{Kind: DeleteIt}
	case t.PreviousInfo == nil:
		return AccountInfoRevert{Kind: DeleteIt}
	case infoEqual(t.PreviousInfo, t.Info):
		return AccountInfoRevert{Kind: DoNothing}
	default:
		return AccountInfoRevert{Kind: RevertToInfo, Info: *t.PreviousInfo}
	}
}

// collapses reports whether this block's net effect on account is a no-op:
// its info is unchanged from the bundle's originally captured value, and no
// storage slot actually changed this block (spec.md §4.4(f), testable
// property 2). This is an equality check on the merged result, independent
// of what computeInfoRevert would otherwise produce -- a created-then-
// destroyed account within one block collapses even though its individual
// info revert resolves to DeleteIt, because info after (None) still equals
// info before (None).
func collapses(account BundleAccount, revert AccountRevert) bool {
	return infoEqual(account.Info, account.OriginalInfo) && len(revert.Storage) == 0 && !revert.WipeStorage
}
