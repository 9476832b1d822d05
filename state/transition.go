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
)

// RetentionMode selects how much information merge_transitions keeps.
type RetentionMode int

const (
	// RetentionNone applies transitions to the bundle's post-state without updating its revert log.
	RetentionNone RetentionMode = iota
	// RetentionReverts computes and records per-block reverts during merge.
	RetentionReverts
	// RetentionPlainState updates the bundle's post-state but records no reverts.
	RetentionPlainState
)

// TransitionState aggregates per-transaction diffs within a block (C3). A
// second transition touching an already-present address is composed with
// the existing one rather than overwriting it (spec.md §4.3).
type TransitionState struct {
	Transitions map[common.Address]TransitionAccount
}

// NewTransitionState builds an empty transition buffer.
func NewTransitionState() *TransitionState {
	return &TransitionState{Transitions: map[common.Address]TransitionAccount{}}
}

// IsEmpty reports whether no transitions have been added since the last Take.
func (t *TransitionState) IsEmpty() bool {
	return len(t.Transitions) == 0
}

// AddTransitions folds transitions into the buffer, composing with any
// existing entry for the same address.
func (t *TransitionState) AddTransitions(transitions []AddressTransition) {
	for _, at := range transitions {
		if existing, ok := t.Transitions[at.Address]; ok {
			t.Transitions[at.Address] = composeTransitionAccounts(existing, at.Account)
		} else {
			t.Transitions[at.Address] = at.Account
		}
	}
}

// Take returns the full transition map and resets the buffer to empty.
func (t *TransitionState) Take() map[common.Address]TransitionAccount {
	out := t.Transitions
	t.Transitions = map[common.Address]TransitionAccount{}
	return out
}

// composeTransitionAccounts merges a newer TransitionAccount on top of an
// older one for the same address within the same block. previous_status
// and previous_info come from the older entry (the pre-block view); status
// and info come from the newer entry (the latest post-tx view). Storage
// slots merge present values in, keeping each slot's first-seen original --
// unless the newer entry represents a destruction, in which case the
// older's pending slots are discarded outright (the wipe makes their
// captured originals moot).
func composeTransitionAccounts(older, newer TransitionAccount) TransitionAccount {
	var storage map[common.StorageKey]StorageSlot
	if newer.StorageWasDestroyed {
		storage = maps.Clone(newer.Storage)
	} else {
		storage = maps.Clone(older.Storage)
		if storage == nil {
			storage = map[common.StorageKey]StorageSlot{}
		}
		for k, slot := range newer.Storage {
			if existing, ok := storage[k]; ok {
				existing.PresentValue = slot.PresentValue
				storage[k] = existing
			} else {
				storage[k] = slot
			}
		}
	}

	return TransitionAccount{
		Status:              newer.Status,
		Info:                newer.Info,
		PreviousStatus:      older.PreviousStatus,
		PreviousInfo:        older.PreviousInfo,
		Storage:             storage,
		StorageWasDestroyed: older.StorageWasDestroyed || newer.StorageWasDestroyed,
	}
}
