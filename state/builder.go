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

import "github.com/Fantom-foundation/execstate/common"

// Builder is the sole constructor for State (C6). A zero-value Builder,
// assembled through chained With* calls and terminated by Build, yields an
// empty-DB state with no transition buffer and state-clear enabled.
type Builder struct {
	db                 Database
	bundlePrestate     *BundleState
	usePreloadedBundle bool
	withTransitions    bool
	withoutStateClear  bool
	blockHashes        map[uint64]common.B256
}

// NewBuilder starts a fresh configuration.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithDatabase configures the backing database. Without a call to this,
// Build uses EmptyDatabase.
func (b *Builder) WithDatabase(db Database) *Builder {
	b.db = db
	return b
}

// WithBundlePrestate seeds the bundle with an existing BundleState and
// enables reading through it for cache misses ahead of the database.
func (b *Builder) WithBundlePrestate(bundle *BundleState) *Builder {
	b.bundlePrestate = bundle
	b.usePreloadedBundle = true
	return b
}

// WithBundleUpdate allocates an empty transition buffer so that Commits
// accumulate transitions until MergeTransitions is called.
func (b *Builder) WithBundleUpdate() *Builder {
	b.withTransitions = true
	return b
}

// WithoutStateClear disables EIP-161 empty-touch deletion.
func (b *Builder) WithoutStateClear() *Builder {
	b.withoutStateClear = true
	return b
}

// WithBlockHashes seeds the block-hash window.
func (b *Builder) WithBlockHashes(hashes map[uint64]common.B256) *Builder {
	b.blockHashes = hashes
	return b
}

// Build assembles the configured State.
func (b *Builder) Build() *State {
	db := b.db
	if db == nil {
		db = EmptyDatabase{}
	}

	cache := NewCache(db)
	if b.withoutStateClear {
		cache.SetStateClearFlag(false)
	}

	bundle := b.bundlePrestate
	if bundle == nil {
		bundle = NewBundleState()
	}
	if b.usePreloadedBundle {
		cache.enablePreloadedBundle(bundle)
	}

	var transitions *TransitionState
	if b.withTransitions {
		transitions = NewTransitionState()
	}

	blockHashes := b.blockHashes
	if blockHashes == nil {
		blockHashes = map[uint64]common.B256{}
	}

	return &State{
		cache:           cache,
		db:              db,
		transitionState: transitions,
		bundleState:     bundle,
		blockHashes:     blockHashes,
	}
}
