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
	"testing"

	"github.com/Fantom-foundation/execstate/common"
	"github.com/Fantom-foundation/execstate/common/amount"
)

func TestBuilder_DefaultsToEmptyDatabaseAndNoTransitionBuffer(t *testing.T) {
	s := NewBuilder().Build()
	info, err := s.Basic(common.AddressFromNumber(1))
	if err != nil {
		t.Fatalf("Basic: %v", err)
	}
	if info != nil {
		t.Errorf("expected no account from the default empty database, got %+v", info)
	}
	if err := s.MergeTransitions(RetentionReverts); err == nil {
		t.Errorf("expected MergeTransitions to fail without WithBundleUpdate")
	}
}

// A bundle prestate seeds cache misses ahead of the database, and its
// contracts seed code lookups unconditionally (open question resolved in
// cache.go's CodeByHash).
func TestBuilder_WithBundlePrestateServesCacheMisses(t *testing.T) {
	addr := common.AddressFromNumber(1)
	code := Bytecode{0xaa, 0xbb}
	hash := common.GetKeccak256Hash(code)

	prestate := NewBundleState()
	prestate.State[addr] = BundleAccount{
		Info:    &AccountInfo{Nonce: 3, Balance: amount.New(7), CodeHash: hash, Code: code},
		Storage: map[common.StorageKey]StorageSlot{},
		Status:  Loaded,
	}
	prestate.Contracts[hash] = code

	s := NewBuilder().WithBundlePrestate(prestate).Build()

	info, err := s.Basic(addr)
	if err != nil {
		t.Fatalf("Basic: %v", err)
	}
	if info == nil || info.Nonce != 3 {
		t.Fatalf("expected the preloaded account, got %+v", info)
	}

	got, err := s.CodeByHash(hash)
	if err != nil {
		t.Fatalf("CodeByHash: %v", err)
	}
	if string(got) != string(code) {
		t.Errorf("expected the preloaded code, got %v", got)
	}
}

func TestBuilder_WithBundleUpdateEnablesMerge(t *testing.T) {
	s := NewBuilder().WithBundleUpdate().Build()
	if err := s.MergeTransitions(RetentionNone); err != nil {
		t.Errorf("MergeTransitions should succeed once WithBundleUpdate is configured, got %v", err)
	}
}

func TestBuilder_WithBlockHashesSeedsWindow(t *testing.T) {
	seed := map[uint64]common.B256{5: {1, 2, 3}}
	s := NewBuilder().WithBlockHashes(seed).Build()
	h, err := s.BlockHash(5)
	if err != nil {
		t.Fatalf("BlockHash: %v", err)
	}
	if h != (common.B256{1, 2, 3}) {
		t.Errorf("expected the seeded hash, got %v", h)
	}
}
