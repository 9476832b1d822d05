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

	"github.com/golang/mock/gomock"

	"github.com/Fantom-foundation/execstate/common"
	"github.com/Fantom-foundation/execstate/common/amount"
)

func TestCache_LoadNotExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := NewMockDatabase(ctrl)
	addr := common.AddressFromNumber(1)
	db.EXPECT().Basic(addr).Return(nil, nil).Times(1)

	c := NewCache(db)
	acc, err := c.Load(addr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if acc.Status != LoadedNotExisting || acc.Account != nil {
		t.Errorf("expected LoadedNotExisting with no account, got %+v", acc)
	}
}

func TestCache_LoadEmptyMarksEIP161(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := NewMockDatabase(ctrl)
	addr := common.AddressFromNumber(1)
	empty := NewEmptyAccountInfo()
	db.EXPECT().Basic(addr).Return(&empty, nil).Times(1)

	c := NewCache(db)
	acc, err := c.Load(addr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if acc.Status != LoadedEmptyEIP161 {
		t.Errorf("expected LoadedEmptyEIP161, got %v", acc.Status)
	}
}

func TestCache_StorageBeforeLoadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	c := NewCache(EmptyDatabase{})
	_, _ = c.StorageAt(common.AddressFromNumber(1), common.StorageKeyFromNumber(1))
}

func TestCache_StorageKnownStatusShortCircuitsDatabase(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := NewMockDatabase(ctrl) // no Storage expectation: must not be called.

	addr := common.AddressFromNumber(1)
	c := NewCache(db)
	c.InsertAccount(addr, AccountInfo{Nonce: 1, Balance: amount.New(), CodeHash: common.EmptyCodeHash})

	v, err := c.StorageAt(addr, common.StorageKeyFromNumber(1))
	if err != nil {
		t.Fatalf("StorageAt: %v", err)
	}
	if !v.IsZero() {
		t.Errorf("expected zero for an unknown slot on a freshly inserted account")
	}
}

// ApplyEVMState must assign statuses per spec.md §4.2's lifecycle table and
// apply the EIP-161 empty-touch deletion rule.
func TestCache_ApplyEVMStateSelfDestructThenRecreate(t *testing.T) {
	addr := common.AddressFromNumber(1)
	c := NewCache(EmptyDatabase{})
	if _, err := c.Load(addr); err != nil {
		t.Fatalf("Load: %v", err)
	}

	transitions := c.ApplyEVMState(map[common.Address]EVMAccount{
		addr: {SelfDestructed: true},
	})
	if got, want := transitions[0].Account.Status, Destroyed; got != want {
		t.Errorf("expected status %v, got %v", want, got)
	}
	if !transitions[0].Account.StorageWasDestroyed {
		t.Errorf("expected storage_was_destroyed=true")
	}

	transitions = c.ApplyEVMState(map[common.Address]EVMAccount{
		addr: {Created: true, Info: AccountInfo{Nonce: 1, Balance: amount.New(5), CodeHash: common.EmptyCodeHash}},
	})
	if got, want := transitions[0].Account.Status, DestroyedChanged; got != want {
		t.Errorf("expected status %v, got %v", want, got)
	}
	if got, want := transitions[0].Account.PreviousStatus, Destroyed; got != want {
		t.Errorf("expected previous status %v, got %v", want, got)
	}
}

func TestCache_ApplyEVMStateEmptyTouchDeletes(t *testing.T) {
	addr := common.AddressFromNumber(1)
	c := NewCache(EmptyDatabase{})
	if _, err := c.Load(addr); err != nil {
		t.Fatalf("Load: %v", err)
	}

	transitions := c.ApplyEVMState(map[common.Address]EVMAccount{
		addr: {Touched: true, Info: NewEmptyAccountInfo()},
	})
	if got, want := transitions[0].Account.Status, Destroyed; got != want {
		t.Errorf("expected the empty touch to delete the account, got %v", got)
	}
	if transitions[0].Account.Info != nil {
		t.Errorf("expected a nil post-state info for a deleted account")
	}
}

func TestCache_ApplyEVMStateEmptyTouchKeptWithoutStateClear(t *testing.T) {
	addr := common.AddressFromNumber(1)
	c := NewCache(EmptyDatabase{})
	c.SetStateClearFlag(false)
	if _, err := c.Load(addr); err != nil {
		t.Fatalf("Load: %v", err)
	}

	transitions := c.ApplyEVMState(map[common.Address]EVMAccount{
		addr: {Touched: true, Info: NewEmptyAccountInfo()},
	})
	if got := transitions[0].Account.Status; got == Destroyed {
		t.Errorf("empty-touch deletion should be disabled, got %v", got)
	}
}

func TestCache_CodeByHashCachesAfterDatabaseHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := NewMockDatabase(ctrl)
	code := Bytecode{0x01, 0x02}
	hash := common.GetKeccak256Hash(code)
	db.EXPECT().CodeByHash(hash).Return(code, nil).Times(1)

	c := NewCache(db)
	for i := 0; i < 3; i++ {
		got, err := c.CodeByHash(hash)
		if err != nil {
			t.Fatalf("CodeByHash: %v", err)
		}
		if string(got) != string(code) {
			t.Errorf("unexpected code: %v", got)
		}
	}
}
