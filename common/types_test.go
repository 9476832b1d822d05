// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"fmt"
	"testing"
)

func TestKeccak256NilHashesLikeEmptyList(t *testing.T) {
	nilHash := GetKeccak256Hash(nil)
	emptyHash := GetKeccak256Hash([]byte{})
	if nilHash != emptyHash {
		t.Errorf("nil does not hash like empty slice, got %x, wanted %x", nilHash, emptyHash)
	}
}

func TestKeccak256KnownHashes(t *testing.T) {
	inputs := []struct {
		plain, hash string
	}{
		{"", "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"a", "3ac225168df54212a25c1c01fd35bebfea408fdac2e31ddd6f80a4bbf9a5f1cb"},
		{"abc", "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
	}
	for _, input := range inputs {
		hash := GetKeccak256Hash([]byte(input.plain))
		if input.hash != fmt.Sprintf("%x", hash) {
			t.Errorf("invalid hash: %x (expected %s)", hash, input.hash)
		}
	}
}

func TestEmptyCodeHashMatchesKeccakOfEmptyBytes(t *testing.T) {
	if got, want := EmptyCodeHash, GetKeccak256Hash(nil); got != want {
		t.Errorf("EmptyCodeHash does not match keccak256(\"\"): %x != %x", got, want)
	}
}

func TestB256FromString(t *testing.T) {
	tests := []struct {
		input  string
		result B256
	}{
		{"0000000000000000000000000000000000000000000000000000000000000000"[:64], B256{}},
		{"1000000000000000000000000000000000000000000000000000000000000000"[:64], B256{0x10}},
		{"1200000000000000000000000000000000000000000000000000000000000000"[:64], B256{0x12}},
		{"123456789abcdefABCDEF0000000000000000000000000000000000000000000"[:64], B256{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xfa, 0xbc, 0xde, 0xf0}},
	}

	for _, test := range tests {
		if got, want := B256FromString(test.input), test.result; got != want {
			t.Errorf("failed to parse %s: expected %v, got %v", test.input, want, got)
		}
	}
}

func TestB256FromString_Panic_ShortString(t *testing.T) {
	s := "123456789abcdef"
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("method call did not panic")
		}
	}()

	B256FromString(s)
}

func TestB256FromString_Panic_NonHexString(t *testing.T) {
	s := "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("method call did not panic")
		}
	}()

	B256FromString(s)
}

func TestB256_ToBytes(t *testing.T) {
	var v B256
	for i := 0; i < 32; i++ {
		v[i]++
	}
	b := v.ToBytes()

	if got, want := len(b), len(v); got != want {
		t.Errorf("sizes do not match: %d != %d", got, want)
	}
	for i := 0; i < len(b); i++ {
		if got, want := b[i], v[i]; got != want {
			t.Errorf("bytes do not match: %d != %d (pos: %d)", got, want, i)
		}
	}
}

func TestStorageValue_IsZero(t *testing.T) {
	if !ZeroStorageValue.IsZero() {
		t.Errorf("ZeroStorageValue must be zero")
	}
	if StorageValueFromUint64(0).IsZero() == false {
		t.Errorf("StorageValueFromUint64(0) must be zero")
	}
	if StorageValueFromUint64(1).IsZero() {
		t.Errorf("StorageValueFromUint64(1) must not be zero")
	}
}

func TestAddress_CompareAndString(t *testing.T) {
	a := AddressFromNumber(1)
	b := AddressFromNumber(2)
	if a.Compare(&b) >= 0 {
		t.Errorf("expected a < b")
	}
	if got, want := a.String(), fmt.Sprintf("%x", a[:]); got != want {
		t.Errorf("unexpected string: %s != %s", got, want)
	}
}

func TestStorageKey_CompareAndString(t *testing.T) {
	a := StorageKeyFromNumber(1)
	b := StorageKeyFromNumber(2)
	if a.Compare(&b) >= 0 {
		t.Errorf("expected a < b")
	}
	if got, want := a.String(), fmt.Sprintf("%x", a[:]); got != want {
		t.Errorf("unexpected string: %s != %s", got, want)
	}
}
