// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package common holds the fixed-width identifiers shared by the cache,
// transition and bundle layers, plus a handful of small, dependency-free
// utilities (a constant error type, a memory footprint reporter) reused across
// them.
package common

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

// AddressSize is the size of an EVM-like account address.
const AddressSize = 20

// Address is an EVM-like account address.
type Address [AddressSize]byte

func (a *Address) Compare(b *Address) int {
	return bytes.Compare(a[:], b[:])
}

func (a Address) String() string {
	return fmt.Sprintf("%x", a[:])
}

// AddressFromNumber builds a deterministic address out of a small integer,
// useful for constructing readable test fixtures.
func AddressFromNumber(num int) (address Address) {
	addr := binary.BigEndian.AppendUint32([]byte{}, uint32(num))
	copy(address[16:], addr)
	return
}

// StorageKeySize is the size of an EVM-like storage slot key.
const StorageKeySize = 32

// StorageKey identifies a slot in a contract's storage.
type StorageKey [StorageKeySize]byte

func (k *StorageKey) Compare(b *StorageKey) int {
	return bytes.Compare(k[:], b[:])
}

func (k StorageKey) String() string {
	return fmt.Sprintf("%x", k[:])
}

// StorageKeyFromNumber builds a deterministic storage key out of a small
// integer, mirroring AddressFromNumber for test fixtures.
func StorageKeyFromNumber(num int) (key StorageKey) {
	k := binary.BigEndian.AppendUint64([]byte{}, uint64(num))
	copy(key[24:], k)
	return
}

// StorageValueSize is the size of an EVM-like storage slot value.
const StorageValueSize = 32

// StorageValue is the content of a single storage slot.
type StorageValue [StorageValueSize]byte

// ZeroStorageValue is the distinguished zero value every unset slot reads as.
var ZeroStorageValue = StorageValue{}

// IsZero reports whether this value equals the all-zero slot content.
func (v StorageValue) IsZero() bool {
	return v == ZeroStorageValue
}

func (v StorageValue) String() string {
	return fmt.Sprintf("%x", v[:])
}

// StorageValueFromUint64 packs a small integer into the low-order bytes of a
// storage value, Big-Endian, mirroring how the EVM stores small numbers.
func StorageValueFromUint64(value uint64) (res StorageValue) {
	binary.BigEndian.PutUint64(res[24:], value)
	return
}

// B256Size is the byte size of the B256 type.
const B256Size = 32

// B256 is a generic 256-bit hash: block hashes and code hashes both use it.
type B256 [B256Size]byte

// CodeHash addresses a piece of bytecode stored in a bundle's contract table.
type CodeHash = B256

func (h *B256) Compare(b *B256) int {
	return bytes.Compare(h[:], b[:])
}

func (h B256) String() string {
	return fmt.Sprintf("%x", h[:])
}

func (h B256) ToBytes() []byte {
	return h[:]
}

// B256FromString converts a 64-character hex string into a B256. Slow, and
// intended for readable test fixtures only; panics on malformed input.
func B256FromString(str string) B256 {
	if len(str) != 64 {
		panic(fmt.Sprintf("invalid hash-string length, expected %d, got %d", 64, len(str)))
	}
	decoded, err := hex.DecodeString(str)
	if err != nil {
		panic(fmt.Sprintf("invalid hex string `%s`: %v", str, err))
	}
	res := B256{}
	copy(res[:], decoded)
	return res
}

// GetKeccak256Hash computes the Keccak256 hash of the given data.
func GetKeccak256Hash(data []byte) B256 {
	hasher := sha3.NewLegacyKeccak256()
	return GetHash(hasher, data)
}

// GetHash computes the hash of the given data using the given hash algorithm.
func GetHash(h hash.Hash, data []byte) (res B256) {
	h.Reset()
	h.Write(data)
	copy(res[:], h.Sum(nil))
	return
}

// EmptyCodeHash is the Keccak256 hash of the empty byte string, the code
// hash every account without deployed bytecode carries.
var EmptyCodeHash = GetKeccak256Hash(nil)
