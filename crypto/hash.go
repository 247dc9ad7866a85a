// Etebase - Encrypt Everything
// Copyright (C) 2025 EteSync
//
// This file is part of Etebase.
//
// Etebase is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etebase is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Etebase. If not, see <https://www.gnu.org/licenses/>.

package crypto

import (
	"hash"

	"golang.org/x/crypto/blake2b"

	"github.com/etesync/etebase-go/codec"
)

// Mac is an incremental 32-byte BLAKE2b digest, keyed or unkeyed.
type Mac struct {
	h hash.Hash
}

// NewMac starts a digest. A nil key yields the unkeyed hash.
func NewMac(key []byte) (*Mac, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, err
	}
	return &Mac{h: h}, nil
}

// Update feeds data into the digest.
func (m *Mac) Update(data []byte) {
	m.h.Write(data)
}

// UpdateWithLenPrefix feeds 4 little-endian bytes of len(data) and then data.
// Length framing keeps adjacent variable-length fields from melting together
// under concatenation.
func (m *Mac) UpdateWithLenPrefix(data []byte) {
	m.h.Write(codec.NumToBytes(uint32(len(data))))
	m.h.Write(data)
}

// Sum finalizes and returns the 32-byte digest.
func (m *Mac) Sum() []byte {
	return m.h.Sum(nil)
}

// Blake2b is the one-shot form of Mac. A nil key yields the unkeyed hash.
func Blake2b(key, data []byte) ([]byte, error) {
	m, err := NewMac(key)
	if err != nil {
		return nil, err
	}
	m.Update(data)
	return m.Sum(), nil
}
