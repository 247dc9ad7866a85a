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

package codec

import (
	"encoding/binary"

	"github.com/etesync/etebase-go/errs"
)

// NumToBytes encodes n as 4 little-endian bytes. Used as the length prefix
// fed into keyed MACs.
func NumToBytes(n uint32) []byte {
	var out [4]byte
	binary.LittleEndian.PutUint32(out[:], n)
	return out[:]
}

// NumFromBytes decodes a 4-byte little-endian unsigned integer.
func NumFromBytes(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, &errs.ProgrammingError{Detail: "integer buffer must be exactly 4 bytes"}
	}
	return binary.LittleEndian.Uint32(b), nil
}
