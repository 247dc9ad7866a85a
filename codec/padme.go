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
	"math/bits"

	"github.com/etesync/etebase-go/errs"
)

// FixedBlockSize is the block size of the fixed padder used for small
// objects (collection-type strings, invitation payloads).
const FixedBlockSize = 32

// padmeMin is the smallest padded size. Everything below it is padded up to
// it so that short plaintexts are indistinguishable.
const padmeMin = 512

// PadmeLength returns the padded length for a buffer of length l using the
// padme scheme. The result is always strictly greater than l, so the padding
// sentinel lives in appended bytes.
func PadmeLength(l int) int {
	if l < padmeMin {
		return padmeMin
	}
	e := bits.Len(uint(l)) - 1
	s := bits.Len(uint(e))
	mask := 1<<(e-s) - 1
	return (l + 1 + mask) &^ mask
}

// Padme pads buf to PadmeLength(len(buf)) by appending a 0x80 sentinel
// followed by zeros.
func Padme(buf []byte) []byte {
	out := make([]byte, PadmeLength(len(buf)))
	copy(out, buf)
	out[len(buf)] = 0x80
	return out
}

// Unpadme strips padme padding: trailing zeros back to the 0x80 sentinel.
// A missing sentinel means the ciphertext was produced by something else
// entirely and is reported as an integrity failure.
func Unpadme(buf []byte) ([]byte, error) {
	return unpadTrailing(buf)
}

// PadFixed zero-pads buf to the next multiple of blocksize that is strictly
// greater than its length, recording one 0x80 at the original end.
func PadFixed(buf []byte, blocksize int) []byte {
	target := (len(buf)/blocksize + 1) * blocksize
	out := make([]byte, target)
	copy(out, buf)
	out[len(buf)] = 0x80
	return out
}

// UnpadFixed strips fixed-block padding by seeking the sentinel from the end.
func UnpadFixed(buf []byte, blocksize int) ([]byte, error) {
	if len(buf)%blocksize != 0 {
		return nil, &errs.IntegrityError{Detail: "padded buffer is not block aligned"}
	}
	return unpadTrailing(buf)
}

func unpadTrailing(buf []byte) ([]byte, error) {
	for i := len(buf) - 1; i >= 0; i-- {
		switch buf[i] {
		case 0x00:
			continue
		case 0x80:
			return buf[:i], nil
		default:
			return nil, &errs.IntegrityError{Detail: "padding sentinel missing"}
		}
	}
	return nil, &errs.IntegrityError{Detail: "padding sentinel missing"}
}
