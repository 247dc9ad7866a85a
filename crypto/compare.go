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

import "crypto/subtle"

// Memcmp compares a and b in constant time. Length mismatch returns false
// immediately; lengths are not secret here, the contents are.
func Memcmp(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Memzero overwrites b with zeros.
func Memzero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
