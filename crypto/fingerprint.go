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
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	fingerprintGroups      = 16
	fingerprintGroupDigits = 100000
	fingerprintPerLine     = 4
	fingerprintDelimiter   = "   "
)

// PrettyFingerprint renders a public key as 16 groups of 5 decimal digits,
// 4 groups per line, for out-of-band comparison before accepting an
// invitation. Each group is 3 digest bytes reduced mod 100000.
func PrettyFingerprint(pubkey []byte) (string, error) {
	h, err := blake2b.New(fingerprintGroups*3, nil)
	if err != nil {
		return "", err
	}
	h.Write(pubkey)
	digest := h.Sum(nil)

	var sb strings.Builder
	for i := 0; i < fingerprintGroups; i++ {
		chunk := digest[i*3 : i*3+3]
		v := (uint32(chunk[0])<<16 | uint32(chunk[1])<<8 | uint32(chunk[2])) % fingerprintGroupDigits
		sb.WriteString(padDigits(v))
		switch {
		case i == fingerprintGroups-1:
		case i%fingerprintPerLine == fingerprintPerLine-1:
			sb.WriteByte('\n')
		default:
			sb.WriteString(fingerprintDelimiter)
		}
	}
	return sb.String(), nil
}

func padDigits(v uint32) string {
	digits := [5]byte{'0', '0', '0', '0', '0'}
	for i := 4; i >= 0 && v > 0; i-- {
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[:])
}
