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
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Shuffle permutes items in place with a Fisher-Yates shuffle driven by
// cryptographically strong randomness, and returns the reverse permutation:
// for every i, shuffled[ret[i]] holds what original[i] held.
func Shuffle[T any](items []T) ([]int, error) {
	n := len(items)
	// pos[k] is the original index of the element currently at slot k.
	pos := make([]int, n)
	for i := range pos {
		pos[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := randIntn(i + 1)
		if err != nil {
			return nil, err
		}
		items[i], items[j] = items[j], items[i]
		pos[i], pos[j] = pos[j], pos[i]
	}
	ret := make([]int, n)
	for k, orig := range pos {
		ret[orig] = k
	}
	return ret, nil
}

// randIntn returns a uniform random int in [0, n) by rejection sampling.
func randIntn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("shuffle: invalid bound %d", n)
	}
	max := ^uint64(0) - ^uint64(0)%uint64(n)
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("shuffle: %w", err)
		}
		v := binary.LittleEndian.Uint64(buf[:])
		if v < max {
			return int(v % uint64(n)), nil
		}
	}
}
