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

// Package chunker implements the content-defined splitter used for revision
// content. Split points depend only on a small sliding window of the input,
// so a localized edit re-chunks only its neighborhood and the remaining
// chunks keep their MACs for deduplication.
package chunker

// Rolling checksum in the style of bup/librsync: an Adler-32 variant over a
// fixed-size window.
const (
	windowSize = 64
	charOffset = 31
)

// Rollsum tracks the running checksum over the last windowSize bytes.
type Rollsum struct {
	s1, s2 uint32
	window [windowSize]byte
	wofs   int
}

// NewRollsum returns a checksum initialized over a zeroed window.
func NewRollsum() *Rollsum {
	return &Rollsum{
		s1: windowSize * charOffset,
		s2: windowSize * (windowSize - 1) * charOffset,
	}
}

// Update rolls one byte into the window.
func (r *Rollsum) Update(b byte) {
	d := r.window[r.wofs]
	r.s1 += uint32(b) - uint32(d)
	r.s2 += r.s1 - windowSize*(uint32(d)+charOffset)
	r.window[r.wofs] = b
	r.wofs = (r.wofs + 1) % windowSize
}

// Split reports whether the current state is a split point for the given
// mask: all masked bits of s2 are set.
func (r *Rollsum) Split(mask uint32) bool {
	return r.s2&mask == mask
}
