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
	"encoding/base64"
	"fmt"
)

// ToBase64 encodes data with the URL-safe alphabet, without padding. Every
// identifier on the wire (collection UIDs, revision UIDs, chunk MACs) uses
// this encoding.
func ToBase64(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// FromBase64 decodes a URL-safe unpadded base64 string.
func FromBase64(s string) ([]byte, error) {
	out, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return out, nil
}
