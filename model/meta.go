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

package model

import (
	"github.com/vmihailenco/msgpack/v5"
)

// ItemMetadata is the conventional metadata record. The prelude fields are
// all optional; anything else the application stores rides in Extra and is
// flattened into the same msgpack map, so records written by other bindings
// decode losslessly.
type ItemMetadata struct {
	Type        string
	Name        string
	Mtime       int64
	Description string
	Color       string
	Extra       map[string]interface{}
}

var (
	_ msgpack.CustomEncoder = (*ItemMetadata)(nil)
	_ msgpack.CustomDecoder = (*ItemMetadata)(nil)
)

// EncodeMsgpack writes the metadata as one flat map, omitting unset prelude
// fields.
func (m *ItemMetadata) EncodeMsgpack(enc *msgpack.Encoder) error {
	known := make(map[string]interface{}, 5+len(m.Extra))
	if m.Type != "" {
		known["type"] = m.Type
	}
	if m.Name != "" {
		known["name"] = m.Name
	}
	if m.Mtime != 0 {
		known["mtime"] = m.Mtime
	}
	if m.Description != "" {
		known["description"] = m.Description
	}
	if m.Color != "" {
		known["color"] = m.Color
	}
	for k, v := range m.Extra {
		known[k] = v
	}
	return enc.Encode(known)
}

// DecodeMsgpack reads a flat map, routing unknown keys into Extra.
func (m *ItemMetadata) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeMap()
	if err != nil {
		return err
	}
	*m = ItemMetadata{}
	for k, v := range raw {
		switch k {
		case "type":
			m.Type, _ = v.(string)
		case "name":
			m.Name, _ = v.(string)
		case "mtime":
			m.Mtime = toInt64(v)
		case "description":
			m.Description, _ = v.(string)
		case "color":
			m.Color, _ = v.(string)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]interface{})
			}
			m.Extra[k] = v
		}
	}
	return nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case uint8:
		return int64(n)
	case int16:
		return int64(n)
	case uint16:
		return int64(n)
	}
	return 0
}
