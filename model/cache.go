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
	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/wire"
)

// cacheVersion is the leading version byte of local cache blobs. The cache
// itself is not additionally encrypted; callers pair it with an encrypted
// session blob if they want an encrypted store.
const cacheVersion byte = 0x01

func (it *EncryptedItem) toWireOpt(withContent bool) wire.Item {
	return wire.Item{
		UID:           it.uid,
		Version:       it.version,
		EncryptionKey: it.encryptionKey,
		Content:       it.content.toWire(withContent),
		Etag:          it.lastEtag,
	}
}

// CacheSave serializes the item for local storage. saveContent=false drops
// chunk ciphertexts to save space; loading such a blob reports missing
// content until it is downloaded again.
func (it *EncryptedItem) CacheSave(saveContent bool) ([]byte, error) {
	packed, err := codec.MsgpackEncode(it.toWireOpt(saveContent))
	if err != nil {
		return nil, err
	}
	return append([]byte{cacheVersion}, packed...), nil
}

// ItemCacheLoad restores an item saved with CacheSave.
func ItemCacheLoad(blob []byte) (*EncryptedItem, error) {
	packed, err := cachePayload(blob)
	if err != nil {
		return nil, err
	}
	var w wire.Item
	if err := codec.MsgpackDecode(packed, &w); err != nil {
		return nil, err
	}
	return ItemFromWire(w)
}

// CacheSave serializes the collection for local storage.
func (c *EncryptedCollection) CacheSave(saveContent bool) ([]byte, error) {
	w := wire.Collection{
		CollectionKey:  c.collectionKey,
		CollectionType: c.collectionType,
		Item:           c.item.toWireOpt(saveContent),
		AccessLevel:    int(c.accessLevel),
		Stoken:         c.stoken,
	}
	packed, err := codec.MsgpackEncode(w)
	if err != nil {
		return nil, err
	}
	return append([]byte{cacheVersion}, packed...), nil
}

// CollectionCacheLoad restores a collection saved with CacheSave.
func CollectionCacheLoad(blob []byte) (*EncryptedCollection, error) {
	packed, err := cachePayload(blob)
	if err != nil {
		return nil, err
	}
	var w wire.Collection
	if err := codec.MsgpackDecode(packed, &w); err != nil {
		return nil, err
	}
	return CollectionFromWire(w)
}

func cachePayload(blob []byte) ([]byte, error) {
	if len(blob) < 2 {
		return nil, &errs.ProgrammingError{Detail: "cache blob truncated"}
	}
	if blob[0] != cacheVersion {
		return nil, &errs.ProgrammingError{Detail: "unknown cache blob version"}
	}
	return blob[1:], nil
}
