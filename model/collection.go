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
	"github.com/etesync/etebase-go/crypto"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/wire"
)

// AccessLevel is a member's access to a collection.
type AccessLevel int

const (
	AccessLevelReadOnly  AccessLevel = 0
	AccessLevelAdmin     AccessLevel = 1
	AccessLevelReadWrite AccessLevel = 2
)

// EncryptedCollection owns a wrapped symmetric collection key, the
// deterministic collection-type UID the key wrapping is bound to, and one
// embedded item whose content is the collection's own metadata and content.
type EncryptedCollection struct {
	collectionKey  []byte
	collectionType []byte
	item           *EncryptedItem
	accessLevel    AccessLevel
	stoken         *string
}

// NewEncryptedCollection creates a collection of the given type. The fresh
// 32-byte collection key is wrapped by the account key with the
// collection-type UID as associated data, so unwrapping under the wrong type
// fails.
func NewEncryptedCollection(accountCM *crypto.AccountCryptoManager, colType string, meta interface{}, content []byte) (*EncryptedCollection, error) {
	typeUID, err := accountCM.ColTypeToUID(colType)
	if err != nil {
		return nil, err
	}
	rawKey, err := crypto.RandomBytes(crypto.SymKeySize)
	if err != nil {
		return nil, err
	}
	wrappedKey, err := accountCM.Encrypt(rawKey, typeUID)
	if err != nil {
		return nil, err
	}

	col := &EncryptedCollection{
		collectionKey:  wrappedKey,
		collectionType: typeUID,
		accessLevel:    AccessLevelAdmin,
	}
	colCM, err := crypto.NewCollectionCryptoManager(accountCM, rawKey, accountCM.Version())
	if err != nil {
		return nil, err
	}
	item, err := NewEncryptedItem(colCM.MinimalCollectionCryptoManager, meta, content)
	if err != nil {
		return nil, err
	}
	col.item = item
	return col, nil
}

// UID returns the collection identifier (the embedded item's UID).
func (c *EncryptedCollection) UID() string {
	return c.item.UID()
}

// Etag returns the current revision UID of the embedded item.
func (c *EncryptedCollection) Etag() string {
	return c.item.Etag()
}

// AccessLevel returns the caller's access to this collection.
func (c *EncryptedCollection) AccessLevel() AccessLevel {
	return c.accessLevel
}

// Stoken returns the collection sync token, or nil before first sync.
func (c *EncryptedCollection) Stoken() *string {
	return c.stoken
}

// SetStoken records a newer sync token.
func (c *EncryptedCollection) SetStoken(stoken *string) {
	c.stoken = stoken
}

// IsDeleted reports whether the collection's current revision is a tombstone.
func (c *EncryptedCollection) IsDeleted() bool {
	return c.item.IsDeleted()
}

// CryptoManager unwraps the collection key under the account key, bound to
// the collection-type UID.
func (c *EncryptedCollection) CryptoManager(accountCM *crypto.AccountCryptoManager) (*crypto.CollectionCryptoManager, error) {
	rawKey, err := accountCM.Decrypt(c.collectionKey, c.collectionType)
	if err != nil {
		return nil, err
	}
	return crypto.NewCollectionCryptoManager(accountCM, rawKey, c.item.Version())
}

// ColType decrypts the collection-type UID back to the type string.
func (c *EncryptedCollection) ColType(accountCM *crypto.AccountCryptoManager) (string, error) {
	return accountCM.ColTypeFromUID(c.collectionType)
}

// ColTypeUID returns the deterministic encrypted type identifier.
func (c *EncryptedCollection) ColTypeUID() []byte {
	return c.collectionType
}

// GetMeta verifies the embedded item's revision, then decodes the metadata.
func (c *EncryptedCollection) GetMeta(cm *crypto.CollectionCryptoManager, out interface{}) error {
	if err := c.Verify(cm); err != nil {
		return err
	}
	return c.item.GetMeta(cm.MinimalCollectionCryptoManager, out)
}

// SetMeta replaces the collection metadata.
func (c *EncryptedCollection) SetMeta(cm *crypto.CollectionCryptoManager, meta interface{}) error {
	return c.item.SetMeta(cm.MinimalCollectionCryptoManager, meta)
}

// GetContent verifies the revision and returns the decrypted content.
func (c *EncryptedCollection) GetContent(cm *crypto.CollectionCryptoManager) ([]byte, error) {
	if err := c.Verify(cm); err != nil {
		return nil, err
	}
	return c.item.GetContent(cm.MinimalCollectionCryptoManager)
}

// SetContent replaces the collection content.
func (c *EncryptedCollection) SetContent(cm *crypto.CollectionCryptoManager, content []byte) error {
	return c.item.SetContent(cm.MinimalCollectionCryptoManager, content)
}

// Delete tombstones the collection.
func (c *EncryptedCollection) Delete(cm *crypto.CollectionCryptoManager, preserveContent bool) error {
	return c.item.Delete(cm.MinimalCollectionCryptoManager, preserveContent)
}

// Verify checks the embedded item's revision MAC.
func (c *EncryptedCollection) Verify(cm *crypto.CollectionCryptoManager) error {
	return c.item.Verify(cm.MinimalCollectionCryptoManager)
}

// MarkSaved records server acknowledgement of the current revision.
func (c *EncryptedCollection) MarkSaved() {
	c.item.MarkSaved()
}

// Item exposes the embedded item. Callers mutate it only through the
// collection's API.
func (c *EncryptedCollection) Item() *EncryptedItem {
	return c.item
}

// CreateInvitation seals this collection's raw key and type for a recipient
// and returns the signed invitation envelope. The inner payload is padded to
// a multiple of codec.FixedBlockSize before sealing, so invitation sizes
// reveal the type string's length only to that granularity.
func (c *EncryptedCollection) CreateInvitation(accountCM *crypto.AccountCryptoManager, identity *crypto.BoxKeyPair, username string, pubkey []byte, accessLevel AccessLevel) (*wire.SignedInvitation, error) {
	rawKey, err := accountCM.Decrypt(c.collectionKey, c.collectionType)
	if err != nil {
		return nil, err
	}
	colType, err := c.ColType(accountCM)
	if err != nil {
		return nil, err
	}
	inner, err := codec.MsgpackEncode(&invitationInner{
		EncryptionKey:  rawKey,
		CollectionType: colType,
	})
	if err != nil {
		return nil, err
	}
	sealed, err := identity.Encrypt(pubkey, codec.PadFixed(inner, codec.FixedBlockSize))
	if err != nil {
		return nil, err
	}
	uidBytes, err := crypto.RandomBytes(32)
	if err != nil {
		return nil, err
	}
	return &wire.SignedInvitation{
		UID:                 codec.ToBase64(uidBytes),
		Version:             c.item.Version(),
		Username:            username,
		Collection:          c.UID(),
		AccessLevel:         int(accessLevel),
		SignedEncryptionKey: sealed,
	}, nil
}

// ToWire renders the collection for upload.
func (c *EncryptedCollection) ToWire() wire.Collection {
	return wire.Collection{
		CollectionKey:  c.collectionKey,
		CollectionType: c.collectionType,
		Item:           c.item.ToWire(),
	}
}

// CollectionFromWire builds a collection from its server form. A missing
// collection type is a migration error, not a legacy fallback.
func CollectionFromWire(w wire.Collection) (*EncryptedCollection, error) {
	if w.CollectionType == nil {
		return nil, &errs.ProgrammingError{Detail: "collection without collectionType; migrate before use"}
	}
	item, err := ItemFromWire(w.Item)
	if err != nil {
		return nil, err
	}
	return &EncryptedCollection{
		collectionKey:  w.CollectionKey,
		collectionType: w.CollectionType,
		item:           item,
		accessLevel:    AccessLevel(w.AccessLevel),
		stoken:         w.Stoken,
	}, nil
}
