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

// EncryptedItem is an item entity: a stable random UID, an optional wrapped
// per-item key, and the current revision. When the wrapped key is absent the
// item key is derived from the parent collection's sub-derivation key salted
// with the item UID.
type EncryptedItem struct {
	uid           string
	version       uint8
	encryptionKey []byte
	content       *EncryptedRevision

	// lastEtag is the UID of the revision last persisted on the server.
	// Mutating an item whose current revision is persisted clones first so
	// the uploaded revision stays referable.
	lastEtag *string
}

// NewEncryptedItem creates an item with a fresh random UID and an initial
// revision for meta and content.
func NewEncryptedItem(parent *crypto.MinimalCollectionCryptoManager, meta interface{}, content []byte) (*EncryptedItem, error) {
	uidBytes, err := crypto.RandomBytes(crypto.UIDSize)
	if err != nil {
		return nil, err
	}
	item := &EncryptedItem{
		uid:     codec.ToBase64(uidBytes),
		version: crypto.CurrentVersion,
	}
	cm, err := item.CryptoManager(parent)
	if err != nil {
		return nil, err
	}
	rev, err := NewEncryptedRevision(cm, item.additionalData(), meta, content)
	if err != nil {
		return nil, err
	}
	item.content = rev
	return item, nil
}

// UID returns the item identifier.
func (it *EncryptedItem) UID() string {
	return it.uid
}

// Version returns the protocol version the item was created with.
func (it *EncryptedItem) Version() uint8 {
	return it.version
}

// Etag returns the UID of the current revision.
func (it *EncryptedItem) Etag() string {
	return it.content.UID()
}

// LastEtag returns the etag last acknowledged by the server, or nil for an
// item never uploaded.
func (it *EncryptedItem) LastEtag() *string {
	return it.lastEtag
}

// IsDeleted reports whether the current revision is a tombstone.
func (it *EncryptedItem) IsDeleted() bool {
	return it.content.Deleted()
}

// IsMissingContent reports whether any chunk lacks its ciphertext.
func (it *EncryptedItem) IsMissingContent() bool {
	return len(it.content.MissingChunks()) > 0
}

func (it *EncryptedItem) additionalData() []byte {
	return []byte(it.uid)
}

// CryptoManager derives the item-scope manager: unwrap the wrapped key when
// one exists, otherwise sub-derive from the parent with the UID as salt.
func (it *EncryptedItem) CryptoManager(parent *crypto.MinimalCollectionCryptoManager) (*crypto.CollectionItemCryptoManager, error) {
	var itemKey []byte
	var err error
	if it.encryptionKey != nil {
		itemKey, err = parent.Decrypt(it.encryptionKey, nil)
	} else {
		itemKey, err = parent.DeriveSubkeyFromSalt(it.additionalData())
	}
	if err != nil {
		return nil, err
	}
	return crypto.NewCollectionItemCryptoManager(itemKey, it.version)
}

// ensureUnpersisted clones the current revision if it has already been
// uploaded, so in-place mutation never touches a persisted revision.
func (it *EncryptedItem) ensureUnpersisted() {
	if it.lastEtag != nil && *it.lastEtag == it.content.UID() {
		it.content = it.content.Clone()
	}
}

// GetMeta verifies the revision and decodes the item metadata into out.
func (it *EncryptedItem) GetMeta(parent *crypto.MinimalCollectionCryptoManager, out interface{}) error {
	cm, err := it.CryptoManager(parent)
	if err != nil {
		return err
	}
	return it.content.GetMeta(cm, it.additionalData(), out)
}

// SetMeta replaces the item metadata.
func (it *EncryptedItem) SetMeta(parent *crypto.MinimalCollectionCryptoManager, meta interface{}) error {
	cm, err := it.CryptoManager(parent)
	if err != nil {
		return err
	}
	it.ensureUnpersisted()
	return it.content.SetMeta(cm, it.additionalData(), meta)
}

// GetContent returns the decrypted content bytes.
func (it *EncryptedItem) GetContent(parent *crypto.MinimalCollectionCryptoManager) ([]byte, error) {
	cm, err := it.CryptoManager(parent)
	if err != nil {
		return nil, err
	}
	return it.content.GetContent(cm)
}

// SetContent replaces the item content.
func (it *EncryptedItem) SetContent(parent *crypto.MinimalCollectionCryptoManager, content []byte) error {
	cm, err := it.CryptoManager(parent)
	if err != nil {
		return err
	}
	it.ensureUnpersisted()
	return it.content.SetContent(cm, it.additionalData(), content)
}

// Delete replaces the current revision with a tombstone.
func (it *EncryptedItem) Delete(parent *crypto.MinimalCollectionCryptoManager, preserveContent bool) error {
	cm, err := it.CryptoManager(parent)
	if err != nil {
		return err
	}
	it.ensureUnpersisted()
	return it.content.Delete(cm, it.additionalData(), preserveContent)
}

// Verify checks the revision MAC.
func (it *EncryptedItem) Verify(parent *crypto.MinimalCollectionCryptoManager) error {
	cm, err := it.CryptoManager(parent)
	if err != nil {
		return err
	}
	return it.content.Verify(cm, it.additionalData())
}

// MarkSaved records that the current revision was acknowledged by the
// server: the etag becomes the revision UID.
func (it *EncryptedItem) MarkSaved() {
	etag := it.content.UID()
	it.lastEtag = &etag
}

// Revision exposes the current revision (read-only use).
func (it *EncryptedItem) Revision() *EncryptedRevision {
	return it.content
}

// ToWire renders the item for upload, chunk ciphertexts included.
func (it *EncryptedItem) ToWire() wire.Item {
	return it.toWireOpt(true)
}

// ItemFromWire builds an item from its server form. The server-reported
// etag becomes the last-saved etag.
func ItemFromWire(w wire.Item) (*EncryptedItem, error) {
	if w.UID == "" {
		return nil, &errs.IntegrityError{Detail: "item without uid"}
	}
	item := &EncryptedItem{
		uid:           w.UID,
		version:       w.Version,
		encryptionKey: w.EncryptionKey,
		content:       revisionFromWire(w.Content),
	}
	if w.Etag != nil {
		etag := *w.Etag
		item.lastEtag = &etag
	} else {
		etag := item.content.UID()
		item.lastEtag = &etag
	}
	return item, nil
}
