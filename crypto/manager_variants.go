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
	"github.com/etesync/etebase-go/chunker"
	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/errs"
)

// The 8-byte context strings, space-padded. Each variant gets its own so a
// key derived in one scope is useless in another.
const (
	contextMain           = "Main    "
	contextAccount        = "Acct    "
	contextCollection     = "Col     "
	contextCollectionItem = "ColItem "
	contextStorage        = "Stor    "
)

// MainCryptoManager is the root of the hierarchy, derived from the
// passphrase-derived main key.
type MainCryptoManager struct {
	*CryptoManager
}

// NewMainCryptoManager derives the main-scope manager from the 32-byte main key.
func NewMainCryptoManager(mainKey []byte, version uint8) (*MainCryptoManager, error) {
	base, err := newCryptoManager(mainKey, contextMain, version)
	if err != nil {
		return nil, err
	}
	return &MainCryptoManager{CryptoManager: base}, nil
}

// LoginKeyPair expands this scope's asymmetric seed into the Ed25519 login
// keypair.
func (m *MainCryptoManager) LoginKeyPair() (*SignKeyPair, error) {
	return NewSignKeyPair(m.asymKeySeed)
}

// AccountCryptoManager builds the account-scope manager from the decrypted
// 32-byte account key.
func (m *MainCryptoManager) AccountCryptoManager(accountKey []byte) (*AccountCryptoManager, error) {
	return NewAccountCryptoManager(accountKey, m.version)
}

// IdentityCryptoManager recovers the X25519 identity keypair from the
// decrypted private identity key.
func (m *MainCryptoManager) IdentityCryptoManager(privkey []byte) (*BoxKeyPair, error) {
	return NewBoxKeyPairFromPrivateKey(privkey)
}

// AccountCryptoManager wraps collection keys and produces the deterministic
// collection-type UIDs.
type AccountCryptoManager struct {
	*CryptoManager
}

// NewAccountCryptoManager derives the account-scope manager.
func NewAccountCryptoManager(accountKey []byte, version uint8) (*AccountCryptoManager, error) {
	base, err := newCryptoManager(accountKey, contextAccount, version)
	if err != nil {
		return nil, err
	}
	return &AccountCryptoManager{CryptoManager: base}, nil
}

// ColTypeToUID deterministically encrypts a collection-type string. The
// nonce is a keyed MAC of the fixed-padded plaintext, so the same type under
// the same account key always yields the same bytes and the server can group
// collections by type without learning it.
func (m *AccountCryptoManager) ColTypeToUID(colType string) ([]byte, error) {
	padded := codec.PadFixed([]byte(colType), codec.FixedBlockSize)
	mac, err := m.CalcMac(padded)
	if err != nil {
		return nil, err
	}
	return encryptDeterministic(m.cipherKey, mac[:NonceSize], padded, nil)
}

// ColTypeFromUID reverses ColTypeToUID.
func (m *AccountCryptoManager) ColTypeFromUID(uid []byte) (string, error) {
	padded, err := Decrypt(m.cipherKey, uid, nil)
	if err != nil {
		return "", err
	}
	plain, err := codec.UnpadFixed(padded, codec.FixedBlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// MinimalCollectionCryptoManager is the collection-scope manager usable
// without an account manager, e.g. when operating on a collection obtained
// through a share.
type MinimalCollectionCryptoManager struct {
	*CryptoManager
}

// NewMinimalCollectionCryptoManager derives the collection-scope manager
// from the unwrapped 32-byte collection key.
func NewMinimalCollectionCryptoManager(collectionKey []byte, version uint8) (*MinimalCollectionCryptoManager, error) {
	if len(collectionKey) != SymKeySize {
		return nil, &errs.ProgrammingError{Detail: "collection key must be 32 bytes"}
	}
	base, err := newCryptoManager(collectionKey, contextCollection, version)
	if err != nil {
		return nil, err
	}
	return &MinimalCollectionCryptoManager{CryptoManager: base}, nil
}

// CollectionCryptoManager additionally carries the account manager so
// sharing operations can re-wrap the collection key.
type CollectionCryptoManager struct {
	*MinimalCollectionCryptoManager
	accountCM *AccountCryptoManager
}

// NewCollectionCryptoManager derives the full collection-scope manager.
func NewCollectionCryptoManager(accountCM *AccountCryptoManager, collectionKey []byte, version uint8) (*CollectionCryptoManager, error) {
	minimal, err := NewMinimalCollectionCryptoManager(collectionKey, version)
	if err != nil {
		return nil, err
	}
	return &CollectionCryptoManager{
		MinimalCollectionCryptoManager: minimal,
		accountCM:                      accountCM,
	}, nil
}

// AccountManager returns the account manager this collection was opened with.
func (m *CollectionCryptoManager) AccountManager() *AccountCryptoManager {
	return m.accountCM
}

// CollectionItemCryptoManager scopes the AEAD, the MAC, and the rolling
// chunker to a single item.
type CollectionItemCryptoManager struct {
	*CryptoManager
}

// NewCollectionItemCryptoManager derives the item-scope manager from the
// item key.
func NewCollectionItemCryptoManager(itemKey []byte, version uint8) (*CollectionItemCryptoManager, error) {
	base, err := newCryptoManager(itemKey, contextCollectionItem, version)
	if err != nil {
		return nil, err
	}
	return &CollectionItemCryptoManager{CryptoManager: base}, nil
}

// ChunkMac computes the keyed 32-byte MAC of a plaintext chunk. It doubles
// as the chunk's content address.
func (m *CollectionItemCryptoManager) ChunkMac(chunk []byte) ([]byte, error) {
	return m.CalcMac(chunk)
}

// Chunks splits content at content-defined boundaries.
func (m *CollectionItemCryptoManager) Chunks(content []byte) [][]byte {
	return chunker.Chunks(content)
}

// StorageCryptoManager encrypts the serialized account session and nothing
// else.
type StorageCryptoManager struct {
	*CryptoManager
}

// NewStorageCryptoManager derives the storage-scope manager.
func NewStorageCryptoManager(storageKey []byte, version uint8) (*StorageCryptoManager, error) {
	base, err := newCryptoManager(storageKey, contextStorage, version)
	if err != nil {
		return nil, err
	}
	return &StorageCryptoManager{CryptoManager: base}, nil
}
