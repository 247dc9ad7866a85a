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

package account

import (
	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/crypto"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/transport"
	"github.com/etesync/etebase-go/wire"
)

// sessionOuter is the persisted session envelope. The version byte is also
// the associated data of the inner encryption, so a downgraded blob fails to
// open.
type sessionOuter struct {
	Version       uint8  `msgpack:"version"`
	EncryptedData []byte `msgpack:"encryptedData"`
}

type sessionInner struct {
	User      wire.LoginUser `msgpack:"user"`
	AuthToken string         `msgpack:"authToken,omitempty"`
	ServerURL string         `msgpack:"serverUrl"`
	Version   uint8          `msgpack:"version"`
	Key       []byte         `msgpack:"key"`
}

func sessionStorageCM(encryptionKey []byte, version uint8) (*crypto.StorageCryptoManager, error) {
	key := encryptionKey
	if key == nil {
		key = make([]byte, crypto.SymKeySize)
	}
	if len(key) != crypto.SymKeySize {
		return nil, &errs.ProgrammingError{Detail: "session encryption key must be 32 bytes"}
	}
	return crypto.NewStorageCryptoManager(key, version)
}

// Save serializes the session into an encrypted blob. A nil encryptionKey
// falls back to an all-zero key: the blob is then merely obfuscated, which
// is what callers want when the OS keystore holds the real key elsewhere.
func (a *Account) Save(encryptionKey []byte) ([]byte, error) {
	storageCM, err := sessionStorageCM(encryptionKey, a.version)
	if err != nil {
		return nil, err
	}
	wrappedMain, err := storageCM.Encrypt(a.mainKey, nil)
	if err != nil {
		return nil, err
	}
	inner, err := codec.MsgpackEncode(&sessionInner{
		User:      a.user,
		AuthToken: a.client.Token(),
		ServerURL: a.client.ServerURL(),
		Version:   a.version,
		Key:       wrappedMain,
	})
	if err != nil {
		return nil, err
	}
	encryptedData, err := storageCM.Encrypt(inner, []byte{a.version})
	if err != nil {
		return nil, err
	}
	return codec.MsgpackEncode(&sessionOuter{
		Version:       a.version,
		EncryptedData: encryptedData,
	})
}

// Restore rebuilds an account from a Save blob. A wrong encryptionKey
// surfaces as IntegrityError.
func Restore(blob, encryptionKey []byte, opts ...transport.Option) (*Account, error) {
	if err := crypto.Ready(); err != nil {
		return nil, err
	}
	var outer sessionOuter
	if err := codec.MsgpackDecode(blob, &outer); err != nil {
		return nil, err
	}
	storageCM, err := sessionStorageCM(encryptionKey, outer.Version)
	if err != nil {
		return nil, err
	}
	innerRaw, err := storageCM.Decrypt(outer.EncryptedData, []byte{outer.Version})
	if err != nil {
		return nil, err
	}
	var inner sessionInner
	if err := codec.MsgpackDecode(innerRaw, &inner); err != nil {
		return nil, err
	}
	mainKey, err := storageCM.Decrypt(inner.Key, nil)
	if err != nil {
		return nil, err
	}

	client, err := transport.NewClient(inner.ServerURL, opts...)
	if err != nil {
		return nil, err
	}
	client.SetToken(inner.AuthToken)
	return &Account{
		client:  client,
		user:    inner.User,
		version: inner.Version,
		mainKey: mainKey,
	}, nil
}
