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
	"context"
	"fmt"
	"net/url"

	"github.com/etesync/etebase-go/crypto"
	"github.com/etesync/etebase-go/model"
	"github.com/etesync/etebase-go/transport"
	"github.com/etesync/etebase-go/wire"
)

// CollectionManager creates, fetches and uploads collections.
type CollectionManager struct {
	acc *Account
}

// CollectionListResponse is one page of decodable collections.
type CollectionListResponse struct {
	Collections        []*model.EncryptedCollection
	Stoken             *string
	Done               bool
	RemovedMemberships []string
}

// Create builds a new collection locally. Nothing is sent until Upload.
func (m *CollectionManager) Create(colType string, meta interface{}, content []byte) (*model.EncryptedCollection, error) {
	accountCM, err := m.acc.accountCryptoManager()
	if err != nil {
		return nil, err
	}
	return model.NewEncryptedCollection(accountCM, colType, meta, content)
}

// Fetch retrieves one collection by UID.
func (m *CollectionManager) Fetch(ctx context.Context, uid string, options *transport.FetchOptions) (*model.EncryptedCollection, error) {
	var w wire.Collection
	path := fmt.Sprintf("/collection/%s/", url.PathEscape(uid))
	if err := m.acc.client.Get(ctx, path, options.Query(), &w); err != nil {
		return nil, err
	}
	return model.CollectionFromWire(w)
}

// List returns the collections of the given types. With a stoken it also
// reports memberships removed since that token.
func (m *CollectionManager) List(ctx context.Context, colTypes []string, options *transport.FetchOptions) (*CollectionListResponse, error) {
	accountCM, err := m.acc.accountCryptoManager()
	if err != nil {
		return nil, err
	}
	typeUIDs := make([][]byte, len(colTypes))
	for i, t := range colTypes {
		if typeUIDs[i], err = accountCM.ColTypeToUID(t); err != nil {
			return nil, err
		}
	}

	var resp wire.CollectionList
	err = m.acc.client.Post(ctx, "/collection/list_multi/", options.Query(),
		&wire.CollectionListRequest{CollectionTypes: typeUIDs}, &resp)
	if err != nil {
		return nil, err
	}

	out := &CollectionListResponse{
		Stoken: resp.Stoken,
		Done:   resp.Done,
	}
	for _, w := range resp.Data {
		col, err := model.CollectionFromWire(w)
		if err != nil {
			return nil, err
		}
		out.Collections = append(out.Collections, col)
	}
	for _, removed := range resp.RemovedMemberships {
		out.RemovedMemberships = append(out.RemovedMemberships, removed.UID)
	}
	return out, nil
}

// Upload persists the collection: a POST for a collection the server has
// never seen, a batch over the embedded item otherwise.
func (m *CollectionManager) Upload(ctx context.Context, col *model.EncryptedCollection, options *transport.FetchOptions) error {
	if col.Item().LastEtag() == nil {
		if err := m.acc.client.Post(ctx, "/collection/", options.Query(), col.ToWire(), nil); err != nil {
			return err
		}
		col.MarkSaved()
		return nil
	}
	return m.uploadExisting(ctx, col, options, "batch")
}

// Transaction persists collection changes with strict etag semantics: a
// stale local copy aborts with ConflictError instead of overwriting.
func (m *CollectionManager) Transaction(ctx context.Context, col *model.EncryptedCollection, options *transport.FetchOptions) error {
	if col.Item().LastEtag() == nil {
		return m.Upload(ctx, col, options)
	}
	return m.uploadExisting(ctx, col, options, "transaction")
}

func (m *CollectionManager) uploadExisting(ctx context.Context, col *model.EncryptedCollection, options *transport.FetchOptions, mode string) error {
	path := fmt.Sprintf("/collection/%s/item/%s/", url.PathEscape(col.UID()), mode)
	body := &wire.ItemBatch{Items: []wire.Item{col.Item().ToWire()}}
	if err := m.acc.client.Post(ctx, path, options.Query(), body, nil); err != nil {
		return err
	}
	col.MarkSaved()
	return nil
}

// ItemManager returns the item manager for a collection. The collection key
// is unwrapped once, here; items derive their keys from it.
func (m *CollectionManager) ItemManager(col *model.EncryptedCollection) (*ItemManager, error) {
	accountCM, err := m.acc.accountCryptoManager()
	if err != nil {
		return nil, err
	}
	colCM, err := col.CryptoManager(accountCM)
	if err != nil {
		return nil, err
	}
	return &ItemManager{
		acc:    m.acc,
		colUID: col.UID(),
		cm:     colCM,
	}, nil
}

// MemberManager returns the membership manager for a collection.
func (m *CollectionManager) MemberManager(col *model.EncryptedCollection) *MemberManager {
	return &MemberManager{acc: m.acc, colUID: col.UID()}
}

// CryptoManager exposes the unwrapped collection-scope manager, for callers
// that work on the collection's meta and content directly.
func (m *CollectionManager) CryptoManager(col *model.EncryptedCollection) (*crypto.CollectionCryptoManager, error) {
	accountCM, err := m.acc.accountCryptoManager()
	if err != nil {
		return nil, err
	}
	return col.CryptoManager(accountCM)
}

// Subscribe opens the change feed for a collection.
func (m *CollectionManager) Subscribe(ctx context.Context, col *model.EncryptedCollection, cb transport.ItemListCallback) (*transport.Subscription, error) {
	return transport.Subscribe(ctx, m.acc.client, col.UID(), col.Stoken(), cb)
}
