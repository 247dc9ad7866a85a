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

	"golang.org/x/sync/errgroup"

	"github.com/etesync/etebase-go/crypto"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/model"
	"github.com/etesync/etebase-go/transport"
	"github.com/etesync/etebase-go/wire"
)

// chunkTransferParallelism bounds concurrent out-of-band chunk transfers.
const chunkTransferParallelism = 4

// ItemManager moves a single collection's items to and from the server.
// Batch and transaction calls for one entity must be serialized by the
// caller; the manager does not queue.
type ItemManager struct {
	acc    *Account
	colUID string
	cm     *crypto.CollectionCryptoManager
}

// ItemListResponse is one page of items.
type ItemListResponse struct {
	Items    []*model.EncryptedItem
	Stoken   *string
	Iterator *string
	Done     bool
}

// CollectionUID returns the collection this manager operates on.
func (m *ItemManager) CollectionUID() string {
	return m.colUID
}

// CryptoManager exposes the collection-scope manager for meta/content calls
// on the items of this collection.
func (m *ItemManager) CryptoManager() *crypto.MinimalCollectionCryptoManager {
	return m.cm.MinimalCollectionCryptoManager
}

// Create builds a new item locally. Nothing is sent until Batch or
// Transaction.
func (m *ItemManager) Create(meta interface{}, content []byte) (*model.EncryptedItem, error) {
	return model.NewEncryptedItem(m.cm.MinimalCollectionCryptoManager, meta, content)
}

// Fetch retrieves one item by UID.
func (m *ItemManager) Fetch(ctx context.Context, uid string, options *transport.FetchOptions) (*model.EncryptedItem, error) {
	var w wire.Item
	path := fmt.Sprintf("/collection/%s/item/%s/", url.PathEscape(m.colUID), url.PathEscape(uid))
	if err := m.acc.client.Get(ctx, path, options.Query(), &w); err != nil {
		return nil, err
	}
	return model.ItemFromWire(w)
}

// List returns a page of the collection's items.
func (m *ItemManager) List(ctx context.Context, options *transport.FetchOptions) (*ItemListResponse, error) {
	var resp wire.ItemList
	path := fmt.Sprintf("/collection/%s/item/", url.PathEscape(m.colUID))
	if err := m.acc.client.Get(ctx, path, options.Query(), &resp); err != nil {
		return nil, err
	}
	return itemListFromWire(&resp)
}

// FetchUpdates returns fresh copies of the given items, skipping those whose
// etag the server still agrees with.
func (m *ItemManager) FetchUpdates(ctx context.Context, items []*model.EncryptedItem, options *transport.FetchOptions) (*ItemListResponse, error) {
	deps := make([]wire.ItemBatchDep, len(items))
	for i, item := range items {
		deps[i] = wire.ItemBatchDep{UID: item.UID(), Etag: item.LastEtag()}
	}
	return m.postFetchUpdates(ctx, deps, options)
}

// FetchMultiple retrieves items by UID regardless of local state.
func (m *ItemManager) FetchMultiple(ctx context.Context, uids []string, options *transport.FetchOptions) (*ItemListResponse, error) {
	deps := make([]wire.ItemBatchDep, len(uids))
	for i, uid := range uids {
		deps[i] = wire.ItemBatchDep{UID: uid}
	}
	return m.postFetchUpdates(ctx, deps, options)
}

func (m *ItemManager) postFetchUpdates(ctx context.Context, deps []wire.ItemBatchDep, options *transport.FetchOptions) (*ItemListResponse, error) {
	var resp wire.ItemList
	path := fmt.Sprintf("/collection/%s/item/fetch_updates/", url.PathEscape(m.colUID))
	if err := m.acc.client.Post(ctx, path, options.Query(), deps, &resp); err != nil {
		return nil, err
	}
	return itemListFromWire(&resp)
}

// Batch uploads items without cross-item ordering guarantees. A dependency
// whose etag went stale aborts with ConflictError.
func (m *ItemManager) Batch(ctx context.Context, items []*model.EncryptedItem, deps []*model.EncryptedItem, options *transport.FetchOptions) error {
	return m.upload(ctx, "batch", items, deps, options)
}

// Transaction uploads items atomically: every item's own etag is checked as
// well as the explicit dependencies.
func (m *ItemManager) Transaction(ctx context.Context, items []*model.EncryptedItem, deps []*model.EncryptedItem, options *transport.FetchOptions) error {
	return m.upload(ctx, "transaction", items, deps, options)
}

func (m *ItemManager) upload(ctx context.Context, mode string, items, deps []*model.EncryptedItem, options *transport.FetchOptions) error {
	body := &wire.ItemBatch{Items: make([]wire.Item, len(items))}
	for i, item := range items {
		body.Items[i] = item.ToWire()
	}
	for _, dep := range deps {
		body.Deps = append(body.Deps, wire.ItemBatchDep{UID: dep.UID(), Etag: dep.LastEtag()})
	}
	path := fmt.Sprintf("/collection/%s/item/%s/", url.PathEscape(m.colUID), mode)
	if err := m.acc.client.Post(ctx, path, options.Query(), body, nil); err != nil {
		return err
	}
	for _, item := range items {
		item.MarkSaved()
	}
	return nil
}

// ItemRevisions lists an item's historical revisions, newest first. Paging
// iterates by revision UID; start from the current etag to walk history.
func (m *ItemManager) ItemRevisions(ctx context.Context, item *model.EncryptedItem, options *transport.FetchOptions) (*ItemListResponse, error) {
	var resp wire.ItemList
	path := fmt.Sprintf("/collection/%s/item/%s/revision/", url.PathEscape(m.colUID), url.PathEscape(item.UID()))
	if err := m.acc.client.Get(ctx, path, options.Query(), &resp); err != nil {
		return nil, err
	}
	return itemListFromWire(&resp)
}

// UploadContent pushes the item's chunk ciphertexts out of band. A conflict
// means the server already stores that chunk and counts as success.
func (m *ItemManager) UploadContent(ctx context.Context, item *model.EncryptedItem) error {
	w := item.ToWire()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkTransferParallelism)
	for _, chunk := range w.Content.Chunks {
		if chunk.Cipher == nil {
			continue
		}
		chunk := chunk
		g.Go(func() error {
			path := m.chunkPath(item.UID(), chunk.MAC)
			err := m.acc.client.PutBytes(gctx, path, chunk.Cipher)
			var conflict *errs.ConflictError
			if errs.As(err, &conflict) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// DownloadContent fills in the chunk ciphertexts a prefetch-light listing
// omitted.
func (m *ItemManager) DownloadContent(ctx context.Context, item *model.EncryptedItem) error {
	missing := item.Revision().MissingChunks()
	if len(missing) == 0 {
		return nil
	}
	ciphers := make([][]byte, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkTransferParallelism)
	for i, mac := range missing {
		i, mac := i, mac
		g.Go(func() error {
			data, err := m.acc.client.GetBytes(gctx, m.chunkPath(item.UID(), mac))
			if err != nil {
				return err
			}
			ciphers[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, mac := range missing {
		if err := item.Revision().SetChunkCipher(mac, ciphers[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *ItemManager) chunkPath(itemUID, chunkMAC string) string {
	return fmt.Sprintf("/collection/%s/item/%s/chunk/%s/",
		url.PathEscape(m.colUID), url.PathEscape(itemUID), url.PathEscape(chunkMAC))
}

func itemListFromWire(resp *wire.ItemList) (*ItemListResponse, error) {
	out := &ItemListResponse{
		Stoken:   resp.Stoken,
		Iterator: resp.Iterator,
		Done:     resp.Done,
	}
	for _, w := range resp.Data {
		item, err := model.ItemFromWire(w)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
