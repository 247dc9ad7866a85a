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

// Package model holds the encrypted entities: revisions, items, collections
// and invitations. Nothing in this package talks to the network; managers in
// the account package move these values to and from the server.
package model

import (
	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/crypto"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/wire"
)

// EncryptedRevision is the cryptographic payload of an item. Its UID is the
// detached Poly1305 tag of the sealed metadata, computed with the AD hash as
// associated data, so meta, deletion state, entity identity and the ordered
// chunk list are all bound together: changing any of them invalidates the UID.
type EncryptedRevision struct {
	uid     string
	meta    []byte
	deleted bool
	chunks  []wire.Chunk
}

// NewEncryptedRevision builds a fresh revision for meta and content.
// additionalData is the owning entity's UID bytes.
func NewEncryptedRevision(cm *crypto.CollectionItemCryptoManager, additionalData []byte, meta interface{}, content []byte) (*EncryptedRevision, error) {
	rev := &EncryptedRevision{}
	chunks, err := makeChunks(cm, content)
	if err != nil {
		return nil, err
	}
	rev.chunks = chunks
	if err := rev.SetMeta(cm, additionalData, meta); err != nil {
		return nil, err
	}
	return rev, nil
}

// UID returns the revision identifier: the base64 of the meta AEAD tag.
func (r *EncryptedRevision) UID() string {
	return r.uid
}

// Deleted reports whether this revision is a tombstone.
func (r *EncryptedRevision) Deleted() bool {
	return r.deleted
}

// adHash binds the deletion flag, the entity UID, and the ordered chunk MAC
// list into the associated data used when sealing the metadata.
func (r *EncryptedRevision) adHash(cm *crypto.CollectionItemCryptoManager, additionalData []byte) ([]byte, error) {
	mac, err := cm.Mac()
	if err != nil {
		return nil, err
	}
	deleted := byte(0)
	if r.deleted {
		deleted = 1
	}
	mac.Update([]byte{deleted})
	mac.UpdateWithLenPrefix(additionalData)

	inner, err := crypto.NewMac(nil)
	if err != nil {
		return nil, err
	}
	for _, ch := range r.chunks {
		macBytes, err := codec.FromBase64(ch.MAC)
		if err != nil {
			return nil, &errs.IntegrityError{Detail: "chunk mac is not valid base64"}
		}
		inner.Update(macBytes)
	}
	mac.Update(inner.Sum())
	return mac.Sum(), nil
}

// SetMeta seals meta and rebinds the revision UID to the current state.
func (r *EncryptedRevision) SetMeta(cm *crypto.CollectionItemCryptoManager, additionalData []byte, meta interface{}) error {
	raw, err := codec.MsgpackEncode(meta)
	if err != nil {
		return err
	}
	return r.setMetaRaw(cm, additionalData, raw)
}

func (r *EncryptedRevision) setMetaRaw(cm *crypto.CollectionItemCryptoManager, additionalData, raw []byte) error {
	ad, err := r.adHash(cm, additionalData)
	if err != nil {
		return err
	}
	ciphertext, tag, err := cm.EncryptDetached(codec.Padme(raw), ad)
	if err != nil {
		return err
	}
	r.meta = ciphertext
	r.uid = codec.ToBase64(tag)
	return nil
}

// GetMeta verifies the revision and decodes the metadata into out.
func (r *EncryptedRevision) GetMeta(cm *crypto.CollectionItemCryptoManager, additionalData []byte, out interface{}) error {
	raw, err := r.getMetaRaw(cm, additionalData)
	if err != nil {
		return err
	}
	return codec.MsgpackDecode(raw, out)
}

func (r *EncryptedRevision) getMetaRaw(cm *crypto.CollectionItemCryptoManager, additionalData []byte) ([]byte, error) {
	ad, err := r.adHash(cm, additionalData)
	if err != nil {
		return nil, err
	}
	tag, err := codec.FromBase64(r.uid)
	if err != nil {
		return nil, &errs.IntegrityError{Detail: "revision uid is not valid base64"}
	}
	padded, err := cm.DecryptDetached(r.meta, tag, ad)
	if err != nil {
		return nil, err
	}
	return codec.Unpadme(padded)
}

// SetContent re-chunks content and rebinds the revision UID to the new chunk
// list, keeping the current metadata.
func (r *EncryptedRevision) SetContent(cm *crypto.CollectionItemCryptoManager, additionalData, content []byte) error {
	raw, err := r.getMetaRaw(cm, additionalData)
	if err != nil {
		return err
	}
	chunks, err := makeChunks(cm, content)
	if err != nil {
		return err
	}
	r.chunks = chunks
	return r.setMetaRaw(cm, additionalData, raw)
}

// GetContent decrypts, verifies and reassembles the content in original
// order. A chunk without ciphertext surfaces as MissingContentError.
func (r *EncryptedRevision) GetContent(cm *crypto.CollectionItemCryptoManager) ([]byte, error) {
	if len(r.chunks) == 0 {
		return []byte{}, nil
	}

	plains := make([][]byte, len(r.chunks))
	for i, ch := range r.chunks {
		if ch.Cipher == nil {
			return nil, &errs.MissingContentError{UID: ch.MAC}
		}
		padded, err := cm.Decrypt(ch.Cipher, nil)
		if err != nil {
			return nil, err
		}
		plain, err := codec.Unpadme(padded)
		if err != nil {
			return nil, err
		}
		macBytes, err := codec.FromBase64(ch.MAC)
		if err != nil {
			return nil, &errs.IntegrityError{Detail: "chunk mac is not valid base64"}
		}
		computed, err := cm.ChunkMac(plain)
		if err != nil {
			return nil, err
		}
		if !crypto.Memcmp(computed, macBytes) {
			return nil, &errs.IntegrityError{Detail: "chunk mac mismatch"}
		}
		plains[i] = plain
	}

	if len(plains) == 1 {
		return plains[0], nil
	}

	// The trailing directory chunk carries the inverse shuffle permutation.
	var directory [][]int
	if err := codec.MsgpackDecode(plains[len(plains)-1], &directory); err != nil {
		return nil, &errs.IntegrityError{Detail: "directory chunk malformed"}
	}
	if len(directory) != 1 {
		return nil, &errs.IntegrityError{Detail: "directory chunk malformed"}
	}
	indices := directory[0]
	data := plains[:len(plains)-1]

	var size int
	for _, idx := range indices {
		if idx < 0 || idx >= len(data) {
			return nil, &errs.IntegrityError{Detail: "directory index out of range"}
		}
		size += len(data[idx])
	}
	out := make([]byte, 0, size)
	for _, idx := range indices {
		out = append(out, data[idx]...)
	}
	return out, nil
}

// Delete turns the revision into a tombstone. Chunks are kept only when
// preserveContent is requested.
func (r *EncryptedRevision) Delete(cm *crypto.CollectionItemCryptoManager, additionalData []byte, preserveContent bool) error {
	raw, err := r.getMetaRaw(cm, additionalData)
	if err != nil {
		return err
	}
	r.deleted = true
	if !preserveContent {
		r.chunks = nil
	}
	return r.setMetaRaw(cm, additionalData, raw)
}

// Verify recomputes the AD hash and checks the sealed metadata against the
// UID-as-tag without exposing the plaintext.
func (r *EncryptedRevision) Verify(cm *crypto.CollectionItemCryptoManager, additionalData []byte) error {
	ad, err := r.adHash(cm, additionalData)
	if err != nil {
		return err
	}
	tag, err := codec.FromBase64(r.uid)
	if err != nil {
		return &errs.IntegrityError{Detail: "revision uid is not valid base64"}
	}
	return cm.VerifyDetached(r.meta, tag, ad)
}

// Clone deep-copies the revision so a persisted one stays referable while a
// mutation builds its successor.
func (r *EncryptedRevision) Clone() *EncryptedRevision {
	out := &EncryptedRevision{
		uid:     r.uid,
		meta:    append([]byte(nil), r.meta...),
		deleted: r.deleted,
	}
	if r.chunks != nil {
		out.chunks = make([]wire.Chunk, len(r.chunks))
		for i, ch := range r.chunks {
			out.chunks[i] = wire.Chunk{MAC: ch.MAC}
			if ch.Cipher != nil {
				out.chunks[i].Cipher = append([]byte(nil), ch.Cipher...)
			}
		}
	}
	return out
}

// toWire renders the revision for upload. withContent=false drops the chunk
// ciphertexts, leaving only the MAC list.
func (r *EncryptedRevision) toWire(withContent bool) wire.Revision {
	chunks := make([]wire.Chunk, len(r.chunks))
	for i, ch := range r.chunks {
		chunks[i] = wire.Chunk{MAC: ch.MAC}
		if withContent {
			chunks[i].Cipher = ch.Cipher
		}
	}
	return wire.Revision{
		UID:     r.uid,
		Meta:    r.meta,
		Deleted: r.deleted,
		Chunks:  chunks,
	}
}

func revisionFromWire(w wire.Revision) *EncryptedRevision {
	return &EncryptedRevision{
		uid:     w.UID,
		meta:    w.Meta,
		deleted: w.Deleted,
		chunks:  w.Chunks,
	}
}

// MissingChunks lists the MACs of chunks whose ciphertext is not held
// locally. Used to drive out-of-band chunk download.
func (r *EncryptedRevision) MissingChunks() []string {
	var out []string
	for _, ch := range r.chunks {
		if ch.Cipher == nil {
			out = append(out, ch.MAC)
		}
	}
	return out
}

// SetChunkCipher installs downloaded ciphertext for the chunk with the given
// MAC.
func (r *EncryptedRevision) SetChunkCipher(mac string, cipher []byte) error {
	for i := range r.chunks {
		if r.chunks[i].MAC == mac {
			r.chunks[i].Cipher = cipher
			return nil
		}
	}
	return &errs.ProgrammingError{Detail: "chunk " + mac + " does not belong to this revision"}
}

// makeChunks runs the content-defined splitter, MACs and shuffles the chunks,
// deduplicates by MAC, appends the directory chunk when the content spans
// more than one chunk, and seals each padded chunk.
func makeChunks(cm *crypto.CollectionItemCryptoManager, content []byte) ([]wire.Chunk, error) {
	type rawChunk struct {
		mac   []byte
		plain []byte
	}

	parts := cm.Chunks(content)
	chunks := make([]rawChunk, len(parts))
	for i, p := range parts {
		mac, err := cm.ChunkMac(p)
		if err != nil {
			return nil, err
		}
		chunks[i] = rawChunk{mac: mac, plain: p}
	}

	indices, err := codec.Shuffle(chunks)
	if err != nil {
		return nil, err
	}

	// Deduplicate by MAC. Slots of dropped duplicates are rewritten to point
	// at the survivor.
	seen := make(map[string]int, len(chunks))
	posMap := make([]int, len(chunks))
	deduped := chunks[:0]
	for pos, ch := range chunks {
		key := codec.ToBase64(ch.mac)
		if existing, ok := seen[key]; ok {
			posMap[pos] = existing
			continue
		}
		seen[key] = len(deduped)
		posMap[pos] = len(deduped)
		deduped = append(deduped, ch)
	}
	for i := range indices {
		indices[i] = posMap[indices[i]]
	}

	// Multi-chunk content gets a trailing directory recording the inverse
	// permutation, so order is recoverable without server-side assumptions.
	if len(indices) > 1 {
		dirPlain, err := codec.MsgpackEncode([][]int{indices})
		if err != nil {
			return nil, err
		}
		dirMac, err := cm.ChunkMac(dirPlain)
		if err != nil {
			return nil, err
		}
		deduped = append(deduped, rawChunk{mac: dirMac, plain: dirPlain})
	}

	out := make([]wire.Chunk, len(deduped))
	for i, ch := range deduped {
		cipher, err := cm.Encrypt(codec.Padme(ch.plain), nil)
		if err != nil {
			return nil, err
		}
		out[i] = wire.Chunk{MAC: codec.ToBase64(ch.mac), Cipher: cipher}
	}
	return out, nil
}
