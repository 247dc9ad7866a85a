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

// invitationInner is the sealed payload of an invitation: the raw collection
// key and the collection-type string.
type invitationInner struct {
	EncryptionKey  []byte `msgpack:"encryptionKey"`
	CollectionType string `msgpack:"collectionType"`
}

// OpenInvitation unseals an incoming invitation with the recipient's
// identity key and the sender's public key carried in the read form. It
// returns the raw collection key and the collection-type string.
func OpenInvitation(identity *crypto.BoxKeyPair, invitation *wire.SignedInvitation) (encryptionKey []byte, colType string, err error) {
	if invitation.FromPubkey == nil {
		return nil, "", &errs.IntegrityError{Detail: "invitation without sender pubkey"}
	}
	padded, err := identity.Decrypt(invitation.FromPubkey, invitation.SignedEncryptionKey)
	if err != nil {
		return nil, "", err
	}
	inner, err := codec.UnpadFixed(padded, codec.FixedBlockSize)
	if err != nil {
		return nil, "", err
	}
	var payload invitationInner
	if err := codec.MsgpackDecode(inner, &payload); err != nil {
		return nil, "", &errs.IntegrityError{Detail: "invitation payload malformed"}
	}
	if len(payload.EncryptionKey) != crypto.SymKeySize {
		return nil, "", &errs.IntegrityError{Detail: "invitation carries malformed collection key"}
	}
	return payload.EncryptionKey, payload.CollectionType, nil
}

// AcceptInvitation re-wraps an unsealed collection key under the
// recipient's own account manager, bound to the type UID recomputed under
// that account. The result is the body of the server accept call.
func AcceptInvitation(accountCM *crypto.AccountCryptoManager, encryptionKey []byte, colType string) (*wire.InvitationAccept, error) {
	typeUID, err := accountCM.ColTypeToUID(colType)
	if err != nil {
		return nil, err
	}
	wrapped, err := accountCM.Encrypt(encryptionKey, typeUID)
	if err != nil {
		return nil, err
	}
	return &wire.InvitationAccept{
		CollectionType: typeUID,
		EncryptionKey:  wrapped,
	}, nil
}
