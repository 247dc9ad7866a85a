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

// InvitationManager shares collections between accounts via public-key
// sealed envelopes.
type InvitationManager struct {
	acc *Account
}

// InvitationListResponse is one page of invitations.
type InvitationListResponse struct {
	Invitations []*wire.SignedInvitation
	Iterator    *string
	Done        bool
}

// ListIncoming returns a page of invitations addressed to this account.
func (m *InvitationManager) ListIncoming(ctx context.Context, options *transport.FetchOptions) (*InvitationListResponse, error) {
	return m.list(ctx, "incoming", options)
}

// ListOutgoing returns a page of invitations this account has sent.
func (m *InvitationManager) ListOutgoing(ctx context.Context, options *transport.FetchOptions) (*InvitationListResponse, error) {
	return m.list(ctx, "outgoing", options)
}

func (m *InvitationManager) list(ctx context.Context, direction string, options *transport.FetchOptions) (*InvitationListResponse, error) {
	var resp wire.InvitationList
	path := fmt.Sprintf("/invitation/%s/", direction)
	if err := m.acc.client.Get(ctx, path, options.Query(), &resp); err != nil {
		return nil, err
	}
	out := &InvitationListResponse{Iterator: resp.Iterator, Done: resp.Done}
	for i := range resp.Data {
		out.Invitations = append(out.Invitations, &resp.Data[i])
	}
	return out, nil
}

// FetchUserProfile returns a user's public identity key. Compare its pretty
// fingerprint out of band before inviting.
func (m *InvitationManager) FetchUserProfile(ctx context.Context, username string) (*wire.UserProfile, error) {
	var profile wire.UserProfile
	q := url.Values{}
	q.Set("username", username)
	err := m.acc.client.Get(ctx, "/invitation/outgoing/fetch_user_profile/", q, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// PrettyFingerprint renders a profile pubkey for out-of-band verification.
func (m *InvitationManager) PrettyFingerprint(pubkey []byte) (string, error) {
	return crypto.PrettyFingerprint(pubkey)
}

// Invite seals the collection key for username's pubkey at the given access
// level and registers the invitation server-side.
func (m *InvitationManager) Invite(ctx context.Context, col *model.EncryptedCollection, username string, pubkey []byte, accessLevel model.AccessLevel) error {
	accountCM, err := m.acc.accountCryptoManager()
	if err != nil {
		return err
	}
	identity, err := m.acc.identityKeyPair()
	if err != nil {
		return err
	}
	invitation, err := col.CreateInvitation(accountCM, identity, username, pubkey, accessLevel)
	if err != nil {
		return err
	}
	return m.acc.client.Post(ctx, "/invitation/outgoing/", nil, invitation, nil)
}

// Accept unseals an incoming invitation, re-wraps the collection key under
// this account, and confirms server-side.
func (m *InvitationManager) Accept(ctx context.Context, invitation *wire.SignedInvitation) error {
	identity, err := m.acc.identityKeyPair()
	if err != nil {
		return err
	}
	encryptionKey, colType, err := model.OpenInvitation(identity, invitation)
	if err != nil {
		return err
	}
	accountCM, err := m.acc.accountCryptoManager()
	if err != nil {
		return err
	}
	body, err := model.AcceptInvitation(accountCM, encryptionKey, colType)
	if err != nil {
		return err
	}
	crypto.Memzero(encryptionKey)
	path := fmt.Sprintf("/invitation/incoming/%s/accept/", url.PathEscape(invitation.UID))
	return m.acc.client.Post(ctx, path, nil, body, nil)
}

// Reject deletes an incoming invitation.
func (m *InvitationManager) Reject(ctx context.Context, invitation *wire.SignedInvitation) error {
	path := fmt.Sprintf("/invitation/incoming/%s/", url.PathEscape(invitation.UID))
	return m.acc.client.Delete(ctx, path)
}

// Disinvite withdraws an outgoing invitation.
func (m *InvitationManager) Disinvite(ctx context.Context, invitation *wire.SignedInvitation) error {
	path := fmt.Sprintf("/invitation/outgoing/%s/", url.PathEscape(invitation.UID))
	return m.acc.client.Delete(ctx, path)
}
