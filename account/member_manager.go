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

	"github.com/etesync/etebase-go/model"
	"github.com/etesync/etebase-go/transport"
	"github.com/etesync/etebase-go/wire"
)

// MemberManager administers one collection's membership.
type MemberManager struct {
	acc    *Account
	colUID string
}

// MemberListResponse is one page of members.
type MemberListResponse struct {
	Members  []wire.Member
	Iterator *string
	Done     bool
}

// List returns a page of the collection's members.
func (m *MemberManager) List(ctx context.Context, options *transport.FetchOptions) (*MemberListResponse, error) {
	var resp wire.MemberList
	path := fmt.Sprintf("/collection/%s/member/", url.PathEscape(m.colUID))
	if err := m.acc.client.Get(ctx, path, options.Query(), &resp); err != nil {
		return nil, err
	}
	return &MemberListResponse{
		Members:  resp.Data,
		Iterator: resp.Iterator,
		Done:     resp.Done,
	}, nil
}

// Remove revokes a member's access.
func (m *MemberManager) Remove(ctx context.Context, username string) error {
	path := fmt.Sprintf("/collection/%s/member/%s/", url.PathEscape(m.colUID), url.PathEscape(username))
	return m.acc.client.Delete(ctx, path)
}

// Leave gives up this account's own membership.
func (m *MemberManager) Leave(ctx context.Context) error {
	path := fmt.Sprintf("/collection/%s/member/leave/", url.PathEscape(m.colUID))
	return m.acc.client.Post(ctx, path, nil, nil, nil)
}

// ModifyAccessLevel changes a member's access level.
func (m *MemberManager) ModifyAccessLevel(ctx context.Context, username string, accessLevel model.AccessLevel) error {
	path := fmt.Sprintf("/collection/%s/member/%s/", url.PathEscape(m.colUID), url.PathEscape(username))
	return m.acc.client.Patch(ctx, path, &wire.MemberPatch{AccessLevel: int(accessLevel)}, nil)
}
