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

// Package wire declares the msgpack shapes exchanged with the server.
// Undefined fields are omitted, never encoded as nil, so optional members
// carry omitempty tags and nullable members are pointers.
package wire

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/etesync/etebase-go/errs"
)

// Chunk is one [mac, cipher?] pair of a revision. The MAC is the base64
// chunk identity; the cipher bytes are absent in prefetch-light listings.
type Chunk struct {
	MAC    string
	Cipher []byte
}

var (
	_ msgpack.CustomEncoder = (*Chunk)(nil)
	_ msgpack.CustomDecoder = (*Chunk)(nil)
)

// EncodeMsgpack encodes the chunk as a 1- or 2-element array, omitting the
// cipher entirely when it is not held.
func (c *Chunk) EncodeMsgpack(enc *msgpack.Encoder) error {
	n := 1
	if c.Cipher != nil {
		n = 2
	}
	if err := enc.EncodeArrayLen(n); err != nil {
		return err
	}
	if err := enc.EncodeString(c.MAC); err != nil {
		return err
	}
	if c.Cipher != nil {
		return enc.EncodeBytes(c.Cipher)
	}
	return nil
}

// DecodeMsgpack accepts both array forms, plus a nil second element.
func (c *Chunk) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 1 || n > 2 {
		return &errs.IntegrityError{Detail: "chunk pair has unexpected arity"}
	}
	if c.MAC, err = dec.DecodeString(); err != nil {
		return err
	}
	c.Cipher = nil
	if n == 2 {
		if c.Cipher, err = dec.DecodeBytes(); err != nil {
			return err
		}
	}
	return nil
}

// Revision is the server-facing form of an encrypted revision.
type Revision struct {
	UID     string  `msgpack:"uid"`
	Meta    []byte  `msgpack:"meta"`
	Deleted bool    `msgpack:"deleted"`
	Chunks  []Chunk `msgpack:"chunks"`
}

// Item is the server-facing form of an encrypted item.
type Item struct {
	UID           string   `msgpack:"uid"`
	Version       uint8    `msgpack:"version"`
	EncryptionKey []byte   `msgpack:"encryptionKey,omitempty"`
	Content       Revision `msgpack:"content"`
	Etag          *string  `msgpack:"etag"`
}

// Collection is the server-facing form of an encrypted collection. The
// read form carries the access level and sync token assigned server-side.
type Collection struct {
	CollectionKey  []byte  `msgpack:"collectionKey"`
	CollectionType []byte  `msgpack:"collectionType,omitempty"`
	Item           Item    `msgpack:"item"`
	AccessLevel    int     `msgpack:"accessLevel,omitempty"`
	Stoken         *string `msgpack:"stoken,omitempty"`
}

// SignedInvitation is an invitation envelope. FromUsername/FromPubkey are
// only present on the read form.
type SignedInvitation struct {
	UID                 string `msgpack:"uid"`
	Version             uint8  `msgpack:"version"`
	Username            string `msgpack:"username"`
	Collection          string `msgpack:"collection"`
	AccessLevel         int    `msgpack:"accessLevel"`
	SignedEncryptionKey []byte `msgpack:"signedEncryptionKey"`
	FromUsername        string `msgpack:"fromUsername,omitempty"`
	FromPubkey          []byte `msgpack:"fromPubkey,omitempty"`
}

// InvitationAccept is the body of the invitation accept call: the type UID
// and collection key re-wrapped under the recipient's account key.
type InvitationAccept struct {
	CollectionType []byte `msgpack:"collectionType"`
	EncryptionKey  []byte `msgpack:"encryptionKey"`
}

// User identifies an account holder.
type User struct {
	Username string `msgpack:"username"`
	Email    string `msgpack:"email"`
}

// LoginUser is the server's view of the logged-in user.
type LoginUser struct {
	Username         string `msgpack:"username"`
	Email            string `msgpack:"email"`
	Pubkey           []byte `msgpack:"pubkey"`
	EncryptedContent []byte `msgpack:"encryptedContent"`
}

// SignupBody is the signup request.
type SignupBody struct {
	User             User   `msgpack:"user"`
	Salt             []byte `msgpack:"salt"`
	LoginPubkey      []byte `msgpack:"loginPubkey"`
	Pubkey           []byte `msgpack:"pubkey"`
	EncryptedContent []byte `msgpack:"encryptedContent"`
}

// LoginChallengeRequest asks the server for a login challenge.
type LoginChallengeRequest struct {
	Username string `msgpack:"username"`
}

// LoginChallenge is the server's response to a challenge request.
type LoginChallenge struct {
	Username  string `msgpack:"username,omitempty"`
	Challenge []byte `msgpack:"challenge"`
	Salt      []byte `msgpack:"salt"`
	Version   uint8  `msgpack:"version"`
}

// LoginBody carries a signed challenge response.
type LoginBody struct {
	Response  []byte `msgpack:"response"`
	Signature []byte `msgpack:"signature"`
}

// LoginResponse is the server's answer to a successful login or signup.
type LoginResponse struct {
	Token string    `msgpack:"token"`
	User  LoginUser `msgpack:"user"`
}

// LoginResponseStruct is the inner signed payload of login and
// password-change calls.
type LoginResponseStruct struct {
	Username         string `msgpack:"username"`
	Challenge        []byte `msgpack:"challenge"`
	Host             string `msgpack:"host"`
	Action           string `msgpack:"action"`
	LoginPubkey      []byte `msgpack:"loginPubkey,omitempty"`
	EncryptedContent []byte `msgpack:"encryptedContent,omitempty"`
}

// UserProfile is the public profile fetched before inviting someone.
type UserProfile struct {
	Pubkey []byte `msgpack:"pubkey"`
}

// Member is one collection member entry.
type Member struct {
	Username    string `msgpack:"username"`
	AccessLevel int    `msgpack:"accessLevel"`
}

// MemberPatch modifies a member's access level.
type MemberPatch struct {
	AccessLevel int `msgpack:"accessLevel"`
}

// RemovedCollection marks a collection the user lost access to, reported in
// stoken-filtered listings.
type RemovedCollection struct {
	UID string `msgpack:"uid"`
}

// CollectionList is the response of the collection list endpoint.
type CollectionList struct {
	Data               []Collection        `msgpack:"data"`
	Stoken             *string             `msgpack:"stoken"`
	Done               bool                `msgpack:"done"`
	RemovedMemberships []RemovedCollection `msgpack:"removedMemberships,omitempty"`
}

// CollectionListRequest filters the collection list by type UIDs.
type CollectionListRequest struct {
	CollectionTypes [][]byte `msgpack:"collectionTypes"`
}

// ItemList is the response of item list, fetch_updates and revision listing.
type ItemList struct {
	Data     []Item  `msgpack:"data"`
	Stoken   *string `msgpack:"stoken,omitempty"`
	Iterator *string `msgpack:"iterator,omitempty"`
	Done     bool    `msgpack:"done"`
}

// ItemBatch is the body of the batch and transaction endpoints.
type ItemBatch struct {
	Items []Item           `msgpack:"items"`
	Deps  []ItemBatchDep   `msgpack:"deps,omitempty"`
}

// ItemBatchDep pins a dependency item to the etag the caller last saw.
type ItemBatchDep struct {
	UID  string  `msgpack:"uid"`
	Etag *string `msgpack:"etag,omitempty"`
}

// InvitationList is the response of the incoming/outgoing invitation lists.
type InvitationList struct {
	Data     []SignedInvitation `msgpack:"data"`
	Iterator *string            `msgpack:"iterator,omitempty"`
	Done     bool               `msgpack:"done"`
}

// MemberList is the response of the member list endpoint.
type MemberList struct {
	Data     []Member `msgpack:"data"`
	Iterator *string  `msgpack:"iterator,omitempty"`
	Done     bool     `msgpack:"done"`
}

// ErrorBody is the server's error detail shape.
type ErrorBody struct {
	Code   string `msgpack:"code"`
	Detail string `msgpack:"detail"`
}

// WebSocketTicketRequest asks for a short-lived subscription ticket.
type WebSocketTicketRequest struct {
	Collection string `msgpack:"collection"`
}

// WebSocketTicket is the server-issued subscription ticket.
type WebSocketTicket struct {
	Ticket string `msgpack:"ticket"`
}
