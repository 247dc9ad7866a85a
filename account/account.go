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

// Package account is the upward API surface: the user session and the
// managers the sync layer drives. Network-touching calls take a context and
// suspend; everything purely cryptographic is synchronous.
package account

import (
	"context"

	"github.com/etesync/etebase-go/codec"
	"github.com/etesync/etebase-go/crypto"
	"github.com/etesync/etebase-go/errs"
	"github.com/etesync/etebase-go/transport"
	"github.com/etesync/etebase-go/wire"
)

const (
	actionLogin          = "login"
	actionChangePassword = "changePassword"

	codeUserNotInit = "user_not_init"
)

// Account is the process-wide user session. It exclusively owns the main
// key; the encrypted content blob is decrypted on demand to yield the
// account key and the private identity key.
type Account struct {
	client  *transport.Client
	user    wire.LoginUser
	version uint8
	mainKey []byte
}

// Signup registers a new user and returns a logged-in account.
func Signup(ctx context.Context, client *transport.Client, user wire.User, password string) (*Account, error) {
	if err := crypto.Ready(); err != nil {
		return nil, err
	}
	salt, err := crypto.RandomBytes(crypto.PWSaltSize)
	if err != nil {
		return nil, err
	}
	mainKey, err := crypto.DeriveMainKey(ctx, []byte(password), salt)
	if err != nil {
		return nil, err
	}
	return signupWithKey(ctx, client, user, mainKey, salt)
}

func signupWithKey(ctx context.Context, client *transport.Client, user wire.User, mainKey, salt []byte) (*Account, error) {
	mainCM, err := crypto.NewMainCryptoManager(mainKey, crypto.CurrentVersion)
	if err != nil {
		return nil, err
	}
	loginKP, err := mainCM.LoginKeyPair()
	if err != nil {
		return nil, err
	}
	accountKey, err := crypto.RandomBytes(crypto.SymKeySize)
	if err != nil {
		return nil, err
	}
	identity, err := crypto.NewBoxKeyPair()
	if err != nil {
		return nil, err
	}

	content := make([]byte, 0, crypto.SymKeySize+crypto.BoxKeySize)
	content = append(content, accountKey...)
	content = append(content, identity.PrivateKey()...)
	encryptedContent, err := mainCM.Encrypt(content, nil)
	crypto.Memzero(content)
	if err != nil {
		return nil, err
	}

	var resp wire.LoginResponse
	err = client.Post(ctx, "/authentication/signup/", nil, &wire.SignupBody{
		User:             user,
		Salt:             salt,
		LoginPubkey:      loginKP.PublicKey,
		Pubkey:           identity.PublicKey,
		EncryptedContent: encryptedContent,
	}, &resp)
	if err != nil {
		return nil, err
	}

	client.SetToken(resp.Token)
	return &Account{
		client:  client,
		user:    resp.User,
		version: crypto.CurrentVersion,
		mainKey: mainKey,
	}, nil
}

// Login authenticates with a passphrase. A server that reports the user as
// uninitialized is answered with a transparent signup under the same
// credentials.
func Login(ctx context.Context, client *transport.Client, username, password string) (*Account, error) {
	if err := crypto.Ready(); err != nil {
		return nil, err
	}
	var challenge wire.LoginChallenge
	err := client.Post(ctx, "/authentication/login_challenge/", nil,
		&wire.LoginChallengeRequest{Username: username}, &challenge)
	if err != nil {
		if isUserNotInit(err) {
			return Signup(ctx, client, wire.User{Username: username}, password)
		}
		return nil, err
	}

	mainKey, err := crypto.DeriveMainKey(ctx, []byte(password), challenge.Salt)
	if err != nil {
		return nil, err
	}
	mainCM, err := crypto.NewMainCryptoManager(mainKey, challenge.Version)
	if err != nil {
		return nil, err
	}
	loginKP, err := mainCM.LoginKeyPair()
	if err != nil {
		return nil, err
	}

	response, err := codec.MsgpackEncode(&wire.LoginResponseStruct{
		Username:  username,
		Challenge: challenge.Challenge,
		Host:      client.Host(),
		Action:    actionLogin,
	})
	if err != nil {
		return nil, err
	}

	var resp wire.LoginResponse
	err = client.Post(ctx, "/authentication/login/", nil, &wire.LoginBody{
		Response:  response,
		Signature: loginKP.Sign(response),
	}, &resp)
	if err != nil {
		if isUserNotInit(err) {
			return signupWithKey(ctx, client, wire.User{Username: username}, mainKey, challenge.Salt)
		}
		return nil, err
	}

	client.SetToken(resp.Token)
	return &Account{
		client:  client,
		user:    resp.User,
		version: challenge.Version,
		mainKey: mainKey,
	}, nil
}

func isUserNotInit(err error) bool {
	var unauthorized *errs.UnauthorizedError
	if !errs.As(err, &unauthorized) {
		return false
	}
	return unauthorized.Code == codeUserNotInit
}

// FetchToken renews the bearer token by re-running the challenge flow with
// the held main key.
func (a *Account) FetchToken(ctx context.Context) error {
	var challenge wire.LoginChallenge
	err := a.client.Post(ctx, "/authentication/login_challenge/", nil,
		&wire.LoginChallengeRequest{Username: a.user.Username}, &challenge)
	if err != nil {
		return err
	}
	mainCM, err := a.mainCryptoManager()
	if err != nil {
		return err
	}
	loginKP, err := mainCM.LoginKeyPair()
	if err != nil {
		return err
	}
	response, err := codec.MsgpackEncode(&wire.LoginResponseStruct{
		Username:  a.user.Username,
		Challenge: challenge.Challenge,
		Host:      a.client.Host(),
		Action:    actionLogin,
	})
	if err != nil {
		return err
	}
	var resp wire.LoginResponse
	err = a.client.Post(ctx, "/authentication/login/", nil, &wire.LoginBody{
		Response:  response,
		Signature: loginKP.Sign(response),
	}, &resp)
	if err != nil {
		return err
	}
	a.client.SetToken(resp.Token)
	return nil
}

// ChangePassword re-derives the main key from the new passphrase,
// re-encrypts the account content under it, and signs the swap with the old
// login key so the server replaces credentials atomically.
func (a *Account) ChangePassword(ctx context.Context, newPassword string) error {
	var challenge wire.LoginChallenge
	err := a.client.Post(ctx, "/authentication/login_challenge/", nil,
		&wire.LoginChallengeRequest{Username: a.user.Username}, &challenge)
	if err != nil {
		return err
	}

	oldMainCM, err := a.mainCryptoManager()
	if err != nil {
		return err
	}
	oldLoginKP, err := oldMainCM.LoginKeyPair()
	if err != nil {
		return err
	}
	content, err := oldMainCM.Decrypt(a.user.EncryptedContent, nil)
	if err != nil {
		return err
	}

	newMainKey, err := crypto.DeriveMainKey(ctx, []byte(newPassword), challenge.Salt)
	if err != nil {
		return err
	}
	newMainCM, err := crypto.NewMainCryptoManager(newMainKey, a.version)
	if err != nil {
		return err
	}
	newLoginKP, err := newMainCM.LoginKeyPair()
	if err != nil {
		return err
	}
	newEncryptedContent, err := newMainCM.Encrypt(content, nil)
	if err != nil {
		return err
	}
	crypto.Memzero(content)

	response, err := codec.MsgpackEncode(&wire.LoginResponseStruct{
		Username:         a.user.Username,
		Challenge:        challenge.Challenge,
		Host:             a.client.Host(),
		Action:           actionChangePassword,
		LoginPubkey:      newLoginKP.PublicKey,
		EncryptedContent: newEncryptedContent,
	})
	if err != nil {
		return err
	}
	err = a.client.Post(ctx, "/authentication/change_password/", nil, &wire.LoginBody{
		Response:  response,
		Signature: oldLoginKP.Sign(response),
	}, nil)
	if err != nil {
		return err
	}

	crypto.Memzero(a.mainKey)
	a.mainKey = newMainKey
	a.user.EncryptedContent = newEncryptedContent
	return nil
}

// Logout invalidates the server token and zeroizes the key material.
func (a *Account) Logout(ctx context.Context) error {
	err := a.client.Post(ctx, "/authentication/logout/", nil, nil, nil)
	crypto.Memzero(a.mainKey)
	a.client.SetToken("")
	return err
}

// Username returns the logged-in username.
func (a *Account) Username() string {
	return a.user.Username
}

// AuthToken returns the current bearer token.
func (a *Account) AuthToken() string {
	return a.client.Token()
}

// Client returns the underlying transport client.
func (a *Account) Client() *transport.Client {
	return a.client
}

// CollectionManager returns the manager for collection operations.
func (a *Account) CollectionManager() *CollectionManager {
	return &CollectionManager{acc: a}
}

// InvitationManager returns the manager for sharing invitations.
func (a *Account) InvitationManager() *InvitationManager {
	return &InvitationManager{acc: a}
}

func (a *Account) mainCryptoManager() (*crypto.MainCryptoManager, error) {
	return crypto.NewMainCryptoManager(a.mainKey, a.version)
}

// accountContent decrypts the content blob: 32 bytes of account key
// followed by the 32-byte private identity key.
func (a *Account) accountContent() (accountKey, identityPriv []byte, err error) {
	mainCM, err := a.mainCryptoManager()
	if err != nil {
		return nil, nil, err
	}
	content, err := mainCM.Decrypt(a.user.EncryptedContent, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(content) != crypto.SymKeySize+crypto.BoxKeySize {
		return nil, nil, &errs.IntegrityError{Detail: "account content has unexpected length"}
	}
	return content[:crypto.SymKeySize], content[crypto.SymKeySize:], nil
}

func (a *Account) accountCryptoManager() (*crypto.AccountCryptoManager, error) {
	accountKey, _, err := a.accountContent()
	if err != nil {
		return nil, err
	}
	return crypto.NewAccountCryptoManager(accountKey, a.version)
}

func (a *Account) identityKeyPair() (*crypto.BoxKeyPair, error) {
	_, identityPriv, err := a.accountContent()
	if err != nil {
		return nil, err
	}
	return crypto.NewBoxKeyPairFromPrivateKey(identityPriv)
}
