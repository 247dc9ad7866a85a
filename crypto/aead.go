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
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/etesync/etebase-go/errs"
)

// Encrypt seals plaintext under key with a random 24-byte nonce and returns
// nonce || ciphertext || tag. The associated data must match at decryption
// but is not ciphered.
func Encrypt(key, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := RandomBytes(NonceSize)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, NonceSize+len(plaintext)+TagSize)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, additionalData), nil
}

// Decrypt opens a message produced by Encrypt.
func Decrypt(key, msg, additionalData []byte) ([]byte, error) {
	if len(msg) < NonceSize+TagSize {
		return nil, &errs.IntegrityError{Detail: "ciphertext too short"}
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, msg[:NonceSize], msg[NonceSize:], additionalData)
	if err != nil {
		return nil, &errs.IntegrityError{Detail: "aead tag mismatch"}
	}
	return plain, nil
}

// EncryptDetached seals plaintext and returns the ciphertext (nonce || ct,
// without the tag) and the 16-byte Poly1305 tag separately. Revision UIDs
// are exactly such detached tags.
func EncryptDetached(key, plaintext, additionalData []byte) (ciphertext, tag []byte, err error) {
	sealed, err := Encrypt(key, plaintext, additionalData)
	if err != nil {
		return nil, nil, err
	}
	split := len(sealed) - TagSize
	return sealed[:split], sealed[split:], nil
}

// DecryptDetached opens a (ciphertext, tag) pair produced by EncryptDetached.
func DecryptDetached(key, ciphertext, tag, additionalData []byte) ([]byte, error) {
	if len(tag) != TagSize {
		return nil, &errs.IntegrityError{Detail: "detached tag has wrong length"}
	}
	msg := make([]byte, 0, len(ciphertext)+TagSize)
	msg = append(msg, ciphertext...)
	msg = append(msg, tag...)
	return Decrypt(key, msg, additionalData)
}

// Verify checks a detached (ciphertext, tag) pair without returning the
// plaintext.
func Verify(key, ciphertext, tag, additionalData []byte) error {
	plain, err := DecryptDetached(key, ciphertext, tag, additionalData)
	if err != nil {
		return err
	}
	Memzero(plain)
	return nil
}

// encryptDeterministic seals plaintext with a caller-chosen nonce. Only the
// deterministic collection-type encoding may use it: the nonce there is a
// MAC of the plaintext, so nonce reuse implies plaintext equality.
func encryptDeterministic(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, NonceSize+len(plaintext)+TagSize)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, additionalData), nil
}
