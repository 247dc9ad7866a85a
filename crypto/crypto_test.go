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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etesync/etebase-go/errs"
)

func testKey(b byte) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = b
	}
	return key
}

func TestInitIsIdempotent(t *testing.T) {
	require.NoError(t, Init(context.Background()))
	require.NoError(t, Init(context.Background()))
	require.NoError(t, Ready())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(1)
	plaintext := []byte("some metadata")
	ad := []byte("entity-uid")

	msg, err := Encrypt(key, plaintext, ad)
	require.NoError(t, err)
	require.Len(t, msg, NonceSize+len(plaintext)+TagSize)

	out, err := Decrypt(key, msg, ad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestDecryptRejectsTampering(t *testing.T) {
	key := testKey(1)
	msg, err := Encrypt(key, []byte("payload"), []byte("ad"))
	require.NoError(t, err)

	var integrity *errs.IntegrityError

	t.Run("FlippedCiphertextBit", func(t *testing.T) {
		bad := append([]byte(nil), msg...)
		bad[NonceSize] ^= 1
		_, err := Decrypt(key, bad, []byte("ad"))
		require.ErrorAs(t, err, &integrity)
	})

	t.Run("WrongAssociatedData", func(t *testing.T) {
		_, err := Decrypt(key, msg, []byte("da"))
		require.ErrorAs(t, err, &integrity)
	})

	t.Run("WrongKey", func(t *testing.T) {
		_, err := Decrypt(testKey(2), msg, []byte("ad"))
		require.ErrorAs(t, err, &integrity)
	})

	t.Run("TooShort", func(t *testing.T) {
		_, err := Decrypt(key, msg[:NonceSize+TagSize-1], []byte("ad"))
		require.ErrorAs(t, err, &integrity)
	})
}

func TestDetachedModes(t *testing.T) {
	key := testKey(3)
	plaintext := []byte("detached payload")
	ad := []byte("binding")

	ciphertext, tag, err := EncryptDetached(key, plaintext, ad)
	require.NoError(t, err)
	require.Len(t, tag, TagSize)

	out, err := DecryptDetached(key, ciphertext, tag, ad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)

	require.NoError(t, Verify(key, ciphertext, tag, ad))

	var integrity *errs.IntegrityError
	badTag := append([]byte(nil), tag...)
	badTag[0] ^= 1
	require.ErrorAs(t, Verify(key, ciphertext, badTag, ad), &integrity)
	_, err = DecryptDetached(key, ciphertext, tag[:TagSize-1], ad)
	require.ErrorAs(t, err, &integrity)
}

func TestDeriveSubkey(t *testing.T) {
	parent := testKey(5)

	t.Run("Deterministic", func(t *testing.T) {
		a, err := DeriveSubkey(parent, 1, "Main    ")
		require.NoError(t, err)
		b, err := DeriveSubkey(parent, 1, "Main    ")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, KeySize)
	})

	t.Run("IdSeparation", func(t *testing.T) {
		a, err := DeriveSubkey(parent, 1, "Main    ")
		require.NoError(t, err)
		b, err := DeriveSubkey(parent, 2, "Main    ")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("ContextSeparation", func(t *testing.T) {
		a, err := DeriveSubkey(parent, 1, "Main    ")
		require.NoError(t, err)
		b, err := DeriveSubkey(parent, 1, "Acct    ")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("ContextMustBeEightBytes", func(t *testing.T) {
		_, err := DeriveSubkey(parent, 1, "short")
		require.Error(t, err)
	})
}

func TestMacLenPrefix(t *testing.T) {
	key := testKey(6)

	// lenPrefix(data) framing must differ from plain concatenation.
	withPrefix, err := NewMac(key)
	require.NoError(t, err)
	withPrefix.UpdateWithLenPrefix([]byte("ab"))

	plain, err := NewMac(key)
	require.NoError(t, err)
	plain.Update([]byte("ab"))

	assert.NotEqual(t, withPrefix.Sum(), plain.Sum())

	// And must equal the explicit 4-byte little-endian framing.
	manual, err := NewMac(key)
	require.NoError(t, err)
	manual.Update([]byte{2, 0, 0, 0})
	manual.Update([]byte("ab"))

	framed, err := NewMac(key)
	require.NoError(t, err)
	framed.UpdateWithLenPrefix([]byte("ab"))
	assert.Equal(t, manual.Sum(), framed.Sum())
}

func TestBlake2bKeyedVsUnkeyed(t *testing.T) {
	data := []byte("input")
	keyed, err := Blake2b(testKey(7), data)
	require.NoError(t, err)
	unkeyed, err := Blake2b(nil, data)
	require.NoError(t, err)
	assert.Len(t, keyed, MacSize)
	assert.Len(t, unkeyed, MacSize)
	assert.NotEqual(t, keyed, unkeyed)
}

func TestSignKeyPair(t *testing.T) {
	seed := testKey(8)
	kp, err := NewSignKeyPair(seed)
	require.NoError(t, err)

	again, err := NewSignKeyPair(seed)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, again.PublicKey)

	msg := []byte("challenge response")
	sig := kp.Sign(msg)
	require.NoError(t, VerifySignature(kp.PublicKey, msg, sig))

	var integrity *errs.IntegrityError
	require.ErrorAs(t, VerifySignature(kp.PublicKey, []byte("other"), sig), &integrity)
}

func TestBoxRoundTrip(t *testing.T) {
	alice, err := NewBoxKeyPair()
	require.NoError(t, err)
	bob, err := NewBoxKeyPair()
	require.NoError(t, err)

	sealed, err := alice.Encrypt(bob.PublicKey, []byte("wrapped collection key"))
	require.NoError(t, err)

	out, err := bob.Decrypt(alice.PublicKey, sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("wrapped collection key"), out)

	t.Run("WrongSenderKeyFails", func(t *testing.T) {
		mallory, err := NewBoxKeyPair()
		require.NoError(t, err)
		var integrity *errs.IntegrityError
		_, err = bob.Decrypt(mallory.PublicKey, sealed)
		require.ErrorAs(t, err, &integrity)
	})

	t.Run("KeyPairRecoverable", func(t *testing.T) {
		recovered, err := NewBoxKeyPairFromPrivateKey(alice.PrivateKey())
		require.NoError(t, err)
		assert.Equal(t, alice.PublicKey, recovered.PublicKey)
	})
}

func TestMemcmpAndMemzero(t *testing.T) {
	assert.True(t, Memcmp([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, Memcmp([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.False(t, Memcmp([]byte{1, 2, 3}, []byte{1, 2}))

	buf := []byte{1, 2, 3}
	Memzero(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)
}

func TestDeriveMainKeyPluggable(t *testing.T) {
	salt := make([]byte, PWSaltSize)
	called := false
	SetDeriveKeyFn(func(ctx context.Context, password, s []byte) ([]byte, error) {
		called = true
		assert.Len(t, s, SaltSize)
		return testKey(9), nil
	})
	defer SetDeriveKeyFn(nil)

	key, err := DeriveMainKey(context.Background(), []byte("pw"), salt)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, testKey(9), key)
}
