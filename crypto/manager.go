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

// Subkey ids within a manager scope. The id plus the 8-byte context string
// domain-separate every derived key in the hierarchy.
const (
	subkeyIDCipher        = 1
	subkeyIDMac           = 2
	subkeyIDAsymSeed      = 3
	subkeyIDSubDerivation = 4
)

// CryptoManager bundles the four subkeys of one scope in the key hierarchy.
// Instances are immutable once constructed; deriving one is cheap enough
// that no long-lived cache is kept.
type CryptoManager struct {
	version          uint8
	cipherKey        []byte
	macKey           []byte
	asymKeySeed      []byte
	subDerivationKey []byte
}

func newCryptoManager(key []byte, context string, version uint8) (*CryptoManager, error) {
	m := &CryptoManager{version: version}
	for _, sub := range []struct {
		id  uint64
		dst *[]byte
	}{
		{subkeyIDCipher, &m.cipherKey},
		{subkeyIDMac, &m.macKey},
		{subkeyIDAsymSeed, &m.asymKeySeed},
		{subkeyIDSubDerivation, &m.subDerivationKey},
	} {
		derived, err := DeriveSubkey(key, sub.id, context)
		if err != nil {
			return nil, err
		}
		*sub.dst = derived
	}
	return m, nil
}

// Version returns the protocol version this manager was constructed for.
func (m *CryptoManager) Version() uint8 {
	return m.version
}

// Encrypt seals plaintext under this scope's cipher key.
func (m *CryptoManager) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	return Encrypt(m.cipherKey, plaintext, additionalData)
}

// Decrypt opens a message sealed by Encrypt.
func (m *CryptoManager) Decrypt(msg, additionalData []byte) ([]byte, error) {
	return Decrypt(m.cipherKey, msg, additionalData)
}

// EncryptDetached seals plaintext and returns ciphertext and tag separately.
func (m *CryptoManager) EncryptDetached(plaintext, additionalData []byte) (ciphertext, tag []byte, err error) {
	return EncryptDetached(m.cipherKey, plaintext, additionalData)
}

// DecryptDetached opens a (ciphertext, tag) pair.
func (m *CryptoManager) DecryptDetached(ciphertext, tag, additionalData []byte) ([]byte, error) {
	return DecryptDetached(m.cipherKey, ciphertext, tag, additionalData)
}

// VerifyDetached checks a (ciphertext, tag) pair, discarding the plaintext.
func (m *CryptoManager) VerifyDetached(ciphertext, tag, additionalData []byte) error {
	return Verify(m.cipherKey, ciphertext, tag, additionalData)
}

// Mac starts an incremental keyed digest under this scope's MAC key.
func (m *CryptoManager) Mac() (*Mac, error) {
	return NewMac(m.macKey)
}

// CalcMac is the one-shot form of Mac.
func (m *CryptoManager) CalcMac(data []byte) ([]byte, error) {
	return Blake2b(m.macKey, data)
}

// DeriveSubkeyFromSalt derives a per-child key from this scope's
// sub-derivation key: unkeyed BLAKE2b over subDerivationKey || salt.
func (m *CryptoManager) DeriveSubkeyFromSalt(salt []byte) ([]byte, error) {
	input := make([]byte, 0, len(m.subDerivationKey)+len(salt))
	input = append(input, m.subDerivationKey...)
	input = append(input, salt...)
	return Blake2b(nil, input)
}

// Wipe zeroizes all four subkeys.
func (m *CryptoManager) Wipe() {
	Memzero(m.cipherKey)
	Memzero(m.macKey)
	Memzero(m.asymKeySeed)
	Memzero(m.subDerivationKey)
}
