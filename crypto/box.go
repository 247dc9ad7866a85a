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
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/etesync/etebase-go/errs"
)

// boxNonceSize is the X25519 box nonce length, prepended to the sealed bytes.
const boxNonceSize = 24

// BoxKeyPair is the X25519 identity keypair used for invitation envelopes.
type BoxKeyPair struct {
	PublicKey  []byte
	privateKey []byte
}

// NewBoxKeyPair generates a fresh identity keypair.
func NewBoxKeyPair() (*BoxKeyPair, error) {
	priv, err := RandomBytes(BoxKeySize)
	if err != nil {
		return nil, err
	}
	return NewBoxKeyPairFromPrivateKey(priv)
}

// NewBoxKeyPairFromPrivateKey recovers the keypair from a stored private key.
func NewBoxKeyPairFromPrivateKey(priv []byte) (*BoxKeyPair, error) {
	if len(priv) != BoxKeySize {
		return nil, &errs.ProgrammingError{Detail: "box private key must be 32 bytes"}
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return &BoxKeyPair{PublicKey: pub, privateKey: priv}, nil
}

// Encrypt seals plaintext from this identity to peerPub. The random nonce is
// prepended to the box bytes, which carry their own Poly1305 tag.
func (kp *BoxKeyPair) Encrypt(peerPub, plaintext []byte) ([]byte, error) {
	priv, pub, err := boxKeys(kp.privateKey, peerPub)
	if err != nil {
		return nil, err
	}
	nonceBytes, err := RandomBytes(boxNonceSize)
	if err != nil {
		return nil, err
	}
	var nonce [boxNonceSize]byte
	copy(nonce[:], nonceBytes)
	out := make([]byte, 0, boxNonceSize+len(plaintext)+box.Overhead)
	out = append(out, nonce[:]...)
	return box.Seal(out, plaintext, &nonce, pub, priv), nil
}

// Decrypt opens an envelope sealed by the peer that owns peerPub.
func (kp *BoxKeyPair) Decrypt(peerPub, msg []byte) ([]byte, error) {
	if len(msg) < boxNonceSize+box.Overhead {
		return nil, &errs.IntegrityError{Detail: "sealed envelope too short"}
	}
	priv, pub, err := boxKeys(kp.privateKey, peerPub)
	if err != nil {
		return nil, err
	}
	var nonce [boxNonceSize]byte
	copy(nonce[:], msg[:boxNonceSize])
	plain, ok := box.Open(nil, msg[boxNonceSize:], &nonce, pub, priv)
	if !ok {
		return nil, &errs.IntegrityError{Detail: "envelope authentication failed"}
	}
	return plain, nil
}

// PrivateKey exposes the private half for account-content serialization.
func (kp *BoxKeyPair) PrivateKey() []byte {
	return kp.privateKey
}

// Wipe zeroizes the private half.
func (kp *BoxKeyPair) Wipe() {
	Memzero(kp.privateKey)
}

func boxKeys(privKey, peerPub []byte) (*[32]byte, *[32]byte, error) {
	if len(peerPub) != BoxKeySize {
		return nil, nil, &errs.ProgrammingError{Detail: "box public key must be 32 bytes"}
	}
	var priv, pub [32]byte
	copy(priv[:], privKey)
	copy(pub[:], peerPub)
	return &priv, &pub, nil
}
