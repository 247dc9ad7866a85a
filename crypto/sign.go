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
	"crypto/ed25519"

	"github.com/etesync/etebase-go/errs"
)

// SignKeyPair is the Ed25519 keypair used to sign login and password-change
// challenges.
type SignKeyPair struct {
	PublicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// NewSignKeyPair deterministically expands a 32-byte seed into a keypair.
func NewSignKeyPair(seed []byte) (*SignKeyPair, error) {
	if len(seed) != SeedSize {
		return nil, &errs.ProgrammingError{Detail: "signing seed must be 32 bytes"}
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &SignKeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		privateKey: priv,
	}, nil
}

// Sign produces a detached signature over msg.
func (kp *SignKeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.privateKey, msg)
}

// VerifySignature checks a detached Ed25519 signature.
func VerifySignature(pubkey, msg, sig []byte) error {
	if len(pubkey) != ed25519.PublicKeySize {
		return &errs.ProgrammingError{Detail: "verify key must be 32 bytes"}
	}
	if !ed25519.Verify(ed25519.PublicKey(pubkey), msg, sig) {
		return &errs.IntegrityError{Detail: "signature verification failed"}
	}
	return nil
}

// Wipe zeroizes the private half.
func (kp *SignKeyPair) Wipe() {
	Memzero(kp.privateKey)
}
