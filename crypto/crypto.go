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

// Package crypto is the primitives façade and key hierarchy of the library.
//
// It exposes uniform access to the AEAD (XChaCha20-Poly1305), keyed and
// unkeyed BLAKE2b, the subkey KDF, Argon2id password hashing, Ed25519
// signatures and X25519 boxes, plus the CryptoManager variants that scope
// those primitives to a context in the key hierarchy.
package crypto

import (
	"context"
	"sync"

	"github.com/etesync/etebase-go/errs"
)

// Sizes of the primitive inputs and outputs, reported as constants so
// callers never hardcode them.
const (
	KeySize     = 32
	NonceSize   = 24
	TagSize     = 16
	MacSize     = 32
	SaltSize    = 16
	PWSaltSize  = 32
	UIDSize     = 24
	SymKeySize  = 32
	SeedSize    = 32
	BoxKeySize  = 32
	ContextSize = 8
)

// CurrentVersion is the protocol version stamped into new entities.
const CurrentVersion uint8 = 1

// DeriveKeyFn derives a 32-byte main key from a passphrase and a 16-byte
// salt. The default is Argon2id; constrained platforms may plug a native
// implementation in before Init.
type DeriveKeyFn func(ctx context.Context, password, salt []byte) ([]byte, error)

var (
	initOnce    sync.Once
	initialized bool

	deriveKeyMu sync.RWMutex
	deriveKeyFn DeriveKeyFn = defaultDeriveKey
)

// Init prepares the process-wide cryptographic state. It must complete before
// any other call into the library; subsequent calls are no-ops. The context
// is threaded through to a platform deriveKey replacement if one runs any
// setup of its own.
func Init(ctx context.Context) error {
	initOnce.Do(func() {
		initialized = true
	})
	return ctx.Err()
}

// Ready reports whether Init has completed.
func Ready() error {
	if !initialized {
		return &errs.ProgrammingError{Detail: "crypto.Init must be called before use"}
	}
	return nil
}

// SetDeriveKeyFn replaces the password key derivation, for platforms that
// ship a native Argon2id. Call before Init; passing nil restores the default.
func SetDeriveKeyFn(fn DeriveKeyFn) {
	deriveKeyMu.Lock()
	defer deriveKeyMu.Unlock()
	if fn == nil {
		deriveKeyFn = defaultDeriveKey
		return
	}
	deriveKeyFn = fn
}
