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
	"encoding/binary"

	"golang.org/x/crypto/argon2"

	"github.com/etesync/etebase-go/errs"
)

// Argon2id cost parameters for the main key: high ops, moderate memory.
// These are fixed by the protocol; changing them changes every derived key.
const (
	argonOps     uint32 = 4
	argonMemory  uint32 = 256 * 1024 // KiB
	argonThreads uint8  = 1
)

// DeriveSubkey derives a 32-byte context-separated subkey from a parent key.
// The subkey id and the 8-byte context string domain-separate siblings: the
// digest is keyed BLAKE2b over le64(id) || context.
func DeriveSubkey(parent []byte, id uint64, context string) ([]byte, error) {
	if len(parent) != KeySize {
		return nil, &errs.ProgrammingError{Detail: "subkey parent must be 32 bytes"}
	}
	if len(context) != ContextSize {
		return nil, &errs.ProgrammingError{Detail: "kdf context must be exactly 8 bytes"}
	}
	var input [8 + ContextSize]byte
	binary.LittleEndian.PutUint64(input[:8], id)
	copy(input[8:], context)
	return Blake2b(parent, input[:])
}

// DeriveMainKey derives the 32-byte main key from a passphrase and the first
// 16 bytes of the account salt. The work happens in the pluggable DeriveKeyFn
// and may suspend on platforms with a native implementation.
func DeriveMainKey(ctx context.Context, password, salt []byte) ([]byte, error) {
	if len(salt) < SaltSize {
		return nil, &errs.ProgrammingError{Detail: "salt too short for key derivation"}
	}
	deriveKeyMu.RLock()
	fn := deriveKeyFn
	deriveKeyMu.RUnlock()
	return fn(ctx, password, salt[:SaltSize])
}

func defaultDeriveKey(ctx context.Context, password, salt []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return argon2.IDKey(password, salt, argonOps, argonMemory, argonThreads, KeySize), nil
}
