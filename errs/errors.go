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

// Package errs defines the error taxonomy shared across the library.
//
// Errors are distinguished by type, not message: callers route policy with
// errors.As. Cryptographic failures (IntegrityError) are fatal for the
// operation and never retried; NetworkError and TemporaryServerError are safe
// to retry; ConflictError requires a refetch of the stale entity.
package errs

import (
	"errors"
	"fmt"
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IntegrityError indicates an AEAD tag or chunk MAC mismatch, or a missing
// padding sentinel. It is raised locally and must never be retried.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "integrity error: " + e.Detail
}

// MissingContentError indicates a revision whose chunk list is present but
// whose ciphertext bytes were not transferred (prefetch-light listings).
// The caller resolves it by downloading the content out of band.
type MissingContentError struct {
	UID string
}

func (e *MissingContentError) Error() string {
	return fmt.Sprintf("missing content for chunk %q", e.UID)
}

// UnauthorizedError maps HTTP 401. Code carries the server reason
// ("login_bad_signature", "user_not_init", "token_expired") for policy routing.
type UnauthorizedError struct {
	Code   string
	Detail string
}

func (e *UnauthorizedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("unauthorized (%s): %s", e.Code, e.Detail)
	}
	return "unauthorized: " + e.Detail
}

// PermissionDeniedError maps HTTP 403.
type PermissionDeniedError struct {
	Detail string
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + e.Detail
}

// NotFoundError maps HTTP 404.
type NotFoundError struct {
	Detail string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Detail
}

// ConflictError maps HTTP 409 and the etag/stoken mismatch that aborts a
// batch or transaction. The caller must refetch before retrying.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Detail
}

// TemporaryServerError maps HTTP 502/503/504. Safe to retry with backoff.
type TemporaryServerError struct {
	Status int
	Detail string
}

func (e *TemporaryServerError) Error() string {
	return fmt.Sprintf("temporary server error (%d): %s", e.Status, e.Detail)
}

// ServerError maps every other 5xx. Surfaced but not auto-retried.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Detail)
}

// NetworkError indicates a transport failure before any HTTP status was
// received. Wraps the underlying error.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProgrammingError indicates an invariant violation attributable to the
// caller, such as submitting an item to the wrong collection's item manager.
type ProgrammingError struct {
	Detail string
}

func (e *ProgrammingError) Error() string {
	return "programming error: " + e.Detail
}
