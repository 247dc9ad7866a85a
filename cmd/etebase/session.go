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

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/etesync/etebase-go/account"
	"github.com/etesync/etebase-go/internal/logger"
	"github.com/etesync/etebase-go/transport"
)

func sessionPath() string {
	if cfg.SessionFile != "" {
		return cfg.SessionFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".etebase-session"
	}
	return filepath.Join(home, ".etebase", "session")
}

func clientOptions() []transport.Option {
	return []transport.Option{
		transport.WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Std()}),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithLogger(logger.New(os.Stderr, logger.ParseLevel(cfg.LogLevel))),
	}
}

func newTransport() (*transport.Client, error) {
	return transport.NewClient(cfg.ServerURL, clientOptions()...)
}

func saveSession(acc *account.Account) error {
	blob, err := acc.Save(nil)
	if err != nil {
		return err
	}
	path := sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}

func loadSession() (*account.Account, error) {
	blob, err := os.ReadFile(sessionPath())
	if err != nil {
		return nil, fmt.Errorf("no saved session, login first: %w", err)
	}
	return account.Restore(blob, nil, clientOptions()...)
}

func removeSession() {
	_ = os.Remove(sessionPath())
}
