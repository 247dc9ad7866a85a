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

package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables recognized as overrides.
const (
	EnvServerURL   = "ETEBASE_SERVER_URL"
	EnvTimeout     = "ETEBASE_TIMEOUT"
	EnvLogLevel    = "ETEBASE_LOG_LEVEL"
	EnvSessionFile = "ETEBASE_SESSION_FILE"
)

// LoadDotEnv loads a .env file into the process environment if one exists.
// Existing variables win over file entries.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = Duration(d)
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSessionFile); v != "" {
		c.SessionFile = v
	}
}
