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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/etesync/etebase-go/config"
	"github.com/etesync/etebase-go/crypto"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "etebase",
	Short: "Etebase CLI - end-to-end encrypted collections from the command line",
	Long: `Etebase CLI drives an Etebase server: accounts, encrypted collections,
items and sharing invitations. All encryption happens locally; the server
only ever sees ciphertext.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		return crypto.Init(context.Background())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (YAML)")

	// Commands are registered in their respective files:
	// - auth.go: signupCmd, loginCmd, logoutCmd
	// - collection.go: collectionCmd
	// - item.go: itemCmd
	// - invite.go: inviteCmd
}
