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
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/etesync/etebase-go/account"
	"github.com/etesync/etebase-go/wire"
)

var signupEmail string

var signupCmd = &cobra.Command{
	Use:   "signup <username>",
	Short: "Register a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Passphrase: ")
		if err != nil {
			return err
		}
		client, err := newTransport()
		if err != nil {
			return err
		}
		acc, err := account.Signup(cmd.Context(), client,
			wire.User{Username: args[0], Email: signupEmail}, password)
		if err != nil {
			return err
		}
		if err := saveSession(acc); err != nil {
			return err
		}
		fmt.Printf("Signed up as %s\n", acc.Username())
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and persist the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Passphrase: ")
		if err != nil {
			return err
		}
		client, err := newTransport()
		if err != nil {
			return err
		}
		acc, err := account.Login(cmd.Context(), client, args[0], password)
		if err != nil {
			return err
		}
		if err := saveSession(acc); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", acc.Username())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the session and forget the local blob",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := loadSession()
		if err != nil {
			return err
		}
		if err := acc.Logout(cmd.Context()); err != nil {
			return err
		}
		removeSession()
		fmt.Println("Logged out")
		return nil
	},
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the account passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := loadSession()
		if err != nil {
			return err
		}
		password, err := readPassword("New passphrase: ")
		if err != nil {
			return err
		}
		if err := acc.ChangePassword(cmd.Context(), password); err != nil {
			return err
		}
		if err := saveSession(acc); err != nil {
			return err
		}
		fmt.Println("Passphrase changed")
		return nil
	},
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func init() {
	signupCmd.Flags().StringVarP(&signupEmail, "email", "e", "", "Account email")
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, changePasswordCmd)
}
