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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etesync/etebase-go/model"
)

var inviteReadOnly bool

var inviteCmd = &cobra.Command{
	Use:   "invite <collection-uid> <username>",
	Short: "Invite a user to a collection",
	Long: `Invite a user to a collection. The recipient's public key fingerprint is
shown for out-of-band verification before the invitation is sent.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := loadSession()
		if err != nil {
			return err
		}
		colMgr := acc.CollectionManager()
		col, err := colMgr.Fetch(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		invMgr := acc.InvitationManager()
		profile, err := invMgr.FetchUserProfile(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		fingerprint, err := invMgr.PrettyFingerprint(profile.Pubkey)
		if err != nil {
			return err
		}
		fmt.Printf("Fingerprint of %s:\n%s\n", args[1], fingerprint)
		fmt.Fprint(os.Stderr, "Verified out of band? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(line)) != "y" {
			return fmt.Errorf("invitation aborted")
		}

		accessLevel := model.AccessLevelReadWrite
		if inviteReadOnly {
			accessLevel = model.AccessLevelReadOnly
		}
		if err := invMgr.Invite(cmd.Context(), col, args[1], profile.Pubkey, accessLevel); err != nil {
			return err
		}
		fmt.Println("Invitation sent")
		return nil
	},
}

var invitationsCmd = &cobra.Command{
	Use:   "invitations",
	Short: "List and accept incoming invitations",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := loadSession()
		if err != nil {
			return err
		}
		resp, err := acc.InvitationManager().ListIncoming(cmd.Context(), nil)
		if err != nil {
			return err
		}
		for _, inv := range resp.Invitations {
			fmt.Printf("%s\tfrom %s\tcollection %s\n", inv.UID, inv.FromUsername, inv.Collection)
		}
		return nil
	},
}

var invitationAcceptCmd = &cobra.Command{
	Use:   "accept <invitation-uid>",
	Short: "Accept an incoming invitation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := loadSession()
		if err != nil {
			return err
		}
		invMgr := acc.InvitationManager()
		resp, err := invMgr.ListIncoming(cmd.Context(), nil)
		if err != nil {
			return err
		}
		for _, inv := range resp.Invitations {
			if inv.UID == args[0] {
				if err := invMgr.Accept(cmd.Context(), inv); err != nil {
					return err
				}
				fmt.Println("Accepted")
				return nil
			}
		}
		return fmt.Errorf("invitation %s not found", args[0])
	},
}

func init() {
	inviteCmd.Flags().BoolVar(&inviteReadOnly, "read-only", false, "Grant read-only access")
	invitationsCmd.AddCommand(invitationAcceptCmd)
	rootCmd.AddCommand(inviteCmd, invitationsCmd)
}
