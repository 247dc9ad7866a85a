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

	"github.com/spf13/cobra"

	"github.com/etesync/etebase-go/account"
	"github.com/etesync/etebase-go/model"
)

var itemName string

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage items inside a collection",
}

func itemManagerFor(cmd *cobra.Command, colUID string) (*account.ItemManager, error) {
	acc, err := loadSession()
	if err != nil {
		return nil, err
	}
	colMgr := acc.CollectionManager()
	col, err := colMgr.Fetch(cmd.Context(), colUID, nil)
	if err != nil {
		return nil, err
	}
	return colMgr.ItemManager(col)
}

var itemLsCmd = &cobra.Command{
	Use:   "ls <collection-uid>",
	Short: "List items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemMgr, err := itemManagerFor(cmd, args[0])
		if err != nil {
			return err
		}
		resp, err := itemMgr.List(cmd.Context(), nil)
		if err != nil {
			return err
		}
		for _, item := range resp.Items {
			if item.IsDeleted() {
				continue
			}
			var meta model.ItemMetadata
			if err := item.GetMeta(itemMgr.CryptoManager(), &meta); err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", item.UID(), meta.Name)
		}
		return nil
	},
}

var itemPutCmd = &cobra.Command{
	Use:   "put <collection-uid> <file>",
	Short: "Create an item from a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		itemMgr, err := itemManagerFor(cmd, args[0])
		if err != nil {
			return err
		}
		name := itemName
		if name == "" {
			name = args[1]
		}
		item, err := itemMgr.Create(&model.ItemMetadata{Name: name}, content)
		if err != nil {
			return err
		}
		if err := itemMgr.Batch(cmd.Context(), []*model.EncryptedItem{item}, nil, nil); err != nil {
			return err
		}
		fmt.Println(item.UID())
		return nil
	},
}

var itemGetCmd = &cobra.Command{
	Use:   "get <collection-uid> <item-uid>",
	Short: "Print an item's content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemMgr, err := itemManagerFor(cmd, args[0])
		if err != nil {
			return err
		}
		item, err := itemMgr.Fetch(cmd.Context(), args[1], nil)
		if err != nil {
			return err
		}
		if item.IsMissingContent() {
			if err := itemMgr.DownloadContent(cmd.Context(), item); err != nil {
				return err
			}
		}
		content, err := item.GetContent(itemMgr.CryptoManager())
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content)
		return err
	},
}

func init() {
	itemPutCmd.Flags().StringVarP(&itemName, "name", "n", "", "Item name (defaults to the file name)")
	itemCmd.AddCommand(itemLsCmd, itemPutCmd, itemGetCmd)
	rootCmd.AddCommand(itemCmd)
}
