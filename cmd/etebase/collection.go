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

	"github.com/spf13/cobra"

	"github.com/etesync/etebase-go/model"
)

var (
	colName        string
	colDescription string
	colColor       string
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
}

var collectionListCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List collections of a type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := loadSession()
		if err != nil {
			return err
		}
		colMgr := acc.CollectionManager()
		resp, err := colMgr.List(cmd.Context(), []string{args[0]}, nil)
		if err != nil {
			return err
		}
		for _, col := range resp.Collections {
			cm, err := colMgr.CryptoManager(col)
			if err != nil {
				return err
			}
			var meta model.ItemMetadata
			if err := col.GetMeta(cm, &meta); err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", col.UID(), meta.Name)
		}
		return nil
	},
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <type>",
	Short: "Create and upload a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := loadSession()
		if err != nil {
			return err
		}
		colMgr := acc.CollectionManager()
		col, err := colMgr.Create(args[0], &model.ItemMetadata{
			Name:        colName,
			Description: colDescription,
			Color:       colColor,
		}, nil)
		if err != nil {
			return err
		}
		if err := colMgr.Upload(cmd.Context(), col, nil); err != nil {
			return err
		}
		fmt.Println(col.UID())
		return nil
	},
}

func init() {
	collectionCreateCmd.Flags().StringVarP(&colName, "name", "n", "", "Collection name")
	collectionCreateCmd.Flags().StringVarP(&colDescription, "description", "d", "", "Collection description")
	collectionCreateCmd.Flags().StringVar(&colColor, "color", "", "Collection color (#rrggbb)")

	collectionCmd.AddCommand(collectionListCmd, collectionCreateCmd)
	rootCmd.AddCommand(collectionCmd)
}
