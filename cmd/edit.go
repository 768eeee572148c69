// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/sqlprefs/prefs"
)

func newPutCmd(opts *cliOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "put KEY VALUE...",
		Short: "Store one preference",
		Long: `Store VALUE under KEY with the given type. A stringset takes any number of
values, including none; every other type takes exactly one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := prefs.ParseKind(typeName)
			if err != nil {
				return err
			}
			v, err := parseValue(kind, args[1:])
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(store *prefs.Store) error {
				return store.Edit().Put(args[0], v).Commit(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "string", "Value type: bool, int, long, float, string or stringset")
	return cmd
}

func newRemoveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove KEY...",
		Aliases: []string{"rm"},
		Short:   "Remove preferences",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(store *prefs.Store) error {
				e := store.Edit()
				for _, key := range args {
					e.Remove(key)
				}
				return e.Commit(cmd.Context())
			})
		},
	}
}

func newClearCmd(opts *cliOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear the store without --force")
			}
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(store *prefs.Store) error {
				return store.Edit().Clear().Commit(cmd.Context())
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Confirm removing every preference")
	return cmd
}
