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
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/sqlprefs/prefs"
)

func newListCmd(opts *cliOptions) *cobra.Command {
	var keysOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print every preference as YAML",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(store *prefs.Store) error {
				all, err := store.All()
				if err != nil {
					return err
				}
				if keysOnly {
					for _, key := range slices.Sorted(maps.Keys(all)) {
						if _, err := fmt.Fprintln(cmd.OutOrStdout(), key); err != nil {
							return err
						}
					}
					return nil
				}
				return exportTo(cmd.OutOrStdout(), all)
			})
		},
	}
	cmd.Flags().BoolVar(&keysOnly, "keys", false, "Print only the keys, one per line")
	return cmd
}

func newExportCmd(opts *cliOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every preference to a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(store *prefs.Store) error {
				all, err := store.All()
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					return exportTo(cmd.OutOrStdout(), all)
				}
				f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				if err := exportTo(f, all); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func exportTo(w io.Writer, all map[string]prefs.Value) error {
	doc, err := newDocument(all)
	if err != nil {
		return err
	}
	return writeDocument(w, doc)
}
