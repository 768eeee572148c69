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

func newImportCmd(opts *cliOptions) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load preferences from a YAML file in one transaction",
		Long: `Read a document written by export ("-" reads stdin) and store every
preference in it in a single commit. With --replace, preferences missing
from the file are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			doc, err := readDocument(r)
			if err != nil {
				return err
			}
			values, err := doc.values()
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), cfg, func(store *prefs.Store) error {
				e := store.Edit()
				if replace {
					e.Clear()
				}
				for _, key := range slices.Sorted(maps.Keys(values)) {
					e.Put(key, values[key])
				}
				if err := e.Commit(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d preferences\n", len(values))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Remove preferences that are not in the file")
	return cmd
}
