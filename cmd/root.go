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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/sqlprefs/config"
)

// cliOptions holds the persistent flags. Flags that were set override
// the values read from the config file and environment.
type cliOptions struct {
	configFile  string
	path        string
	backend     string
	credential  string
	loadPolicy  string
	corruptRows string
	postgresURL string
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "prefsctl",
		Short: "Inspect and edit SQL-backed preference stores",
		Long: `prefsctl reads and writes the typed key/value preferences kept in a
prefs table, in a plain or encrypted SQLite file or in Postgres.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "Path to a config file (default ./config.yaml if present)")
	pf.StringVar(&opts.path, "path", "", "SQLite database file")
	pf.StringVar(&opts.backend, "backend", "", "Storage backend: sqlite or postgres")
	pf.StringVar(&opts.credential, "credential", "", "Encryption credential, or env:NAME / file:PATH")
	pf.StringVar(&opts.loadPolicy, "load-policy", "", "eager or deferred")
	pf.StringVar(&opts.corruptRows, "corrupt-rows", "", "What to do with undecodable rows: abort or skip")
	pf.StringVar(&opts.postgresURL, "postgres-url", "", "Postgres connection URL")

	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newPutCmd(opts))
	rootCmd.AddCommand(newRemoveCmd(opts))
	rootCmd.AddCommand(newClearCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))

	return rootCmd
}

// loadConfig reads the configuration and applies any flags set on cmd.
func (o *cliOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag  string
		value string
		dst   *string
	}{
		{"path", o.path, &cfg.Store.Path},
		{"backend", o.backend, &cfg.Store.Backend},
		{"credential", o.credential, &cfg.Store.Credential},
		{"load-policy", o.loadPolicy, &cfg.Store.LoadPolicy},
		{"corrupt-rows", o.corruptRows, &cfg.Store.CorruptRows},
		{"postgres-url", o.postgresURL, &cfg.Postgres.URL},
	}
	for _, ov := range overrides {
		if flags.Changed(ov.flag) {
			*ov.dst = ov.value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs prefsctl and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	ctx, shutdown, err := setupTelemetry("prefsctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "prefsctl: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	rootCmd := newRootCmd()
	ran, err := rootCmd.ExecuteContextC(ctx)
	recordCommand(ctx, ran, time.Since(start), err)

	if shutdownErr := shutdown(); shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "prefsctl: telemetry shutdown: %v\n", shutdownErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "prefsctl: %v\n", err)
		os.Exit(1)
	}
}

func recordCommand(ctx context.Context, ran *cobra.Command, elapsed time.Duration, err error) {
	name := "prefsctl"
	if ran != nil {
		name = ran.Name()
	}
	commandDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributeSet(attribute.NewSet(
		attribute.String("command", name),
		attribute.Bool("success", err == nil),
	)))
}
