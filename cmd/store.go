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
	"fmt"
	"log/slog"

	"github.com/cardinalhq/sqlprefs/config"
	"github.com/cardinalhq/sqlprefs/internal/helpers"
	"github.com/cardinalhq/sqlprefs/internal/logctx"
	"github.com/cardinalhq/sqlprefs/internal/sealbox"
	"github.com/cardinalhq/sqlprefs/prefs"
	"github.com/cardinalhq/sqlprefs/prefsdb"
)

// newStrategy builds the storage strategy described by cfg. The resolved
// credential is wiped before returning; the strategy holds its own copy.
func newStrategy(cfg *config.Config) (*prefsdb.SQLStrategy, error) {
	policy, err := prefsdb.ParseCorruptRowPolicy(cfg.Store.CorruptRows)
	if err != nil {
		return nil, err
	}
	opts := []prefsdb.Option{prefsdb.WithCorruptRowPolicy(policy)}

	var credential []byte
	if cfg.Store.Credential != "" {
		credential, err = helpers.ResolveSecret(cfg.Store.Credential)
		if err != nil {
			return nil, fmt.Errorf("resolving credential: %w", err)
		}
		defer sealbox.Wipe(credential)
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if credential != nil {
			opts = append(opts, prefsdb.WithCredential(credential))
		}
		return prefsdb.NewPostgres(cfg.Postgres.URL, opts...)
	default:
		if credential != nil {
			return prefsdb.NewEncrypted(cfg.Store.Path, credential, opts...)
		}
		return prefsdb.NewPlain(cfg.Store.Path, opts...)
	}
}

// openStore opens the configured store and waits for its initial load.
func openStore(ctx context.Context, cfg *config.Config) (*prefs.Store, error) {
	policy, err := prefs.ParseLoadPolicy(cfg.Store.LoadPolicy)
	if err != nil {
		return nil, err
	}
	strategy, err := newStrategy(cfg)
	if err != nil {
		return nil, err
	}

	ctx = logctx.With(ctx, slog.String("store", strategy.String()))
	store, err := prefs.Open(ctx, strategy, prefs.WithLoadPolicy(policy))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", strategy, err)
	}
	if err := store.Wait(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("opening %s: %w", strategy, err)
	}
	return store, nil
}

// withStore runs fn against the configured store and closes it afterwards.
func withStore(ctx context.Context, cfg *config.Config, fn func(*prefs.Store) error) (err error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(store)
}
