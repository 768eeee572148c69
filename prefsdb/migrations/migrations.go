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

// Package migrations creates the preference schema and refuses to open a
// database whose recorded schema version is not the one this build ships.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/cardinalhq/sqlprefs/internal/logctx"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationFiles embed.FS

// Dialect names, also the directories holding each dialect's files.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "prefs_schema_migrations"

// ErrUnsupportedSchema means the database carries a schema version this
// build does not know, or a half-applied one. No upgrade is attempted.
var ErrUnsupportedSchema = errors.New("unsupported preference schema version")

// Ensure creates the schema on a fresh database and otherwise verifies that
// the recorded version is exactly the latest embedded one. Ensure takes
// ownership of db and closes it before returning.
func Ensure(ctx context.Context, db *sql.DB, dialect string) error {
	logger := logctx.FromContext(ctx)

	expected, err := LatestVersion(dialect)
	if err != nil {
		_ = db.Close()
		return err
	}

	m, err := newMigrate(db, dialect)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Debug("Closing migration handles", slog.Any("sourceError", srcErr), slog.Any("dbError", dbErr))
		}
	}()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("Creating preference schema",
			slog.String("dialect", dialect),
			slog.Uint64("version", uint64(expected)))
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("creating preference schema: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if dirty {
		return fmt.Errorf("%w: version %d is dirty", ErrUnsupportedSchema, version)
	}
	if version != expected {
		return fmt.Errorf("%w: found version %d, expected %d", ErrUnsupportedSchema, version, expected)
	}

	logger.Debug("Preference schema version check passed", slog.Uint64("version", uint64(version)))
	return nil
}

func newMigrate(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	sub, err := fs.Sub(migrationFiles, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s migrations: %w", dialect, err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}

	var dbDriver database.Driver
	switch dialect {
	case SQLite:
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: MigrationsTable})
	case Postgres:
		dbDriver, err = pgx.WithInstance(db, &pgx.Config{MigrationsTable: MigrationsTable})
	default:
		err = fmt.Errorf("unknown dialect %q", dialect)
	}
	if err != nil {
		_ = sourceDriver.Close()
		return nil, fmt.Errorf("failed to create %s migration driver: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dialect, dbDriver)
	if err != nil {
		_ = sourceDriver.Close()
		_ = dbDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// LatestVersion returns the highest migration version embedded for dialect.
func LatestVersion(dialect string) (uint, error) {
	entries, err := migrationFiles.ReadDir(dialect)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s migration directory: %w", dialect, err)
	}

	var maxVersion uint
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		maxVersion = max(maxVersion, uint(version))
	}

	if maxVersion == 0 {
		return 0, fmt.Errorf("no %s migration files found", dialect)
	}
	return maxVersion, nil
}
