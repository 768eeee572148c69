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

package migrations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/cardinalhq/sqlprefs/testhelpers"
)

func openSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	return db
}

func tableNames(t *testing.T, path string) []string {
	t.Helper()
	db := openSQLite(t, path)
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func exec(t *testing.T, path, stmt string) {
	t.Helper()
	db := openSQLite(t, path)
	defer db.Close()
	_, err := db.Exec(stmt)
	require.NoError(t, err)
}

func TestLatestVersion(t *testing.T) {
	for _, dialect := range []string{SQLite, Postgres} {
		got, err := LatestVersion(dialect)
		require.NoError(t, err, dialect)
		assert.Equal(t, uint(1), got, dialect)
	}

	_, err := LatestVersion("oracle")
	assert.Error(t, err)
}

func TestEnsure_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := testhelpers.SQLitePath(t)

	require.NoError(t, Ensure(ctx, openSQLite(t, path), SQLite))
	assert.Subset(t, tableNames(t, path), []string{"prefs", "prefs_keyring", MigrationsTable})

	require.NoError(t, Ensure(ctx, openSQLite(t, path), SQLite), "reopening at the current version succeeds")
}

func TestEnsure_RejectsOtherVersions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate string
	}{
		{"newer version", `UPDATE prefs_schema_migrations SET version = 2`},
		{"dirty", `UPDATE prefs_schema_migrations SET dirty = 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testhelpers.SQLitePath(t)
			require.NoError(t, Ensure(ctx, openSQLite(t, path), SQLite))
			exec(t, path, tt.mutate)

			err := Ensure(ctx, openSQLite(t, path), SQLite)
			require.ErrorIs(t, err, ErrUnsupportedSchema)
		})
	}
}

func TestEnsure_UnknownDialect(t *testing.T) {
	path := testhelpers.SQLitePath(t)
	err := Ensure(context.Background(), openSQLite(t, path), "oracle")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedSchema)
}
