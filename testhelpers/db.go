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

// Package testhelpers creates throwaway databases for tests.
package testhelpers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLitePath returns a database file path inside a per-test temp dir. The
// file itself is not created.
func SQLitePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "prefs.db")
}

// CreateTestDatabase creates an empty database on the server behind baseURL
// and returns a URL pointing at it. The database is dropped on cleanup.
func CreateTestDatabase(t *testing.T, baseURL string) string {
	t.Helper()

	ctx := context.Background()
	dbName := fmt.Sprintf("test_prefs_%d_%d", time.Now().Unix(), rand.Intn(100000))

	basePool, err := pgxpool.New(ctx, baseURL)
	if err != nil {
		t.Fatalf("Failed to connect to base database: %v", err)
	}

	if _, err := basePool.Exec(ctx, "CREATE DATABASE "+dbName); err != nil {
		basePool.Close()
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}

	t.Cleanup(func() {
		_, err := basePool.Exec(context.Background(), "DROP DATABASE IF EXISTS "+dbName+" WITH (FORCE)")
		if err != nil {
			slog.Error("Failed to drop test database", slog.String("dbName", dbName), slog.Any("error", err))
		}
		basePool.Close()
	})

	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("Failed to parse base database URL: %v", err)
	}
	u.Path = "/" + dbName
	return u.String()
}
