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

package prefsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pgx-contrib/pgxotel"
	_ "modernc.org/sqlite"
)

// Connector opens connections to one database. Connect may be called more
// than once; every returned *sql.DB is closed by its caller. Close releases
// whatever the connector itself holds.
type Connector interface {
	Dialect() Dialect
	Connect(ctx context.Context) (*sql.DB, error)
	Close() error
}

// SQLiteConnector opens a SQLite database file.
type SQLiteConnector struct {
	path string
}

func NewSQLiteConnector(path string) (*SQLiteConnector, error) {
	switch {
	case path == "":
		return nil, errors.New("sqlite path must not be empty")
	case path == ":memory:" || strings.Contains(path, "mode=memory"):
		return nil, errors.New("in-memory sqlite databases are not supported")
	}
	return &SQLiteConnector{path: path}, nil
}

func (c *SQLiteConnector) Dialect() Dialect { return DialectSQLite }

func (c *SQLiteConnector) String() string { return c.path }

// Connect opens the file with a busy timeout and immediate write
// transactions. A single connection is used so that writers in this process
// never contend with each other for the file lock.
func (c *SQLiteConnector) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := c.path + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", c.path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to sqlite database %s: %w", c.path, err)
	}
	return db, nil
}

func (c *SQLiteConnector) Close() error { return nil }

// PostgresConnector shares one pgx pool between every *sql.DB it hands
// out. Closing one of those handles leaves the pool open.
type PostgresConnector struct {
	url string

	mu   sync.Mutex
	pool *pgxpool.Pool
}

func NewPostgresConnector(databaseURL string) (*PostgresConnector, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres URL must not be empty")
	}
	return &PostgresConnector{url: databaseURL}, nil
}

func (c *PostgresConnector) Dialect() Dialect { return DialectPostgres }

// String returns the database URL with any password removed.
func (c *PostgresConnector) String() string {
	u, err := url.Parse(c.url)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}

func (c *PostgresConnector) Connect(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool == nil {
		cfg, err := pgxpool.ParseConfig(c.url)
		if err != nil {
			return nil, fmt.Errorf("parsing postgres URL: %w", err)
		}
		cfg.ConnConfig.Tracer = &pgxotel.QueryTracer{
			Name: "sqlprefs",
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		c.pool = pool
	}
	return stdlib.OpenDBFromPool(c.pool), nil
}

func (c *PostgresConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return nil
}
