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

// Package prefsdb stores preferences in a single relational table,
// prefs(key, value, type), optionally sealing every value with a key
// derived from a credential.
//
// One SQLStrategy implements loading and the transactional batch persist
// for every backend. Backends differ only in the Connector that opens the
// database and in whether a credential is supplied.
package prefsdb

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/sqlprefs/codec"
	"github.com/cardinalhq/sqlprefs/internal/logctx"
	"github.com/cardinalhq/sqlprefs/internal/sealbox"
	"github.com/cardinalhq/sqlprefs/prefs"
	"github.com/cardinalhq/sqlprefs/prefsdb/migrations"
)

// SQLStrategy is a prefs.Strategy over a SQL database. The database is
// opened by the first Load. It is safe for concurrent use.
type SQLStrategy struct {
	conn    Connector
	dialect Dialect
	opts    options

	mu     sync.Mutex
	db     *sql.DB
	box    *sealbox.Box
	closed bool
}

var _ prefs.Strategy = (*SQLStrategy)(nil)

// New returns a strategy over whatever database conn opens.
func New(conn Connector, opts ...Option) *SQLStrategy {
	o := options{kdf: sealbox.DefaultParams}
	for _, opt := range opts {
		opt(&o)
	}
	return &SQLStrategy{
		conn:    conn,
		dialect: conn.Dialect(),
		opts:    o,
	}
}

// NewPlain stores preferences unencrypted in the SQLite file at path.
func NewPlain(path string, opts ...Option) (*SQLStrategy, error) {
	conn, err := NewSQLiteConnector(path)
	if err != nil {
		return nil, err
	}
	return New(conn, opts...), nil
}

// NewEncrypted stores preferences in the SQLite file at path with every
// value sealed under credential. An empty credential is reported by Load.
func NewEncrypted(path string, credential []byte, opts ...Option) (*SQLStrategy, error) {
	conn, err := NewSQLiteConnector(path)
	if err != nil {
		return nil, err
	}
	return New(conn, append(opts, WithCredential(credential))...), nil
}

// NewPostgres stores preferences in the Postgres database at databaseURL.
// Add WithCredential to seal values.
func NewPostgres(databaseURL string, opts ...Option) (*SQLStrategy, error) {
	conn, err := NewPostgresConnector(databaseURL)
	if err != nil {
		return nil, err
	}
	return New(conn, opts...), nil
}

// String names the backing database without exposing secrets.
func (s *SQLStrategy) String() string {
	kind := "plain"
	if s.opts.encrypted {
		kind = "encrypted"
	}
	if named, ok := s.conn.(fmt.Stringer); ok {
		return fmt.Sprintf("%s %s %s", kind, s.dialect.Name(), named.String())
	}
	return kind + " " + s.dialect.Name()
}

func (s *SQLStrategy) logger(ctx context.Context) *slog.Logger {
	if s.opts.logger != nil {
		return s.opts.logger
	}
	return logctx.FromContext(ctx)
}

// Load opens the database if needed and returns every stored preference.
func (s *SQLStrategy) Load(ctx context.Context) (map[string]prefs.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return s.readAll(ctx)
}

// Persist writes the changed keys in one transaction. A key present in
// snapshot is upserted, an absent one is deleted. On error nothing is
// written.
func (s *SQLStrategy) Persist(ctx context.Context, snapshot map[string]prefs.Value, changed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(ctx); err != nil {
		return err
	}

	rows := make([]row, 0, len(changed))
	for _, key := range changed {
		v, ok := snapshot[key]
		if !ok {
			rows = append(rows, row{key: key, deleted: true})
			continue
		}
		r, err := s.encodeRow(key, v)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}

	err := execTx(ctx, s.db, func(tx *sql.Tx) error {
		return writeRows(ctx, tx, s.dialect, rows)
	})
	if err != nil {
		return fmt.Errorf("persisting preferences: %w", err)
	}

	recordRowsPersisted(ctx, s.dialect, len(rows))
	s.logger(ctx).Debug("Persisted preferences", slog.Int("rows", len(rows)))
	return nil
}

// Close releases the database. It is safe to call more than once.
func (s *SQLStrategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	sealbox.Wipe(s.opts.credential)
	s.box = nil

	var merr *multierror.Error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("closing database: %w", err))
		}
		s.db = nil
	}
	if err := s.conn.Close(); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("closing connector: %w", err))
	}
	return merr.ErrorOrNil()
}

// ensureOpen connects, creates or checks the schema and unlocks the
// keyring. Must be called with s.mu held.
func (s *SQLStrategy) ensureOpen(ctx context.Context) error {
	if s.closed {
		return ErrStrategyClosed
	}
	if s.db != nil {
		return nil
	}

	if s.opts.encrypted && len(s.opts.credential) == 0 {
		return fmt.Errorf("%w: no credential supplied for encrypted store", ErrStorageUnavailable)
	}

	migrationDB, err := s.conn.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := migrations.Ensure(logctx.WithLogger(ctx, s.logger(ctx)), migrationDB, s.dialect.Name()); err != nil {
		if errors.Is(err, ErrUnsupportedSchema) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	db, err := s.conn.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	box, err := s.unlock(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.box = box
	// Only wiped once the store is open, so a failed open can be retried.
	sealbox.Wipe(s.opts.credential)
	s.logger(ctx).Debug("Opened preference database", slog.String("database", s.String()))
	return nil
}

func (s *SQLStrategy) readAll(ctx context.Context) (map[string]prefs.Value, error) {
	logger := s.logger(ctx)

	rs, err := s.db.QueryContext(ctx, s.dialect.selectAll)
	if err != nil {
		return nil, fmt.Errorf("%w: reading preferences: %w", ErrStorageUnavailable, err)
	}
	defer rs.Close()

	out := make(map[string]prefs.Value)
	var skipped *multierror.Error
	for rs.Next() {
		var (
			key  string
			text sql.NullString
			code int64
		)
		if err := rs.Scan(&key, &text, &code); err != nil {
			return nil, fmt.Errorf("%w: scanning preference row: %w", ErrStorageUnavailable, err)
		}

		v, err := s.decodeRow(key, text, codec.TypeCode(code))
		if err != nil {
			if s.opts.corruptRows != CorruptRowsSkip {
				return nil, err
			}
			recordCorruptRow(ctx, s.dialect)
			logger.Warn("Skipping corrupt preference row", slog.String("key", key), slog.Any("error", err))
			skipped = multierror.Append(skipped, err)
			continue
		}
		out[key] = v
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading preferences: %w", ErrStorageUnavailable, err)
	}

	if skipped != nil {
		logger.Warn("Loaded preferences with corrupt rows left out",
			slog.Int("loaded", len(out)),
			slog.Int("skipped", skipped.Len()))
	}
	return out, nil
}

type row struct {
	key     string
	text    string
	code    codec.TypeCode
	deleted bool
}

func (s *SQLStrategy) encodeRow(key string, v prefs.Value) (row, error) {
	code, text, err := codec.Encode(v)
	if err != nil {
		return row{}, fmt.Errorf("encoding preference %q: %w", key, err)
	}
	if s.box != nil {
		sealed, err := s.box.Seal([]byte(text), rowAAD(key, code))
		if err != nil {
			return row{}, fmt.Errorf("sealing preference %q: %w", key, err)
		}
		text = base64.RawStdEncoding.EncodeToString(sealed)
	}
	return row{key: key, text: text, code: code}, nil
}

func (s *SQLStrategy) decodeRow(key string, text sql.NullString, code codec.TypeCode) (prefs.Value, error) {
	if !text.Valid {
		return prefs.Value{}, fmt.Errorf("preference %q: %w: null value", key, codec.ErrCorruptData)
	}
	raw := text.String
	if s.box != nil {
		sealed, err := base64.RawStdEncoding.DecodeString(raw)
		if err != nil {
			return prefs.Value{}, fmt.Errorf("preference %q: %w: sealed value is not base64", key, codec.ErrCorruptData)
		}
		plain, err := s.box.Open(sealed, rowAAD(key, code))
		if err != nil {
			return prefs.Value{}, fmt.Errorf("preference %q: %w: %w", key, codec.ErrCorruptData, err)
		}
		raw = string(plain)
	}
	v, err := codec.Decode(code, raw)
	if err != nil {
		return prefs.Value{}, fmt.Errorf("preference %q: %w", key, err)
	}
	return v, nil
}

// rowAAD binds a sealed value to its key and type so it cannot be moved
// to another row or reinterpreted as another kind.
func rowAAD(key string, code codec.TypeCode) []byte {
	aad := make([]byte, 0, len(key)+4)
	aad = append(aad, key...)
	aad = append(aad, 0)
	return strconv.AppendInt(aad, int64(code), 10)
}

func writeRows(ctx context.Context, tx *sql.Tx, d Dialect, rows []row) error {
	upsert, err := tx.PrepareContext(ctx, d.upsert)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer upsert.Close()

	del, err := tx.PrepareContext(ctx, d.deleteKey)
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer del.Close()

	for _, r := range rows {
		if r.deleted {
			if _, err := del.ExecContext(ctx, r.key); err != nil {
				return fmt.Errorf("deleting %q: %w", r.key, err)
			}
			continue
		}
		if _, err := upsert.ExecContext(ctx, r.key, r.text, int64(r.code)); err != nil {
			return fmt.Errorf("writing %q: %w", r.key, err)
		}
	}
	return nil
}

// execTx runs fn in a transaction and commits it. If fn or the commit
// fails the transaction is rolled back and the rollback error, if any, is
// joined to the original.
func execTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			if err != nil {
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			} else {
				err = fmt.Errorf("rollback failed: %w", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
