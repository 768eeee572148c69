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
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardinalhq/sqlprefs/internal/sealbox"
)

// The keyring row holds the salt and derivation parameters for the store
// key, and a sealed verifier that proves a credential derives that key.
var (
	verifierPlaintext = []byte("sqlprefs keyring v1")
	verifierAAD       = []byte("prefs_keyring")
)

type keyring struct {
	salt     string
	kdf      string
	verifier string
}

func readKeyring(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, d Dialect) (*keyring, error) {
	var k keyring
	err := q.QueryRowContext(ctx, d.selectKeyring).Scan(&k.salt, &k.kdf, &k.verifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading keyring: %w", ErrStorageUnavailable, err)
	}
	return &k, nil
}

// unlock checks that the store and the strategy agree on encryption and,
// for an encrypted strategy, returns the box for the store key. The
// credential is left intact so that a failed open can be retried.
func (s *SQLStrategy) unlock(ctx context.Context, db *sql.DB) (*sealbox.Box, error) {
	logger := s.logger(ctx)

	k, err := readKeyring(ctx, db, s.dialect)
	if err != nil {
		return nil, err
	}

	if !s.opts.encrypted {
		if k != nil {
			return nil, fmt.Errorf("%w: store is encrypted and no credential was supplied", ErrStorageUnavailable)
		}
		return nil, nil
	}

	if k == nil {
		created, box, err := s.createKeyring(ctx, db)
		if err != nil {
			return nil, err
		}
		k, err = readKeyring(ctx, db, s.dialect)
		if err != nil {
			return nil, err
		}
		if k == nil {
			return nil, fmt.Errorf("%w: keyring missing after creation", ErrStorageUnavailable)
		}
		if k.salt == created.salt {
			logger.Info("Created preference keyring", slog.String("kdf", k.kdf))
			return box, nil
		}
	}

	return openKeyring(k, s.opts.credential)
}

// createKeyring writes a new keyring if the store has none and holds no
// rows. Another writer may create one first; the caller re-reads the row.
func (s *SQLStrategy) createKeyring(ctx context.Context, db *sql.DB) (*keyring, *sealbox.Box, error) {
	salt, err := sealbox.NewSalt()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	box, err := sealbox.New(s.opts.credential, salt, s.opts.kdf)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: deriving store key: %w", ErrStorageUnavailable, err)
	}
	verifier, err := box.Seal(verifierPlaintext, verifierAAD)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	k := &keyring{
		salt:     base64.RawStdEncoding.EncodeToString(salt),
		kdf:      s.opts.kdf.String(),
		verifier: base64.RawStdEncoding.EncodeToString(verifier),
	}

	err = execTx(ctx, db, func(tx *sql.Tx) error {
		var n int64
		if err := tx.QueryRowContext(ctx, s.dialect.countPrefs).Scan(&n); err != nil {
			return fmt.Errorf("counting preferences: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: store holds %d unencrypted preferences", ErrStorageUnavailable, n)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.insertKeyring, k.salt, k.kdf, k.verifier); err != nil {
			return fmt.Errorf("writing keyring: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return k, box, nil
}

func openKeyring(k *keyring, credential []byte) (*sealbox.Box, error) {
	salt, err := base64.RawStdEncoding.DecodeString(k.salt)
	if err != nil {
		return nil, fmt.Errorf("%w: keyring salt is malformed", ErrStorageUnavailable)
	}
	params, err := sealbox.ParseParams(k.kdf)
	if err != nil {
		return nil, fmt.Errorf("%w: keyring: %w", ErrStorageUnavailable, err)
	}
	verifier, err := base64.RawStdEncoding.DecodeString(k.verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: keyring verifier is malformed", ErrStorageUnavailable)
	}

	box, err := sealbox.New(credential, salt, params)
	if err != nil {
		return nil, fmt.Errorf("%w: deriving store key: %w", ErrStorageUnavailable, err)
	}
	if _, err := box.Open(verifier, verifierAAD); err != nil {
		return nil, fmt.Errorf("%w: wrong credential", ErrStorageUnavailable)
	}
	return box, nil
}
