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

import "github.com/cardinalhq/sqlprefs/prefsdb/migrations"

// Dialect carries the statements that differ between database engines.
// Everything else about the table and the transaction algorithm is shared.
type Dialect struct {
	name string

	upsert    string
	deleteKey string
	selectAll string

	selectKeyring string
	insertKeyring string
	countPrefs    string
}

// Name is the migration dialect name.
func (d Dialect) Name() string { return d.name }

var (
	DialectSQLite = Dialect{
		name:          migrations.SQLite,
		upsert:        `INSERT OR REPLACE INTO prefs (key, value, type) VALUES (?, ?, ?)`,
		deleteKey:     `DELETE FROM prefs WHERE key = ?`,
		selectAll:     `SELECT key, value, type FROM prefs`,
		selectKeyring: `SELECT salt, kdf, verifier FROM prefs_keyring WHERE id = 1`,
		insertKeyring: `INSERT OR IGNORE INTO prefs_keyring (id, salt, kdf, verifier) VALUES (1, ?, ?, ?)`,
		countPrefs:    `SELECT COUNT(*) FROM prefs`,
	}

	DialectPostgres = Dialect{
		name: migrations.Postgres,
		upsert: `INSERT INTO prefs (key, value, type) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type`,
		deleteKey:     `DELETE FROM prefs WHERE key = $1`,
		selectAll:     `SELECT key, value, type FROM prefs`,
		selectKeyring: `SELECT salt, kdf, verifier FROM prefs_keyring WHERE id = 1`,
		insertKeyring: `INSERT INTO prefs_keyring (id, salt, kdf, verifier) VALUES (1, $1, $2, $3)
ON CONFLICT (id) DO NOTHING`,
		countPrefs: `SELECT COUNT(*) FROM prefs`,
	}
)
