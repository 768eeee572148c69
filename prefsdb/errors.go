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
	"errors"

	"github.com/cardinalhq/sqlprefs/prefsdb/migrations"
)

var (
	// ErrStorageUnavailable means the backing database could not be opened
	// or unlocked: an unreachable server, an unwritable path, a missing or
	// wrong credential, or a plain/encrypted mismatch.
	ErrStorageUnavailable = errors.New("preference storage unavailable")

	// ErrUnsupportedSchema means the database was written by a different
	// schema version. It is never migrated.
	ErrUnsupportedSchema = migrations.ErrUnsupportedSchema

	// ErrStrategyClosed is returned by Load and Persist after Close.
	ErrStrategyClosed = errors.New("preference strategy is closed")
)
