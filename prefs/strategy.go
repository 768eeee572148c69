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

package prefs

import "context"

// Strategy persists the cache of a Store. A strategy owns its backing
// connection and must not be shared between stores.
type Strategy interface {
	// Load opens the backing storage, creating it if necessary, and returns
	// every stored preference.
	Load(ctx context.Context) (map[string]Value, error)

	// Persist writes the entries named by changed from snapshot. Keys present
	// in snapshot are written, keys absent from it are deleted. Either every
	// change is stored or none is.
	Persist(ctx context.Context, snapshot map[string]Value, changed []string) error

	// Close releases the backing connection. The strategy must not be used
	// afterwards.
	Close() error
}
