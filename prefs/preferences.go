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

import mapset "github.com/deckarep/golang-set/v2"

// Preferences is the settings surface applications program against: typed
// getters that fall back to a caller supplied default, an editor for
// transactional changes, and change listeners.
type Preferences interface {
	GetBool(key string, def bool) (bool, error)
	GetInt(key string, def int32) (int32, error)
	GetLong(key string, def int64) (int64, error)
	GetFloat(key string, def float32) (float32, error)
	GetString(key string, def string) (string, error)
	GetStringSet(key string, def mapset.Set[string]) (mapset.Set[string], error)

	Contains(key string) (bool, error)
	All() (map[string]Value, error)

	Edit() *Editor

	RegisterChangeListener(l Listener) (ListenerID, error)
	UnregisterChangeListener(id ListenerID) error
}

var _ Preferences = (*Store)(nil)
