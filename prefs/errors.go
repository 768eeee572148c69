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

import "errors"

var (
	// ErrStoreClosed is returned by every Store operation after Close.
	ErrStoreClosed = errors.New("preference store is closed")

	// ErrTypeMismatch is returned by a typed getter when the stored value has
	// a different kind than the one requested.
	ErrTypeMismatch = errors.New("preference has a different type")

	// ErrEditorDone is returned when an editor is committed a second time.
	ErrEditorDone = errors.New("editor has already been committed")

	// ErrInvalidKey is returned by Commit when a staged key is empty or not
	// valid UTF-8.
	ErrInvalidKey = errors.New("preference key must be non-empty UTF-8")
	// ErrInvalidValue is returned by Commit when a staged value has no kind
	// or holds a string that is not valid UTF-8.
	ErrInvalidValue = errors.New("preference value is invalid")
)
