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

package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSecret(t *testing.T) {
	dir := t.TempDir()
	withNewline := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(withNewline, []byte("from-file\n"), 0o600))
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))

	t.Setenv("TEST_PREFS_SECRET", "from-env")
	t.Setenv("TEST_PREFS_EMPTY", "")

	got, err := ResolveSecret("literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", string(got))

	got, err = ResolveSecret("env:TEST_PREFS_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", string(got))

	got, err = ResolveSecret("file:" + withNewline)
	require.NoError(t, err)
	assert.Equal(t, "from-file", string(got))

	_, err = ResolveSecret("env:TEST_PREFS_EMPTY")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = ResolveSecret("env:TEST_PREFS_NEVER_SET_ANYWHERE")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = ResolveSecret("file:" + empty)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = ResolveSecret("file:" + filepath.Join(dir, "nope"))
	assert.Error(t, err)
}
