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

package sealbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Params{Time: 1, Memory: 1024, Threads: 1}

func newBox(t *testing.T, secret string, salt []byte) *Box {
	t.Helper()
	b, err := New([]byte(secret), salt, fastParams)
	require.NoError(t, err)
	return b
}

func TestSealOpen(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	b := newBox(t, "hunter2", salt)

	sealed, err := b.Seal([]byte("plain value"), []byte("key"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "plain value")

	out, err := b.Open(sealed, []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, "plain value", string(out))
}

func TestSeal_FreshNonceEachTime(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	b := newBox(t, "hunter2", salt)

	first, err := b.Seal([]byte("same"), nil)
	require.NoError(t, err)
	second, err := b.Seal([]byte("same"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestOpen_Failures(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	b := newBox(t, "hunter2", salt)

	sealed, err := b.Seal([]byte("value"), []byte("aad"))
	require.NoError(t, err)

	_, err = b.Open(sealed, []byte("other aad"))
	assert.ErrorIs(t, err, ErrOpen)

	_, err = newBox(t, "wrong", salt).Open(sealed, []byte("aad"))
	assert.ErrorIs(t, err, ErrOpen)

	otherSalt, err := NewSalt()
	require.NoError(t, err)
	_, err = newBox(t, "hunter2", otherSalt).Open(sealed, []byte("aad"))
	assert.ErrorIs(t, err, ErrOpen)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = b.Open(tampered, []byte("aad"))
	assert.ErrorIs(t, err, ErrOpen)

	_, err = b.Open(sealed[:10], []byte("aad"))
	assert.ErrorIs(t, err, ErrOpen)
}

func TestNew_Validation(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	_, err = New(nil, salt, fastParams)
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = New([]byte("x"), salt[:4], fastParams)
	assert.Error(t, err)

	_, err = New([]byte("x"), salt, Params{})
	assert.Error(t, err)
}

func TestParams_RoundTrip(t *testing.T) {
	for _, p := range []Params{DefaultParams, fastParams, {Time: 3, Memory: 12345, Threads: 255}} {
		got, err := ParseParams(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	assert.Equal(t, "argon2id$t=1$m=65536$p=4", DefaultParams.String())
}

func TestParseParams_Rejects(t *testing.T) {
	for _, s := range []string{
		"",
		"scrypt$t=1$m=1$p=1",
		"argon2id$t=1$m=1",
		"argon2id$t=1$m=1$x=1",
		"argon2id$t=0$m=1$p=1",
		"argon2id$t=a$m=1$p=1",
		"argon2id$t=1$m=1$p=256",
		"argon2id$t1$m=1$p=1",
	} {
		_, err := ParseParams(s)
		assert.Error(t, err, s)
	}
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	Wipe(b)
	assert.Equal(t, make([]byte, 6), b)
}
