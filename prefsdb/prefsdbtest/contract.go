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

// Package prefsdbtest holds the behavior every preference strategy backed
// by prefsdb must share, so each backend runs the same suite.
package prefsdbtest

import (
	"context"
	"math"
	"slices"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/sqlprefs/prefs"
	"github.com/cardinalhq/sqlprefs/prefsdb"
)

// Opener returns a new strategy over the same database every time it is
// called. The suite closes what it opens.
type Opener func(t *testing.T) prefs.Strategy

// RunContractTests runs the suite. newDatabase is called once per subtest
// and must return an Opener for a fresh, empty database.
func RunContractTests(t *testing.T, newDatabase func(t *testing.T) Opener) {
	t.Run("EmptyLoad", func(t *testing.T) { testEmptyLoad(t, newDatabase(t)) })
	t.Run("RoundTripEveryKind", func(t *testing.T) { testRoundTripEveryKind(t, newDatabase(t)) })
	t.Run("DeleteAbsentKeys", func(t *testing.T) { testDeleteAbsentKeys(t, newDatabase(t)) })
	t.Run("OnlyChangedKeysWritten", func(t *testing.T) { testOnlyChangedKeysWritten(t, newDatabase(t)) })
	t.Run("PersistIdempotent", func(t *testing.T) { testPersistIdempotent(t, newDatabase(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, newDatabase(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, newDatabase(t)) })
	t.Run("StoreCloseReopen", func(t *testing.T) { testStoreCloseReopen(t, newDatabase(t)) })
	t.Run("StoreClearAll", func(t *testing.T) { testStoreClearAll(t, newDatabase(t)) })
}

func open(t *testing.T, opener Opener) prefs.Strategy {
	t.Helper()
	s := opener(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func load(t *testing.T, opener Opener) map[string]prefs.Value {
	t.Helper()
	s := opener(t)
	defer func() { require.NoError(t, s.Close()) }()
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	return got
}

func keys(m map[string]prefs.Value) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func requireSameValues(t *testing.T, want, got map[string]prefs.Value) {
	t.Helper()
	require.Equal(t, keys(want), keys(got))
	for k, v := range want {
		assert.True(t, v.Equal(got[k]), "key %q: got %v, want %v", k, got[k], v)
	}
}

func everyKind() map[string]prefs.Value {
	return map[string]prefs.Value{
		"bool":         prefs.Bool(true),
		"int":          prefs.Int(math.MinInt32),
		"long":         prefs.Long(math.MaxInt64),
		"float":        prefs.Float(-1.25),
		"float.nan":    prefs.Float(float32(math.NaN())),
		"string":       prefs.String("This is a test"),
		"string.empty": prefs.String(""),
		"set":          prefs.StringSet("foo", "bar", "a,b", `"q"`),
		"set.empty":    prefs.StringSet(),
		"unicode ✓":    prefs.String("héllo"),
	}
}

func testEmptyLoad(t *testing.T, opener Opener) {
	got := load(t, opener)
	assert.Empty(t, got)
}

func testRoundTripEveryKind(t *testing.T, opener Opener) {
	ctx := context.Background()
	s := open(t, opener)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	want := everyKind()
	require.NoError(t, s.Persist(ctx, want, keys(want)))
	require.NoError(t, s.Close())

	requireSameValues(t, want, load(t, opener))
}

func testDeleteAbsentKeys(t *testing.T, opener Opener) {
	ctx := context.Background()
	s := open(t, opener)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	first := map[string]prefs.Value{"a": prefs.Int(1), "b": prefs.Int(2)}
	require.NoError(t, s.Persist(ctx, first, []string{"a", "b"}))

	second := map[string]prefs.Value{"b": prefs.Int(2)}
	require.NoError(t, s.Persist(ctx, second, []string{"a", "missing"}))
	require.NoError(t, s.Close())

	requireSameValues(t, second, load(t, opener))
}

func testOnlyChangedKeysWritten(t *testing.T, opener Opener) {
	ctx := context.Background()
	s := open(t, opener)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	snapshot := map[string]prefs.Value{"changed": prefs.Bool(true), "untouched": prefs.Bool(true)}
	require.NoError(t, s.Persist(ctx, snapshot, []string{"changed"}))
	require.NoError(t, s.Close())

	got := load(t, opener)
	assert.Equal(t, []string{"changed"}, keys(got))
}

func testPersistIdempotent(t *testing.T, opener Opener) {
	ctx := context.Background()
	s := open(t, opener)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	snapshot := map[string]prefs.Value{"k": prefs.StringSet("x", "y")}
	require.NoError(t, s.Persist(ctx, snapshot, []string{"k", "gone"}))
	require.NoError(t, s.Persist(ctx, snapshot, []string{"k", "gone"}))
	require.NoError(t, s.Close())

	requireSameValues(t, snapshot, load(t, opener))
}

func testOverwrite(t *testing.T, opener Opener) {
	ctx := context.Background()
	s := open(t, opener)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Persist(ctx, map[string]prefs.Value{"k": prefs.Int(1)}, []string{"k"}))
	require.NoError(t, s.Persist(ctx, map[string]prefs.Value{"k": prefs.String("now a string")}, []string{"k"}))
	require.NoError(t, s.Close())

	requireSameValues(t, map[string]prefs.Value{"k": prefs.String("now a string")}, load(t, opener))
}

func testClosed(t *testing.T, opener Opener) {
	ctx := context.Background()
	s := opener(t)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, prefsdb.ErrStrategyClosed)
	err = s.Persist(ctx, map[string]prefs.Value{"k": prefs.Int(1)}, []string{"k"})
	require.ErrorIs(t, err, prefsdb.ErrStrategyClosed)
}

func testStoreCloseReopen(t *testing.T, opener Opener) {
	ctx := context.Background()

	store, err := prefs.Open(ctx, opener(t))
	require.NoError(t, err)
	require.NoError(t, store.Edit().
		PutBool("flag", true).
		PutInt("count", 7).
		PutStringSet("tags", mapset.NewSet("x", "y")).
		Commit(ctx))
	require.NoError(t, store.Edit().Remove("count").PutString("name", "n").Commit(ctx))
	require.NoError(t, store.Close())

	reopened, err := prefs.Open(ctx, opener(t), prefs.WithLoadPolicy(prefs.LoadDeferred))
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	all, err := reopened.All()
	require.NoError(t, err)
	requireSameValues(t, map[string]prefs.Value{
		"flag": prefs.Bool(true),
		"tags": prefs.StringSet("x", "y"),
		"name": prefs.String("n"),
	}, all)
}

func testStoreClearAll(t *testing.T, opener Opener) {
	ctx := context.Background()

	store, err := prefs.Open(ctx, opener(t))
	require.NoError(t, err)
	require.NoError(t, store.Edit().PutInt("a", 1).PutInt("b", 2).Commit(ctx))
	require.NoError(t, store.Edit().Clear().PutInt("c", 3).Commit(ctx))
	require.NoError(t, store.Close())

	requireSameValues(t, map[string]prefs.Value{"c": prefs.Int(3)}, load(t, opener))
}
