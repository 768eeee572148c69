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

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// memStrategy keeps preferences in a map and records every call.
type memStrategy struct {
	mu         sync.Mutex
	data       map[string]Value
	gate       chan struct{}
	loadErr    error
	persistErr error
	persists   [][]string
	loads      int
	closes     int
}

func newMemStrategy(data map[string]Value) *memStrategy {
	if data == nil {
		data = map[string]Value{}
	}
	return &memStrategy{data: data}
}

func (m *memStrategy) Load(ctx context.Context) (map[string]Value, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return maps.Clone(m.data), nil
}

func (m *memStrategy) Persist(_ context.Context, snapshot map[string]Value, changed []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.persistErr != nil {
		return m.persistErr
	}
	m.persists = append(m.persists, slices.Clone(changed))
	for _, k := range changed {
		if v, ok := snapshot[k]; ok {
			m.data[k] = v
		} else {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memStrategy) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *memStrategy) persistCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.persists)
}

func (m *memStrategy) stored(key string) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func openStore(t *testing.T, strategy Strategy, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), strategy, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_ReadsLoadedValues(t *testing.T) {
	s := openStore(t, newMemStrategy(map[string]Value{
		"flag":  Bool(true),
		"count": Int(3),
		"big":   Long(1 << 40),
		"ratio": Float(0.25),
		"name":  String("alice"),
		"tags":  StringSet("a", "b"),
	}))

	b, err := s.GetBool("flag", false)
	require.NoError(t, err)
	assert.True(t, b)

	i, err := s.GetInt("count", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(3), i)

	l, err := s.GetLong("big", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), l)

	f, err := s.GetFloat("ratio", 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), f)

	str, err := s.GetString("name", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", str)

	set, err := s.GetStringSet("tags", nil)
	require.NoError(t, err)
	assert.True(t, set.Equal(mapset.NewSet("a", "b")))

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestStore_DefaultsForMissingKeys(t *testing.T) {
	s := openStore(t, newMemStrategy(nil))

	b, err := s.GetBool("missing", true)
	require.NoError(t, err)
	assert.True(t, b)

	str, err := s.GetString("missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", str)

	def := mapset.NewSet("x")
	set, err := s.GetStringSet("missing", def)
	require.NoError(t, err)
	assert.Same(t, def, set)

	ok, err := s.Contains("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_TypeMismatch(t *testing.T) {
	s := openStore(t, newMemStrategy(map[string]Value{"n": Int(5)}))

	l, err := s.GetLong("n", 9)
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.Equal(t, int64(9), l)

	_, err = s.GetString("n", "")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestStore_ReturnedSetIsACopy(t *testing.T) {
	s := openStore(t, newMemStrategy(map[string]Value{"tags": StringSet("a")}))

	set, err := s.GetStringSet("tags", nil)
	require.NoError(t, err)
	set.Add("b")

	again, err := s.GetStringSet("tags", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Cardinality())
}

func TestEditor_CommitMakesChangesVisibleAndDurable(t *testing.T) {
	ctx := context.Background()
	strategy := newMemStrategy(nil)
	s := openStore(t, strategy)

	e := s.Edit().PutString("name", "bob").PutInt("age", 30)

	ok, err := s.Contains("name")
	require.NoError(t, err)
	assert.False(t, ok, "staged changes are invisible before commit")

	require.NoError(t, e.Commit(ctx))

	name, err := s.GetString("name", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	assert.Equal(t, [][]string{{"age", "name"}}, strategy.persistCalls())

	v, ok := strategy.stored("age")
	require.True(t, ok)
	assert.True(t, Int(30).Equal(v))

	reopened := openStore(t, newMemStrategy(maps.Clone(strategy.data)))
	age, err := reopened.GetInt("age", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(30), age)
}

func TestEditor_UncommittedEditorHasNoEffect(t *testing.T) {
	strategy := newMemStrategy(nil)
	s := openStore(t, strategy)

	s.Edit().PutBool("abandoned", true).Remove("other").Clear()

	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, strategy.persistCalls())
}

func TestEditor_PersistFailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	strategy := newMemStrategy(map[string]Value{"keep": String("old")})
	s := openStore(t, strategy)

	var notified []string
	_, err := s.RegisterChangeListener(func(_ Preferences, key string) {
		notified = append(notified, key)
	})
	require.NoError(t, err)

	strategy.persistErr = errors.New("disk full")
	err = s.Edit().PutString("keep", "new").PutBool("added", true).Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, strategy.persistErr)

	keep, err := s.GetString("keep", "")
	require.NoError(t, err)
	assert.Equal(t, "old", keep)

	ok, err := s.Contains("added")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, notified)

	strategy.persistErr = nil
	require.NoError(t, s.Edit().PutBool("added", true).Commit(ctx))
	assert.Equal(t, []string{"added"}, notified)
}

func TestEditor_ClearAppliesBeforePuts(t *testing.T) {
	ctx := context.Background()
	strategy := newMemStrategy(map[string]Value{"a": Int(1), "b": Int(2)})
	s := openStore(t, strategy)

	require.NoError(t, s.Edit().PutInt("c", 3).Clear().Commit(ctx))

	all, err := s.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, slices.Sorted(maps.Keys(all)))
	assert.Equal(t, [][]string{{"a", "b", "c"}}, strategy.persistCalls())
}

func TestEditor_LastOperationOnKeyWins(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newMemStrategy(nil))

	require.NoError(t, s.Edit().PutString("k", "one").Remove("k").PutString("k", "two").Commit(ctx))
	v, err := s.GetString("k", "")
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	require.NoError(t, s.Edit().PutString("k", "three").Remove("k").Commit(ctx))
	ok, err := s.Contains("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEditor_NoChangeSkipsPersist(t *testing.T) {
	ctx := context.Background()
	strategy := newMemStrategy(map[string]Value{"a": Int(1)})
	s := openStore(t, strategy)

	calls := 0
	_, err := s.RegisterChangeListener(func(Preferences, string) { calls++ })
	require.NoError(t, err)

	require.NoError(t, s.Edit().PutInt("a", 1).Remove("nope").Commit(ctx))
	require.NoError(t, s.Edit().Commit(ctx))

	assert.Empty(t, strategy.persistCalls())
	assert.Zero(t, calls)
}

func TestEditor_CommitOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newMemStrategy(nil))

	e := s.Edit().PutInt("a", 1)
	require.NoError(t, e.Commit(ctx))
	require.ErrorIs(t, e.Commit(ctx), ErrEditorDone)
}

func TestEditor_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	strategy := newMemStrategy(nil)
	s := openStore(t, strategy)

	err := s.Edit().PutInt("ok", 1).PutString("", "x").Commit(ctx)
	require.ErrorIs(t, err, ErrInvalidKey)

	err = s.Edit().Put("zero", Value{}).Commit(ctx)
	require.ErrorIs(t, err, ErrInvalidValue)

	err = s.Edit().PutInt("ok", 1).PutInt("bad\xffkey", 1).Commit(ctx)
	require.ErrorIs(t, err, ErrInvalidKey)

	err = s.Edit().PutInt("ok", 1).PutString("s", "a\xffb").Commit(ctx)
	require.ErrorIs(t, err, ErrInvalidValue)

	err = s.Edit().PutInt("ok", 1).Put("set", StringSet("fine", "a\xffb")).Commit(ctx)
	require.ErrorIs(t, err, ErrInvalidValue)

	assert.Empty(t, strategy.persistCalls())
	ok, err := s.Contains("ok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEditor_PutStringSetCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newMemStrategy(nil))

	in := mapset.NewSet("a")
	e := s.Edit().PutStringSet("tags", in)
	in.Add("b")
	require.NoError(t, e.Commit(ctx))

	got, err := s.GetStringSet("tags", nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(mapset.NewSet("a")))
}

func TestEditor_Apply(t *testing.T) {
	strategy := newMemStrategy(nil)
	s := openStore(t, strategy)

	s.Edit().PutLong("async", 42).Apply()

	require.Eventually(t, func() bool {
		v, err := s.GetLong("async", 0)
		return err == nil && v == 42
	}, 2*time.Second, 5*time.Millisecond)
	_, ok := strategy.stored("async")
	assert.True(t, ok)
}

func TestListeners_OncePerChangedKeyAfterVisible(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newMemStrategy(map[string]Value{"same": Int(1), "gone": Int(2)}))

	var mu sync.Mutex
	seen := map[string]int{}
	_, err := s.RegisterChangeListener(func(p Preferences, key string) {
		ok, err := p.Contains(key)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		seen[key]++
		if key == "new" {
			assert.True(t, ok, "listeners observe the committed state")
		}
	})
	require.NoError(t, err)

	err = s.Edit().
		PutInt("same", 1).
		PutString("new", "a").
		PutString("new", "b").
		Remove("gone").
		Commit(ctx)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"new": 1, "gone": 1}, seen)
}

func TestListeners_Unregister(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newMemStrategy(nil))

	calls := 0
	id, err := s.RegisterChangeListener(func(Preferences, string) { calls++ })
	require.NoError(t, err)

	require.NoError(t, s.Edit().PutInt("a", 1).Commit(ctx))
	require.NoError(t, s.UnregisterChangeListener(id))
	require.NoError(t, s.UnregisterChangeListener(id))
	require.NoError(t, s.Edit().PutInt("a", 2).Commit(ctx))

	assert.Equal(t, 1, calls)
}

func TestListeners_PanicDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newMemStrategy(nil))

	_, err := s.RegisterChangeListener(func(Preferences, string) { panic("boom") })
	require.NoError(t, err)
	calls := 0
	_, err = s.RegisterChangeListener(func(Preferences, string) { calls++ })
	require.NoError(t, err)

	require.NoError(t, s.Edit().PutInt("a", 1).PutInt("b", 2).Commit(ctx))
	assert.Equal(t, 2, calls)
}

func TestListeners_MayCommitFromCallback(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newMemStrategy(nil))

	_, err := s.RegisterChangeListener(func(p Preferences, key string) {
		if key == "trigger" {
			assert.NoError(t, p.Edit().PutBool("echo", true).Commit(ctx))
		}
	})
	require.NoError(t, err)

	require.NoError(t, s.Edit().PutBool("trigger", true).Commit(ctx))
	echo, err := s.GetBool("echo", false)
	require.NoError(t, err)
	assert.True(t, echo)
}

func TestListeners_RejectNil(t *testing.T) {
	s := openStore(t, newMemStrategy(nil))
	_, err := s.RegisterChangeListener(nil)
	assert.Error(t, err)
}

func TestOpen_EagerLoadFailureClosesStrategy(t *testing.T) {
	strategy := newMemStrategy(nil)
	strategy.loadErr = errors.New("unreachable")

	s, err := Open(context.Background(), strategy)
	require.Error(t, err)
	assert.ErrorIs(t, err, strategy.loadErr)
	assert.Nil(t, s)
	assert.Equal(t, 1, strategy.closes)
}

func TestOpen_DeferredBlocksUntilLoaded(t *testing.T) {
	strategy := newMemStrategy(map[string]Value{"a": String("ready")})
	strategy.gate = make(chan struct{})
	s := openStore(t, strategy, WithLoadPolicy(LoadDeferred))

	got := make(chan string, 1)
	go func() {
		v, _ := s.GetString("a", "")
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("read returned before the load finished")
	case <-time.After(50 * time.Millisecond):
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Wait(waitCtx), context.DeadlineExceeded)

	close(strategy.gate)

	select {
	case v := <-got:
		assert.Equal(t, "ready", v)
	case <-time.After(2 * time.Second):
		t.Fatal("read did not return after the load finished")
	}
	require.NoError(t, s.Wait(context.Background()))
}

func TestOpen_DeferredLoadFailure(t *testing.T) {
	strategy := newMemStrategy(nil)
	strategy.loadErr = errors.New("corrupt")
	s, err := Open(context.Background(), strategy, WithLoadPolicy(LoadDeferred))
	require.NoError(t, err)

	require.ErrorIs(t, s.Wait(context.Background()), strategy.loadErr)

	_, err = s.GetInt("a", 0)
	require.ErrorIs(t, err, strategy.loadErr)
	require.ErrorIs(t, s.Edit().PutInt("a", 1).Commit(context.Background()), strategy.loadErr)
	_, err = s.RegisterChangeListener(func(Preferences, string) {})
	require.ErrorIs(t, err, strategy.loadErr)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, strategy.closes)
}

func TestOpen_UnknownLoadPolicy(t *testing.T) {
	_, err := Open(context.Background(), newMemStrategy(nil), WithLoadPolicy(LoadPolicy(7)))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	strategy := newMemStrategy(map[string]Value{"a": Int(1)})
	s, err := Open(ctx, strategy)
	require.NoError(t, err)

	e := s.Edit().PutInt("b", 2)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, strategy.closes)

	_, err = s.GetInt("a", 0)
	require.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.All()
	require.ErrorIs(t, err, ErrStoreClosed)
	require.ErrorIs(t, e.Commit(ctx), ErrStoreClosed)
	_, err = s.RegisterChangeListener(func(Preferences, string) {})
	require.ErrorIs(t, err, ErrStoreClosed)
	require.ErrorIs(t, s.UnregisterChangeListener(ListenerID{}), ErrStoreClosed)
	require.ErrorIs(t, s.Wait(ctx), ErrStoreClosed)
}

func TestStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	strategy := newMemStrategy(nil)
	s := openStore(t, strategy)

	var mu sync.Mutex
	notified := map[string]int{}
	_, err := s.RegisterChangeListener(func(_ Preferences, key string) {
		mu.Lock()
		notified[key]++
		mu.Unlock()
	})
	require.NoError(t, err)

	const writers = 32
	g, gctx := errgroup.WithContext(ctx)
	for i := range writers {
		g.Go(func() error {
			key := fmt.Sprintf("key-%02d", i)
			if err := s.Edit().PutInt(key, int32(i)).PutLong("shared", int64(i)).Commit(gctx); err != nil {
				return err
			}
			_, err := s.GetInt(key, -1)
			return err
		})
		g.Go(func() error {
			_, err := s.All()
			return err
		})
	}
	require.NoError(t, g.Wait())

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, writers+1)
	for i := range writers {
		v, err := s.GetInt(fmt.Sprintf("key-%02d", i), -1)
		require.NoError(t, err)
		assert.Equal(t, int32(i), v)
	}

	shared, ok := strategy.stored("shared")
	require.True(t, ok)
	assert.True(t, all["shared"].Equal(shared), "memory and storage agree on the last writer")

	for i := range writers {
		assert.Equal(t, 1, notified[fmt.Sprintf("key-%02d", i)])
	}
	assert.Len(t, strategy.persistCalls(), writers)
}
