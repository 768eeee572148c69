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
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/sqlprefs/internal/logctx"
)

type state int

const (
	stateLoading state = iota
	stateReady
	stateLoadFailed
	stateClosed
)

// Store is an in-memory preference cache backed by a Strategy. Reads are
// served from memory; changes go through an Editor and are persisted before
// they become visible. A Store is safe for concurrent use.
type Store struct {
	strategy Strategy
	logger   *slog.Logger

	loaded  chan struct{}
	loadErr error

	mu    sync.RWMutex
	cache *cache
	state state

	// commitMu serializes commits and Close. Persist and the cache swap
	// happen while it is held.
	commitMu sync.Mutex

	listeners *listenerRegistry
}

// Open creates a Store over strategy and loads it according to the load
// policy. With LoadEager a load failure is returned and strategy is closed.
// With LoadDeferred the load runs in the background and its outcome is
// reported by Wait and by every call that needs the cache.
func Open(ctx context.Context, strategy Strategy, opts ...Option) (*Store, error) {
	o := options{loadPolicy: LoadEager}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logctx.FromContext(ctx)
	}

	s := &Store{
		strategy:  strategy,
		logger:    o.logger,
		loaded:    make(chan struct{}),
		cache:     newCache(nil),
		state:     stateLoading,
		listeners: newListenerRegistry(o.logger),
	}

	switch o.loadPolicy {
	case LoadEager:
		s.load(ctx)
		if s.loadErr != nil {
			if err := strategy.Close(); err != nil {
				s.logger.Warn("Failed to close strategy after load failure", slog.Any("error", err))
			}
			return nil, s.loadErr
		}
	case LoadDeferred:
		go s.load(context.WithoutCancel(ctx))
	default:
		return nil, fmt.Errorf("unknown load policy %s", o.loadPolicy)
	}

	return s, nil
}

func (s *Store) load(ctx context.Context) {
	defer close(s.loaded)

	start := time.Now()
	entries, err := s.strategy.Load(logctx.WithLogger(ctx, s.logger))
	elapsed := time.Since(start)
	recordLoad(ctx, elapsed, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loadErr = fmt.Errorf("loading preferences: %w", err)
		s.state = stateLoadFailed
		s.logger.Error("Failed to load preferences", slog.Any("error", err))
		return
	}
	s.cache = newCache(entries)
	s.state = stateReady
	s.logger.Debug("Loaded preferences",
		slog.Int("count", s.cache.len()),
		slog.Duration("elapsed", elapsed))
}

// Wait blocks until the initial load has finished and returns its error.
// It returns ctx.Err() if ctx is done first.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}
	_, err := s.current()
	return err
}

// current waits for the initial load and returns the live cache.
func (s *Store) current() (*cache, error) {
	<-s.loaded
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.state {
	case stateClosed:
		return nil, ErrStoreClosed
	case stateLoadFailed:
		return nil, s.loadErr
	}
	return s.cache, nil
}

func getTyped[T any](s *Store, key string, def T, kind Kind, extract func(Value) (T, bool)) (T, error) {
	c, err := s.current()
	if err != nil {
		return def, err
	}
	v, ok := c.get(key)
	if !ok {
		return def, nil
	}
	out, ok := extract(v)
	if !ok {
		return def, fmt.Errorf("%w: %q holds %s, not %s", ErrTypeMismatch, key, v.Kind(), kind)
	}
	return out, nil
}

// GetBool returns the bool stored under key, or def if key is absent.
// A value of another kind yields def and ErrTypeMismatch.
func (s *Store) GetBool(key string, def bool) (bool, error) {
	return getTyped(s, key, def, KindBool, Value.Bool)
}

// GetInt returns the int32 stored under key, or def if key is absent.
func (s *Store) GetInt(key string, def int32) (int32, error) {
	return getTyped(s, key, def, KindInt, Value.Int)
}

// GetLong returns the int64 stored under key, or def if key is absent.
func (s *Store) GetLong(key string, def int64) (int64, error) {
	return getTyped(s, key, def, KindLong, Value.Long)
}

// GetFloat returns the float32 stored under key, or def if key is absent.
func (s *Store) GetFloat(key string, def float32) (float32, error) {
	return getTyped(s, key, def, KindFloat, Value.Float)
}

// GetString returns the string stored under key, or def if key is absent.
func (s *Store) GetString(key string, def string) (string, error) {
	return getTyped(s, key, def, KindString, Value.Str)
}

// GetStringSet returns a copy of the stored set, or def itself when key is
// not present.
func (s *Store) GetStringSet(key string, def mapset.Set[string]) (mapset.Set[string], error) {
	return getTyped(s, key, def, KindStringSet, Value.Set)
}

// Get returns the stored value of any kind.
func (s *Store) Get(key string) (Value, bool, error) {
	c, err := s.current()
	if err != nil {
		return Value{}, false, err
	}
	v, ok := c.get(key)
	return v, ok, nil
}

// Contains reports whether a value of any kind is stored under key.
func (s *Store) Contains(key string) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

// All returns a copy of every stored preference.
func (s *Store) All() (map[string]Value, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}
	return c.copyEntries(), nil
}

// Edit starts a new set of staged changes.
func (s *Store) Edit() *Editor {
	return &Editor{store: s}
}

// RegisterChangeListener adds l to the listeners told about committed
// changes. The returned ID removes it again.
func (s *Store) RegisterChangeListener(l Listener) (ListenerID, error) {
	if l == nil {
		return ListenerID{}, errors.New("listener must not be nil")
	}
	if _, err := s.current(); err != nil {
		return ListenerID{}, err
	}
	return s.listeners.register(l), nil
}

// UnregisterChangeListener removes a listener. Removing an unknown ID is
// not an error.
func (s *Store) UnregisterChangeListener(id ListenerID) error {
	if _, err := s.current(); err != nil {
		return err
	}
	s.listeners.unregister(id)
	return nil
}

func (s *Store) commit(ctx context.Context, d *draft) error {
	s.commitMu.Lock()

	before, err := s.current()
	if err != nil {
		s.commitMu.Unlock()
		return err
	}

	next := before.apply(d)
	changed := before.changedKeys(next)
	if len(changed) == 0 {
		s.commitMu.Unlock()
		return nil
	}

	start := time.Now()
	err = s.strategy.Persist(logctx.WithLogger(ctx, s.logger), next.snapshot(), changed)
	recordCommit(ctx, time.Since(start), err)
	if err != nil {
		s.commitMu.Unlock()
		s.logger.Warn("Preference commit rejected by storage",
			slog.Int("changedKeys", len(changed)),
			slog.Any("error", err))
		return fmt.Errorf("committing %d changed preferences: %w", len(changed), err)
	}

	s.mu.Lock()
	s.cache = next
	s.mu.Unlock()
	s.commitMu.Unlock()

	s.listeners.notify(s, changed)
	return nil
}

// Close waits for a pending load and any commit in flight, then closes the
// strategy. Every later call fails with ErrStoreClosed. Closing twice is a
// no-op.
func (s *Store) Close() error {
	<-s.loaded

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosed
	s.cache = newCache(nil)
	s.mu.Unlock()

	s.listeners.clear()

	if err := s.strategy.Close(); err != nil {
		return fmt.Errorf("closing preference strategy: %w", err)
	}
	return nil
}
