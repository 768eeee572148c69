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
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Listener is told about every key changed by a successful commit, once
// per key, after the change has been persisted.
type Listener func(p Preferences, key string)

// ListenerID identifies a registered Listener.
type ListenerID uuid.UUID

func (id ListenerID) String() string {
	return uuid.UUID(id).String()
}

type listenerEntry struct {
	id ListenerID
	fn Listener
}

type listenerRegistry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries []listenerEntry
}

func newListenerRegistry(logger *slog.Logger) *listenerRegistry {
	return &listenerRegistry{logger: logger}
}

func (r *listenerRegistry) register(fn Listener) ListenerID {
	id := ListenerID(uuid.New())
	r.mu.Lock()
	r.entries = append(r.entries, listenerEntry{id: id, fn: fn})
	r.mu.Unlock()
	return id
}

func (r *listenerRegistry) unregister(id ListenerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.entries, func(e listenerEntry) bool { return e.id == id })
	if i < 0 {
		return false
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	return true
}

func (r *listenerRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *listenerRegistry) clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// notify calls every listener registered at the time of the call. The lock
// is not held while listeners run, so they may register or unregister.
func (r *listenerRegistry) notify(p Preferences, keys []string) {
	r.mu.RLock()
	entries := slices.Clone(r.entries)
	r.mu.RUnlock()

	for _, key := range keys {
		for _, e := range entries {
			r.call(e, p, key)
		}
	}
}

func (r *listenerRegistry) call(e listenerEntry, p Preferences, key string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Preference listener panicked",
				slog.String("listener", e.id.String()),
				slog.String("key", key),
				slog.Any("panic", rec))
		}
	}()
	e.fn(p, key)
}
