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
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
)

type op struct {
	key    string
	value  Value
	remove bool
}

// draft is the staged content of an Editor.
type draft struct {
	clear bool
	ops   []op
	err   error
}

// Editor stages changes to a Store. Nothing is visible to readers until
// Commit succeeds; an editor that is never committed has no effect.
// An Editor is safe for concurrent use and commits at most once.
type Editor struct {
	store *Store

	mu    sync.Mutex
	draft draft
	done  bool
}

func (e *Editor) stage(o op) *Editor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done || e.draft.err != nil {
		return e
	}
	switch {
	case o.key == "":
		e.draft.err = ErrInvalidKey
	case !utf8.ValidString(o.key):
		e.draft.err = fmt.Errorf("%w: %q", ErrInvalidKey, o.key)
	case !o.remove && o.value.IsZero():
		e.draft.err = fmt.Errorf("%w: key %q has no kind", ErrInvalidValue, o.key)
	case !o.remove && !o.value.ValidUTF8():
		e.draft.err = fmt.Errorf("%w: key %q holds a string that is not valid UTF-8", ErrInvalidValue, o.key)
	default:
		e.draft.ops = append(e.draft.ops, o)
	}
	return e
}

// Put stages v under key. An empty or non-UTF-8 key fails the later Commit
// with ErrInvalidKey; a zero Value or one holding non-UTF-8 text fails it
// with ErrInvalidValue.
func (e *Editor) Put(key string, v Value) *Editor {
	return e.stage(op{key: key, value: v})
}

// PutBool stages a bool value.
func (e *Editor) PutBool(key string, v bool) *Editor { return e.Put(key, Bool(v)) }

// PutInt stages an int32 value.
func (e *Editor) PutInt(key string, v int32) *Editor { return e.Put(key, Int(v)) }

// PutLong stages an int64 value.
func (e *Editor) PutLong(key string, v int64) *Editor { return e.Put(key, Long(v)) }

// PutFloat stages a float32 value.
func (e *Editor) PutFloat(key string, v float32) *Editor { return e.Put(key, Float(v)) }

// PutString stages a string value.
func (e *Editor) PutString(key string, v string) *Editor { return e.Put(key, String(v)) }

// PutStringSet stores a copy of v; later changes to v are not seen.
func (e *Editor) PutStringSet(key string, v mapset.Set[string]) *Editor {
	return e.Put(key, StringSetOf(v))
}

// Remove stages deletion of key. Removing an absent key is not an error.
func (e *Editor) Remove(key string) *Editor {
	return e.stage(op{key: key, remove: true})
}

// Clear removes every preference. It is applied before any put or remove
// staged on the same editor, wherever it appears in the chain.
func (e *Editor) Clear() *Editor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.done {
		e.draft.clear = true
	}
	return e
}

// Commit applies the staged changes atomically and waits for them to be
// persisted. A staged Clear runs first, then puts and removes in the order
// they were staged. On error the store is left exactly as it was and no
// listener is notified. A second Commit returns ErrEditorDone.
func (e *Editor) Commit(ctx context.Context) error {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return ErrEditorDone
	}
	e.done = true
	d := e.draft
	e.draft = draft{}
	e.mu.Unlock()

	if d.err != nil {
		return d.err
	}
	return e.store.commit(ctx, &d)
}

// Apply commits in the background and returns immediately. A failed commit
// is logged at warn level and otherwise dropped; the store keeps its
// previous contents and no listener is called. Use Commit to see the error.
func (e *Editor) Apply() {
	ctx := context.Background()
	go func() {
		if err := e.Commit(ctx); err != nil {
			e.store.logger.Warn("Background preference commit failed", slog.Any("error", err))
		}
	}()
}
