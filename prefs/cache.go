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
	"maps"
	"slices"
)

// cache is an immutable key to Value mapping. Commits build a new cache and
// the store swaps it in, so a reader holding a cache never sees it change.
type cache struct {
	entries map[string]Value
}

func newCache(entries map[string]Value) *cache {
	if entries == nil {
		entries = map[string]Value{}
	}
	return &cache{entries: entries}
}

func (c *cache) get(key string) (Value, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *cache) len() int {
	return len(c.entries)
}

// snapshot exposes the entries for Persist. Callers must not modify it.
func (c *cache) snapshot() map[string]Value {
	return c.entries
}

// copyEntries returns a map the caller may keep.
func (c *cache) copyEntries() map[string]Value {
	return maps.Clone(c.entries)
}

// apply returns the cache that results from committing d on top of c.
// A staged clear empties the cache first; puts and removes then run in the
// order they were staged, so the last operation on a key wins.
func (c *cache) apply(d *draft) *cache {
	var next map[string]Value
	if d.clear {
		next = make(map[string]Value, len(d.ops))
	} else {
		next = maps.Clone(c.entries)
	}
	for _, o := range d.ops {
		if o.remove {
			delete(next, o.key)
			continue
		}
		next[o.key] = o.value
	}
	return &cache{entries: next}
}

// changedKeys lists, sorted, every key whose presence or value differs
// between c and next.
func (c *cache) changedKeys(next *cache) []string {
	var changed []string
	for k, v := range c.entries {
		nv, ok := next.entries[k]
		if !ok || !nv.Equal(v) {
			changed = append(changed, k)
		}
	}
	for k := range next.entries {
		if _, ok := c.entries[k]; !ok {
			changed = append(changed, k)
		}
	}
	slices.Sort(changed)
	return changed
}
