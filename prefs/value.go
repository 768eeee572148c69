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
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
)

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindLong
	KindFloat
	KindString
	KindStringSet
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindStringSet:
		return "stringset"
	default:
		return "invalid"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return KindBool, nil
	case "int", "int32":
		return KindInt, nil
	case "long", "int64":
		return KindLong, nil
	case "float", "float32":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "stringset", "set":
		return KindStringSet, nil
	default:
		return KindInvalid, fmt.Errorf("unknown value kind %q", s)
	}
}

// Value is a single stored preference. Exactly one kind is populated.
// Values are immutable; string sets are copied on the way in and out.
type Value struct {
	kind Kind
	num  int64
	f    float32
	s    string
	set  mapset.Set[string]
}

func Bool(v bool) Value {
	var n int64
	if v {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

func Int(v int32) Value {
	return Value{kind: KindInt, num: int64(v)}
}

func Long(v int64) Value {
	return Value{kind: KindLong, num: v}
}

func Float(v float32) Value {
	return Value{kind: KindFloat, f: v}
}

func String(v string) Value {
	return Value{kind: KindString, s: v}
}

// StringSet builds a set value from elems. Duplicates collapse.
func StringSet(elems ...string) Value {
	return Value{kind: KindStringSet, set: mapset.NewSet(elems...)}
}

// StringSetOf builds a set value from a copy of set. A nil set is treated as empty.
func StringSetOf(set mapset.Set[string]) Value {
	if set == nil {
		return StringSet()
	}
	return Value{kind: KindStringSet, set: mapset.NewSet(set.ToSlice()...)}
}

func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v carries no kind at all.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

func (v Value) Bool() (bool, bool) {
	return v.num != 0, v.kind == KindBool
}

func (v Value) Int() (int32, bool) {
	return int32(v.num), v.kind == KindInt
}

func (v Value) Long() (int64, bool) {
	return v.num, v.kind == KindLong
}

func (v Value) Float() (float32, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Set returns a copy of the set held by v.
func (v Value) Set() (mapset.Set[string], bool) {
	if v.kind != KindStringSet {
		return nil, false
	}
	return mapset.NewSet(v.set.ToSlice()...), true
}

// Strings returns the set elements sorted, or nil if v is not a set.
func (v Value) Strings() []string {
	if v.kind != KindStringSet {
		return nil
	}
	out := v.set.ToSlice()
	slices.Sort(out)
	return out
}

// Equal compares kind and content. Floats compare by bit pattern so that a
// stored NaN is equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool, KindInt, KindLong:
		return v.num == o.num
	case KindFloat:
		return math.Float32bits(v.f) == math.Float32bits(o.f)
	case KindString:
		return v.s == o.s
	case KindStringSet:
		return v.set.Equal(o.set)
	default:
		return true
	}
}

// ValidUTF8 reports whether every string held by v is valid UTF-8.
func (v Value) ValidUTF8() bool {
	switch v.kind {
	case KindString:
		return utf8.ValidString(v.s)
	case KindStringSet:
		valid := true
		v.set.Each(func(s string) bool {
			valid = utf8.ValidString(s)
			return !valid
		})
		return valid
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	case KindInt, KindLong:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	case KindString:
		return v.s
	case KindStringSet:
		return "[" + strings.Join(v.Strings(), ", ") + "]"
	default:
		return "<invalid>"
	}
}
