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

// Package codec converts preference values to and from the (type code,
// text) pair stored in a single untyped column.
//
// Encoding is deterministic: the same Value always yields the same text,
// which keeps repeated upserts of an unchanged value idempotent. String
// sets are written as a JSON array of their elements in ascending order, so
// JSON string escaping keeps element content and delimiters apart.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/cardinalhq/sqlprefs/prefs"
)

// TypeCode is the value stored in the type column.
type TypeCode int64

const (
	TypeBool      TypeCode = 1
	TypeInt       TypeCode = 2
	TypeLong      TypeCode = 3
	TypeFloat     TypeCode = 4
	TypeString    TypeCode = 5
	TypeStringSet TypeCode = 6
)

// ErrCorruptData is wrapped by every decoding failure.
var ErrCorruptData = errors.New("corrupt preference data")

func (c TypeCode) String() string {
	switch c {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeStringSet:
		return "stringset"
	default:
		return "TypeCode(" + strconv.FormatInt(int64(c), 10) + ")"
	}
}

// TypeCodeOf maps a value kind to its type code.
func TypeCodeOf(k prefs.Kind) (TypeCode, bool) {
	switch k {
	case prefs.KindBool:
		return TypeBool, true
	case prefs.KindInt:
		return TypeInt, true
	case prefs.KindLong:
		return TypeLong, true
	case prefs.KindFloat:
		return TypeFloat, true
	case prefs.KindString:
		return TypeString, true
	case prefs.KindStringSet:
		return TypeStringSet, true
	default:
		return 0, false
	}
}

// Encode returns the type code and text representation of v.
func Encode(v prefs.Value) (TypeCode, string, error) {
	code, ok := TypeCodeOf(v.Kind())
	if !ok {
		return 0, "", fmt.Errorf("cannot encode value of kind %s", v.Kind())
	}

	switch code {
	case TypeBool:
		b, _ := v.Bool()
		return code, strconv.FormatBool(b), nil
	case TypeInt:
		i, _ := v.Int()
		return code, strconv.FormatInt(int64(i), 10), nil
	case TypeLong:
		l, _ := v.Long()
		return code, strconv.FormatInt(l, 10), nil
	case TypeFloat:
		f, _ := v.Float()
		return code, strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case TypeString:
		s, _ := v.Str()
		if !utf8.ValidString(s) {
			return 0, "", errors.New("cannot encode string that is not valid UTF-8")
		}
		return code, s, nil
	default:
		if !v.ValidUTF8() {
			return 0, "", errors.New("cannot encode string set with an element that is not valid UTF-8")
		}
		elems := v.Strings()
		if elems == nil {
			elems = []string{}
		}
		raw, err := json.Marshal(elems)
		if err != nil {
			return 0, "", fmt.Errorf("encoding string set: %w", err)
		}
		return code, string(raw), nil
	}
}

// Decode rebuilds the value stored as (code, text). Unknown codes and
// malformed text return an error wrapping ErrCorruptData.
func Decode(code TypeCode, text string) (prefs.Value, error) {
	switch code {
	case TypeBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return prefs.Value{}, corrupt(code, err)
		}
		return prefs.Bool(b), nil
	case TypeInt:
		i, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return prefs.Value{}, corrupt(code, err)
		}
		return prefs.Int(int32(i)), nil
	case TypeLong:
		l, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return prefs.Value{}, corrupt(code, err)
		}
		return prefs.Long(l), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return prefs.Value{}, corrupt(code, err)
		}
		return prefs.Float(float32(f)), nil
	case TypeString:
		return prefs.String(text), nil
	case TypeStringSet:
		var elems []string
		if err := json.Unmarshal([]byte(text), &elems); err != nil {
			return prefs.Value{}, corrupt(code, err)
		}
		if elems == nil {
			return prefs.Value{}, corrupt(code, errors.New("null is not a string set"))
		}
		return prefs.StringSet(elems...), nil
	default:
		return prefs.Value{}, fmt.Errorf("%w: unknown type code %d", ErrCorruptData, int64(code))
	}
}

func corrupt(code TypeCode, err error) error {
	return fmt.Errorf("%w: malformed %s: %w", ErrCorruptData, code, err)
}
