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

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/sqlprefs/codec"
	"github.com/cardinalhq/sqlprefs/prefs"
)

// document is the YAML form used by list, export and import.
//
//	preferences:
//	  theme:
//	    type: string
//	    value: dark
//	  tags:
//	    type: stringset
//	    value: [a, b]
type document struct {
	Preferences map[string]entry `yaml:"preferences"`
}

type entry struct {
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

func newDocument(values map[string]prefs.Value) (*document, error) {
	doc := &document{Preferences: make(map[string]entry, len(values))}
	for key, v := range values {
		e, err := newEntry(v)
		if err != nil {
			return nil, fmt.Errorf("preference %q: %w", key, err)
		}
		doc.Preferences[key] = e
	}
	return doc, nil
}

func newEntry(v prefs.Value) (entry, error) {
	if v.Kind() == prefs.KindStringSet {
		node := yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, s := range v.Strings() {
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s})
		}
		return entry{Type: v.Kind().String(), Value: node}, nil
	}

	_, text, err := codec.Encode(v)
	if err != nil {
		return entry{}, err
	}
	tag := "!!str"
	switch v.Kind() {
	case prefs.KindBool:
		tag = "!!bool"
	case prefs.KindInt, prefs.KindLong:
		tag = "!!int"
	case prefs.KindFloat:
		tag = "!!float"
	}
	return entry{Type: v.Kind().String(), Value: yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}}, nil
}

// values converts the document back into preference values.
func (d *document) values() (map[string]prefs.Value, error) {
	out := make(map[string]prefs.Value, len(d.Preferences))
	for key, e := range d.Preferences {
		kind, err := prefs.ParseKind(e.Type)
		if err != nil {
			return nil, fmt.Errorf("preference %q: %w", key, err)
		}

		var texts []string
		switch {
		case kind == prefs.KindStringSet && e.Value.Kind == yaml.SequenceNode:
			for _, item := range e.Value.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("preference %q: set elements must be scalars", key)
				}
				texts = append(texts, item.Value)
			}
		case kind != prefs.KindStringSet && e.Value.Kind == yaml.ScalarNode:
			texts = []string{e.Value.Value}
		default:
			return nil, fmt.Errorf("preference %q: value does not match type %s", key, kind)
		}

		v, err := parseValue(kind, texts)
		if err != nil {
			return nil, fmt.Errorf("preference %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// parseValue builds a value of kind from its text form. A string set takes
// any number of elements; every other kind takes exactly one.
func parseValue(kind prefs.Kind, texts []string) (prefs.Value, error) {
	if kind == prefs.KindStringSet {
		return prefs.StringSet(texts...), nil
	}
	if len(texts) != 1 {
		return prefs.Value{}, fmt.Errorf("a %s value takes exactly one argument, got %d", kind, len(texts))
	}
	code, ok := codec.TypeCodeOf(kind)
	if !ok {
		return prefs.Value{}, fmt.Errorf("unsupported kind %s", kind)
	}
	return codec.Decode(code, texts[0])
}

func writeDocument(w io.Writer, doc *document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	return enc.Close()
}

func readDocument(r io.Reader) (*document, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("decoding preferences: %w", err)
	}
	return &doc, nil
}

// formatValue renders a value for get: scalars as their stored text, sets
// one element per line.
func formatValue(v prefs.Value) string {
	if v.Kind() == prefs.KindStringSet {
		var b strings.Builder
		for _, s := range v.Strings() {
			b.WriteString(s)
			b.WriteByte('\n')
		}
		return b.String()
	}
	if s, ok := v.Str(); ok {
		return s + "\n"
	}
	_, text, err := codec.Encode(v)
	if err != nil {
		return strconv.Quote(v.String()) + "\n"
	}
	return text + "\n"
}
