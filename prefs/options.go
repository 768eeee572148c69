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
	"log/slog"
	"strings"
)

// LoadPolicy governs when a Store is populated from its strategy.
type LoadPolicy int

const (
	// LoadEager loads before Open returns.
	LoadEager LoadPolicy = iota
	// LoadDeferred loads in the background. Every call that needs the
	// cache blocks until the load is finished.
	LoadDeferred
)

func (p LoadPolicy) String() string {
	switch p {
	case LoadEager:
		return "eager"
	case LoadDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("LoadPolicy(%d)", int(p))
	}
}

func ParseLoadPolicy(s string) (LoadPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eager", "sync":
		return LoadEager, nil
	case "deferred", "async":
		return LoadDeferred, nil
	default:
		return 0, fmt.Errorf("unknown load policy %q", s)
	}
}

type options struct {
	loadPolicy LoadPolicy
	logger     *slog.Logger
}

type Option func(*options)

func WithLoadPolicy(p LoadPolicy) Option {
	return func(o *options) {
		o.loadPolicy = p
	}
}

// WithLogger sets the logger used by the store and handed to its strategy
// through the context. Defaults to the logger carried by the Open context.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
