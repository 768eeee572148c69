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

package prefsdb

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cardinalhq/sqlprefs/internal/sealbox"
)

// CorruptRowPolicy decides what Load does with a row it cannot decode.
type CorruptRowPolicy int

const (
	// CorruptRowsAbort fails the whole load.
	CorruptRowsAbort CorruptRowPolicy = iota
	// CorruptRowsSkip logs the row, counts it and leaves it out of the result.
	CorruptRowsSkip
)

func (p CorruptRowPolicy) String() string {
	switch p {
	case CorruptRowsAbort:
		return "abort"
	case CorruptRowsSkip:
		return "skip"
	default:
		return fmt.Sprintf("CorruptRowPolicy(%d)", int(p))
	}
}

func ParseCorruptRowPolicy(s string) (CorruptRowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return CorruptRowsAbort, nil
	case "skip":
		return CorruptRowsSkip, nil
	default:
		return 0, fmt.Errorf("unknown corrupt row policy %q", s)
	}
}

// KDFParams are the key derivation costs used when a new keyring is created.
// Existing keyrings keep the parameters they were created with.
type KDFParams = sealbox.Params

type options struct {
	logger      *slog.Logger
	corruptRows CorruptRowPolicy
	kdf         KDFParams
	credential  []byte
	encrypted   bool
}

type Option func(*options)

// WithLogger fixes the strategy's logger. Without it the logger carried by
// each call's context is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithCorruptRowPolicy(p CorruptRowPolicy) Option {
	return func(o *options) {
		o.corruptRows = p
	}
}

func WithKDFParams(p KDFParams) Option {
	return func(o *options) {
		o.kdf = p
	}
}

// WithCredential turns on value sealing. The strategy keeps its own copy
// of credential and wipes it once the key has been derived.
func WithCredential(credential []byte) Option {
	return func(o *options) {
		o.credential = append([]byte(nil), credential...)
		o.encrypted = true
	}
}
