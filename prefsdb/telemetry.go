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
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	rowsPersisted      metric.Int64Counter
	corruptRowsSkipped metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/sqlprefs/prefsdb")

	var err error

	rowsPersisted, err = meter.Int64Counter(
		"sqlprefs.db.rows_persisted",
		metric.WithDescription("Number of preference rows upserted or deleted by committed transactions"),
	)
	if err != nil {
		log.Fatalf("failed to create db.rows_persisted counter: %v", err)
	}

	corruptRowsSkipped, err = meter.Int64Counter(
		"sqlprefs.db.corrupt_rows_skipped",
		metric.WithDescription("Number of undecodable preference rows left out of a load"),
	)
	if err != nil {
		log.Fatalf("failed to create db.corrupt_rows_skipped counter: %v", err)
	}
}

func recordRowsPersisted(ctx context.Context, d Dialect, n int) {
	rowsPersisted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("dialect", d.Name())))
}

func recordCorruptRow(ctx context.Context, d Dialect) {
	corruptRowsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("dialect", d.Name())))
}
