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
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	commitCompleted metric.Int64Counter
	commitFailed    metric.Int64Counter
	persistDuration metric.Float64Histogram
	loadDuration    metric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/sqlprefs/prefs")

	var err error

	commitCompleted, err = meter.Int64Counter(
		"sqlprefs.commit.completed",
		metric.WithDescription("Number of editor commits that were persisted"),
	)
	if err != nil {
		log.Fatalf("failed to create commit.completed counter: %v", err)
	}

	commitFailed, err = meter.Int64Counter(
		"sqlprefs.commit.failed",
		metric.WithDescription("Number of editor commits rejected by the storage strategy"),
	)
	if err != nil {
		log.Fatalf("failed to create commit.failed counter: %v", err)
	}

	persistDuration, err = meter.Float64Histogram(
		"sqlprefs.commit.persist_duration",
		metric.WithDescription("Time spent persisting the changed keys of a commit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Fatalf("failed to create commit.persist_duration histogram: %v", err)
	}

	loadDuration, err = meter.Float64Histogram(
		"sqlprefs.load.duration",
		metric.WithDescription("Time spent loading a store from its strategy"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Fatalf("failed to create load.duration histogram: %v", err)
	}
}

func recordCommit(ctx context.Context, elapsed time.Duration, err error) {
	persistDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err != nil {
		commitFailed.Add(ctx, 1)
		return
	}
	commitCompleted.Add(ctx, 1)
}

func recordLoad(ctx context.Context, elapsed time.Duration, err error) {
	loadDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("success", err == nil)))
}
