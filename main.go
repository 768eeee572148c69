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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/KimMachineGun/automemlimit/memlimit"
	gomaxecs "github.com/rdforte/gomaxecs/maxprocs"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/cardinalhq/sqlprefs/cmd"
)

func debugLogger(msg string, args ...any) {
	slog.Debug("runtime tuning", slog.String("detail", fmt.Sprintf(msg, args...)))
}

func init() {
	if gomaxecs.IsECS() {
		if _, err := gomaxecs.Set(gomaxecs.WithLogger(debugLogger)); err != nil {
			slog.Warn("failed to set GOMAXPROCS from ECS metadata", slog.Any("error", err))
		}
	} else if _, err := maxprocs.Set(maxprocs.Logger(debugLogger)); err != nil {
		slog.Warn("failed to set GOMAXPROCS from cgroup quota", slog.Any("error", err))
	}

	_, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.8),
		memlimit.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	)
	if err != nil {
		slog.Warn("failed to set memory limit", slog.Any("error", err))
	}
}

func main() {
	cmd.Execute()
}
