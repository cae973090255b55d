// Copyright (C) 2025 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package health implements the readiness endpoint.
package health

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/log/level"
	"github.com/fromi/formlogin/server/registry"

	"github.com/gin-gonic/gin"
)

const (
	healthzStatusUp       = "up"
	healthzStatusDown     = "down"
	healthzStatusDegraded = "degraded"
)

// SnapshotSource returns the active snapshot.
type SnapshotSource interface {
	Current() (*registry.Snapshot, error)
}

type HealthzDeps struct {
	Store  SnapshotSource
	Logger *slog.Logger
}

type HealthzCheck struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Meta   map[string]any `json:"meta,omitzero"`
}

type HealthzResult struct {
	Status string                   `json:"status"`
	Checks map[string]*HealthzCheck `json:"checks"`
}

// ReadinessCheck returns a handler reporting whether a snapshot is active and its configuration file can be
// reloaded. A missing snapshot is fatal, an unreadable file only degrades the result.
func ReadinessCheck(deps HealthzDeps) gin.HandlerFunc {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return func(ctx *gin.Context) {
		result := &HealthzResult{
			Status: healthzStatusUp,
			Checks: map[string]*HealthzCheck{},
		}

		snapshot := checkSnapshot(deps, result)
		checkConfigFile(snapshot, result)

		statusCode := http.StatusOK
		if result.Status == healthzStatusDown {
			statusCode = http.StatusServiceUnavailable

			level.Warn(deps.Logger).Log(
				definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
				definitions.LogKeyMsg, "Readiness check failed",
			)
		}

		ctx.JSON(statusCode, result)
	}
}

func checkSnapshot(deps HealthzDeps, result *HealthzResult) *registry.Snapshot {
	if deps.Store == nil {
		result.Checks["snapshot"] = &HealthzCheck{Status: healthzStatusDown, Error: "no registry"}
		result.Status = healthzStatusDown

		return nil
	}

	snapshot, err := deps.Store.Current()
	if err != nil {
		result.Checks["snapshot"] = &HealthzCheck{Status: healthzStatusDown, Error: err.Error()}
		result.Status = healthzStatusDown

		return nil
	}

	result.Checks["snapshot"] = &HealthzCheck{
		Status: healthzStatusUp,
		Meta: map[string]any{
			"version":   snapshot.Version,
			"build_id":  snapshot.BuildID,
			"blocks":    len(snapshot.Logins),
			"loaded_at": snapshot.LoadedAt.Format(time.RFC3339),
		},
	}

	return snapshot
}

func checkConfigFile(snapshot *registry.Snapshot, result *HealthzResult) {
	if snapshot == nil || snapshot.Source == "" {
		return
	}

	if _, err := os.Stat(snapshot.Source); err != nil {
		result.Checks["config_file"] = &HealthzCheck{Status: healthzStatusDegraded, Error: err.Error()}

		if result.Status == healthzStatusUp {
			result.Status = healthzStatusDegraded
		}

		return
	}

	result.Checks["config_file"] = &HealthzCheck{Status: healthzStatusUp, Meta: map[string]any{"path": snapshot.Source}}
}
