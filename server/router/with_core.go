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

package router

import (
	"compress/gzip"
	"strings"

	"github.com/fromi/formlogin/server/config"
	"github.com/fromi/formlogin/server/middleware/compression"

	gzipmw "github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// WithResponseCompression enables response compression. The configured algorithms are offered in order; a
// request is encoded with the first one its Accept-Encoding allows. Gzip levels outside the valid range fall
// back to the default level.
func (r *Router) WithResponseCompression(cmp config.CompressionSection) *Router {
	if !cmp.Enabled {
		return r
	}

	compressionLevel := cmp.Level
	if compressionLevel < gzip.BestSpeed || compressionLevel > gzip.BestCompression {
		compressionLevel = gzip.DefaultCompression
	}

	algorithms := cmp.Algorithms
	if len(algorithms) == 0 {
		algorithms = []string{"gzip"}
	}

	level := compression.LevelFromGzip(compressionLevel)
	seen := make(map[string]bool, len(algorithms))
	candidates := make([]compression.Candidate, 0, len(algorithms))

	for _, algorithm := range algorithms {
		var candidate compression.Candidate

		switch strings.ToLower(algorithm) {
		case "gzip":
			candidate = compression.Candidate{Encoding: "gzip", Handler: gzipmw.Gzip(compressionLevel)}
		case "zstd", "zst":
			candidate = compression.Candidate{Encoding: "zstd", Handler: compression.Zstd(level)}
		case "br", "brotli":
			candidate = compression.Candidate{Encoding: "br", Handler: compression.Brotli(level)}
		default:
			continue
		}

		if seen[candidate.Encoding] {
			continue
		}

		seen[candidate.Encoding] = true
		candidates = append(candidates, candidate)
	}

	if len(candidates) == 0 {
		return r
	}

	r.Engine.Use(compression.Negotiate(candidates...))

	return r
}

// WithPprof registers the net/http/pprof handlers below /debug/pprof.
func (r *Router) WithPprof(insights config.InsightsSection) *Router {
	if insights.EnablePprof {
		pprof.Register(r.Engine)
	}

	return r
}

// WithTracing creates a server span for every request registered after it.
func (r *Router) WithTracing(tracing config.TracingSection, service string) *Router {
	if !tracing.IsEnabled() {
		return r
	}

	if tracing.ServiceName != "" {
		service = tracing.ServiceName
	}

	r.Engine.Use(otelgin.Middleware(service))

	return r
}
