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
	"log/slog"

	"github.com/fromi/formlogin/server/handler/api"
	"github.com/fromi/formlogin/server/middleware/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router is a small builder around gin.Engine to assemble middlewares and routes
// without leaking application-specific logic into this package.
type Router struct {
	Engine *gin.Engine
}

// NewRouter creates a new Router builder with a fresh gin.Engine, panic recovery and request logging.
func NewRouter(logger *slog.Logger) *Router {
	engine := gin.New()

	engine.Use(gin.Recovery(), logging.LoggerMiddleware(logger))

	return &Router{Engine: engine}
}

// WithHealth registers /ping.
func (r *Router) WithHealth() *Router {
	r.Engine.GET("/ping", HealthCheck)

	return r
}

// WithHealthz registers the readiness endpoint using the given handler.
func (r *Router) WithHealthz(handler gin.HandlerFunc) *Router {
	r.Engine.GET("/healthz", handler)

	return r
}

// WithMetrics registers the prometheus endpoint on /metrics.
func (r *Router) WithMetrics() *Router {
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// WithAPI registers the /api/v1 routes.
func (r *Router) WithAPI(h *api.Handler) *Router {
	h.Register(r.Engine)

	return r
}

// Build returns the underlying gin.Engine.
func (r *Router) Build() *gin.Engine {
	return r.Engine
}
