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

// Package api serves the resolved form-login descriptors over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/errors"
	"github.com/fromi/formlogin/server/formlogin"
	"github.com/fromi/formlogin/server/localcache"
	"github.com/fromi/formlogin/server/log/level"
	"github.com/fromi/formlogin/server/registry"

	"github.com/gin-gonic/gin"
)

// Store provides the active snapshot and reloads it.
type Store interface {
	Current() (*registry.Snapshot, error)
	Reload() (*registry.Snapshot, error)
}

// Handler implements the /api/v1 routes.
type Handler struct {
	store    Store
	logger   *slog.Logger
	instance string
	matches  *localcache.MatchCache
}

// New returns a Handler.
func New(store Store, logger *slog.Logger, instance string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{store: store, logger: logger, instance: instance}
}

// WithMatchCache caches path evaluations of the match endpoint.
func (h *Handler) WithMatchCache(c *localcache.MatchCache) *Handler {
	h.matches = c

	return h
}

// Register adds the API routes to r.
func (h *Handler) Register(r gin.IRouter) {
	group := r.Group("/api/v1")

	group.GET("/form-login", h.ListFormLogins)
	group.GET("/form-login/:name", h.GetFormLogin)
	group.GET("/form-login/:name/public-paths", h.GetPublicPaths)
	group.GET("/form-login/:name/match", h.MatchPath)
	group.POST("/reload", h.Reload)
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error    string `json:"error"`
	Details  string `json:"details,omitempty"`
	GUID     string `json:"guid,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// MatchResponse tells which request matchers of a block accept a path.
type MatchResponse struct {
	Path            string `json:"path"`
	LoginProcessing bool   `json:"login_processing"`
	Logout          bool   `json:"logout"`
	Public          bool   `json:"public"`
}

// ReloadResponse describes the snapshot activated by a reload.
type ReloadResponse struct {
	Version uint64   `json:"version"`
	BuildID string   `json:"build_id"`
	Blocks  []string `json:"blocks"`
}

func (h *Handler) ListFormLogins(ctx *gin.Context) {
	snapshot, ok := h.snapshot(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, snapshot)
}

func (h *Handler) GetFormLogin(ctx *gin.Context) {
	snapshot, ok := h.snapshot(ctx)
	if !ok {
		return
	}

	res, found := snapshot.Login(ctx.Param("name"))
	if !found {
		h.unknownBlock(ctx)

		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *Handler) GetPublicPaths(ctx *gin.Context) {
	snapshot, ok := h.snapshot(ctx)
	if !ok {
		return
	}

	paths, found := snapshot.PublicPaths(ctx.Param("name"))
	if !found {
		h.unknownBlock(ctx)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"public_paths": paths})
}

func (h *Handler) MatchPath(ctx *gin.Context) {
	snapshot, ok := h.snapshot(ctx)
	if !ok {
		return
	}

	name := ctx.Param("name")

	login, found := snapshot.Login(name)
	if !found {
		h.unknownBlock(ctx)

		return
	}

	path := ctx.Query("path")
	if path == "" {
		h.abort(ctx, http.StatusBadRequest, errors.NewDetailedError("missing path query parameter"))

		return
	}

	result, cached := h.matches.Get(snapshot.Version, name, path)
	if !cached {
		result = evaluate(snapshot, login, name, path)

		h.matches.Set(snapshot.Version, name, path, result)
	}

	response := MatchResponse{
		Path:            path,
		LoginProcessing: result.LoginProcessing,
		Logout:          result.Logout,
		Public:          result.Public,
	}

	ctx.JSON(http.StatusOK, response)
}

func evaluate(snapshot *registry.Snapshot, login *formlogin.Resolution, name string, path string) localcache.MatchResult {
	result := localcache.MatchResult{LoginProcessing: login.Filter.Matcher.Matches(path)}

	if out, exists := snapshot.Logout(name); exists {
		result.Logout = out.Matcher.Matches(path)
	}

	publicPaths, _ := snapshot.PublicPaths(name)

	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	result.Public = slices.Contains(publicPaths, path)

	return result
}

func (h *Handler) Reload(ctx *gin.Context) {
	snapshot, err := h.store.Reload()
	if err != nil {
		h.abort(ctx, http.StatusUnprocessableEntity, errors.WrapDetailedError(errors.ErrReloadFailed).WithDetail(err.Error()))

		return
	}

	level.Info(h.logger).Log(
		definitions.LogKeyGUID, ctx.GetString(definitions.CtxGUIDKey),
		definitions.LogKeyMsg, "Configuration reloaded via API",
		definitions.LogKeyVersion, snapshot.Version,
	)

	ctx.JSON(http.StatusOK, ReloadResponse{Version: snapshot.Version, BuildID: snapshot.BuildID, Blocks: snapshot.Names()})
}

func (h *Handler) snapshot(ctx *gin.Context) (*registry.Snapshot, bool) {
	snapshot, err := h.store.Current()
	if err != nil {
		h.abort(ctx, http.StatusServiceUnavailable, errors.WrapDetailedError(err))

		return nil, false
	}

	return snapshot, true
}

func (h *Handler) unknownBlock(ctx *gin.Context) {
	h.abort(ctx, http.StatusNotFound, errors.WrapDetailedError(errors.ErrUnknownBlock).WithDetail(ctx.Param("name")))
}

func (h *Handler) abort(ctx *gin.Context, status int, detailed *errors.DetailedError) {
	detailed = detailed.WithGUID(ctx.GetString(definitions.CtxGUIDKey)).WithInstance(h.instance)

	_ = ctx.Error(detailed)

	ctx.AbortWithStatusJSON(status, ErrorResponse{
		Error:    detailed.Error(),
		Details:  detailed.GetDetails(),
		GUID:     detailed.GetGUID(),
		Instance: detailed.GetInstance(),
	})
}
