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

// Package registry resolves all configured blocks and serves the result as an immutable, versioned snapshot.
package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/fromi/formlogin/server/config"
	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/errors"
	"github.com/fromi/formlogin/server/formlogin"
	"github.com/fromi/formlogin/server/log/level"
	"github.com/fromi/formlogin/server/logout"
	"github.com/fromi/formlogin/server/monitoring/trace"

	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

var tracer = trace.New("formlogin/registry")

// Snapshot is the resolved state of one configuration load. It must not be modified.
type Snapshot struct {
	Version  uint64                           `json:"version"`
	BuildID  string                           `json:"build_id"`
	Source   string                           `json:"source"`
	LoadedAt time.Time                        `json:"loaded_at"`
	Logins   map[string]*formlogin.Resolution `json:"form_login"`
	Logouts  map[string]*logout.Resolution    `json:"logout,omitempty"`
}

// Login returns the resolution of a form_login block.
func (s *Snapshot) Login(name string) (*formlogin.Resolution, bool) {
	if s == nil {
		return nil, false
	}

	res, ok := s.Logins[name]

	return res, ok
}

// Logout returns the resolution of the logout block paired with a form_login block.
func (s *Snapshot) Logout(name string) (*logout.Resolution, bool) {
	if s == nil {
		return nil, false
	}

	res, ok := s.Logouts[name]

	return res, ok
}

// Names returns the sorted form_login block names.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}

	names := make([]string, 0, len(s.Logins))
	for name := range s.Logins {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// PublicPaths returns the paths of a block that must not require authentication.
func (s *Snapshot) PublicPaths(name string) ([]string, bool) {
	login, ok := s.Login(name)
	if !ok {
		return nil, false
	}

	paths := login.PublicPaths()

	if out, found := s.Logout(name); found {
		for _, path := range out.PublicPaths() {
			if !slices.Contains(paths, path) {
				paths = append(paths, path)
			}
		}
	}

	return paths, true
}

// Build resolves every block of file. It fails on the first invalid block and never returns a partial snapshot.
// A logout block must share its name with a form_login block.
func Build(file *config.File) (*Snapshot, error) {
	return buildContext(context.Background(), file)
}

func buildContext(ctx context.Context, file *config.File) (*Snapshot, error) {
	if file == nil {
		return nil, errors.ErrNoFormLoginBlock
	}

	defaults := file.Defaults.ToDefaults()
	snapshot := &Snapshot{
		BuildID:  ksuid.New().String(),
		Source:   file.Path(),
		LoadedAt: time.Now(),
		Logins:   make(map[string]*formlogin.Resolution, len(file.FormLogin)),
		Logouts:  make(map[string]*logout.Resolution, len(file.Logout)),
	}

	for _, name := range file.BlockNames() {
		_, sp := tracer.Start(ctx, "formlogin.resolve", attribute.String(definitions.LogKeyBlock, name))

		res, err := formlogin.Resolve(file.FormLogin[name], defaults)
		countResolution("form_login", err)

		trace.RecordError(sp, err)
		sp.End()

		if err != nil {
			return nil, fmt.Errorf("form_login %q: %w", name, err)
		}

		snapshot.Logins[name] = res
	}

	logoutNames := make([]string, 0, len(file.Logout))
	for name := range file.Logout {
		logoutNames = append(logoutNames, name)
	}

	sort.Strings(logoutNames)

	for _, name := range logoutNames {
		_, sp := tracer.Start(ctx, "logout.resolve", attribute.String(definitions.LogKeyBlock, name))

		res, err := resolveLogout(file.Logout[name], snapshot.Logins[name])
		countResolution("logout", err)

		trace.RecordError(sp, err)
		sp.End()

		if err != nil {
			return nil, fmt.Errorf("logout %q: %w", name, err)
		}

		snapshot.Logouts[name] = res
	}

	return snapshot, nil
}

func resolveLogout(settings logout.Settings, login *formlogin.Resolution) (*logout.Resolution, error) {
	if login == nil {
		return nil, errors.ErrOrphanLogoutBlock
	}

	return logout.Resolve(settings, login)
}

func countResolution(kind string, err error) {
	result := resultSuccess

	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrInvalidRedirectTarget):
		result = resultInvalidRedirect
	default:
		result = resultError
	}

	resolutionsTotal.WithLabelValues(kind, result).Inc()
}

// Loader returns a freshly loaded configuration.
type Loader func() (*config.File, error)

// Registry holds the active snapshot. Reads are lock free. Concurrent reloads share one load.
type Registry struct {
	load   Loader
	logger *slog.Logger

	reloads  singleflight.Group
	snapshot atomic.Pointer[Snapshot]
}

// New returns an empty Registry. Call Reload to load the first snapshot.
func New(load Loader, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{load: load, logger: logger}
}

// Current returns the active snapshot.
func (r *Registry) Current() (*Snapshot, error) {
	snapshot := r.snapshot.Load()
	if snapshot == nil {
		return nil, errors.ErrRegistryNotLoaded
	}

	return snapshot, nil
}

// Reload loads and resolves the configuration. On error the previous snapshot stays active.
func (r *Registry) Reload() (*Snapshot, error) {
	value, err, _ := r.reloads.Do("reload", func() (any, error) {
		return r.reload()
	})
	if err != nil {
		return nil, err
	}

	return value.(*Snapshot), nil
}

func (r *Registry) reload() (*Snapshot, error) {
	ctx, sp := tracer.Start(context.Background(), "registry.reload")
	defer sp.End()

	snapshot, err := r.build(ctx)
	if err != nil {
		trace.RecordError(sp, err)

		reloadsTotal.WithLabelValues(resultError).Inc()

		keyvals := []any{definitions.LogKeyMsg, "Configuration rejected", definitions.LogKeyError, err}

		var target *errors.InvalidRedirectTargetError
		if stderrors.As(err, &target) {
			keyvals = append(keyvals, definitions.LogKeyField, target.Field, definitions.LogKeySource, target.Source)
		}

		level.Error(r.logger).Log(keyvals...)

		return nil, err
	}

	if previous := r.snapshot.Load(); previous != nil {
		snapshot.Version = previous.Version + 1
	} else {
		snapshot.Version = 1
	}

	r.snapshot.Store(snapshot)

	reloadsTotal.WithLabelValues(resultSuccess).Inc()
	snapshotVersion.Set(float64(snapshot.Version))
	blocksGauge.Set(float64(len(snapshot.Logins)))

	sp.SetAttributes(
		attribute.Int64(definitions.LogKeyVersion, int64(snapshot.Version)),
		attribute.Int("blocks", len(snapshot.Logins)),
	)

	r.logSnapshot(snapshot)

	return snapshot, nil
}

func (r *Registry) build(ctx context.Context) (*Snapshot, error) {
	if r.load == nil {
		return nil, errors.ErrNoConfigFile
	}

	file, err := r.load()
	if err != nil {
		return nil, err
	}

	level.Debug(r.logger).Log(definitions.LogKeyMsg, "Configuration loaded", "config", file.String())

	return buildContext(ctx, file)
}

func (r *Registry) logSnapshot(snapshot *Snapshot) {
	level.Info(r.logger).Log(
		definitions.LogKeyMsg, "Configuration resolved",
		definitions.LogKeyVersion, snapshot.Version,
		definitions.LogKeyGUID, snapshot.BuildID,
		definitions.LogKeySource, snapshot.Source,
		"blocks", len(snapshot.Logins),
	)

	for _, name := range snapshot.Names() {
		res := snapshot.Logins[name]

		if !res.Filter.Matcher.Valid() {
			level.Warn(r.logger).Log(
				definitions.LogKeyMsg, "Login processing URL is not a valid request pattern and matches nothing",
				definitions.LogKeyBlock, name,
				definitions.LogKeyPath, res.LoginProcessingURL(),
			)
		}

		level.Debug(r.logger).Log(
			definitions.LogKeyMsg, "Form login resolved",
			definitions.LogKeyBlock, name,
			"login_page", res.LoginPage(),
			"login_processing_url", res.LoginProcessingURL(),
			"success_handler", res.Filter.SuccessHandler.Kind(),
			"failure_handler", res.Filter.FailureHandler.Kind(),
		)
	}
}
