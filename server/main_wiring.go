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

package main

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fromi/formlogin/server/config"
	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/handler/api"
	"github.com/fromi/formlogin/server/handler/health"
	"github.com/fromi/formlogin/server/localcache"
	"github.com/fromi/formlogin/server/log"
	"github.com/fromi/formlogin/server/log/level"
	"github.com/fromi/formlogin/server/monitoring"
	"github.com/fromi/formlogin/server/registry"
	"github.com/fromi/formlogin/server/router"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/pires/go-proxyproto"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const shutdownTimeout = 10 * time.Second

// runCheck resolves every block and writes the snapshot as indented JSON.
func runCheck(path string, format string, out io.Writer) error {
	file, err := config.Load(path, format)
	if err != nil {
		return err
	}

	snapshot, err := registry.Build(file)
	if err != nil {
		return err
	}

	snapshot.Version = 1

	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(snapshot)
}

func serverOptions(flags *cliFlags) fx.Option {
	return fx.Options(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		fx.Supply(flags),
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newRegistry,
			newEngine,
		),
		fx.Invoke(
			registerHTTPServer,
			registerReloadSignal,
		),
	)
}

func newConfig(flags *cliFlags) (*config.File, error) {
	return config.Load(flags.configPath, flags.configFormat)
}

func newLogger(cfg *config.File) *slog.Logger {
	log.SetupLogging(cfg.Server.Log.GetLevel(), cfg.Server.Log.JSON, cfg.Server.Log.Color, cfg.Server.InstanceName)

	return log.Logger
}

// newTelemetry installs the tracer provider before the first configuration is resolved.
func newTelemetry(lc fx.Lifecycle, cfg *config.File, logger *slog.Logger) *monitoring.Telemetry {
	telemetry := monitoring.NewTelemetry(cfg.Server.Insights.Tracing, cfg.Server.InstanceName, logger)
	telemetry.Start(context.Background(), version)

	lc.Append(fx.Hook{
		OnStop: telemetry.Shutdown,
	})

	return telemetry
}

// newRegistry resolves the configuration once at startup. Later reloads read the file again.
func newRegistry(flags *cliFlags, logger *slog.Logger, _ *monitoring.Telemetry) (*registry.Registry, error) {
	reg := registry.New(func() (*config.File, error) {
		return config.Load(flags.configPath, flags.configFormat)
	}, logger)

	if _, err := reg.Reload(); err != nil {
		return nil, err
	}

	return reg, nil
}

func newEngine(cfg *config.File, reg *registry.Registry, logger *slog.Logger) *gin.Engine {
	if cfg.Server.Log.GetLevel() != definitions.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.New(reg, logger, cfg.Server.InstanceName).
		WithMatchCache(localcache.NewMatchCache(cfg.Server.MatchCacheTTL))

	return router.NewRouter(logger).
		WithTracing(cfg.Server.Insights.Tracing, cfg.Server.InstanceName).
		WithResponseCompression(cfg.Server.Compression).
		WithPprof(cfg.Server.Insights).
		WithHealth().
		WithHealthz(health.ReadinessCheck(health.HealthzDeps{Store: reg, Logger: logger})).
		WithMetrics().
		WithAPI(handler).
		Build()
}

func registerHTTPServer(lc fx.Lifecycle, cfg *config.File, engine *gin.Engine, logger *slog.Logger) {
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			listener, err := listen(server.Addr, cfg.Server.HAproxyV2)
			if err != nil {
				return err
			}

			level.Info(logger).Log(definitions.LogKeyMsg, "Starting HTTP server", "address", listener.Addr().String(), definitions.LogKeyVersion, version)

			go func() {
				if err := server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
					level.Error(logger).Log(definitions.LogKeyMsg, "HTTP server stopped", definitions.LogKeyError, err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			return server.Shutdown(stopCtx)
		},
	})
}

// listen opens the TCP listener. With haproxyV2 every connection must start with a PROXY protocol header.
func listen(address string, haproxyV2 bool) (net.Listener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	if !haproxyV2 {
		return listener, nil
	}

	return &proxyproto.Listener{
		Listener: listener,
		ConnPolicy: func(proxyproto.ConnPolicyOptions) (proxyproto.Policy, error) {
			return proxyproto.REQUIRE, nil
		},
	}, nil
}

type reloader interface {
	Reload() (*registry.Snapshot, error)
}

// reloadOnSignal reloads the registry and reports the active version. A rejected configuration keeps the previous
// snapshot.
func reloadOnSignal(reg reloader, logger *slog.Logger) {
	level.Info(logger).Log(definitions.LogKeyMsg, "SIGHUP received, reloading configuration")

	snapshot, err := reg.Reload()
	if err != nil {
		level.Warn(logger).Log(definitions.LogKeyMsg, "Reload failed, keeping previous configuration", definitions.LogKeyError, err)

		return
	}

	level.Info(logger).Log(
		definitions.LogKeyMsg, "Configuration reloaded after SIGHUP",
		definitions.LogKeyVersion, snapshot.Version,
		definitions.LogKeyGUID, snapshot.BuildID,
	)
}

// registerReloadSignal reloads the registry on SIGHUP.
func registerReloadSignal(lc fx.Lifecycle, reg *registry.Registry, logger *slog.Logger) {
	signals := make(chan os.Signal, 1)
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			signal.Notify(signals, syscall.SIGHUP)

			go func() {
				for {
					select {
					case <-signals:
						reloadOnSignal(reg, logger)
					case <-done:
						return
					}
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			signal.Stop(signals)
			close(done)

			return nil
		},
	})
}
