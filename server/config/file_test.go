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

package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/errors"
	"github.com/fromi/formlogin/server/formlogin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string, name string, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "formlogin.yml", `
server:
  address: "0.0.0.0:9180"
  instance_name: "test"
  log:
    level: debug
    json: true
defaults:
  login_processing_url: /j_security_check
  session_strategy_ref: sessionFixation
form_login:
  main:
    login-page: /customLogin
    default-target-url: /home
    always-use-default-target: true
    username-parameter: email
  api:
    authentication-success-handler-ref: apiSuccessHandler
logout:
  main:
    delete-cookies: JSESSIONID
`)

	file, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, path, file.Path())
	assert.Equal(t, "0.0.0.0:9180", file.Server.Address)
	assert.Equal(t, "test", file.Server.InstanceName)
	assert.Equal(t, definitions.LogLevelDebug, file.Server.Log.GetLevel())
	assert.True(t, file.Server.Log.JSON)
	assert.Equal(t, []string{"api", "main"}, file.BlockNames())

	main := file.FormLogin["main"]
	assert.Equal(t, "/customLogin", main.LoginPage)
	assert.Equal(t, "/home", main.DefaultTargetURL)
	assert.Equal(t, "true", main.AlwaysUseDefaultTarget)
	assert.Equal(t, "email", main.UsernameParameter)
	assert.Equal(t, path+"#form_login.main", main.Source)

	assert.Equal(t, "apiSuccessHandler", file.FormLogin["api"].SuccessHandlerRef)

	logoutMain, ok := file.GetLogout("main")
	require.True(t, ok)
	assert.Equal(t, "JSESSIONID", logoutMain.DeleteCookies)
	assert.Equal(t, path+"#logout.main", logoutMain.Source)

	_, ok = file.GetLogout("api")
	assert.False(t, ok)

	defaults := file.Defaults.ToDefaults()
	assert.Equal(t, "/j_security_check", defaults.DefaultLoginProcessingURL)
	assert.Equal(t, definitions.DefaultFilterKind, defaults.FilterKind)
	assert.Equal(t, formlogin.Ref(definitions.RefRequestCache), defaults.RequestCache)
	assert.Equal(t, formlogin.RefPtr("sessionFixation"), defaults.SessionStrategy)
	assert.True(t, defaults.AllowSessionCreation)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "formlogin.yml", `
form_login:
  main:
    login-page: /signin
`)

	file, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, definitions.DefaultAddress, file.Server.Address)
	assert.Equal(t, definitions.DefaultInstance, file.Server.InstanceName)
	assert.Equal(t, definitions.LogLevelInfo, file.Server.Log.GetLevel())
	assert.Equal(t, formlogin.DefaultDefaults(), file.Defaults.ToDefaults())
	assert.False(t, file.Server.HAproxyV2)
	assert.False(t, file.Server.Compression.Enabled)
	assert.Equal(t, -1, file.Server.Compression.Level)
	assert.Equal(t, 5*time.Minute, file.Server.MatchCacheTTL)
	assert.Equal(t, []string{"gzip"}, file.Server.Compression.Algorithms)
	assert.False(t, file.Server.Insights.Tracing.IsEnabled())
	assert.Equal(t, "otlphttp", file.Server.Insights.Tracing.Exporter)
	assert.InDelta(t, 1.0, file.Server.Insights.Tracing.SamplerRatio, 0)
}

func TestLoad_Tracing(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "formlogin.yml", `
server:
  insights:
    tracing:
      enabled: true
      endpoint: "otel-collector:4318"
      service_name: formlogin-edge
      sampler_ratio: 0.25
      propagators: [tracecontext, b3]
form_login:
  main: {}
`)

	file, err := Load(path, "")
	require.NoError(t, err)

	tracing := file.Server.Insights.Tracing
	assert.True(t, tracing.IsEnabled())
	assert.Equal(t, "otlphttp", tracing.Exporter)
	assert.Equal(t, "otel-collector:4318", tracing.Endpoint)
	assert.Equal(t, "formlogin-edge", tracing.ServiceName)
	assert.InDelta(t, 0.25, tracing.SamplerRatio, 1e-9)
	assert.Equal(t, []string{"tracecontext", "b3"}, tracing.Propagators)
}

func TestLoad_InvalidInsightsAndCompression(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		message string
	}{
		{
			name:    "UnknownAlgorithm",
			server:  "  compression:\n    algorithms: [gzip, lz4]\n",
			message: "Algorithms",
		},
		{
			name:    "UnknownExporter",
			server:  "  insights:\n    tracing:\n      exporter: stdout\n",
			message: "Exporter",
		},
		{
			name:    "SamplerRatioAboveOne",
			server:  "  insights:\n    tracing:\n      sampler_ratio: 1.5\n",
			message: "SamplerRatio",
		},
		{
			name:    "UnknownPropagator",
			server:  "  insights:\n    tracing:\n      propagators: [xray]\n",
			message: "Propagators",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "formlogin.yml", "server:\n"+tt.server+"form_login:\n  main: {}\n")

			_, err := Load(path, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoad_ServerOptions(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "formlogin.yml", `
server:
  haproxy_v2: true
  match_cache_ttl: 30s
  compression:
    enabled: true
    level: 6
    algorithms: [zstd, gzip]
  insights:
    enable_pprof: true
form_login:
  main: {}
`)

	file, err := Load(path, "")
	require.NoError(t, err)

	assert.True(t, file.Server.HAproxyV2)
	assert.Equal(t, 30*time.Second, file.Server.MatchCacheTTL)
	assert.Equal(t, CompressionSection{Enabled: true, Level: 6, Algorithms: []string{"zstd", "gzip"}}, file.Server.Compression)
	assert.True(t, file.Server.Insights.EnablePprof)

	path = writeConfig(t, dir, "invalid.yml", `
server:
  compression:
    level: 12
form_login:
  main: {}
`)

	_, err = Load(path, "")
	assert.Error(t, err)
}

func TestLoad_AlwaysUseDefaultTargetFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "formlogin.yml", `
form_login:
  main:
    always-use-default-target: false
`)

	file, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "false", file.FormLogin["main"].AlwaysUseDefaultTarget)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FORMLOGIN_SERVER_ADDRESS", "127.0.0.1:8080")

	dir := t.TempDir()
	path := writeConfig(t, dir, "formlogin.yml", `
form_login:
  main: {}
`)

	file, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", file.Server.Address)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("NoPath", func(t *testing.T) {
		_, err := Load("", "")
		assert.True(t, stderrors.Is(err, errors.ErrNoConfigFile))
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"), "")
		assert.Error(t, err)
	})

	t.Run("NoFormLoginBlock", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "formlogin.yml", `
server:
  address: "127.0.0.1:9180"
`)

		_, err := Load(path, "")
		assert.True(t, stderrors.Is(err, errors.ErrNoFormLoginBlock))
	})

	t.Run("ExternalDefaultProcessingURL", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "formlogin.yml", `
defaults:
  login_processing_url: https://evil.example/login
form_login:
  main: {}
`)

		_, err := Load(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local_path")
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "formlogin.yml", `
server:
  log:
    level: verbose
form_login:
  main: {}
`)

		_, err := Load(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oneof")
	})
}

func TestLoad_EmptyBlocks(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "formlogin.yml", `
form_login:
  main: {}
  admin:
logout:
  main:
`)

	file, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"admin", "main"}, file.BlockNames())
	assert.Equal(t, path+"#form_login.admin", file.FormLogin["admin"].Source)

	_, ok := file.GetLogout("main")
	assert.True(t, ok)
}

func TestLoad_Formats(t *testing.T) {
	t.Run("TOML", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "formlogin.toml", `
[server]
instance_name = "toml"

[form_login.main]
login-page = "/signin"
always-use-default-target = true
`)

		file, err := Load(path, "")
		require.NoError(t, err)

		assert.Equal(t, "toml", file.Server.InstanceName)
		assert.Equal(t, "/signin", file.FormLogin["main"].LoginPage)
		assert.Equal(t, "true", file.FormLogin["main"].AlwaysUseDefaultTarget)
	})

	t.Run("JSON", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "formlogin.conf", `{"form_login": {"main": {"login-page": "/signin"}}}`)

		file, err := Load(path, "json")
		require.NoError(t, err)

		assert.Equal(t, "/signin", file.FormLogin["main"].LoginPage)
	})

	t.Run("Unsupported", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "formlogin.ini", "x=1")

		_, err := Load(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config type")
	})
}
