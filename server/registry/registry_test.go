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

package registry

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fromi/formlogin/server/config"
	"github.com/fromi/formlogin/server/errors"
	"github.com/fromi/formlogin/server/formlogin"
	"github.com/fromi/formlogin/server/logout"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const validConfig = `
form_login:
  main:
    login-page: /signin
    authentication-failure-url: /signin?failed
  api:
    login-processing-url: /api/login
    authentication-success-handler-ref: apiSuccessHandler
logout:
  main:
    logout-url: /signout
`

func fileLoader(t *testing.T, content string) (Loader, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "formlogin.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return func() (*config.File, error) {
		return config.Load(path, "")
	}, path
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}

	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestRegistry_Reload(t *testing.T) {
	load, path := fileLoader(t, validConfig)
	logger, buf := newTestLogger()

	r := New(load, logger)

	_, err := r.Current()
	assert.True(t, stderrors.Is(err, errors.ErrRegistryNotLoaded))

	snapshot, err := r.Reload()
	require.NoError(t, err)

	assert.Equal(t, uint64(1), snapshot.Version)
	assert.Equal(t, path, snapshot.Source)
	assert.Equal(t, []string{"api", "main"}, snapshot.Names())

	_, err = ksuid.Parse(snapshot.BuildID)
	assert.NoError(t, err)

	main, ok := snapshot.Login("main")
	require.True(t, ok)
	assert.Equal(t, "/signin", main.LoginPage())

	api, ok := snapshot.Login("api")
	require.True(t, ok)
	assert.Equal(t, "/api/login", api.LoginProcessingURL())
	assert.Equal(t, formlogin.Ref("apiSuccessHandler"), api.Filter.SuccessHandler)

	out, ok := snapshot.Logout("main")
	require.True(t, ok)
	assert.Equal(t, logout.RedirectSuccessHandler{TargetURL: "/signin?logout"}, out.SuccessHandler)

	_, ok = snapshot.Logout("api")
	assert.False(t, ok)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, snapshot, current)

	assert.Contains(t, buf.String(), "Configuration resolved")

	next, err := r.Reload()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next.Version)
	assert.NotEqual(t, snapshot.BuildID, next.BuildID)
}

func TestRegistry_ReloadKeepsPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formlogin.yml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	logger, buf := newTestLogger()
	r := New(func() (*config.File, error) { return config.Load(path, "") }, logger)

	first, err := r.Reload()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
form_login:
  main:
    login-page: http://evil.example/x
`), 0o600))

	_, err = r.Reload()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRedirectTarget))
	assert.Contains(t, err.Error(), `form_login "main"`)
	assert.Contains(t, buf.String(), "Configuration rejected")

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestRegistry_NoLoader(t *testing.T) {
	_, err := New(nil, nil).Reload()
	assert.True(t, stderrors.Is(err, errors.ErrNoConfigFile))
}

func TestSnapshot_PublicPaths(t *testing.T) {
	load, _ := fileLoader(t, validConfig)

	file, err := load()
	require.NoError(t, err)

	snapshot, err := Build(file)
	require.NoError(t, err)

	paths, ok := snapshot.PublicPaths("main")
	require.True(t, ok)
	assert.Equal(t, []string{"/signin", "/login"}, paths)

	paths, ok = snapshot.PublicPaths("api")
	require.True(t, ok)
	assert.Equal(t, []string{"/login", "/api/login"}, paths)

	_, ok = snapshot.PublicPaths("unknown")
	assert.False(t, ok)
}

func TestBuild_Nil(t *testing.T) {
	_, err := Build(nil)
	assert.True(t, stderrors.Is(err, errors.ErrNoFormLoginBlock))
}

func TestRegistry_ConcurrentReload(t *testing.T) {
	load, _ := fileLoader(t, validConfig)
	logger, _ := newTestLogger()

	r := New(load, logger)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := r.Reload()
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	current, err := r.Current()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, current.Version, uint64(1))
	assert.LessOrEqual(t, current.Version, uint64(8))
}

func TestRegistry_Metrics(t *testing.T) {
	load, _ := fileLoader(t, validConfig)
	logger, _ := newTestLogger()

	before := testutil.ToFloat64(reloadsTotal.WithLabelValues(resultSuccess))

	_, err := New(load, logger).Reload()
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(reloadsTotal.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(blocksGauge))
	assert.Equal(t, float64(1), testutil.ToFloat64(snapshotVersion))
}

func TestBuild_OrphanLogoutBlock(t *testing.T) {
	load, _ := fileLoader(t, `
form_login:
  main: {}
logout:
  mian:
    logout-url: /signout
`)

	file, err := load()
	require.NoError(t, err)

	_, err = Build(file)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrOrphanLogoutBlock))
	assert.Contains(t, err.Error(), `logout "mian"`)
}

func installSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()

	otel.SetTracerProvider(provider)

	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	return recorder
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, 0, len(spans))
	for _, sp := range spans {
		names = append(names, sp.Name())
	}

	return names
}

func TestRegistry_ReloadSpans(t *testing.T) {
	recorder := installSpanRecorder(t)

	load, _ := fileLoader(t, validConfig)
	logger, _ := newTestLogger()

	_, err := New(load, logger).Reload()
	require.NoError(t, err)

	spans := recorder.Ended()
	assert.Equal(t, []string{"formlogin.resolve", "formlogin.resolve", "logout.resolve", "registry.reload"}, spanNames(spans))

	reload := spans[len(spans)-1]
	for _, child := range spans[:len(spans)-1] {
		assert.Equal(t, reload.SpanContext().TraceID(), child.SpanContext().TraceID())
		assert.Equal(t, reload.SpanContext().SpanID(), child.Parent().SpanID())
	}

	assert.Equal(t, codes.Unset, reload.Status().Code)
}

func TestRegistry_ReloadSpansOnError(t *testing.T) {
	recorder := installSpanRecorder(t)

	load, _ := fileLoader(t, `
form_login:
  main:
    login-page: http://evil.example/x
`)
	logger, _ := newTestLogger()

	_, err := New(load, logger).Reload()
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "formlogin.resolve", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "registry.reload", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
