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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fromi/formlogin/server/config"
	"github.com/fromi/formlogin/server/errors"
	"github.com/fromi/formlogin/server/registry"

	jsoniter "github.com/json-iterator/go"
	"github.com/pires/go-proxyproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func writeTestConfig(t *testing.T, address string, loginPage string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "formlogin.yml")
	content := fmt.Sprintf(`
server:
  address: %q
  instance_name: test
  log:
    level: none
form_login:
  main:
    login-page: %s
`, address, loginPage)

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func freeAddress(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	return address
}

func TestParseFlags(t *testing.T) {
	flags, err := parseFlags([]string{"-c", "/tmp/x.toml", "--check", "--config-format", "toml"})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.toml", flags.configPath)
	assert.Equal(t, "toml", flags.configFormat)
	assert.True(t, flags.check)
	assert.False(t, flags.version)

	_, err = parseFlags([]string{"--unknown"})
	assert.Error(t, err)
}

func TestRunCheck(t *testing.T) {
	path := writeTestConfig(t, "127.0.0.1:9180", "/customLogin")

	var out bytes.Buffer

	require.NoError(t, runCheck(path, "", &out))

	var dump map[string]any

	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &dump))
	assert.EqualValues(t, 1, dump["version"])

	logins := dump["form_login"].(map[string]any)
	main := logins["main"].(map[string]any)

	assert.Equal(t, "/customLogin", main["login_page"])
	assert.Equal(t, "/login", main["login_processing_url"])
}

func TestRunCheck_InvalidRedirect(t *testing.T) {
	path := writeTestConfig(t, "127.0.0.1:9180", "https://evil.example.com/")

	var out bytes.Buffer

	err := runCheck(path, "", &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidRedirectTarget)
	assert.Zero(t, out.Len())
}

func TestServerLifecycle(t *testing.T) {
	address := freeAddress(t)
	flags := &cliFlags{configPath: writeTestConfig(t, address, "/customLogin")}

	app := fx.New(serverOptions(flags), fx.NopLogger)
	require.NoError(t, app.Err())

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		t.Fatalf("unexpected fx start error: %v", err)
	}

	resp, err := http.Get("http://" + address + "/api/v1/form-login/main")
	require.NoError(t, err)

	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	if err = app.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected fx stop error: %v", err)
	}

	_, err = http.Get("http://" + address + "/ping")
	assert.Error(t, err)
}

func TestServerLifecycle_InvalidConfig(t *testing.T) {
	flags := &cliFlags{configPath: writeTestConfig(t, freeAddress(t), "//evil.example.com")}

	app := fx.New(serverOptions(flags), fx.NopLogger)

	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "is not a valid local redirect path")
}

func TestListen_ProxyProtocol(t *testing.T) {
	listener, err := listen("127.0.0.1:0", true)
	require.NoError(t, err)

	defer listener.Close()

	_, isProxy := listener.(*proxyproto.Listener)
	assert.True(t, isProxy)

	plain, err := listen("127.0.0.1:0", false)
	require.NoError(t, err)

	defer plain.Close()

	_, isProxy = plain.(*proxyproto.Listener)
	assert.False(t, isProxy)
}

func TestReloadOnSignal(t *testing.T) {
	path := writeTestConfig(t, "127.0.0.1:9180", "/customLogin")
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))

	reg := registry.New(func() (*config.File, error) { return config.Load(path, "") }, logger)

	reloadOnSignal(reg, logger)

	assert.Contains(t, buf.String(), `msg="Configuration reloaded after SIGHUP" version=1`)

	require.NoError(t, os.WriteFile(path, []byte("form_login:\n  main:\n    login-page: //evil.example\n"), 0o600))

	buf.Reset()
	reloadOnSignal(reg, logger)

	assert.Contains(t, buf.String(), "Reload failed, keeping previous configuration")

	current, err := reg.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), current.Version)
}
