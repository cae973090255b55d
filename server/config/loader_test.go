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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoader_Includes(t *testing.T) {
	dir := t.TempDir()

	writeConfig(t, dir, "admin.yml", `
form_login:
  admin:
    login-page: /admin/login
  main:
    login-page: /included
`)

	path := writeConfig(t, dir, "formlogin.yml", `
includes:
  required:
    - admin.yml
  optional:
    - missing.yml
form_login:
  main:
    login-page: /signin
`)

	settings, err := NewConfigLoader("").LoadFromFile(path)
	require.NoError(t, err)

	assert.NotContains(t, settings, includeKey)

	blocks, ok := settings["form_login"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"login-page": "/admin/login"}, blocks["admin"])
	assert.Equal(t, map[string]any{"login-page": "/signin"}, blocks["main"])
}

func TestConfigLoader_RequiredIncludeMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "formlogin.yml", `
includes:
  required:
    - missing.yml
`)

	_, err := NewConfigLoader("").LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(dir, "missing.yml"))
}

func TestConfigLoader_IncludeCycle(t *testing.T) {
	dir := t.TempDir()

	writeConfig(t, dir, "a.yml", `
includes:
  required:
    - b.yml
`)
	writeConfig(t, dir, "b.yml", `
includes:
  required:
    - a.yml
`)

	_, err := NewConfigLoader("").LoadFromFile(filepath.Join(dir, "a.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestMapMerger_Merge(t *testing.T) {
	target := map[string]any{
		"server": map[string]any{"address": "127.0.0.1:9180", "instance_name": "a"},
		"keep":   1,
	}

	MapMerger{}.Merge(target, map[string]any{
		"server": map[string]any{"address": "0.0.0.0:9180"},
		"new":    "value",
	})

	assert.Equal(t, map[string]any{
		"server": map[string]any{"address": "0.0.0.0:9180", "instance_name": "a"},
		"keep":   1,
		"new":    "value",
	}, target)
}
