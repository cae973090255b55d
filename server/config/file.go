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
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/errors"
	"github.com/fromi/formlogin/server/formlogin"
	"github.com/fromi/formlogin/server/logout"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load reads the configuration file at path, merges includes, applies FORMLOGIN_* environment overrides and
// defaults, and validates the result.
func Load(path string, configType string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.ErrNoConfigFile
	}

	settings, err := NewConfigLoader(configType).LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	return decode(path, settings)
}

func decode(path string, settings map[string]any) (*File, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(definitions.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.MergeConfigMap(settings); err != nil {
		return nil, fmt.Errorf("merge config %q: %w", path, err)
	}

	file := &File{}

	err := v.Unmarshal(file, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		boolToStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config %q: %w", path, err)
	}

	file.path = path

	restoreEmptyBlocks(settings, file)

	for name, block := range file.FormLogin {
		block.Source = fmt.Sprintf("%s#form_login.%s", path, name)
		file.FormLogin[name] = block
	}

	for name, block := range file.Logout {
		block.Source = fmt.Sprintf("%s#logout.%s", path, name)
		file.Logout[name] = block
	}

	if err = file.validate(); err != nil {
		return nil, err
	}

	return file, nil
}

// restoreEmptyBlocks adds the blocks viper drops because they hold no attribute.
func restoreEmptyBlocks(settings map[string]any, file *File) {
	if blocks, ok := settings["form_login"].(map[string]any); ok {
		for name := range blocks {
			name = strings.ToLower(name)

			if file.FormLogin == nil {
				file.FormLogin = map[string]formlogin.LoginSettings{}
			}

			if _, found := file.FormLogin[name]; !found {
				file.FormLogin[name] = formlogin.LoginSettings{}
			}
		}
	}

	if blocks, ok := settings["logout"].(map[string]any); ok {
		for name := range blocks {
			name = strings.ToLower(name)

			if file.Logout == nil {
				file.Logout = map[string]logout.Settings{}
			}

			if _, found := file.Logout[name]; !found {
				file.Logout[name] = logout.Settings{}
			}
		}
	}
}

func setDefaults(v *viper.Viper) {
	defaults := formlogin.DefaultDefaults()

	v.SetDefault("server.address", definitions.DefaultAddress)
	v.SetDefault("server.instance_name", definitions.DefaultInstance)
	v.SetDefault("server.log.level", "info")
	v.SetDefault("server.log.json", false)
	v.SetDefault("server.log.color", false)
	v.SetDefault("server.haproxy_v2", false)
	v.SetDefault("server.compression.enabled", false)
	v.SetDefault("server.compression.level", -1)
	v.SetDefault("server.compression.algorithms", []string{"gzip"})
	v.SetDefault("server.insights.enable_pprof", false)
	v.SetDefault("server.insights.tracing.enabled", false)
	v.SetDefault("server.insights.tracing.exporter", "otlphttp")
	v.SetDefault("server.insights.tracing.sampler_ratio", 1.0)
	v.SetDefault("server.match_cache_ttl", "5m")

	v.SetDefault("defaults.login_processing_url", defaults.DefaultLoginProcessingURL)
	v.SetDefault("defaults.filter_kind", defaults.FilterKind)
	v.SetDefault("defaults.request_cache_ref", defaults.RequestCache.Name)
	v.SetDefault("defaults.allow_session_creation", defaults.AllowSessionCreation)
	v.SetDefault("defaults.port_mapper_ref", defaults.PortMapper.Name)
	v.SetDefault("defaults.port_resolver_ref", defaults.PortResolver.Name)
}

// boolToStringHook keeps YAML booleans such as "always-use-default-target: true" as "true" instead of the "1"
// produced by weak decoding.
func boolToStringHook() mapstructure.DecodeHookFuncKind {
	return func(from reflect.Kind, to reflect.Kind, data any) (any, error) {
		if from != reflect.Bool || to != reflect.String {
			return data, nil
		}

		return strconv.FormatBool(data.(bool)), nil
	}
}

// NewValidator returns a validator with the custom tags used by the configuration.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("local_path", isLocalPath)

	return validate
}

func isLocalPath(fl validator.FieldLevel) bool {
	return formlogin.IsLocalRedirect(fl.Field().String())
}

func (f *File) validate() error {
	if len(f.FormLogin) == 0 {
		return fmt.Errorf("%w in %q", errors.ErrNoFormLoginBlock, f.path)
	}

	if err := NewValidator().Struct(f); err != nil {
		return fmt.Errorf("invalid config %q: %w", f.path, err)
	}

	return nil
}
