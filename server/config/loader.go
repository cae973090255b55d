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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const includeKey = "includes"

// ConfigReader loads configuration settings from a path.
type ConfigReader interface {
	Read(path string) (map[string]any, error)
}

// IncludeResolver resolves include files from a root configuration tree.
type IncludeResolver interface {
	Resolve(root map[string]any) ([]IncludeFile, error)
}

// SettingsMerger merges source settings into a target map.
type SettingsMerger interface {
	Merge(target map[string]any, source map[string]any)
}

// ConfigLoader loads a config tree and merges its includes. Included files are merged first, so the including
// file wins on conflicting keys.
type ConfigLoader struct {
	reader          ConfigReader
	includeResolver IncludeResolver
	merger          SettingsMerger
}

// NewConfigLoader returns a ConfigLoader for the given config type. An empty configType selects the format by file
// extension.
func NewConfigLoader(configType string) *ConfigLoader {
	return &ConfigLoader{
		reader:          &FileConfigReader{configType: configType},
		includeResolver: IncludeResolverFromConfig{},
		merger:          MapMerger{},
	}
}

// LoadFromFile reads the config file and merges its includes.
func (l *ConfigLoader) LoadFromFile(path string) (map[string]any, error) {
	return l.loadFromFile(path, map[string]struct{}{})
}

func (l *ConfigLoader) loadFromFile(path string, visited map[string]struct{}) (map[string]any, error) {
	cleanPath := filepath.Clean(path)
	if _, ok := visited[cleanPath]; ok {
		return nil, fmt.Errorf("include cycle detected at %q", cleanPath)
	}

	visited[cleanPath] = struct{}{}
	defer delete(visited, cleanPath)

	settings, err := l.reader.Read(cleanPath)
	if err != nil {
		return nil, err
	}

	includes, err := l.includeResolver.Resolve(settings)
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	baseDir := filepath.Dir(cleanPath)

	for _, include := range includes {
		includePath := include.Path
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}

		includeSettings, err := l.loadFromFile(includePath, visited)
		if err != nil {
			if include.Required || !isConfigNotFound(err) {
				return nil, fmt.Errorf("include %q failed: %w", includePath, err)
			}

			continue
		}

		l.merger.Merge(merged, includeSettings)
	}

	delete(settings, includeKey)
	l.merger.Merge(merged, settings)

	return merged, nil
}

func isConfigNotFound(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, fs.ErrNotExist) {
		return true
	}

	var pathErr *os.PathError

	return errors.As(err, &pathErr) && errors.Is(pathErr.Err, fs.ErrNotExist)
}

// IncludeFile describes a resolved include path and whether it is required.
type IncludeFile struct {
	Path     string
	Required bool
}

// IncludeDirective lists the required and optional include files of a config file.
type IncludeDirective struct {
	Required []string `mapstructure:"required"`
	Optional []string `mapstructure:"optional"`
}

// IncludeResolverFromConfig resolves include files from the "includes" key.
type IncludeResolverFromConfig struct{}

// Resolve returns the include file list from the root settings.
func (IncludeResolverFromConfig) Resolve(root map[string]any) ([]IncludeFile, error) {
	raw, ok := root[includeKey]
	if !ok {
		return nil, nil
	}

	var includes IncludeDirective

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           &includes,
	})
	if err != nil {
		return nil, err
	}

	if err = decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode includes: %w", err)
	}

	files := make([]IncludeFile, 0, len(includes.Required)+len(includes.Optional))

	for _, path := range includes.Required {
		if path != "" {
			files = append(files, IncludeFile{Path: path, Required: true})
		}
	}

	for _, path := range includes.Optional {
		if path != "" {
			files = append(files, IncludeFile{Path: path})
		}
	}

	return files, nil
}

// MapMerger merges nested map settings recursively.
type MapMerger struct{}

// Merge merges the source map into the target map recursively.
func (MapMerger) Merge(target map[string]any, source map[string]any) {
	for key, value := range source {
		valueMap, ok := value.(map[string]any)
		if !ok {
			target[key] = value

			continue
		}

		if existing, ok := target[key].(map[string]any); ok {
			MapMerger{}.Merge(existing, valueMap)

			continue
		}

		target[key] = value
	}
}

// FileConfigReader decodes YAML, TOML and JSON files into a settings tree. Unlike viper.AllSettings it keeps
// empty maps, so a form_login block without attributes survives.
type FileConfigReader struct {
	configType string
}

// Read returns the settings from the config file at the given path.
func (r *FileConfigReader) Read(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	format := strings.ToLower(strings.TrimSpace(r.configType))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	settings := map[string]any{}

	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(content, &settings)
	case "toml":
		err = toml.Unmarshal(content, &settings)
	case "json":
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(content, &settings)
	default:
		return nil, fmt.Errorf("unsupported config type %q for %q", format, path)
	}

	if err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	if settings == nil {
		settings = map[string]any{}
	}

	return settings, nil
}
