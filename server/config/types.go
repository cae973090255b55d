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
	"sort"
	"time"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/formlogin"
	"github.com/fromi/formlogin/server/logout"
)

// File is the decoded configuration file.
type File struct {
	Server    ServerSection                      `mapstructure:"server"`
	Defaults  DefaultsSection                    `mapstructure:"defaults"`
	FormLogin map[string]formlogin.LoginSettings `mapstructure:"form_login" validate:"required,min=1"`
	Logout    map[string]logout.Settings         `mapstructure:"logout"`

	path string
}

func (f *File) String() string {
	if f == nil {
		return "File: <nil>"
	}

	return fmt.Sprintf("File: {Path:%s Server:%s Defaults:%s FormLogin:%v}", f.path, f.Server.String(), f.Defaults.String(), f.BlockNames())
}

// Path returns the file the configuration was loaded from.
func (f *File) Path() string {
	if f == nil {
		return ""
	}

	return f.path
}

// BlockNames returns the sorted names of all form_login blocks.
func (f *File) BlockNames() []string {
	if f == nil {
		return nil
	}

	names := make([]string, 0, len(f.FormLogin))
	for name := range f.FormLogin {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// GetLogout returns the logout block paired with a form_login block.
func (f *File) GetLogout(name string) (logout.Settings, bool) {
	if f == nil || f.Logout == nil {
		return logout.Settings{}, false
	}

	settings, ok := f.Logout[name]

	return settings, ok
}

// ServerSection configures the HTTP listener and logging.
type ServerSection struct {
	Address      string     `mapstructure:"address" validate:"required,hostname_port"`
	InstanceName string     `mapstructure:"instance_name" validate:"required,printascii"`
	Log          LogSection `mapstructure:"log"`

	// HAproxyV2 requires the PROXY protocol header on every accepted connection.
	HAproxyV2     bool               `mapstructure:"haproxy_v2"`
	Compression   CompressionSection `mapstructure:"compression"`
	Insights      InsightsSection    `mapstructure:"insights"`
	MatchCacheTTL time.Duration      `mapstructure:"match_cache_ttl" validate:"gte=0"`
}

func (s *ServerSection) String() string {
	if s == nil {
		return "ServerSection: <nil>"
	}

	return fmt.Sprintf("ServerSection: {Address:%s InstanceName:%s Log:%+v HAproxyV2:%t Compression:%+v Insights:%+v MatchCacheTTL:%s}",
		s.Address, s.InstanceName, s.Log, s.HAproxyV2, s.Compression, s.Insights, s.MatchCacheTTL)
}

// CompressionSection configures response compression. Algorithms are offered in preference order.
type CompressionSection struct {
	Enabled    bool     `mapstructure:"enabled"`
	Algorithms []string `mapstructure:"algorithms" validate:"dive,oneof=gzip zstd zst br brotli"`
	Level      int      `mapstructure:"level" validate:"gte=-1,lte=9"`
}

// InsightsSection enables debugging endpoints and tracing.
type InsightsSection struct {
	EnablePprof bool           `mapstructure:"enable_pprof"`
	Tracing     TracingSection `mapstructure:"tracing"`
}

// TracingSection configures OpenTelemetry tracing. Only the OTLP/HTTP exporter is supported; "none" records spans
// without exporting them.
type TracingSection struct {
	Enabled          bool     `mapstructure:"enabled"`
	Exporter         string   `mapstructure:"exporter" validate:"omitempty,oneof=otlphttp none"`
	Endpoint         string   `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	TLS              bool     `mapstructure:"tls"`
	ServiceName      string   `mapstructure:"service_name" validate:"omitempty,printascii"`
	SamplerRatio     float64  `mapstructure:"sampler_ratio" validate:"gte=0,lte=1"`
	Propagators      []string `mapstructure:"propagators" validate:"dive,oneof=tracecontext baggage b3 b3multi jaeger"`
	LogExportResults bool     `mapstructure:"log_export_results"`
}

// IsEnabled reports whether tracing is configured.
func (t *TracingSection) IsEnabled() bool {
	return t != nil && t.Enabled
}

// LogSection configures the process logger.
type LogSection struct {
	Level string `mapstructure:"level" validate:"oneof=none error warn info debug"`
	JSON  bool   `mapstructure:"json"`
	Color bool   `mapstructure:"color"`
}

// GetLevel maps the configured level name to a definitions.LogLevel* value.
func (l *LogSection) GetLevel() int {
	if l == nil {
		return definitions.LogLevelInfo
	}

	switch l.Level {
	case "none":
		return definitions.LogLevelNone
	case "error":
		return definitions.LogLevelError
	case "warn":
		return definitions.LogLevelWarn
	case "debug":
		return definitions.LogLevelDebug
	default:
		return definitions.LogLevelInfo
	}
}

// DefaultsSection holds the values every form_login block inherits.
type DefaultsSection struct {
	LoginProcessingURL   string `mapstructure:"login_processing_url" validate:"required,local_path"`
	FilterKind           string `mapstructure:"filter_kind" validate:"required"`
	RequestCacheRef      string `mapstructure:"request_cache_ref" validate:"required"`
	SessionStrategyRef   string `mapstructure:"session_strategy_ref"`
	AllowSessionCreation bool   `mapstructure:"allow_session_creation"`
	PortMapperRef        string `mapstructure:"port_mapper_ref" validate:"required"`
	PortResolverRef      string `mapstructure:"port_resolver_ref" validate:"required"`
}

func (d *DefaultsSection) String() string {
	if d == nil {
		return "DefaultsSection: <nil>"
	}

	return fmt.Sprintf("DefaultsSection: {LoginProcessingURL:%s FilterKind:%s RequestCacheRef:%s SessionStrategyRef:%s AllowSessionCreation:%t PortMapperRef:%s PortResolverRef:%s}",
		d.LoginProcessingURL, d.FilterKind, d.RequestCacheRef, d.SessionStrategyRef, d.AllowSessionCreation, d.PortMapperRef, d.PortResolverRef)
}

// ToDefaults converts the section into the resolver defaults.
func (d *DefaultsSection) ToDefaults() formlogin.Defaults {
	if d == nil {
		return formlogin.DefaultDefaults()
	}

	return formlogin.Defaults{
		DefaultLoginProcessingURL: d.LoginProcessingURL,
		FilterKind:                d.FilterKind,
		RequestCache:              formlogin.Ref(d.RequestCacheRef),
		SessionStrategy:           formlogin.RefPtr(d.SessionStrategyRef),
		AllowSessionCreation:      d.AllowSessionCreation,
		PortMapper:                formlogin.Ref(d.PortMapperRef),
		PortResolver:              formlogin.Ref(d.PortResolverRef),
	}
}
