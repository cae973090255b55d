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

// Package monitoring sets up OpenTelemetry tracing.
package monitoring

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/fromi/formlogin/server/config"
	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/log/level"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const defaultServiceName = "formlogin"

// Telemetry owns the tracer provider installed as the global OpenTelemetry provider.
type Telemetry struct {
	cfg      config.TracingSection
	instance string
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	tp      *sdktrace.TracerProvider
}

// NewTelemetry returns a Telemetry for cfg. Nothing is installed before Start.
func NewTelemetry(cfg config.TracingSection, instance string, logger *slog.Logger) *Telemetry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Telemetry{cfg: cfg, instance: instance, logger: logger}
}

// Start installs the tracer provider and propagators. It is a no-op when tracing is disabled or already started.
// Extra span processors are registered in addition to the configured exporter.
func (t *Telemetry) Start(ctx context.Context, appVersion string, processors ...sdktrace.SpanProcessor) {
	if !t.cfg.IsEnabled() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return
	}

	svcName := strings.TrimSpace(t.cfg.ServiceName)
	if svcName == "" {
		svcName = strings.TrimSpace(t.instance)
	}

	if svcName == "" {
		svcName = defaultServiceName
	}

	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(svcName),
		semconv.ServiceVersionKey.String(appVersion),
		attribute.String(definitions.LogKeyInstance, t.instance),
	))

	ratio := min(max(t.cfg.SamplerRatio, 0), 1)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	}

	if exp := t.newExporter(ctx); exp != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(newLoggingExporter(exp, t.logger, t.cfg.LogExportResults)))
	}

	for _, processor := range processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(processor))
	}

	t.tp = sdktrace.NewTracerProvider(tpOpts...)
	t.started = true

	otel.SetTextMapPropagator(buildPropagators(t.cfg.Propagators))
	otel.SetTracerProvider(t.tp)

	level.Info(t.logger).Log(definitions.LogKeyMsg, "OpenTelemetry tracing enabled", "service", svcName, "exporter", t.cfg.Exporter)
}

func (t *Telemetry) newExporter(ctx context.Context) sdktrace.SpanExporter {
	if !strings.EqualFold(t.cfg.Exporter, "otlphttp") {
		return nil
	}

	var opts []otlptracehttp.Option

	if t.cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(t.cfg.Endpoint))
	}

	if !t.cfg.TLS {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		level.Warn(t.logger).Log(definitions.LogKeyMsg, "Failed to initialize OTLP/HTTP exporter", definitions.LogKeyError, err)

		return nil
	}

	return exp
}

// Started reports whether a tracer provider is installed.
func (t *Telemetry) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started
}

// Shutdown flushes pending spans and stops the tracer provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started || t.tp == nil {
		return nil
	}

	err := t.tp.Shutdown(ctx)

	t.started = false
	t.tp = nil

	return err
}

// loggingExporter logs the outcome of every export. Failures are always logged.
type loggingExporter struct {
	delegate   sdktrace.SpanExporter
	logger     *slog.Logger
	logSuccess bool
}

func newLoggingExporter(delegate sdktrace.SpanExporter, logger *slog.Logger, logSuccess bool) sdktrace.SpanExporter {
	return &loggingExporter{delegate: delegate, logger: logger, logSuccess: logSuccess}
}

func (l *loggingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if err := l.delegate.ExportSpans(ctx, spans); err != nil {
		level.Warn(l.logger).Log(
			definitions.LogKeyMsg, "OpenTelemetry trace export failed",
			definitions.LogKeyError, err,
			"span_count", len(spans),
		)

		return err
	}

	if l.logSuccess {
		level.Info(l.logger).Log(definitions.LogKeyMsg, "OpenTelemetry traces exported", "span_count", len(spans))
	}

	return nil
}

func (l *loggingExporter) Shutdown(ctx context.Context) error {
	return l.delegate.Shutdown(ctx)
}

func buildPropagators(names []string) propagation.TextMapPropagator {
	var list []propagation.TextMapPropagator

	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "tracecontext":
			list = append(list, propagation.TraceContext{})
		case "baggage":
			list = append(list, propagation.Baggage{})
		case "b3":
			list = append(list, b3.New())
		case "b3multi":
			list = append(list, b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader)))
		case "jaeger":
			list = append(list, jaeger.Jaeger{})
		}
	}

	if len(list) == 0 {
		list = append(list, propagation.TraceContext{}, propagation.Baggage{})
	}

	return propagation.NewCompositeTextMapPropagator(list...)
}
