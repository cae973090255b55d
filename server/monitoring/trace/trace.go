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

// Package trace is a narrow facade over the OpenTelemetry tracer API.
package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for one instrumentation scope.
//
//	tr := trace.New("formlogin/registry")
//	ctx, sp := tr.Start(ctx, "registry.reload")
//	defer sp.End()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

type tracer struct {
	scope string
}

// New returns a Tracer for scope. The global tracer provider is looked up on every Start, so a provider installed
// after New is still used.
func New(scope string) Tracer {
	return &tracer{scope: scope}
}

func (tr *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, sp := otel.GetTracerProvider().Tracer(tr.scope).Start(ctx, name)
	if len(attrs) > 0 {
		sp.SetAttributes(attrs...)
	}

	return ctx, sp
}

// RecordError marks the span as failed. A nil err is ignored.
func RecordError(sp trace.Span, err error) {
	if err == nil {
		return
	}

	sp.RecordError(err)
	sp.SetStatus(codes.Error, err.Error())
}
