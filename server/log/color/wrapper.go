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

// Package color provides a slog.Handler that keeps the slog.TextHandler layout and colors whole lines by level.
package color

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ThemeColorMap returns a level to color mapping. Accepted themes are "dark" and "light" (default).
func ThemeColorMap(theme string) map[slog.Level]*color.Color {
	var attrs map[slog.Level]color.Attribute

	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "dark":
		attrs = map[slog.Level]color.Attribute{
			slog.LevelDebug: color.FgHiCyan,
			slog.LevelInfo:  color.FgHiGreen,
			slog.LevelWarn:  color.FgHiYellow,
			slog.LevelError: color.FgHiRed,
		}
	default:
		attrs = map[slog.Level]color.Attribute{
			slog.LevelDebug: color.FgCyan,
			slog.LevelInfo:  color.FgGreen,
			slog.LevelWarn:  color.FgYellow,
			slog.LevelError: color.FgRed,
		}
	}

	colors := make(map[slog.Level]*color.Color, len(attrs))

	for lvl, attr := range attrs {
		c := color.New(attr)
		c.EnableColor()

		colors[lvl] = c
	}

	return colors
}

// LineWrapper renders records with slog.TextHandler and writes every line in the color of its level.
type LineWrapper struct {
	mu     *sync.Mutex
	out    io.Writer
	opts   *slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
	colors map[slog.Level]*color.Color
}

// NewLineWrapper creates a new LineWrapper. A nil colors map selects the light theme.
func NewLineWrapper(out io.Writer, opts *slog.HandlerOptions, colors map[slog.Level]*color.Color) *LineWrapper {
	if colors == nil {
		colors = ThemeColorMap("")
	}

	return &LineWrapper{mu: &sync.Mutex{}, out: out, opts: opts, colors: colors}
}

func (h *LineWrapper) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.opts == nil || h.opts.Level == nil {
		return true
	}

	return lvl >= h.opts.Level.Level()
}

func (h *LineWrapper) Handle(ctx context.Context, r slog.Record) error {
	var (
		buf   bytes.Buffer
		inner slog.Handler
	)

	inner = slog.NewTextHandler(&buf, h.opts)

	for _, g := range h.groups {
		inner = inner.WithGroup(g)
	}

	if len(h.attrs) > 0 {
		inner = inner.WithAttrs(h.attrs)
	}

	if err := inner.Handle(ctx, r); err != nil {
		return err
	}

	line := strings.TrimSuffix(buf.String(), "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.out, h.pickColor(r.Level).Sprint(line)+"\n")

	return err
}

func (h *LineWrapper) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	if len(attrs) > 0 {
		cp.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	}

	return &cp
}

func (h *LineWrapper) WithGroup(name string) slog.Handler {
	cp := *h
	cp.groups = append(append([]string(nil), h.groups...), name)

	return &cp
}

func (h *LineWrapper) pickColor(lvl slog.Level) *color.Color {
	if c, ok := h.colors[lvl]; ok {
		return c
	}

	var c *color.Color

	switch {
	case lvl >= slog.LevelError:
		c = h.colors[slog.LevelError]
	case lvl <= slog.LevelDebug:
		c = h.colors[slog.LevelDebug]
	default:
		c = h.colors[slog.LevelInfo]
	}

	if c == nil {
		c = color.New(color.Reset)
	}

	return c
}

var _ slog.Handler = (*LineWrapper)(nil)
