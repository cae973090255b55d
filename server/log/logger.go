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

package log

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/log/color"

	"github.com/mattn/go-isatty"
)

// levelNone is above every level used by the application and silences the logger.
const levelNone = slog.LevelError + 4

var (
	mu sync.Mutex

	// Logger is used for all messages that are printed to stdout
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// SetupLogging initializes the global "Logger" object. Colors are only used when stdout is a terminal.
func SetupLogging(configLogLevel int, formatJSON bool, useColor bool, instance string) {
	mu.Lock()

	defer mu.Unlock()

	useColor = useColor && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	Logger = NewLogger(os.Stdout, configLogLevel, formatJSON, useColor, instance)

	slog.SetDefault(Logger)
}

// NewLogger builds a slog.Logger writing to out. Colors only apply to the text format.
func NewLogger(out io.Writer, configLogLevel int, formatJSON bool, useColor bool, instance string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     SlogLevel(configLogLevel),
		AddSource: configLogLevel == definitions.LogLevelDebug,
	}

	switch {
	case formatJSON:
		handler = slog.NewJSONHandler(out, opts)
	case useColor:
		handler = color.NewLineWrapper(out, opts, nil)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler).With(definitions.LogKeyInstance, instance)
}

// SlogLevel maps a configured log level to its slog counterpart.
func SlogLevel(configLogLevel int) slog.Level {
	switch configLogLevel {
	case definitions.LogLevelNone:
		return levelNone
	case definitions.LogLevelError:
		return slog.LevelError
	case definitions.LogLevelWarn:
		return slog.LevelWarn
	case definitions.LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
