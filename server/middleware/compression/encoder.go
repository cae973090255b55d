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

// Package compression provides zstd and brotli response compression for gin.
package compression

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zstd"
)

// Level is an encoder independent compression level.
type Level int

const (
	DefaultCompression Level = iota
	BestSpeed
	BetterCompression
	BestCompression
)

// LevelFromGzip maps a gzip level (-1 to 9) onto a Level.
func LevelFromGzip(gzipLevel int) Level {
	switch {
	case gzipLevel >= 1 && gzipLevel <= 3:
		return BestSpeed
	case gzipLevel == 7 || gzipLevel == 8:
		return BetterCompression
	case gzipLevel == 9:
		return BestCompression
	default:
		return DefaultCompression
	}
}

// Encoder is a streaming compressor.
type Encoder interface {
	Write(p []byte) (int, error)
	Close() error
}

type encoderFactory func(w io.Writer, lvl Level) (Encoder, error)

func newZstdEncoder(w io.Writer, lvl Level) (Encoder, error) {
	var opts []zstd.EOption

	switch lvl {
	case BestSpeed:
		opts = []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithZeroFrames(true)}
	case BetterCompression:
		opts = []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithWindowSize(1 << 20)}
	case BestCompression:
		opts = []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedBetterCompression)}
	default:
		opts = []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedDefault)}
	}

	return zstd.NewWriter(w, opts...)
}

func newBrotliEncoder(w io.Writer, lvl Level) (Encoder, error) {
	quality := 5

	switch lvl {
	case BestSpeed:
		quality = brotli.BestSpeed
	case BetterCompression:
		quality = 7
	case BestCompression:
		quality = brotli.BestCompression
	}

	return brotli.NewWriterLevel(w, quality), nil
}

// Zstd compresses responses for clients accepting "zstd".
func Zstd(lvl Level) gin.HandlerFunc {
	return handler("zstd", lvl, newZstdEncoder)
}

// Brotli compresses responses for clients accepting "br".
func Brotli(lvl Level) gin.HandlerFunc {
	return handler("br", lvl, newBrotliEncoder)
}

func handler(encoding string, lvl Level, factory encoderFactory) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !accepts(ctx.Request, encoding) || ctx.Writer.Header().Get("Content-Encoding") != "" {
			ctx.Next()

			return
		}

		w := &encodingWriter{ResponseWriter: ctx.Writer, encoding: encoding, level: lvl, factory: factory, status: http.StatusOK}
		ctx.Writer = w

		ctx.Next()

		w.finish()
	}
}

// accepts reports whether Accept-Encoding lists encoding without "q=0".
func accepts(r *http.Request, encoding string) bool {
	for _, token := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(token), ";")
		if !strings.EqualFold(strings.TrimSpace(name), encoding) {
			continue
		}

		q := strings.ReplaceAll(params, " ", "")

		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}

	return false
}

type encodingWriter struct {
	gin.ResponseWriter

	encoding string
	level    Level
	factory  encoderFactory
	status   int
	started  bool
	enc      Encoder
}

func (w *encodingWriter) WriteHeader(code int) {
	w.status = code
	w.start()
	w.ResponseWriter.WriteHeader(code)
}

func (w *encodingWriter) Write(b []byte) (int, error) {
	w.start()

	if w.enc == nil {
		return w.ResponseWriter.Write(b)
	}

	return w.enc.Write(b)
}

func (w *encodingWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *encodingWriter) start() {
	if w.started {
		return
	}

	w.started = true

	if w.status < http.StatusOK || w.status == http.StatusNoContent || w.status == http.StatusNotModified {
		return
	}

	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", w.encoding)

	if vary := h.Get("Vary"); vary == "" {
		h.Set("Vary", "Accept-Encoding")
	} else if !strings.Contains(vary, "Accept-Encoding") {
		h.Set("Vary", vary+", Accept-Encoding")
	}

	enc, err := w.factory(w.ResponseWriter, w.level)
	if err != nil {
		h.Del("Content-Encoding")

		return
	}

	w.enc = enc
}

func (w *encodingWriter) finish() {
	if w.enc != nil {
		_ = w.enc.Close()
	}
}

func (w *encodingWriter) Flush() {
	if fl, ok := w.enc.(interface{ Flush() error }); ok {
		_ = fl.Flush()
	}

	w.ResponseWriter.Flush()
}

// Candidate pairs a content coding with the middleware producing it.
type Candidate struct {
	Encoding string
	Handler  gin.HandlerFunc
}

// Negotiate runs the first candidate the client accepts. Candidates are tried in the given order, so the
// configuration decides the preference rather than the client's q-values.
func Negotiate(candidates ...Candidate) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		for _, c := range candidates {
			if accepts(ctx.Request, c.Encoding) {
				c.Handler(ctx)

				return
			}
		}

		ctx.Next()
	}
}
