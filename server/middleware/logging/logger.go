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

package logging

import (
	"log/slog"
	"time"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/log"
	"github.com/fromi/formlogin/server/log/level"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

// LoggerMiddleware assigns a GUID to every request and logs method, path, status and latency once the request
// is done. Requests that recorded a gin error are logged at error level. Handlers get a logger carrying the
// GUID through RequestLogger.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		guid := ksuid.New().String()
		ctx.Set(definitions.CtxGUIDKey, guid)

		requestLogger := logger
		if requestLogger == nil {
			requestLogger = log.Logger
		}

		ctx.Set(definitions.CtxLoggerKey, requestLogger.With(definitions.LogKeyGUID, guid))

		start := time.Now()

		ctx.Next()

		logWrapper := level.Info
		msg := "HTTP request"

		if err := ctx.Errors.Last(); err != nil {
			logWrapper = level.Error
			msg = err.Error()
		}

		logWrapper(requestLogger).Log(
			definitions.LogKeyGUID, guid,
			definitions.LogKeyMethod, ctx.Request.Method,
			definitions.LogKeyPath, ctx.Request.URL.Path,
			definitions.LogKeyStatus, ctx.Writer.Status(),
			definitions.LogKeyLatency, time.Since(start).String(),
			definitions.LogKeyMsg, msg,
		)
	}
}

// RequestLogger returns the logger LoggerMiddleware stored for this request. Outside the middleware it falls
// back to the package logger.
func RequestLogger(ctx *gin.Context) *slog.Logger {
	if value, ok := ctx.Get(definitions.CtxLoggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok && logger != nil {
			return logger
		}
	}

	return log.Logger
}
