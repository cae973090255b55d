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

package router

import (
	"net/http"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/log/level"
	"github.com/fromi/formlogin/server/middleware/logging"

	"github.com/gin-gonic/gin"
)

// HealthCheck answers "pong" for liveness checks.
func HealthCheck(ctx *gin.Context) {
	level.Debug(logging.RequestLogger(ctx)).Log(
		definitions.LogKeyClientIP, ctx.ClientIP(),
		definitions.LogKeyMsg, "Health check",
	)

	ctx.String(http.StatusOK, "pong")
}
