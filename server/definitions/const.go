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

// Package definitions holds constants shared by all formlogin packages.
package definitions

// Log keys.
const (
	// LogKeyMsg represents the message content in log entries.
	LogKeyMsg = "msg"

	// LogKeyError represents error information in log entries.
	LogKeyError = "error"

	// LogKeyInstance represents instance identification in log entries.
	LogKeyInstance = "instance"

	// LogKeyGUID is the key for a request or build identifier.
	LogKeyGUID = "guid"

	LogKeyBlock    = "block"
	LogKeySource   = "source"
	LogKeyField    = "field"
	LogKeyVersion  = "version"
	LogKeyPath     = "path"
	LogKeyMethod   = "method"
	LogKeyStatus   = "status"
	LogKeyLatency  = "latency"
	LogKeyClientIP = "client_ip"
)

// Log levels as configured in the server section.
const (
	LogLevelNone = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Login page and redirect defaults.
const (
	// DefaultLoginPageURL is the login page served when no custom page is configured.
	DefaultLoginPageURL = "/login"

	// ErrorParameterName marks a failed login on the default login page.
	ErrorParameterName = "error"

	// LogoutParameterName marks a completed logout on the login page.
	LogoutParameterName = "logout"

	// DefaultFailureURL is the failure redirect when neither a failure URL nor a custom login page is configured.
	DefaultFailureURL = DefaultLoginPageURL + "?" + ErrorParameterName

	// DefaultTargetURL is the post-login redirect when none is configured.
	DefaultTargetURL = "/"

	// DefaultLoginProcessingURL is used when the defaults section omits one.
	DefaultLoginProcessingURL = "/login"

	// DefaultLogoutURL is the logout request path when none is configured.
	DefaultLogoutURL = "/logout"

	// DefaultFilterKind names the username/password form filter.
	DefaultFilterKind = "username-password"
)

// Default bean references handed to the container-building step.
const (
	RefRequestCache = "requestCache"
	RefPortMapper   = "portMapper"
	RefPortResolver = "portResolver"
)

// Server defaults.
const (
	DefaultAddress  = "127.0.0.1:9180"
	DefaultInstance = "formlogin"
	EnvPrefix       = "FORMLOGIN"
)

// Context keys.
const (
	CtxGUIDKey   = "guid"
	CtxLoggerKey = "logger"
)
