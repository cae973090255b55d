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

package formlogin

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/fromi/formlogin/server/errors"
)

// ValidateRedirect returns an *errors.InvalidRedirectTargetError if value is set but not a local redirect path.
// Blank values and late-bound placeholders ("${...}", "#{...}") are accepted.
func ValidateRedirect(field, value string) error {
	if !hasText(value) || isPlaceholder(value) {
		return nil
	}

	if !IsLocalRedirect(value) {
		return &errors.InvalidRedirectTargetError{Field: field, Value: value}
	}

	return nil
}

// IsLocalRedirect reports whether value is an absolute path on the same host. Protocol-relative ("//host") and
// backslash forms are rejected because browsers treat them as external targets.
func IsLocalRedirect(value string) bool {
	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") {
		return false
	}

	for _, r := range value {
		if r == '\\' || unicode.IsControl(r) {
			return false
		}
	}

	u, err := url.Parse(value)
	if err != nil {
		return false
	}

	return u.Scheme == "" && u.Host == "" && u.Opaque == "" && u.User == nil
}

func isPlaceholder(value string) bool {
	return strings.HasPrefix(value, "${") || strings.HasPrefix(value, "#{")
}

func hasText(value string) bool {
	return strings.TrimSpace(value) != ""
}
