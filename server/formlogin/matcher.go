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
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathMatcher is an ant-style request path pattern such as "/login" or "/auth/**".
type PathMatcher struct {
	Pattern string `json:"pattern"`
}

// Matches reports whether the path of a request URI matches the pattern. Query and fragment are ignored.
// A malformed pattern matches nothing.
func (m PathMatcher) Matches(requestURI string) bool {
	if m.Pattern == "" {
		return false
	}

	path := requestURI
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	ok, err := doublestar.Match(m.Pattern, path)

	return err == nil && ok
}

// Valid reports whether the pattern is well formed.
func (m PathMatcher) Valid() bool {
	return m.Pattern != "" && doublestar.ValidatePattern(m.Pattern)
}
