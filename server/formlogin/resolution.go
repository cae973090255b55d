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
)

// Resolution holds the descriptors of one form-login block together with the values sibling resolvers
// cross-reference.
type Resolution struct {
	Filter     FilterConfig
	EntryPoint EntryPointConfig

	loginPage          string
	loginProcessingURL string
	customLoginPage    bool
}

// LoginPage returns the effective login page. It is never empty.
func (r *Resolution) LoginPage() string {
	if r == nil {
		return ""
	}

	return r.loginPage
}

// LoginProcessingURL returns the effective URL the login form posts to. It is never empty.
func (r *Resolution) LoginProcessingURL() string {
	if r == nil {
		return ""
	}

	return r.loginProcessingURL
}

// IsCustomLoginPage reports whether the block configured its own login page.
func (r *Resolution) IsCustomLoginPage() bool {
	return r != nil && r.customLoginPage
}

// PublicPaths returns the request paths that must stay reachable without authentication: the login page, the
// login processing URL and the inline failure redirect. Query strings are stripped and duplicates removed.
func (r *Resolution) PublicPaths() []string {
	if r == nil {
		return nil
	}

	candidates := []string{r.loginPage, r.loginProcessingURL}

	if failure, ok := r.Filter.FailureHandler.(URLFailureHandler); ok {
		candidates = append(candidates, failure.DefaultFailureURL)
	}

	seen := make(map[string]struct{}, len(candidates))
	paths := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		path := stripQuery(candidate)
		if path == "" || isPlaceholder(path) {
			continue
		}

		if _, ok := seen[path]; ok {
			continue
		}

		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	return paths
}

func (r *Resolution) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	return json.Marshal(struct {
		LoginPage          string           `json:"login_page"`
		LoginProcessingURL string           `json:"login_processing_url"`
		CustomLoginPage    bool             `json:"custom_login_page"`
		Filter             FilterConfig     `json:"filter"`
		EntryPoint         EntryPointConfig `json:"entry_point"`
	}{r.loginPage, r.loginProcessingURL, r.customLoginPage, r.Filter, r.EntryPoint})
}

func stripQuery(value string) string {
	if i := strings.IndexAny(value, "?#"); i >= 0 {
		return value[:i]
	}

	return value
}
