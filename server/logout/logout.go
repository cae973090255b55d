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

// Package logout resolves a logout block. Its default success redirect depends on the login page of the
// form-login block it belongs to.
package logout

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/errors"
	"github.com/fromi/formlogin/server/formlogin"
	jsoniter "github.com/json-iterator/go"
)

const (
	AttrLogoutURL         = "logout-url"
	AttrLogoutSuccessURL  = "logout-success-url"
	AttrSuccessHandlerRef = "success-handler-ref"
	AttrInvalidateSession = "invalidate-session"
	AttrDeleteCookies     = "delete-cookies"
)

const KindRedirectSuccess = "redirect-success"

// Settings are the raw attributes of a logout block.
type Settings struct {
	LogoutURL         string `mapstructure:"logout-url" json:"logout-url,omitempty"`
	LogoutSuccessURL  string `mapstructure:"logout-success-url" json:"logout-success-url,omitempty"`
	SuccessHandlerRef string `mapstructure:"success-handler-ref" json:"success-handler-ref,omitempty"`

	// InvalidateSession is disabled only by the exact value "false".
	InvalidateSession string `mapstructure:"invalidate-session" json:"invalidate-session,omitempty"`

	// DeleteCookies is a comma separated list of cookie names.
	DeleteCookies string `mapstructure:"delete-cookies" json:"delete-cookies,omitempty"`

	Source string `mapstructure:"-" json:"-"`
}

// LoginState is the part of a form-login resolution the logout block depends on.
type LoginState interface {
	LoginPage() string
	IsCustomLoginPage() bool
}

var _ LoginState = (*formlogin.Resolution)(nil)

// SuccessHandlerSpec is a formlogin.Reference or a RedirectSuccessHandler.
type SuccessHandlerSpec interface {
	Kind() string
}

// RedirectSuccessHandler redirects to TargetURL after logout.
type RedirectSuccessHandler struct {
	TargetURL string `json:"target_url"`
}

func (RedirectSuccessHandler) Kind() string { return KindRedirectSuccess }

func (h RedirectSuccessHandler) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(struct {
		Kind      string `json:"kind"`
		TargetURL string `json:"target_url"`
	}{KindRedirectSuccess, h.TargetURL})
}

// Resolution describes the logout filter.
type Resolution struct {
	Matcher           formlogin.PathMatcher `json:"logout_request_matcher"`
	SuccessHandler    SuccessHandlerSpec    `json:"logout_success_handler"`
	InvalidateSession bool                  `json:"invalidate_session"`
	DeleteCookies     []string              `json:"delete_cookies,omitempty"`
	Source            string                `json:"source,omitempty"`
}

// PublicPaths returns the inline logout success path, which must be reachable after the session is gone.
func (r *Resolution) PublicPaths() []string {
	if r == nil {
		return nil
	}

	handler, ok := r.SuccessHandler.(RedirectSuccessHandler)
	if !ok {
		return nil
	}

	path := handler.TargetURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	if path == "" {
		return nil
	}

	return []string{path}
}

// DefaultSuccessURL returns the login page with the logout marker.
func DefaultSuccessURL(login LoginState) string {
	page := definitions.DefaultLoginPageURL

	if login != nil && login.IsCustomLoginPage() {
		page = login.LoginPage()
	}

	separator := "?"
	if strings.Contains(page, "?") {
		separator = "&"
	}

	return page + separator + definitions.LogoutParameterName
}

// Resolve builds the logout descriptor. login may be nil if the http block has no form login.
func Resolve(settings Settings, login LoginState) (*Resolution, error) {
	for _, check := range []struct {
		field string
		value string
	}{
		{AttrLogoutURL, settings.LogoutURL},
		{AttrLogoutSuccessURL, settings.LogoutSuccessURL},
	} {
		if err := formlogin.ValidateRedirect(check.field, check.value); err != nil {
			var target *errors.InvalidRedirectTargetError
			if stderrors.As(err, &target) {
				target.Source = settings.Source
			}

			return nil, err
		}
	}

	if hasText(settings.LogoutSuccessURL) && hasText(settings.SuccessHandlerRef) {
		return nil, fmt.Errorf("%w (%s)", errors.ErrConflictingLogoutSettings, settings.Source)
	}

	logoutURL := settings.LogoutURL
	if !hasText(logoutURL) {
		logoutURL = definitions.DefaultLogoutURL
	}

	var successHandler SuccessHandlerSpec

	switch {
	case hasText(settings.SuccessHandlerRef):
		successHandler = formlogin.Ref(settings.SuccessHandlerRef)
	case hasText(settings.LogoutSuccessURL):
		successHandler = RedirectSuccessHandler{TargetURL: settings.LogoutSuccessURL}
	default:
		successHandler = RedirectSuccessHandler{TargetURL: DefaultSuccessURL(login)}
	}

	return &Resolution{
		Matcher:           formlogin.PathMatcher{Pattern: logoutURL},
		SuccessHandler:    successHandler,
		InvalidateSession: settings.InvalidateSession != "false",
		DeleteCookies:     splitCookies(settings.DeleteCookies),
		Source:            settings.Source,
	}, nil
}

func splitCookies(value string) []string {
	var cookies []string

	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cookies = append(cookies, name)
		}
	}

	return cookies
}

func hasText(value string) bool {
	return strings.TrimSpace(value) != ""
}
