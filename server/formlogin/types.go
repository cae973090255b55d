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
	"fmt"

	"github.com/fromi/formlogin/server/definitions"
)

// Attribute names of a form-login block.
const (
	AttrLoginProcessingURL       = "login-processing-url"
	AttrLoginPage                = "login-page"
	AttrDefaultTargetURL         = "default-target-url"
	AttrAlwaysUseDefaultTarget   = "always-use-default-target"
	AttrAuthenticationFailureURL = "authentication-failure-url"
	AttrUsernameParameter        = "username-parameter"
	AttrPasswordParameter        = "password-parameter"
	AttrSuccessHandlerRef        = "authentication-success-handler-ref"
	AttrFailureHandlerRef        = "authentication-failure-handler-ref"
	AttrAuthDetailsSourceRef     = "authentication-details-source-ref"
)

// LoginSettings are the raw attributes of one form-login block. Every field is optional.
type LoginSettings struct {
	LoginProcessingURL       string `mapstructure:"login-processing-url" json:"login-processing-url,omitempty"`
	DefaultTargetURL         string `mapstructure:"default-target-url" json:"default-target-url,omitempty"`
	AuthenticationFailureURL string `mapstructure:"authentication-failure-url" json:"authentication-failure-url,omitempty"`
	LoginPage                string `mapstructure:"login-page" json:"login-page,omitempty"`
	UsernameParameter        string `mapstructure:"username-parameter" json:"username-parameter,omitempty"`
	PasswordParameter        string `mapstructure:"password-parameter" json:"password-parameter,omitempty"`
	SuccessHandlerRef        string `mapstructure:"authentication-success-handler-ref" json:"authentication-success-handler-ref,omitempty"`
	FailureHandlerRef        string `mapstructure:"authentication-failure-handler-ref" json:"authentication-failure-handler-ref,omitempty"`
	AuthDetailsSourceRef     string `mapstructure:"authentication-details-source-ref" json:"authentication-details-source-ref,omitempty"`

	// AlwaysUseDefaultTarget is enabled only by the exact value "true".
	AlwaysUseDefaultTarget string `mapstructure:"always-use-default-target" json:"always-use-default-target,omitempty"`

	// Source describes where the block was read from. It is copied into descriptors and errors.
	Source string `mapstructure:"-" json:"-"`
}

func (s *LoginSettings) String() string {
	if s == nil {
		return "LoginSettings: <nil>"
	}

	return fmt.Sprintf("LoginSettings: {LoginProcessingURL:%s LoginPage:%s DefaultTargetURL:%s AlwaysUseDefaultTarget:%s AuthenticationFailureURL:%s SuccessHandlerRef:%s FailureHandlerRef:%s Source:%s}",
		s.LoginProcessingURL, s.LoginPage, s.DefaultTargetURL, s.AlwaysUseDefaultTarget, s.AuthenticationFailureURL, s.SuccessHandlerRef, s.FailureHandlerRef, s.Source)
}

// Defaults carries the values a form-login block inherits from its surrounding http configuration.
type Defaults struct {
	// DefaultLoginProcessingURL is used when the block sets no login-processing-url.
	DefaultLoginProcessingURL string

	// FilterKind names the authentication filter the FilterConfig is built for.
	FilterKind string

	RequestCache         Reference
	SessionStrategy      *Reference
	AllowSessionCreation bool
	PortMapper           Reference
	PortResolver         Reference
}

// DefaultDefaults returns the defaults of a plain http block without session strategy.
func DefaultDefaults() Defaults {
	return Defaults{
		DefaultLoginProcessingURL: definitions.DefaultLoginProcessingURL,
		FilterKind:                definitions.DefaultFilterKind,
		RequestCache:              Ref(definitions.RefRequestCache),
		AllowSessionCreation:      true,
		PortMapper:                Ref(definitions.RefPortMapper),
		PortResolver:              Ref(definitions.RefPortResolver),
	}
}

// FilterConfig describes the username/password authentication filter.
type FilterConfig struct {
	Kind              string      `json:"kind"`
	Matcher           PathMatcher `json:"requires_authentication_matcher"`
	SuccessHandler    HandlerSpec `json:"authentication_success_handler"`
	FailureHandler    HandlerSpec `json:"authentication_failure_handler"`
	UsernameParameter *string     `json:"username_parameter,omitempty"`
	PasswordParameter *string     `json:"password_parameter,omitempty"`
	AuthDetailsSource *Reference  `json:"authentication_details_source,omitempty"`
	SessionStrategy   *Reference  `json:"session_authentication_strategy,omitempty"`
	Source            string      `json:"source,omitempty"`
}

// EntryPointConfig describes the entry point that redirects unauthenticated requests to the login page.
type EntryPointConfig struct {
	LoginPage    string    `json:"login_form_url"`
	PortMapper   Reference `json:"port_mapper"`
	PortResolver Reference `json:"port_resolver"`
	Source       string    `json:"source,omitempty"`
}
