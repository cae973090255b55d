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
	stderrors "errors"

	"github.com/fromi/formlogin/server/definitions"
	"github.com/fromi/formlogin/server/errors"
)

// Resolve validates settings and builds the filter and entry point descriptors of one form-login block.
//
// The only error is an *errors.InvalidRedirectTargetError; no partial result is returned with it.
//
// Redirect values starting with "${" or "#{" are late-bound placeholders. They skip validation and are copied
// into the Resolution verbatim, so a consumer must substitute them and check the result with IsLocalRedirect
// before redirecting to it.
func Resolve(settings LoginSettings, defaults Defaults) (*Resolution, error) {
	if err := validateRedirects(settings); err != nil {
		return nil, err
	}

	loginPage := settings.LoginPage
	if !hasText(loginPage) {
		loginPage = ""
	}

	loginProcessingURL := settings.LoginProcessingURL
	if !hasText(loginProcessingURL) {
		loginProcessingURL = defaults.DefaultLoginProcessingURL
	}

	if !hasText(loginProcessingURL) {
		loginProcessingURL = definitions.DefaultLoginProcessingURL
	}

	filterKind := defaults.FilterKind
	if filterKind == "" {
		filterKind = definitions.DefaultFilterKind
	}

	filter := FilterConfig{
		Kind:              filterKind,
		Matcher:           PathMatcher{Pattern: loginProcessingURL},
		SuccessHandler:    successHandler(settings, defaults),
		FailureHandler:    failureHandler(settings, loginPage, defaults),
		UsernameParameter: optional(settings.UsernameParameter),
		PasswordParameter: optional(settings.PasswordParameter),
		AuthDetailsSource: RefPtr(settings.AuthDetailsSourceRef),
		SessionStrategy:   copyRef(defaults.SessionStrategy),
		Source:            settings.Source,
	}

	effectiveLoginPage := loginPage
	if effectiveLoginPage == "" {
		effectiveLoginPage = definitions.DefaultLoginPageURL
	}

	entryPoint := EntryPointConfig{
		LoginPage:    effectiveLoginPage,
		PortMapper:   defaults.PortMapper,
		PortResolver: defaults.PortResolver,
		Source:       settings.Source,
	}

	return &Resolution{
		Filter:             filter,
		EntryPoint:         entryPoint,
		loginPage:          effectiveLoginPage,
		loginProcessingURL: loginProcessingURL,
		customLoginPage:    loginPage != "",
	}, nil
}

func validateRedirects(settings LoginSettings) error {
	checks := []struct {
		field string
		value string
	}{
		{AttrLoginProcessingURL, settings.LoginProcessingURL},
		{AttrDefaultTargetURL, settings.DefaultTargetURL},
		{AttrAuthenticationFailureURL, settings.AuthenticationFailureURL},
		{AttrLoginPage, settings.LoginPage},
	}

	for _, check := range checks {
		err := ValidateRedirect(check.field, check.value)
		if err == nil {
			continue
		}

		var target *errors.InvalidRedirectTargetError
		if stderrors.As(err, &target) {
			target.Source = settings.Source
		}

		return err
	}

	return nil
}

func successHandler(settings LoginSettings, defaults Defaults) HandlerSpec {
	if hasText(settings.SuccessHandlerRef) {
		return Ref(settings.SuccessHandlerRef)
	}

	targetURL := settings.DefaultTargetURL
	if !hasText(targetURL) {
		targetURL = definitions.DefaultTargetURL
	}

	return SavedRequestSuccessHandler{
		DefaultTargetURL:          targetURL,
		AlwaysUseDefaultTargetURL: settings.AlwaysUseDefaultTarget == "true",
		RequestCache:              defaults.RequestCache,
	}
}

// failureHandler falls back to redisplaying the custom login page. That value was validated together with the
// other redirects and is not checked again.
func failureHandler(settings LoginSettings, loginPage string, defaults Defaults) HandlerSpec {
	if hasText(settings.FailureHandlerRef) {
		return Ref(settings.FailureHandlerRef)
	}

	failureURL := settings.AuthenticationFailureURL
	if !hasText(failureURL) {
		if loginPage != "" {
			failureURL = loginPage
		} else {
			failureURL = definitions.DefaultFailureURL
		}
	}

	return URLFailureHandler{
		DefaultFailureURL:    failureURL,
		AllowSessionCreation: defaults.AllowSessionCreation,
	}
}

func optional(value string) *string {
	if !hasText(value) {
		return nil
	}

	return &value
}

func copyRef(ref *Reference) *Reference {
	if ref == nil {
		return nil
	}

	cp := *ref

	return &cp
}
