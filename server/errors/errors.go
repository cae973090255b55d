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

package errors

import (
	"errors"
	"fmt"
)

// DetailedError is an error enriched with a GUID, a detail text and the instance that produced it.
type DetailedError struct {
	err      error
	guid     string
	details  string
	instance string
}

func (d *DetailedError) Error() string {
	return d.err.Error()
}

// Unwrap returns the wrapped error.
func (d *DetailedError) Unwrap() error {
	return d.err
}

func (d *DetailedError) WithGUID(guid string) *DetailedError {
	if d == nil {
		return nil
	}

	d.guid = guid

	return d
}

func (d *DetailedError) WithDetail(detail string) *DetailedError {
	if d == nil {
		return nil
	}

	d.details = detail

	return d
}

func (d *DetailedError) WithInstance(instance string) *DetailedError {
	if d == nil {
		return nil
	}

	d.instance = instance

	return d
}

func (d *DetailedError) GetGUID() string {
	return d.guid
}

func (d *DetailedError) GetDetails() string {
	return d.details
}

func (d *DetailedError) GetInstance() string {
	return d.instance
}

// NewDetailedError returns a DetailedError with the given message.
func NewDetailedError(err string) *DetailedError {
	return &DetailedError{err: errors.New(err)}
}

// WrapDetailedError returns a DetailedError around an existing error.
func WrapDetailedError(err error) *DetailedError {
	if err == nil {
		return nil
	}

	return &DetailedError{err: err}
}

// redirect.

var (
	// ErrInvalidRedirectTarget is matched by every InvalidRedirectTargetError.
	ErrInvalidRedirectTarget = errors.New("invalid redirect target")
)

// InvalidRedirectTargetError reports a URL-like setting that is not an acceptable local redirect path.
type InvalidRedirectTargetError struct {
	Field  string
	Value  string
	Source string
}

func (e *InvalidRedirectTargetError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s %q is not a valid local redirect path (%s)", ErrInvalidRedirectTarget, e.Field, e.Value, e.Source)
	}

	return fmt.Sprintf("%s: %s %q is not a valid local redirect path", ErrInvalidRedirectTarget, e.Field, e.Value)
}

// Is makes errors.Is(err, ErrInvalidRedirectTarget) succeed.
func (e *InvalidRedirectTargetError) Is(target error) bool {
	return target == ErrInvalidRedirectTarget
}

// logout.

var (
	ErrConflictingLogoutSettings = errors.New("logout-success-url and success-handler-ref cannot be used together")
)

// config.

var (
	ErrNoConfigFile     = errors.New("no configuration file given")
	ErrNoFormLoginBlock = errors.New("no 'form_login:' block configured")
	ErrUnknownBlock     = errors.New("unknown form_login block")
)

// registry.

var (
	ErrRegistryNotLoaded = errors.New("registry not loaded")
	ErrReloadFailed      = errors.New("reload failed")
	ErrOrphanLogoutBlock = errors.New("logout block has no form_login block of the same name")
)
