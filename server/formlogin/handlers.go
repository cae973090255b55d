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
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler descriptor kinds.
const (
	KindReference           = "reference"
	KindSavedRequestSuccess = "saved-request-success"
	KindURLFailure          = "url-failure"
)

// HandlerSpec is either a Reference or an inline handler descriptor.
type HandlerSpec interface {
	Kind() string

	handlerSpec()
}

// Reference names an object that is defined outside of the form-login block.
type Reference struct {
	Name string `json:"name"`
}

// Ref returns a Reference to name.
func Ref(name string) Reference {
	return Reference{Name: name}
}

// RefPtr returns a Reference to name, or nil for a blank name.
func RefPtr(name string) *Reference {
	if !hasText(name) {
		return nil
	}

	ref := Ref(name)

	return &ref
}

func (Reference) Kind() string { return KindReference }
func (Reference) handlerSpec() {}

func (r Reference) MarshalJSON() ([]byte, error) {
	type Alias Reference

	return json.Marshal(struct {
		Kind string `json:"kind"`
		Alias
	}{KindReference, Alias(r)})
}

// SavedRequestSuccessHandler redirects to the saved request, or to DefaultTargetURL if there is none or
// AlwaysUseDefaultTargetURL is set.
type SavedRequestSuccessHandler struct {
	DefaultTargetURL          string    `json:"default_target_url"`
	AlwaysUseDefaultTargetURL bool      `json:"always_use_default_target_url"`
	RequestCache              Reference `json:"request_cache"`
}

func (SavedRequestSuccessHandler) Kind() string { return KindSavedRequestSuccess }
func (SavedRequestSuccessHandler) handlerSpec() {}

func (h SavedRequestSuccessHandler) MarshalJSON() ([]byte, error) {
	type Alias SavedRequestSuccessHandler

	return json.Marshal(struct {
		Kind string `json:"kind"`
		Alias
	}{KindSavedRequestSuccess, Alias(h)})
}

// URLFailureHandler redirects to DefaultFailureURL after a failed login.
type URLFailureHandler struct {
	DefaultFailureURL    string `json:"default_failure_url"`
	AllowSessionCreation bool   `json:"allow_session_creation"`
}

func (URLFailureHandler) Kind() string { return KindURLFailure }
func (URLFailureHandler) handlerSpec() {}

func (h URLFailureHandler) MarshalJSON() ([]byte, error) {
	type Alias URLFailureHandler

	return json.Marshal(struct {
		Kind string `json:"kind"`
		Alias
	}{KindURLFailure, Alias(h)})
}

var (
	_ HandlerSpec = Reference{}
	_ HandlerSpec = SavedRequestSuccessHandler{}
	_ HandlerSpec = URLFailureHandler{}
)
