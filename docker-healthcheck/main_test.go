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

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		healthy bool
	}{
		{name: "Pong", status: http.StatusOK, body: "pong", healthy: true},
		{name: "PongUpperCase", status: http.StatusOK, body: "PONG\n", healthy: true},
		{name: "WrongBody", status: http.StatusOK, body: "nope"},
		{name: "ServerError", status: http.StatusInternalServerError, body: "pong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := checkHealth(server.Client(), server.URL+"/ping")
			if tt.healthy {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errUnhealthy)
			}
		})
	}
}

func TestProbe_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL

	server.Close()

	assert.Error(t, checkHealth(http.DefaultClient, url))
}
