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

// Command docker-healthcheck checks the /ping endpoint of a running formlogin server.
package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultURL = "http://127.0.0.1:9180/ping"

var errUnhealthy = errors.New("unhealthy")

// checkHealth returns nil when url answers 200 with a "pong" body.
func checkHealth(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", errUnhealthy, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return err
	}

	if !strings.EqualFold(strings.TrimSpace(string(content)), "pong") {
		return fmt.Errorf("%w: unexpected body %q", errUnhealthy, content)
	}

	return nil
}

func main() {
	pflag.StringP("url", "u", defaultURL, "formlogin ping url to test")
	pflag.BoolP("verbose", "v", false, "Be verbose")
	pflag.BoolP("tls-skip-verify", "t", false, "Skip TLS server certificate verification")
	pflag.Parse()

	_ = viper.BindPFlags(pflag.CommandLine)

	verbose := viper.GetBool("verbose")

	if verbose {
		fmt.Println("Checking", viper.GetString("url"))
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: viper.GetBool("tls-skip-verify")},
		},
	}

	if err := checkHealth(client, viper.GetString("url")); err != nil {
		if verbose {
			fmt.Println("Test FAILED:", err)
		}

		os.Exit(1)
	}

	if verbose {
		fmt.Println("Test OK")
	}
}
