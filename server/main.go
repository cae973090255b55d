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
	"fmt"
	stdlog "log"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

var (
	version   = "dev"
	buildTime = ""
)

// cliFlags are the command line options.
type cliFlags struct {
	configPath   string
	configFormat string
	check        bool
	version      bool
}

func parseFlags(args []string) (*cliFlags, error) {
	flags := &cliFlags{}
	fs := pflag.NewFlagSet("formlogin", pflag.ContinueOnError)

	fs.StringVarP(&flags.configPath, "config", "c", "/etc/formlogin/formlogin.yml", "path to the configuration file")
	fs.StringVar(&flags.configFormat, "config-format", "", "configuration format (yaml, toml, json); derived from the file extension if empty")
	fs.BoolVar(&flags.check, "check", false, "resolve the configuration, print the descriptors as JSON and exit")
	fs.BoolVarP(&flags.version, "version", "V", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return flags, nil
}

// main is the entry point of the application. It resolves the configuration and serves the result over HTTP.
func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if flags.version {
		fmt.Printf("formlogin %s (%s)\n", version, buildTime)

		return
	}

	if flags.check {
		if err = runCheck(flags.configPath, flags.configFormat, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		return
	}

	app := fx.New(serverOptions(flags))
	if err = app.Err(); err != nil {
		stdlog.Fatalln("Unable to build the application. Error:", err)
	}

	app.Run()
}
