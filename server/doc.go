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

/*
formlogin resolves declarative form-login settings into the filter and entry point descriptors a container-building
step needs to wire a username/password login.

Blocks are read from a YAML, TOML or JSON file. With --check the resolved descriptors are printed as JSON and the
process exits. Otherwise they are served over HTTP under /api/v1 and reloaded on SIGHUP or POST /api/v1/reload.
*/

package main
