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
Package formlogin resolves the settings of a form-login block into plain configuration descriptors.

A block is a flat set of optional attributes (login page, processing URL, redirect targets, parameter names and
references to externally defined handlers). Resolve turns it into a FilterConfig for the username/password
authentication filter and an EntryPointConfig for the login redirect entry point. Handlers are described either as
a Reference to a named object or as an inline descriptor; the container-building step materializes both.

Resolve is a pure function. It performs no I/O and keeps no state, so it is safe for concurrent use.
*/
package formlogin
