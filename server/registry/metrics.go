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

package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess         = "success"
	resultInvalidRedirect = "invalid_redirect"
	resultError           = "error"
)

var resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "formlogin_resolutions_total",
	Help: "Number of form-login and logout block resolutions by result.",
}, []string{"kind", "result"})

var reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "formlogin_reloads_total",
	Help: "Number of configuration loads by result.",
}, []string{"result"})

var snapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "formlogin_snapshot_version",
	Help: "Version of the active configuration snapshot.",
})

var blocksGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "formlogin_blocks",
	Help: "Number of resolved form_login blocks in the active snapshot.",
})
