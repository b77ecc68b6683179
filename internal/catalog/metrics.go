// SPDX-License-Identifier: MIT

package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions follow internal/metrics's one-file-per-concern
// convention (e.g. recordings_preparing.go): a small set of promauto
// vectors scoped to this package's responsibility.
var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "xg2g",
		Subsystem: "catalog",
		Name:      "query_duration_seconds",
		Help:      "Latency of catalog query-engine operations by kind.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .15, .25, .5, 1},
	}, []string{"kind"})

	saveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xg2g",
		Subsystem: "catalog",
		Name:      "save_rows_total",
		Help:      "Total rows written by catalog.Store save operations, by entity.",
	}, []string{"entity"})

	deleteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xg2g",
		Subsystem: "catalog",
		Name:      "delete_rows_total",
		Help:      "Total rows removed by catalog.Store delete operations, by entity.",
	}, []string{"entity"})
)
