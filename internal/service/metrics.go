package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import row outcomes.
const (
	outcomeImported = "imported"
	outcomeUpdated  = "updated"
	outcomeFailed   = "failed"
)

// Search modes.
const (
	modeRelational = "relational"
	modeIndex      = "index"
	modeUnion      = "union"
	modeFallback   = "fallback"
	modeCached     = "cached"
)

var (
	importRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_import_rows_total",
			Help: "Feed rows reconciled, by outcome",
		},
		[]string{"outcome"},
	)

	importBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_import_batch_duration_seconds",
			Help:    "Duration of one reconciliation call",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_requests_total",
			Help: "Product searches, by resolution mode",
		},
		[]string{"mode"},
	)

	searchIndexFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_search_index_fallback_total",
			Help: "Searches that fell back to relational matching because the index failed",
		},
	)
)
