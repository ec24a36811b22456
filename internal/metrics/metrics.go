// Package metrics provides Prometheus metrics for the ecoagent backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatasetFetchesTotal tracks record store fetches by dataset and outcome
	DatasetFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "recordstore",
			Name:      "fetches_total",
			Help:      "Total number of dataset fetches by dataset and status",
		},
		[]string{"dataset", "status"},
	)

	// DatasetFetchDuration tracks how long a dataset fetch takes, cache included
	DatasetFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecoagent",
			Subsystem: "recordstore",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of dataset fetches in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"dataset"},
	)

	// DatasetCacheHits tracks raw dataset cache lookups
	DatasetCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "recordstore",
			Name:      "cache_lookups_total",
			Help:      "Dataset cache lookups by result (hit or miss)",
		},
		[]string{"result"},
	)

	// MalformedRowsTotal tracks rows dropped during parsing
	MalformedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "recordstore",
			Name:      "malformed_rows_total",
			Help:      "Total number of rows dropped as malformed",
		},
		[]string{"dataset"},
	)

	// WasteRiskEvaluationsTotal tracks waste risk evaluations by status
	WasteRiskEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "wasterisk",
			Name:      "evaluations_total",
			Help:      "Total number of waste risk evaluations by scope and status",
		},
		[]string{"scope", "status"},
	)

	// WasteRiskDuration tracks evaluation latency
	WasteRiskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecoagent",
			Subsystem: "wasterisk",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of waste risk evaluations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"scope"},
	)

	// SupplierScoresTotal tracks supplier scoring outcomes
	SupplierScoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "supplier",
			Name:      "scores_total",
			Help:      "Total number of supplier scores by status",
		},
		[]string{"status"},
	)

	// HTTPRequestsTotal tracks inbound API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound API latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecoagent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// FootprintRequestsTotal tracks outbound footprint calculator calls
	FootprintRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "impact",
			Name:      "footprint_requests_total",
			Help:      "Total number of footprint calculator requests by status code",
		},
		[]string{"status_code"},
	)

	// TokensRecordedTotal tracks model tokens reported per agent
	TokensRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecoagent",
			Subsystem: "impact",
			Name:      "tokens_recorded_total",
			Help:      "Total number of model tokens recorded by agent",
		},
		[]string{"agent"},
	)
)
