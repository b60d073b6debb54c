// Package metrics defines the Prometheus metrics recorded by tenderflow.
//
// Metrics are registered with the default registry on import. Commands are
// short lived, so instead of serving /metrics the CLI writes the registry to a
// node-exporter textfile when a command finishes (WriteTextfile).
//
// # Basic Usage
//
//	timer := metrics.NewTimer()
//	records, err := adapter.Fetch(ctx, offset, limit)
//	metrics.StoreFetchDuration.WithLabelValues(adapter.Name()).Observe(timer.Stop().Seconds())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExportRecords counts records written to export artifacts.
	// Labels: format, status (success/failure)
	ExportRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenderflow_export_records_total",
			Help: "Total number of records written by exports",
		},
		[]string{"format", "status"},
	)

	// ExportBatches counts batches written to export artifacts.
	ExportBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenderflow_export_batches_total",
			Help: "Total number of batches written by exports",
		},
		[]string{"format"},
	)

	// ExportDuration tracks whole-export wall time in seconds.
	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenderflow_export_duration_seconds",
			Help:    "Duration of export runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"format", "status"},
	)

	// StoreFetchDuration tracks the latency of one backend slice fetch.
	// Labels: backend
	StoreFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tenderflow_store_fetch_duration_seconds",
			Help: "Duration of a single store fetch in seconds",
			Buckets: []float64{
				0.001, // in-memory slices
				0.01,
				0.05,
				0.1, // typical network round-trip with 1000 records
				0.5,
				1,
				5,
			},
		},
		[]string{"backend"},
	)

	// StoreFetchRecords counts records returned by store fetches.
	StoreFetchRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenderflow_store_fetch_records_total",
			Help: "Total number of records fetched from stores",
		},
		[]string{"backend"},
	)

	// StatsRequests counts statistics computations by path (native/scan).
	StatsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenderflow_stats_requests_total",
			Help: "Total number of statistics computations",
		},
		[]string{"backend", "path"},
	)

	// ConnectAttempts counts backend connection attempts by outcome.
	ConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenderflow_connect_attempts_total",
			Help: "Total number of backend connection attempts",
		},
		[]string{"driver", "status"},
	)

	// PeakMemory holds the highest sampled memory per export, by kind (rss/heap).
	PeakMemory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenderflow_export_peak_memory_bytes",
			Help: "Peak memory sampled during the last export",
		},
		[]string{"kind"},
	)
)

// Timer measures the elapsed time since its creation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration. It can be called more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// WriteTextfile writes every metric in the default gatherer to path in the
// Prometheus text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
