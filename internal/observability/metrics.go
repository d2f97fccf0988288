package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec
	storeOpsTotal     *prometheus.CounterVec
	storeOpSeconds    *prometheus.HistogramVec
	exportsTotal      *prometheus.CounterVec
	exportBytes       *prometheus.HistogramVec
	rosterSubscribers prometheus.Gauge
	photoUploads      *prometheus.CounterVec
	photoLatency      prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the roster API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_api_requests_total",
			Help: "Total number of roster API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_api_latency_seconds",
			Help:    "Latency distribution for roster API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_api_errors_total",
			Help: "Total number of error responses returned by roster endpoints.",
		}, []string{"method", "route", "status"})

		storeOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_store_operations_total",
			Help: "Store operations grouped by backend, collection, operation and outcome.",
		}, []string{"backend", "collection", "operation", "outcome"})

		storeOpSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_store_operation_seconds",
			Help:    "Latency of store operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "collection", "operation"})

		exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_exports_total",
			Help: "Generated exports grouped by format and outcome.",
		}, []string{"format", "outcome"})

		exportBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_export_bytes",
			Help:    "Size of generated export documents.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"})

		rosterSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_live_subscribers",
			Help: "Number of connected live roster subscribers.",
		})

		photoUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_photo_uploads_total",
			Help: "Photo uploads grouped by storage backend and outcome.",
		}, []string{"storage", "outcome"})

		photoLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_photo_upload_seconds",
			Help:    "Duration of photo uploads including validation.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			storeOpsTotal, storeOpSeconds,
			exportsTotal, exportBytes,
			rosterSubscribers,
			photoUploads, photoLatency,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// StoreOperations exposes the store operation counter.
func StoreOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return storeOpsTotal
}

// StoreLatency exposes the store latency histogram.
func StoreLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return storeOpSeconds
}

// Exports exposes the export counter.
func Exports() *prometheus.CounterVec {
	RegisterMetrics()
	return exportsTotal
}

// ExportSize exposes the export size histogram.
func ExportSize() *prometheus.HistogramVec {
	RegisterMetrics()
	return exportBytes
}

// LiveSubscribers exposes the gauge of websocket and SSE subscribers.
func LiveSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return rosterSubscribers
}

// PhotoUploads exposes the photo upload counter.
func PhotoUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return photoUploads
}

// PhotoLatency exposes the photo upload latency histogram.
func PhotoLatency() prometheus.Histogram {
	RegisterMetrics()
	return photoLatency
}
