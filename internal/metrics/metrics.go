package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinevault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinevault_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Ingestion metrics
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinevault_ingests_total",
			Help: "Total number of video ingestions",
		},
		[]string{"status"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinevault_ingest_duration_seconds",
			Help:    "End-to-end ingestion latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5min
		},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinevault_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 15), // 1MB to 16GB
		},
	)

	IngestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinevault_ingests_in_progress",
			Help: "Number of ingestions currently running",
		},
	)

	// Probe metrics
	ProbeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinevault_probe_failures_total",
			Help: "Total number of failed metadata probes",
		},
	)

	// Geocode metrics
	GeocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinevault_geocode_requests_total",
			Help: "Total number of reverse-geocode lookups",
		},
		[]string{"result"}, // resolved, empty, failed, cached
	)
)

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
