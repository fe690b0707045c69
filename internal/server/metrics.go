package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Detection metrics
	detectionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_detection_requests_total",
			Help: "Total number of detection requests",
		},
		[]string{"backend", "status"}, // status: success, failure, rejected
	)

	detectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_detection_duration_seconds",
			Help:    "Detection request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"backend"},
	)

	detectionsFound = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lookout_detections_per_image",
			Help:    "Number of objects detected per image",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"backend"},
	)

	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_cache_hits_total",
			Help: "Total number of detection cache hits",
		},
		[]string{"backend"},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lookout_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)
)

func recordDetection(backend, status string, elapsed time.Duration) {
	detectionRequestsTotal.WithLabelValues(backend, status).Inc()
	detectionDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}
