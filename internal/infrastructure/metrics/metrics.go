package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ChatsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat_api",
			Name:      "chats_created_total",
			Help:      "Total chats created",
		},
	)

	ExchangesAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat_api",
			Name:      "exchanges_appended_total",
			Help:      "Total question/answer pairs appended to chats",
		},
		[]string{"with_image"},
	)

	UploadParamsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat_api",
			Name:      "upload_params_issued_total",
			Help:      "Total upload authentication parameter sets issued",
		},
		[]string{"provider", "status"},
	)

	// Store operation duration
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "chat_api",
			Name:      "store_duration_seconds",
			Help:      "Chat store operation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"backend", "operation", "status"},
	)

	OrphansRepairedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "chat_api",
			Name:      "orphans_repaired_total",
			Help:      "Chats that received a missing index entry from the reconciler",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordExchange records an appended question/answer pair
func RecordExchange(withImage bool) {
	label := "false"
	if withImage {
		label = "true"
	}
	ExchangesAppendedTotal.WithLabelValues(label).Inc()
}

// RecordUploadParams records an upload parameter issuance
func RecordUploadParams(provider, status string) {
	UploadParamsIssuedTotal.WithLabelValues(provider, status).Inc()
}

// RecordStoreOperation records a store call
func RecordStoreOperation(backend, operation string, err error, durationSec float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreDuration.WithLabelValues(backend, operation, status).Observe(durationSec)
}
