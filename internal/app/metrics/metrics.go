package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nodemap",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nodemap",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nodemap",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nodemap",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Registration and login attempts by outcome.",
		},
		[]string{"operation", "result"},
	)

	resourcesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nodemap",
			Subsystem: "resources",
			Name:      "created_total",
			Help:      "Resources created, by kind.",
		},
		[]string{"kind"},
	)

	graphSaves = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nodemap",
			Subsystem: "resources",
			Name:      "graph_payload_bytes",
			Help:      "Size of saved nodemap payloads (nodes plus edges).",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B to ~1MiB
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		authAttempts,
		resourcesCreated,
		graphSaves,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTPRequest records a completed request. path should be a route
// template, not the raw URL, to keep label cardinality bounded.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthAttempt counts a register or login outcome.
func RecordAuthAttempt(operation string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	authAttempts.WithLabelValues(operation, result).Inc()
}

// RecordResourceCreated counts a created nodemap or agent.
func RecordResourceCreated(kind string) {
	resourcesCreated.WithLabelValues(kind).Inc()
}

// RecordGraphSave observes the size of a saved graph payload.
func RecordGraphSave(bytes int) {
	graphSaves.Observe(float64(bytes))
}
