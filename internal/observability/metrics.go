package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for upstream fetches
const (
	UpstreamHit   = "hit"
	UpstreamMiss  = "miss"
	UpstreamError = "error"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orbit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	upstreamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Subsystem: "upstream",
			Name:      "fetches_total",
			Help:      "Upstream resource lookups by outcome (hit, miss, error).",
		},
		[]string{"resource", "outcome"},
	)
	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orbit",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Upstream round-trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"resource"},
	)
	degradedReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Subsystem: "upstream",
			Name:      "degraded_reads_total",
			Help:      "List reads that degraded to an empty result.",
		},
		[]string{"resource"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, upstreamFetches, upstreamDuration, degradedReads)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordUpstreamFetch(resource, outcome string) {
	RegisterMetrics()
	upstreamFetches.WithLabelValues(resource, outcome).Inc()
}

func RecordUpstreamRoundTrip(resource string, duration time.Duration) {
	RegisterMetrics()
	upstreamDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

func RecordDegradedRead(resource string) {
	RegisterMetrics()
	degradedReads.WithLabelValues(resource).Inc()
}
