// Package metrics provides Prometheus instrumentation for the
// verification engine.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "humancheck",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status bucket.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "humancheck",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// VerificationsTotal counts completed verifications by outcome.
	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "humancheck",
			Name:      "verifications_total",
			Help:      "Total verification attempts by outcome (PASS, FAIL, CHALLENGE_REQUIRED).",
		},
		[]string{"outcome"},
	)

	// VerificationFailuresTotal counts verification errors by code.
	VerificationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "humancheck",
			Name:      "verification_failures_total",
			Help:      "Total verification errors by error code.",
		},
		[]string{"code"},
	)

	// NoncesIssuedTotal counts issued challenge nonces.
	NoncesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "humancheck",
			Name:      "nonces_issued_total",
			Help:      "Total challenge nonces issued.",
		},
	)

	// OutstandingNonces tracks the nonce store size at last stats read.
	OutstandingNonces = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "humancheck",
			Name:      "outstanding_nonces",
			Help:      "Number of nonce records currently held by the store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		VerificationsTotal,
		VerificationFailuresTotal,
		NoncesIssuedTotal,
		OutstandingNonces,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
