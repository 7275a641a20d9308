// Package metrics provides Prometheus instrumentation for kyxgate.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path pattern, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyxgate",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyxgate",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// VerificationsTotal counts completed verify() calls by provider and outcome
	// (no_risk, high_risk, not_ready, error).
	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyxgate",
			Name:      "verifications_total",
			Help:      "Total verification calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// StatusChecksTotal counts status-check polls by result (ready, pending, error).
	StatusChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyxgate",
			Name:      "status_checks_total",
			Help:      "Total readiness polls by result.",
		},
		[]string{"result"},
	)

	// DecisionEvaluationsTotal counts lazy risk-decision evaluations by outcome
	// (risky, clean, error).
	DecisionEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyxgate",
			Name:      "decision_evaluations_total",
			Help:      "Total risk decision evaluations by outcome.",
		},
		[]string{"outcome"},
	)

	// SessionsRegisteredTotal counts registrations by resource kind.
	SessionsRegisteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyxgate",
			Name:      "sessions_registered_total",
			Help:      "Total verification sessions registered by kind.",
		},
		[]string{"kind"},
	)

	// ActiveSessions tracks sessions currently held in the store.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kyxgate",
			Name:      "active_sessions",
			Help:      "Number of verification sessions currently in the store.",
		},
	)

	// SessionsSweptTotal counts sessions evicted by the expiry sweeper.
	SessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kyxgate",
			Name:      "sessions_swept_total",
			Help:      "Total expired sessions removed by the sweeper.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		VerificationsTotal,
		StatusChecksTotal,
		DecisionEvaluationsTotal,
		SessionsRegisteredTotal,
		ActiveSessions,
		SessionsSweptTotal,
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
