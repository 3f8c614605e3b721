package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors used across the service.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	bulkOperations  *prometheus.CounterVec
	bulkTargets     *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
	auditFailures   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		httpRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstage",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "backstage",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		bulkOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstage",
			Name:      "bulk_operations_total",
			Help:      "Bulk staff operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		bulkTargets: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstage",
			Name:      "bulk_targets_total",
			Help:      "Per-target results of bulk staff operations.",
		}, []string{"operation", "result"}),
		rateLimitDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backstage",
			Name:      "rate_limit_denied_total",
			Help:      "Requests denied by a rate limiter.",
		}, []string{"endpoint"}),
		auditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "backstage",
			Name:      "audit_write_failures_total",
			Help:      "Audit records that could not be persisted.",
		}),
	}
}

func (m *Metrics) RecordBulkOperation(operation, outcome string, success, failed int) {
	if m == nil {
		return
	}
	m.bulkOperations.WithLabelValues(operation, outcome).Inc()
	m.bulkTargets.WithLabelValues(operation, "success").Add(float64(success))
	m.bulkTargets.WithLabelValues(operation, "failed").Add(float64(failed))
}

func (m *Metrics) RecordRateLimitDenied(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
