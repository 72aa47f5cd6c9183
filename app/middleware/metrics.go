package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgdesk_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orgdesk_http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Campaign executions triggered by the scheduler or the API
	campaignExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_campaign_executions_total",
			Help: "Campaign executions by outcome",
		},
		[]string{"outcome"},
	)

	// Workflow decisions recorded through the approval surface
	workflowDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_workflow_decisions_total",
			Help: "Approval workflow decisions by kind",
		},
		[]string{"decision"},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route path when available.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path // Use route template to avoid high cardinality
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// CountCampaignExecution records one campaign execution attempt
func CountCampaignExecution(outcome string) {
	campaignExecutionsTotal.WithLabelValues(outcome).Inc()
}

// CountWorkflowDecision records one workflow decision
func CountWorkflowDecision(decision string) {
	workflowDecisionsTotal.WithLabelValues(decision).Inc()
}
