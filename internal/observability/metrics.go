package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and dispatcher flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDuration        *prometheus.HistogramVec
	claimsSubmittedTotal       *prometheus.CounterVec
	deliveriesCompletedTotal   *prometheus.CounterVec
	deliveryAttemptDuration    prometheus.Histogram
	subscriptionsDisabledTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pension_backoffice",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pension_backoffice",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		claimsSubmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pension_backoffice",
				Name:      "claims_submitted_total",
				Help:      "Total number of benefit claims filed grouped by benefit type.",
			},
			[]string{"benefit_type"},
		),
		deliveriesCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pension_backoffice",
				Name:      "webhook_deliveries_completed_total",
				Help:      "Total number of webhook delivery batches that reached a final state.",
			},
			[]string{"outcome"},
		),
		deliveryAttemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pension_backoffice",
				Name:      "webhook_delivery_attempt_duration_seconds",
				Help:      "Single webhook POST attempt duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		subscriptionsDisabledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pension_backoffice",
				Name:      "webhook_subscriptions_disabled_total",
				Help:      "Total number of subscriptions auto-disabled after consecutive failures.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.claimsSubmittedTotal,
		m.deliveriesCompletedTotal,
		m.deliveryAttemptDuration,
		m.subscriptionsDisabledTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncClaimSubmitted(benefitType string) {
	if m == nil {
		return
	}
	label := strings.ToLower(strings.TrimSpace(benefitType))
	if label == "" {
		label = "unknown"
	}
	m.claimsSubmittedTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncDeliveryCompleted(outcome string) {
	if m == nil {
		return
	}
	label := strings.ToLower(strings.TrimSpace(outcome))
	if label == "" {
		label = "unknown"
	}
	m.deliveriesCompletedTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveDeliveryAttemptDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryAttemptDuration.Observe(seconds)
}

func (m *Metrics) IncSubscriptionDisabled() {
	if m == nil {
		return
	}
	m.subscriptionsDisabledTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
