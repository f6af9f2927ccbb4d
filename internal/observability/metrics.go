package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics exposes Prometheus collectors for the SLA engine.
type Metrics struct {
	registry *prometheus.Registry

	CalculationsTotal    *prometheus.CounterVec
	RecalcConflictsTotal prometheus.Counter
	EscalationsTotal     *prometheus.CounterVec
	SweepDuration        prometheus.Histogram
	SweepBatchSize       prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpErrors   *prometheus.CounterVec
}

// NewMetrics initializes and registers the engine collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_calculations_total",
			Help: "SLA calculation rows inserted, by reason.",
		}, []string{"reason"}),
		RecalcConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sla_recalculation_conflicts_total",
			Help: "Optimistic staleness retries during recalculation.",
		}),
		EscalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_escalation_events_total",
			Help: "Escalation status events emitted, by leg and status.",
		}, []string{"leg", "status"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Duration of one escalation sweep pass.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sla_sweep_in_flight_calculations",
			Help: "Calculations examined by the most recent sweep.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests, by path, method, and status.",
		}, []string{"path", "method", "status"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP requests that resolved to an error response.",
		}, []string{"path", "method", "code"}),
	}
	registry.MustRegister(
		m.CalculationsTotal,
		m.RecalcConflictsTotal,
		m.EscalationsTotal,
		m.SweepDuration,
		m.SweepBatchSize,
		m.httpRequests,
		m.httpErrors,
	)
	return m
}

// RecordRequest increments the HTTP request counter.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// RecordError increments the HTTP error counter.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// Handler serves the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestLogger logs each request with outcome and latency and feeds the
// request counters.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)
		status := c.Response().StatusCode()
		metrics.RecordRequest(c.Path(), c.Method(), status, duration)
		logger.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration))
		return err
	}
}
