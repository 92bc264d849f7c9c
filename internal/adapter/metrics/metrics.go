// Package metrics exposes ledger and HTTP activity as Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "savings_ledger"

// Metrics implements ports.LedgerMetrics.
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	feesTotal    prometheus.Counter
	tvl          prometheus.Gauge
	drift        *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations by outcome code.",
			},
			[]string{"operation", "outcome"},
		),
		feesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "fees_collected_base_units_total",
				Help:      "Protocol fees collected by this process, in base units.",
			},
		),
		tvl: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "total_value_locked_base_units",
				Help:      "Last observed treasury TVL, in base units.",
			},
		),
		drift: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "drift_base_units",
				Help:      "Difference found by the last reconciliation run.",
			},
			[]string{"kind"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "path"},
		),
	}
	m.registry.MustRegister(
		m.operations,
		m.feesTotal,
		m.tvl,
		m.drift,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation counts op under "ok", the error code, or "internal".
func (m *Metrics) ObserveOperation(op domain.Operation, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "internal"
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			outcome = appErr.Code
		}
	}
	m.operations.WithLabelValues(string(op), outcome).Inc()
}

func (m *Metrics) AddFees(amount uint64) {
	m.feesTotal.Add(float64(amount))
}

func (m *Metrics) SetTVL(tvl uint64) {
	m.tvl.Set(float64(tvl))
}

func (m *Metrics) SetReconcileDrift(kind string, drift float64) {
	m.drift.WithLabelValues(kind).Set(drift)
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
