package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the API. All methods accept a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	salesSettled    prometheus.Counter
	salesRejected   *prometheus.CounterVec
	movements       *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_sales_settled_total",
		Help: "Sales committed to the ledger.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_sales_rejected_total",
		Help: "Sales rejected during settlement by reason.",
	}, []string{"reason"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_stock_movements_total",
		Help: "Inventory movements appended by type.",
	}, []string{"type"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharmacy_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(settled, rejected, movements, requests, duration)

	return &Metrics{
		registry:        registry,
		salesSettled:    settled,
		salesRejected:   rejected,
		movements:       movements,
		requestsTotal:   requests,
		requestDuration: duration,
	}
}

func (m *Metrics) SaleSettled() {
	if m == nil {
		return
	}
	m.salesSettled.Inc()
}

func (m *Metrics) SaleRejected(reason string) {
	if m == nil {
		return
	}
	m.salesRejected.WithLabelValues(reason).Inc()
}

// MovementsAppended adds n movements of type movementType.
func (m *Metrics) MovementsAppended(movementType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.movements.WithLabelValues(movementType).Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	if m == nil {
		return func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records count and latency per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		route := "unknown"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}
