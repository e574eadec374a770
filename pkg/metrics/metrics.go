// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kailospay"

// Metrics groups every collector the service publishes.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	VendorCallsTotal   *prometheus.CounterVec
	VendorCallDuration *prometheus.HistogramVec

	VerificationEventsTotal *prometheus.CounterVec
	PaymentTransitionsTotal *prometheus.CounterVec
	NotificationsTotal      *prometheus.CounterVec

	ReviewBacklog *prometheus.GaugeVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		VendorCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_calls_total",
			Help:      "External vendor calls by outcome",
		}, []string{"vendor", "op", "outcome"}),
		VendorCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_call_duration_seconds",
			Help:      "External vendor call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"vendor", "op"}),
		VerificationEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_events_total",
			Help:      "Recorded verification attempts",
		}, []string{"kind", "status"}),
		PaymentTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Payment status transitions",
		}, []string{"to"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Alimtalk notifications by outcome",
		}, []string{"event", "outcome"}),
		ReviewBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "review_backlog",
			Help:      "Items waiting on a workflow step",
		}, []string{"queue"}),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.VendorCallsTotal,
		m.VendorCallDuration,
		m.VerificationEventsTotal,
		m.PaymentTransitionsTotal,
		m.NotificationsTotal,
		m.ReviewBacklog,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveVendor records one vendor call.
func (m *Metrics) ObserveVendor(vendor, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.VendorCallsTotal.WithLabelValues(vendor, op, outcome).Inc()
	m.VendorCallDuration.WithLabelValues(vendor, op).Observe(elapsed.Seconds())
}

// IncVerification counts a recorded verification event.
func (m *Metrics) IncVerification(kind, status string) {
	if m == nil {
		return
	}
	m.VerificationEventsTotal.WithLabelValues(kind, status).Inc()
}

// IncPaymentTransition counts a payment status change.
func (m *Metrics) IncPaymentTransition(to string) {
	if m == nil {
		return
	}
	m.PaymentTransitionsTotal.WithLabelValues(to).Inc()
}

// IncNotification counts a notification attempt.
func (m *Metrics) IncNotification(event, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(event, outcome).Inc()
}

// SetBacklog publishes the size of a review queue.
func (m *Metrics) SetBacklog(queue string, n int64) {
	if m == nil {
		return
	}
	m.ReviewBacklog.WithLabelValues(queue).Set(float64(n))
}
