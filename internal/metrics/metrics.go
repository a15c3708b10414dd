// Package metrics holds the Prometheus collectors for the registry: HTTP
// traffic and the domain events (registrations, programs, enrollments).
//
// Each Metrics owns a private registry so tests can build as many as they
// like without duplicate-registration panics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "health_registry"

// Rejection reasons for enrollments.
const (
	ReasonInvalid  = "invalid"
	ReasonNotFound = "not_found"
	ReasonConflict = "duplicate"
)

type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ClientsRegistered    prometheus.Counter
	ProgramsCreated      prometheus.Counter
	Enrollments          prometheus.Counter
	EnrollmentRejections *prometheus.CounterVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}, []string{"method", "route"}),

		ClientsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_registered_total",
			Help:      "Total number of clients registered.",
		}),
		ProgramsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "programs_created_total",
			Help:      "Total number of programs created.",
		}),
		Enrollments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Total number of successful enrollments.",
		}),
		EnrollmentRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_rejections_total",
			Help:      "Enrollments refused, by reason.",
		}, []string{"reason"}),
	}
}

// Handler exposes the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted bumps the in-flight gauge and returns the func that
// drops it again.
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveRequest records one finished request. route should be the
// matched mux pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ClientRegistered() {
	if m != nil {
		m.ClientsRegistered.Inc()
	}
}

func (m *Metrics) ProgramCreated() {
	if m != nil {
		m.ProgramsCreated.Inc()
	}
}

func (m *Metrics) Enrolled() {
	if m != nil {
		m.Enrollments.Inc()
	}
}

func (m *Metrics) EnrollmentRejected(reason string) {
	if m != nil {
		m.EnrollmentRejections.WithLabelValues(reason).Inc()
	}
}
