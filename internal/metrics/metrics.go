// Package metrics holds the Prometheus collectors for the waterwatch server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector. A nil *Manager is valid and records nothing,
// so packages can take one without caring whether metrics are wired.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	readingsIngested *prometheus.CounterVec
	readingsRejected *prometheus.CounterVec
	storageLatency   *prometheus.HistogramVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace (default "waterwatch").
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers collectors on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "waterwatch"}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.readingsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "readings_ingested_total",
		Help:      "Readings stored, by submission source.",
	}, []string{"source"})
	m.readingsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "readings_rejected_total",
		Help:      "Submissions that did not produce a stored reading, by source and reason.",
	}, []string{"source", "reason"})
	m.storageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "storage_operation_duration_seconds",
		Help:      "Latency of storage operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "outcome"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) RecordIngested(source string) {
	if m == nil {
		return
	}
	m.readingsIngested.WithLabelValues(source).Inc()
}

func (m *Manager) RecordRejected(source, reason string) {
	if m == nil {
		return
	}
	m.readingsRejected.WithLabelValues(source, reason).Inc()
}

func (m *Manager) ObserveStorage(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storageLatency.WithLabelValues(op, outcome).Observe(d.Seconds())
}

func (m *Manager) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
