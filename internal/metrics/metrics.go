// Package metrics holds the Prometheus collectors exported by the API server
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inkwell"

// Metrics contains the store and HTTP collectors
type Metrics struct {
	registry *prometheus.Registry

	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of collection operations",
			},
			[]string{"collection", "operation", "outcome"},
		),

		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Collection operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection", "operation"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method and status",
			},
			[]string{"method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	m.registry.MustRegister(
		m.StoreOperations,
		m.StoreDuration,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveStore records the outcome and duration of a collection operation
func (m *Metrics) ObserveStore(collection, operation, outcome string, d time.Duration) {
	m.StoreOperations.WithLabelValues(collection, operation, outcome).Inc()
	m.StoreDuration.WithLabelValues(collection, operation).Observe(d.Seconds())
}

// ObserveHTTP records a completed HTTP request
func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
