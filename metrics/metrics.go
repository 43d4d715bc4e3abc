// Package metrics provides Prometheus instrumentation for the gateway.
//
// Metrics owns a private registry, so several instances can coexist in one
// process (tests do this). Exposed series:
//
//   - bucketgate_http_inflight_requests
//   - bucketgate_http_requests_total{code,method}
//   - bucketgate_http_request_duration_seconds{code,method}
//   - bucketgate_bucket_operations_total{binding,operation,result}
//   - bucketgate_bucket_operation_duration_seconds{binding,operation}
//
// Serve Handler on its own listener: the gateway claims every path for
// object keys.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sagarc03/bucketgate"
)

const namespace = "bucketgate"

// Operation results recorded by InstrumentBucket.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds the registry and the gateway collectors.
type Metrics struct {
	reg        *prometheus.Registry
	inflight   prometheus.Gauge
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	opsLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with a fresh registry. Go runtime and
// process collectors are registered alongside the gateway series.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of inflight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed, partitioned by status code and method.",
		}, []string{"code", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bucket",
			Name:      "operations_total",
			Help:      "Total number of bucket operations by binding, operation and result.",
		}, []string{"binding", "operation", "result"}),
		opsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bucket",
			Name:      "operation_duration_seconds",
			Help:      "Histogram of bucket operation durations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"binding", "operation"}),
	}

	reg.MustRegister(
		m.inflight, m.requests, m.latency, m.ops, m.opsLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Middleware records inflight requests, request counts and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		method := methodLabel(r.Method)

		m.requests.WithLabelValues(code, method).Inc()
		m.latency.WithLabelValues(code, method).Observe(time.Since(start).Seconds())
	})
}

// methodLabel bounds the method label to the verbs the gateway serves.
func methodLabel(method string) string {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "OTHER"
	}
}

// Observe records one bucket operation.
func (m *Metrics) Observe(binding, operation string, err error, dur time.Duration) {
	m.ops.WithLabelValues(binding, operation, resultOf(err)).Inc()
	m.opsLatency.WithLabelValues(binding, operation).Observe(dur.Seconds())
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, bucketgate.ErrNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}
