// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes the service's Prometheus metrics.
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

const namespace = "audclass"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline
	StageDuration      *prometheus.HistogramVec
	StageErrors        *prometheus.CounterVec
	PreprocessInFlight prometheus.Gauge

	// Models
	ModelInferences *prometheus.CounterVec
	ModelDuration   *prometheus.HistogramVec
}

// New creates and registers all metrics, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"stage"}),
		StageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Total number of failed pipeline stages",
		}, []string{"stage"}),
		PreprocessInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "preprocess_in_flight",
			Help:      "Requests currently holding a preprocessing slot",
		}),

		ModelInferences: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_inferences_total",
			Help:      "Total number of model runs by outcome",
		}, []string{"model", "outcome"}),
		ModelDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_duration_seconds",
			Help:      "Time spent running one model",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"model"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordHTTPRequest records a finished request.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// StageDone implements audclass.Observer.
func (m *Metrics) StageDone(stage string, d time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

// ModelDone implements audclass.Observer.
func (m *Metrics) ModelDone(model string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ModelInferences.WithLabelValues(model, outcome).Inc()
	m.ModelDuration.WithLabelValues(model).Observe(d.Seconds())
}

// InFlight implements audclass.Observer.
func (m *Metrics) InFlight(delta int) {
	m.PreprocessInFlight.Add(float64(delta))
}
