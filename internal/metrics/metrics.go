// Package metrics holds the Prometheus collectors for scan decoding.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	ScansTotal     *prometheus.CounterVec
	DecodeErrors   *prometheus.CounterVec
	DecodeDuration prometheus.Histogram
	LegsDecoded    prometheus.Counter
	StoreErrors    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "The total number of scans processed, by parser and outcome",
		}, []string{"parser", "outcome"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "The total number of boarding pass decode failures, by error kind",
		}, []string{"kind"}),
		DecodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time taken to decode one scan",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),
		LegsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legs_decoded_total",
			Help:      "The total number of flight legs decoded",
		}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "The total number of storage failures, by backend",
		}, []string{"backend"}),
		gatherer: reg,
	}
}

// ObserveScan records one dispatched scan. kind is empty on success.
func (m *Metrics) ObserveScan(parser, kind string, legs int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind != "" {
		outcome = "error"
		m.DecodeErrors.WithLabelValues(kind).Inc()
	}
	m.ScansTotal.WithLabelValues(parser, outcome).Inc()
	m.LegsDecoded.Add(float64(legs))
	m.DecodeDuration.Observe(d.Seconds())
}

// ObserveStoreError counts a failed write to backend.
func (m *Metrics) ObserveStoreError(backend string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(backend).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
