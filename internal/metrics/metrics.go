// Package metrics exposes Prometheus collectors for analyses, history
// reads and writes, identity operations and connected clients.
//
// All metrics are namespaced "bugless_" and registered on a private
// registry served by Handler.
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

const namespace = "bugless"

// Metrics implements the observer interfaces of the review, history and
// identity packages.
type Metrics struct {
	registry *prometheus.Registry

	analyses        *prometheus.CounterVec
	analysisSeconds *prometheus.HistogramVec
	historyReads    *prometheus.CounterVec
	historySaves    *prometheus.CounterVec
	authOps         *prometheus.CounterVec
	clients         prometheus.Gauge
}

// New creates a registry with the Go and process collectors plus the
// bugless metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses by outcome (ok or failure kind).",
		}, []string{"outcome"}),
		analysisSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent waiting for the model.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"outcome"}),
		historyReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_reads_total",
			Help:      "History reads by the path that answered and the outcome.",
		}, []string{"path", "outcome"}),
		historySaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_saves_total",
			Help:      "History writes by success.",
		}, []string{"ok"}),
		authOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Identity operations by name and success.",
		}, []string{"op", "ok"}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients",
			Help:      "Browser clients with a live controller.",
		}),
	}
}

func (m *Metrics) ObserveAnalysis(outcome string, d time.Duration) {
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveHistoryRead(path, outcome string) {
	m.historyReads.WithLabelValues(path, outcome).Inc()
}

func (m *Metrics) ObserveHistorySave(ok bool) {
	m.historySaves.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) ObserveAuth(op string, ok bool) {
	m.authOps.WithLabelValues(op, strconv.FormatBool(ok)).Inc()
}

// SetClients records the number of live browser clients.
func (m *Metrics) SetClients(n int) {
	m.clients.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
