// Package metrics exposes pipeline counters on a private Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "transactions"

// Metrics groups the collectors recorded by a pipeline run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RowsStaged      prometheus.Counter
	RowsSkipped     prometheus.Counter
	Statements      *prometheus.CounterVec
	StatementTime   *prometheus.HistogramVec
	Queries         *prometheus.CounterVec
	ConnectAttempts *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsStaged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_staged_total",
			Help:      "Source rows written to the staging table.",
		}),
		RowsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Source rows skipped because they could not be parsed or inserted.",
		}),
		Statements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Registry statements executed, by key and outcome.",
		}, []string{"key", "outcome"}),
		StatementTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_duration_seconds",
			Help:      "Registry statement latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"key"}),
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_queries_total",
			Help:      "Report queries, by key and outcome.",
		}, []string{"key", "outcome"}),
		ConnectAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Database connection attempts, by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStatement records one registry statement execution.
func (m *Metrics) ObserveStatement(key string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.Statements.WithLabelValues(key, outcome(err)).Inc()
	m.StatementTime.WithLabelValues(key).Observe(seconds)
}

// ObserveQuery records one report query.
func (m *Metrics) ObserveQuery(key string, err error) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(key, outcome(err)).Inc()
}

// ObserveConnect records one connection attempt.
func (m *Metrics) ObserveConnect(err error) {
	if m == nil {
		return
	}
	m.ConnectAttempts.WithLabelValues(outcome(err)).Inc()
}

// ObserveRows adds the staged and skipped counts of a load.
func (m *Metrics) ObserveRows(staged, skipped int) {
	if m == nil {
		return
	}
	m.RowsStaged.Add(float64(staged))
	m.RowsSkipped.Add(float64(skipped))
}
