// Package observability exposes Prometheus metrics for aggregation cycles
// and Athena queries. All methods are safe on a nil *Metrics.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/younsl/bucketpulse/internal/models"
)

const namespace = "bucketpulse"

// Metrics holds the collectors registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal        *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
	lastCycleTimestamp prometheus.Gauge
	prefixEvaluations  *prometheus.CounterVec
	prefixFailures     prometheus.Counter
	alertsCreated      *prometheus.CounterVec
	queriesTotal       *prometheus.CounterVec
	queryDuration      *prometheus.HistogramVec
}

// New registers all collectors, plus Go and process collectors, on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Aggregation cycles by outcome",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one aggregation cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastCycleTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last aggregation cycle finished",
		}),
		prefixEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefix_evaluations_total",
			Help:      "Persisted prefix evaluations by resulting status",
		}, []string{"status"}),
		prefixFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefix_failures_total",
			Help:      "Prefix iterations that failed and were skipped",
		}),
		alertsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Alerts created by severity and type",
		}, []string{"severity", "type"}),
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Athena queries by result shape and outcome",
		}, []string{"kind", "outcome"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Athena query latency including polling",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"kind"}),
	}
}

// Registry returns the private registry, for tests and custom exposition
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records a finished cycle
func (m *Metrics) ObserveCycle(outcome string, d time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(d.Seconds())
	m.lastCycleTimestamp.Set(float64(finishedAt.Unix()))
}

// ObserveEvaluation counts a persisted evaluation
func (m *Metrics) ObserveEvaluation(status models.StatusCode) {
	if m == nil {
		return
	}
	m.prefixEvaluations.WithLabelValues(string(status)).Inc()
}

// ObservePrefixFailure counts a failed prefix iteration
func (m *Metrics) ObservePrefixFailure() {
	if m == nil {
		return
	}
	m.prefixFailures.Inc()
}

// ObserveAlert counts a created alert
func (m *Metrics) ObserveAlert(severity models.Severity, alertType models.AlertType) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(string(severity), string(alertType)).Inc()
}

// ObserveQuery implements runner.Observer
func (m *Metrics) ObserveQuery(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(kind, outcome).Inc()
	m.queryDuration.WithLabelValues(kind).Observe(d.Seconds())
}
