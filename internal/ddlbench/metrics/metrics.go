package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPrefix = "ddlbench_"

// Metrics holds the collectors for one benchmark process. Each instance has its own registry so
// that several can coexist in tests.
type Metrics struct {
	registry          *prometheus.Registry
	queryLatency      *prometheus.HistogramVec
	queryFailures     *prometheus.CounterVec
	operationDuration *prometheus.GaugeVec
	operationFailures *prometheus.CounterVec
	taskLatency       *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		queryLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricsPrefix + "query_latency_seconds",
				Help:    "Latency of worker queries, by operation under test and worker role",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 18),
			},
			[]string{"operation", "role"},
		),
		queryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "query_failures_total",
				Help: "Number of failed worker queries, by operation under test and worker role",
			},
			[]string{"operation", "role"},
		),
		operationDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricsPrefix + "operation_duration_seconds",
				Help: "Wall clock duration of the last run of each schema operation",
			},
			[]string{"operation"},
		),
		operationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "operation_failures_total",
				Help: "Number of failed schema operation phases",
			},
			[]string{"operation", "phase"},
		),
		taskLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricsPrefix + "background_task_latency_seconds",
				Help:    "Background task latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
			},
			[]string{"task"},
		),
	}
}

func (m *Metrics) ObserveQuery(operation, role string, latency time.Duration) {
	if m == nil {
		return
	}
	m.queryLatency.WithLabelValues(operation, role).Observe(latency.Seconds())
}

func (m *Metrics) QueryFailed(operation, role string) {
	if m == nil {
		return
	}
	m.queryFailures.WithLabelValues(operation, role).Inc()
}

func (m *Metrics) ObserveOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Set(duration.Seconds())
}

// OperationFailed counts a failure of phase (prepare, perform or cleanup) of operation.
func (m *Metrics) OperationFailed(operation, phase string) {
	if m == nil {
		return
	}
	m.operationFailures.WithLabelValues(operation, phase).Inc()
}

// TaskLatency is the histogram handed to background task managers.
func (m *Metrics) TaskLatency() *prometheus.HistogramVec {
	if m == nil {
		return nil
	}
	return m.taskLatency
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
