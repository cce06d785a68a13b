package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crisis_router"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// router and publisher roles.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	ParseErrors      prometheus.Counter
	IncidentsRouted  prometheus.Counter
	SerializeErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Fan-out metrics.
	Publishes           *prometheus.CounterVec // labels: agency, outcome={success,failed}
	AgenciesPerIncident prometheus.Histogram
	DispatchDuration    prometheus.Histogram

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Publisher role.
	IncidentsEmitted *prometheus.CounterVec // labels: outcome={success,failed}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MessagesConsumed,
		m.ParseErrors,
		m.IncidentsRouted,
		m.SerializeErrors,
		m.PipelineRunning,
		m.Publishes,
		m.AgenciesPerIncident,
		m.DispatchDuration,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.IncidentsEmitted,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the inbound topic space.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Inbound messages skipped because the payload was not a JSON object.",
		}),
		IncidentsRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_routed_total",
			Help:      "Total incidents classified by the rule engine.",
		}),
		SerializeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serialize_errors_total",
			Help:      "Incidents dropped because they could not be encoded for fan-out.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Per-agency publish attempts by outcome.",
		}, []string{"agency", "outcome"}),
		AgenciesPerIncident: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agencies_per_incident",
			Help:      "Number of agencies an incident was routed to.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7},
		}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time to fan one incident out to all of its agencies.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch read from the broker.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete consume-route-dispatch cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		IncidentsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_emitted_total",
			Help:      "Synthetic incidents published by the publisher role.",
		}, []string{"outcome"}),
	}
}
