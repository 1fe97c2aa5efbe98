package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "level_profile"

// Metrics holds the Prometheus counters, histograms, and gauges for a profiling run.
type Metrics struct {
	RecordsRead     prometheus.Counter
	RecordsDropped  *prometheus.CounterVec // labels: reason={malformed_timestamp,non_numeric_value}
	Observations    prometheus.Counter
	Buckets         prometheus.Gauge
	Outliers        *prometheus.CounterVec // labels: severity={mild,extreme}
	SinkErrors      *prometheus.CounterVec // labels: sink
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge
	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all profiler metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// multiple tests can build their own.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// Register adds every metric to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsRead,
		m.RecordsDropped,
		m.Observations,
		m.Buckets,
		m.Outliers,
		m.SinkErrors,
		m.RunDuration,
		m.LastSuccess,
		m.PipelineRunning,
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Total raw rows read from daily input files.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Raw rows rejected during loading, by reason.",
		}, []string{"reason"}),
		Observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Total validated observations fed to the aggregator.",
		}),
		Buckets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buckets",
			Help:      "Number of minute buckets in the latest profile.",
		}),
		Outliers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outliers_total",
			Help:      "Outliers detected, by severity.",
		}, []string{"severity"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed writes of a profile to a result sink.",
		}, []string{"sink"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-analyze-load run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without errors.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
	}
}
