package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ecowitt"

// Metrics holds the Prometheus counters, histograms, and gauges for the ingest service.
type Metrics struct {
	ReportsReceived     prometheus.Counter
	ReportsRejected     prometheus.Counter
	FieldDecodeErrors   prometheus.Counter
	UnrecognizedFields  prometheus.Counter
	NormalizeDuration   prometheus.Histogram
	LastReportTimestamp prometheus.Gauge
	PipelineReady       prometheus.Gauge

	// Sensor discovery metrics.
	SensorsDiscovered prometheus.Counter
	SensorsKnown      prometheus.Gauge

	// Dispatch metrics.
	DispatchOutcomes *prometheus.CounterVec   // labels: subscriber, outcome={success,error,timeout}
	DispatchDuration *prometheus.HistogramVec // labels: subscriber
	SinkEnabled      *prometheus.GaugeVec     // labels: sink={kafka,mqtt,nats,websocket}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_received_total",
			Help:      "Total station reports accepted for normalization.",
		}),
		ReportsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_rejected_total",
			Help:      "Total uploads whose body could not be read.",
		}),
		FieldDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_decode_errors_total",
			Help:      "Total fields kept as raw text because they failed to decode.",
		}),
		UnrecognizedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unrecognized_fields_total",
			Help:      "Total fields received that are absent from the field catalog.",
		}),
		NormalizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "normalize_duration_seconds",
			Help:      "Duration of normalizing a report and updating the sensor registry.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		LastReportTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_report_timestamp_seconds",
			Help:      "Unix time of the most recent accepted report.",
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_ready",
			Help:      "1 once the first report has been processed, 0 before.",
		}),
		SensorsDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensors_discovered_total",
			Help:      "Total sensors discovered since start.",
		}),
		SensorsKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensors_known",
			Help:      "Number of sensors currently in the registry.",
		}),
		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Report deliveries by subscriber and outcome.",
		}, []string{"subscriber", "outcome"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Report delivery duration by subscriber.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"subscriber"}),
		SinkEnabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sink_enabled",
			Help:      "1 when the named sink is enabled, 0 otherwise.",
		}, []string{"sink"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReportsReceived,
		m.ReportsRejected,
		m.FieldDecodeErrors,
		m.UnrecognizedFields,
		m.NormalizeDuration,
		m.LastReportTimestamp,
		m.PipelineReady,
		m.SensorsDiscovered,
		m.SensorsKnown,
		m.DispatchOutcomes,
		m.DispatchDuration,
		m.SinkEnabled,
	}
}
