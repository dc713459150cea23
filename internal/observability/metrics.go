package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert pipeline.
type Metrics struct {
	CandidatesFetched    *prometheus.CounterVec // labels: source
	FetchErrors          *prometheus.CounterVec // labels: source
	FetchDuration        *prometheus.HistogramVec
	DuplicatesSuppressed *prometheus.CounterVec // labels: stage={store_hash,store_proximity,ledger,shown}

	ActiveAlerts       prometheus.Gauge
	GeofenceChecks     prometheus.Counter
	EvaluationDuration prometheus.Histogram
	MonitorRunning     prometheus.Gauge

	NotificationsDelivered *prometheus.CounterVec // labels: backend
	DeliveryErrors         prometheus.Counter
	ExportErrors           prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CandidatesFetched,
		m.FetchErrors,
		m.FetchDuration,
		m.DuplicatesSuppressed,
		m.ActiveAlerts,
		m.GeofenceChecks,
		m.EvaluationDuration,
		m.MonitorRunning,
		m.NotificationsDelivered,
		m.DeliveryErrors,
		m.ExportErrors,
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
		CandidatesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertd",
			Name:      "candidates_fetched_total",
			Help:      "Candidate alerts produced by each source adapter.",
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertd",
			Name:      "fetch_errors_total",
			Help:      "Upstream feed failures per source (each is skipped, not retried).",
		}, []string{"source"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alertd",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream feed request duration per source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		DuplicatesSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertd",
			Name:      "duplicates_suppressed_total",
			Help:      "Alerts suppressed by each deduplication stage.",
		}, []string{"stage"}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alertd",
			Name:      "active_alerts",
			Help:      "Currently active alerts in the store.",
		}),
		GeofenceChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alertd",
			Name:      "geofence_checks_total",
			Help:      "Alert-versus-location containment evaluations.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alertd",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a complete fetch-merge-evaluate pass.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alertd",
			Name:      "monitor_running",
			Help:      "1 when the monitoring loop is active, 0 when shut down.",
		}),
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertd",
			Name:      "notifications_delivered_total",
			Help:      "Notifications dispatched per backend.",
		}, []string{"backend"}),
		DeliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alertd",
			Name:      "delivery_errors_total",
			Help:      "Backend dispatch failures (notification still recorded).",
		}),
		ExportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alertd",
			Name:      "export_errors_total",
			Help:      "Best-effort Kafka export failures.",
		}),
	}
}
