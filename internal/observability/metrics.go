package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flare_heat_flux"

// Metrics holds the Prometheus collectors for the calculator service.
type Metrics struct {
	Calculations        *prometheus.CounterVec   // labels: operation={heat_release,flux,safe_distance,report}
	DomainErrors        *prometheus.CounterVec   // labels: operation
	InputRejections     *prometheus.CounterVec   // labels: field
	ReportCache         *prometheus.CounterVec   // labels: result={hit,miss}
	ReportsPublished    *prometheus.CounterVec   // labels: outcome={success,error}
	CalculationDuration *prometheus.HistogramVec // labels: operation
	SessionsActive      prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Completed model calculations by operation.",
		}, []string{"operation"}),
		DomainErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_errors_total",
			Help:      "Calculations rejected for out-of-domain arguments.",
		}, []string{"operation"}),
		InputRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_rejections_total",
			Help:      "Session field edits ignored because the value was invalid.",
		}, []string{"field"}),
		ReportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_total",
			Help:      "Session report lookups by memoization result.",
		}, []string{"result"}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Reports handed to the audit publisher by outcome.",
		}, []string{"outcome"}),
		CalculationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_seconds",
			Help:      "Wall time of a model calculation.",
			Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
		}, []string{"operation"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Interactive calculator sessions currently held.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Calculations,
		m.DomainErrors,
		m.InputRejections,
		m.ReportCache,
		m.ReportsPublished,
		m.CalculationDuration,
		m.SessionsActive,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
