// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Gate metrics
	CoverageGateFailures *prometheus.CounterVec
	SLAGateFailures      *prometheus.CounterVec
	SLAGateWarnings      prometheus.Counter

	// Execution metrics
	TradesProcessed  prometheus.Counter
	EventsProcessed  *prometheus.CounterVec
	RejectedOrders   prometheus.Counter
	RejectedFills    prometheus.Counter

	// Storage metrics
	BarsFetched prometheus.Counter

	// Verification metrics
	VerificationsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "backtest_lab"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by terminal status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		CoverageGateFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "coverage_failures_total",
			Help:      "Total number of coverage gate failures by status",
		}, []string{"status"}),
		SLAGateFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "sla_failures_total",
			Help:      "Total number of fatal SLA violations by code",
		}, []string{"code"}),
		SLAGateWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "sla_warnings_total",
			Help:      "Total number of non-fatal SLA warnings",
		}),

		TradesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_total",
			Help:      "Total number of realized closes produced",
		}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_total",
			Help:      "Total number of events applied to the ledger by kind",
		}, []string{"kind"}),
		RejectedOrders: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rejected_orders_total",
			Help:      "Total number of orders excluded during construction",
		}),
		RejectedFills: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rejected_fills_total",
			Help:      "Total number of events rejected by the ledger",
		}),

		BarsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "bars_fetched_total",
			Help:      "Total number of bars loaded from the bar store",
		}),

		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "verifications_total",
			Help:      "Total number of run verifications by result",
		}, []string{"result"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a completed run with its terminal status.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordCoverageFailure records a coverage gate failure.
func RecordCoverageFailure(status string) {
	DefaultMetrics.CoverageGateFailures.WithLabelValues(status).Inc()
}

// RecordSLAFailure records a fatal SLA violation.
func RecordSLAFailure(code string) {
	DefaultMetrics.SLAGateFailures.WithLabelValues(code).Inc()
}

// RecordSLAWarning records a non-fatal SLA warning.
func RecordSLAWarning() {
	DefaultMetrics.SLAGateWarnings.Inc()
}

// RecordExecution records one engine run's counters.
func RecordExecution(entries, exits, rejectedFills, trades int) {
	DefaultMetrics.EventsProcessed.WithLabelValues("ENTRY").Add(float64(entries))
	DefaultMetrics.EventsProcessed.WithLabelValues("EXIT").Add(float64(exits))
	DefaultMetrics.RejectedFills.Add(float64(rejectedFills))
	DefaultMetrics.TradesProcessed.Add(float64(trades))
}

// RecordRejectedOrders records orders excluded during construction.
func RecordRejectedOrders(n int) {
	DefaultMetrics.RejectedOrders.Add(float64(n))
}

// RecordBarsFetched records bars loaded for a run.
func RecordBarsFetched(n int) {
	DefaultMetrics.BarsFetched.Add(float64(n))
}

// RecordVerification records a verification outcome.
func RecordVerification(match bool) {
	result := "match"
	if !match {
		result = "divergent"
	}
	DefaultMetrics.VerificationsTotal.WithLabelValues(result).Inc()
}
