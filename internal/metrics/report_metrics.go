// Package metrics defines report-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Report counter vectors
var (
	ReportRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradestats",
		Name:      "report_runs_total",
		Help:      "Total number of report runs by status",
	}, []string{"status"})
)

// Report histograms
var (
	ReportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tradestats",
		Name:      "report_duration_seconds",
		Help:      "Duration of report computation in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Report gauge vectors
var (
	GroupTrades = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tradestats",
		Name:      "group_trades",
		Help:      "Classified trades per canonical key in the latest report",
	}, []string{"report", "key"})
)

// RecordReportRun records a report run.
// status should be one of: "success", "cached", "schema_error", "failure"
func RecordReportRun(status string, durationSeconds float64) {
	ReportRunsTotal.WithLabelValues(status).Inc()
	ReportDuration.Observe(durationSeconds)
}

// SetGroupTrades sets the trade count of one group of the latest report.
func SetGroupTrades(report, key string, count int) {
	GroupTrades.WithLabelValues(report, key).Set(float64(count))
}
