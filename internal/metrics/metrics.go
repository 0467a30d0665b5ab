// Package metrics provides the Prometheus metrics registry for trade reports.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Row status labels
const (
	RowStatusValid            = "valid"
	RowStatusInvalidProfit    = "invalid_profit"
	RowStatusDroppedEntryTime = "dropped_entry_time"
)

// Counter metrics
var (
	RowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradestats",
		Name:      "rows_total",
		Help:      "Dataset rows seen by the normalizer, by status",
	}, []string{"status"})
	SourceLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradestats",
		Name:      "source_loads_total",
		Help:      "Dataset loads by source kind and status",
	}, []string{"source", "status"})
	ReportCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradestats",
		Name:      "report_cache_hits_total",
		Help:      "Reports served from cache instead of being recomputed",
	})
)

// Histogram metrics
var (
	SourceLoadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tradestats",
		Name:      "source_load_duration_seconds",
		Help:      "Duration of dataset loads in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RowsTotal)
		registry.MustRegister(SourceLoadsTotal)
		registry.MustRegister(ReportCacheHitsTotal)
		registry.MustRegister(SourceLoadDuration)

		registry.MustRegister(ReportRunsTotal)
		registry.MustRegister(ReportDuration)
		registry.MustRegister(GroupTrades)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRows records normalizer row accounting.
func RecordRows(valid, invalidProfit, droppedEntryTime int) {
	RowsTotal.WithLabelValues(RowStatusValid).Add(float64(valid))
	RowsTotal.WithLabelValues(RowStatusInvalidProfit).Add(float64(invalidProfit))
	RowsTotal.WithLabelValues(RowStatusDroppedEntryTime).Add(float64(droppedEntryTime))
}

// RecordSourceLoad records a dataset load.
// status should be one of: "success", "failure"
func RecordSourceLoad(source, status string, durationSeconds float64) {
	SourceLoadsTotal.WithLabelValues(source, status).Inc()
	SourceLoadDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordCacheHit records a report served from cache.
func RecordCacheHit() {
	ReportCacheHitsTotal.Inc()
}
