package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AnalyticsLogger provides dedicated logging for report pipeline operations.
type AnalyticsLogger struct {
	*logrus.Entry
}

// NewAnalyticsLogger creates a new analytics logger.
func NewAnalyticsLogger(baseLogger *logrus.Logger) *AnalyticsLogger {
	return &AnalyticsLogger{
		Entry: baseLogger.WithField("component", "analytics"),
	}
}

// LogSourceLoaded logs a completed dataset load.
func (al *AnalyticsLogger) LogSourceLoaded(source string, rows, columns int, duration time.Duration) {
	al.WithFields(logrus.Fields{
		"source":      source,
		"rows":        rows,
		"columns":     columns,
		"duration_ms": duration.Milliseconds(),
	}).Info("Dataset loaded")
}

// LogNormalization logs row accounting of a normalization pass.
func (al *AnalyticsLogger) LogNormalization(inputRows, droppedEntryTime, invalidProfit, validTrades int) {
	entry := al.WithFields(logrus.Fields{
		"input_rows":         inputRows,
		"dropped_entry_time": droppedEntryTime,
		"invalid_profit":     invalidProfit,
		"valid_trades":       validTrades,
	})
	if droppedEntryTime > 0 || invalidProfit > 0 {
		entry.Warn("Dataset normalized with excluded rows")
		return
	}
	entry.Info("Dataset normalized")
}

// LogReport logs a completed report.
func (al *AnalyticsLogger) LogReport(datasetID string, dailyKeys, outcomeKeys, outsideKeys int, duration time.Duration) {
	al.WithFields(logrus.Fields{
		"dataset_id":   datasetID,
		"daily_keys":   dailyKeys,
		"outcome_keys": outcomeKeys,
		"outside_keys": outsideKeys,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Report assembled")
}

// LogReportFailure logs a failed report run.
func (al *AnalyticsLogger) LogReportFailure(stage string, err error) {
	al.WithFields(logrus.Fields{
		"stage": stage,
	}).WithError(err).Error("Report failed")
}
