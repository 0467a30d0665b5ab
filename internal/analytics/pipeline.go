package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/tradestats/internal/cache"
	"github.com/yourusername/tradestats/internal/logger"
	"github.com/yourusername/tradestats/internal/metrics"
	"github.com/yourusername/tradestats/internal/models"
	"github.com/yourusername/tradestats/internal/service"
)

// Pipeline runs normalization and report assembly over a dataset.
type Pipeline struct {
	normalizer *service.TradeNormalizer
	opts       ReportOptions
	logger     *logger.AnalyticsLogger
	cache      *cache.ReportCache[*Report]
}

// NewPipeline creates a new report pipeline
func NewPipeline(normalizer *service.TradeNormalizer, opts ReportOptions, baseLogger *logrus.Logger) *Pipeline {
	if baseLogger == nil {
		baseLogger = logrus.New()
		baseLogger.SetLevel(logrus.PanicLevel)
	}
	if normalizer == nil {
		normalizer = service.NewTradeNormalizer(service.DefaultNormalizerOptions(), baseLogger)
	}
	return &Pipeline{
		normalizer: normalizer,
		opts:       opts,
		logger:     logger.NewAnalyticsLogger(baseLogger),
	}
}

// WithCache makes Run reuse reports of datasets it has already seen.
func (p *Pipeline) WithCache(c *cache.ReportCache[*Report]) *Pipeline {
	p.cache = c
	return p
}

// Run normalizes ds and assembles the report. A SchemaError aborts the run;
// row-level defects are excluded and accounted for in Report.Counts.
func (p *Pipeline) Run(ds *models.Dataset) (*Report, error) {
	start := time.Now()

	result, err := p.normalizer.Normalize(ds)
	if err != nil {
		status := "failure"
		if errors.Is(err, models.ErrSchema) {
			status = "schema_error"
		}
		metrics.RecordReportRun(status, time.Since(start).Seconds())
		p.logger.LogReportFailure("normalize", err)
		return nil, err
	}
	metrics.RecordRows(result.ValidTrades(), result.InvalidProfit, result.DroppedEntryTime)
	p.logger.LogNormalization(result.InputRows, result.DroppedEntryTime, result.InvalidProfit, result.ValidTrades())

	var key cache.Key
	if p.cache != nil {
		key = p.cacheKey(result)
		if cached, ok := p.cache.Get(key); ok {
			metrics.RecordReportRun("cached", time.Since(start).Seconds())
			p.logger.WithField("dataset_id", key.DatasetID.String()).Debug("Report served from cache")
			return cached, nil
		}
	}

	report, err := BuildReport(result, p.opts)
	if err != nil {
		metrics.RecordReportRun("failure", time.Since(start).Seconds())
		p.logger.LogReportFailure("assemble", err)
		return nil, err
	}

	for _, d := range report.Daily {
		metrics.SetGroupTrades("daily", d.EntryDay, d.Total)
	}
	for _, o := range report.Outcomes {
		metrics.SetGroupTrades("outcomes", o.EntryDay, o.Total)
	}

	if p.cache != nil {
		p.cache.Set(key, report)
	}

	elapsed := time.Since(start)
	metrics.RecordReportRun("success", elapsed.Seconds())
	p.logger.LogReport(report.DatasetID.String(), len(report.Daily), len(report.Outcomes),
		report.Counts.OutsideDailyDays, elapsed)
	return report, nil
}

// cacheKey identifies a report by dataset content and options. Listed trades
// carry source row numbers, so with IncludeTrades the row layout joins the key.
func (p *Pipeline) cacheKey(result *service.NormalizeResult) cache.Key {
	options := p.opts.fingerprint()
	if p.opts.IncludeTrades {
		rows := make([]string, len(result.Trades))
		for i, t := range result.Trades {
			rows[i] = strconv.Itoa(t.Row)
		}
		sum := sha256.Sum256([]byte(strings.Join(rows, ",")))
		options += ";rows=" + hex.EncodeToString(sum[:8])
	}
	return cache.Key{DatasetID: DatasetID(result), Options: options}
}

func (o ReportOptions) fingerprint() string {
	return fmt.Sprintf("daily=%v;outcomes=%v;mfe=%v;trades=%t",
		o.DailyDays, o.OutcomeDays, o.ExcursionPercentiles, o.IncludeTrades)
}
