package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/yourusername/tradestats/internal/models"
	"github.com/yourusername/tradestats/internal/stats"
)

// NormalizerOptions names the dataset columns and the location used for
// weekday derivation.
type NormalizerOptions struct {
	EntryTimeColumn string
	ProfitColumn    string
	MFEColumn       string
	Location        *time.Location
}

// DefaultNormalizerOptions returns the column names written by the R-multiple loader.
func DefaultNormalizerOptions() NormalizerOptions {
	return NormalizerOptions{
		EntryTimeColumn: models.ColumnEntryTime,
		ProfitColumn:    models.ColumnProfitR,
		MFEColumn:       models.ColumnMFER,
		Location:        time.UTC,
	}
}

// NormalizeResult holds the canonical trades and row accounting.
type NormalizeResult struct {
	Trades           []models.TradeRecord
	InputRows        int
	DroppedEntryTime int
	InvalidProfit    int
}

// ValidTrades returns the number of trades with a defined profit.
func (r *NormalizeResult) ValidTrades() int {
	return len(r.Trades) - r.InvalidProfit
}

// TradeNormalizer converts raw dataset rows into TradeRecords
type TradeNormalizer struct {
	opts   NormalizerOptions
	logger logrus.FieldLogger
}

// NewTradeNormalizer creates a new trade normalizer
func NewTradeNormalizer(opts NormalizerOptions, logger logrus.FieldLogger) *TradeNormalizer {
	defaults := DefaultNormalizerOptions()
	if opts.EntryTimeColumn == "" {
		opts.EntryTimeColumn = defaults.EntryTimeColumn
	}
	if opts.ProfitColumn == "" {
		opts.ProfitColumn = defaults.ProfitColumn
	}
	if opts.Location == nil {
		opts.Location = defaults.Location
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &TradeNormalizer{opts: opts, logger: logger}
}

type parsedRow struct {
	index int
	row   models.RawRow
	entry time.Time
	ok    bool
}

// Normalize validates the schema, drops rows without a usable entry time, sorts
// by entry time and derives the entry weekday. Rows with an unusable profit are
// kept with an undefined ProfitR.
func (n *TradeNormalizer) Normalize(ds *models.Dataset) (*NormalizeResult, error) {
	if ds == nil {
		return nil, &models.InvalidInputError{Field: "dataset", Reason: "dataset is nil"}
	}
	if missing := ds.MissingColumns(n.opts.EntryTimeColumn, n.opts.ProfitColumn); len(missing) > 0 {
		return nil, &models.SchemaError{Missing: missing}
	}
	hasMFE := n.opts.MFEColumn != "" && ds.HasColumn(n.opts.MFEColumn)

	parsed := make([]parsedRow, len(ds.Rows))
	for i, row := range ds.Rows {
		entry, err := n.parseEntryTime(row[n.opts.EntryTimeColumn])
		parsed[i] = parsedRow{index: i + 1, row: row, entry: entry, ok: err == nil}
		if err != nil {
			n.logger.WithFields(logrus.Fields{
				"row":    i + 1,
				"column": n.opts.EntryTimeColumn,
			}).WithError(err).Debug("Dropping row without usable entry time")
		}
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		if parsed[i].ok != parsed[j].ok {
			return parsed[i].ok
		}
		return parsed[i].entry.Before(parsed[j].entry)
	})

	result := &NormalizeResult{
		Trades:    make([]models.TradeRecord, 0, len(parsed)),
		InputRows: len(ds.Rows),
	}
	for _, p := range parsed {
		if !p.ok {
			result.DroppedEntryTime++
			continue
		}

		trade := models.TradeRecord{
			Row:       p.index,
			EntryTime: p.entry,
			EntryDay:  p.entry.Weekday(),
			ProfitR:   coerceFloat(p.row[n.opts.ProfitColumn]),
			MFER:      stats.Undefined(),
		}
		if hasMFE {
			trade.MFER = coerceFloat(p.row[n.opts.MFEColumn])
		}
		if !trade.HasProfit() {
			result.InvalidProfit++
			n.logger.WithFields(logrus.Fields{
				"row":    p.index,
				"column": n.opts.ProfitColumn,
				"value":  p.row[n.opts.ProfitColumn],
			}).Debug("Profit value is not numeric, trade excluded from statistics")
		}
		result.Trades = append(result.Trades, trade)
	}

	return result, nil
}

// parseEntryTime converts a cell to a time in the configured location.
func (n *TradeNormalizer) parseEntryTime(v any) (time.Time, error) {
	if isBlank(v) {
		return time.Time{}, fmt.Errorf("entry time is empty")
	}
	switch x := v.(type) {
	case string:
		v = strings.TrimSpace(x)
	case float64:
		// unix seconds decoded as a float, e.g. from a numeric database column
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return time.Time{}, fmt.Errorf("entry time %v is not whole unix seconds", x)
		}
		v = int64(x)
	}
	t, err := cast.ToTimeInDefaultLocationE(v, n.opts.Location)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("entry time is zero")
	}
	return t.In(n.opts.Location), nil
}

// coerceFloat converts a cell to a defined number, or undefined when the cell
// is empty, non-numeric or non-finite.
func coerceFloat(v any) stats.Value {
	if isBlank(v) {
		return stats.Undefined()
	}
	switch x := v.(type) {
	case bool, *bool:
		return stats.Undefined()
	case string:
		v = strings.TrimSpace(x)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return stats.Undefined()
	}
	return stats.Defined(f)
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case *string:
		return x == nil || strings.TrimSpace(*x) == ""
	case *float64:
		return x == nil
	case *time.Time:
		return x == nil
	}
	return false
}
