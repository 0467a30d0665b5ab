package analytics

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/tradestats/internal/models"
	"github.com/yourusername/tradestats/internal/service"
	"github.com/yourusername/tradestats/internal/stats"
)

// DefaultExcursionPercentiles are the MFE quantile levels reported for losers.
var DefaultExcursionPercentiles = []float64{0.5, 0.7}

// datasetNamespace scopes dataset ids generated by this package.
var datasetNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("tradestats.dataset"))

// ReportOptions holds the canonical key sets and report switches.
type ReportOptions struct {
	DailyDays            []time.Weekday
	OutcomeDays          []time.Weekday
	ExcursionPercentiles []float64
	IncludeTrades        bool
}

// DefaultReportOptions returns the default key sets:
// Sunday to Saturday for daily R, Sunday to Friday for outcome counts.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		DailyDays:            append([]time.Weekday(nil), models.DefaultDailyDays...),
		OutcomeDays:          append([]time.Weekday(nil), models.DefaultOutcomeDays...),
		ExcursionPercentiles: append([]float64(nil), DefaultExcursionPercentiles...),
	}
}

// ReportCounts accounts for every input row.
type ReportCounts struct {
	InputRows          int `json:"input_rows"`
	DroppedEntryTime   int `json:"dropped_entry_time"`
	InvalidProfit      int `json:"invalid_profit"`
	ValidTrades        int `json:"valid_trades"`
	OutsideDailyDays   int `json:"outside_daily_days"`
	OutsideOutcomeDays int `json:"outside_outcome_days"`
}

// Report is the complete, ordered output handed to presentation layers.
type Report struct {
	DatasetID      uuid.UUID                `json:"dataset_id"`
	Counts         ReportCounts             `json:"counts"`
	Daily          []DaySummary             `json:"daily"`
	Outcomes       []OutcomeRow             `json:"outcomes"`
	LossExcursions ExcursionProfile         `json:"loss_excursions"`
	Trades         []models.ClassifiedTrade `json:"trades,omitempty"`
}

// BuildReport assembles every summary from a normalization result.
func BuildReport(result *service.NormalizeResult, opts ReportOptions) (*Report, error) {
	if result == nil {
		return nil, &models.InvalidInputError{Field: "normalize_result", Reason: "result is nil"}
	}
	if len(opts.DailyDays) == 0 || len(opts.OutcomeDays) == 0 {
		return nil, &models.InvalidInputError{Field: "key_set", Reason: "canonical day set is empty"}
	}

	daily, outsideDaily, err := AssembleDaily(result.Trades, opts.DailyDays)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	outcomes, outsideOutcome, err := AssembleOutcomes(result.Trades, opts.OutcomeDays)
	if err != nil {
		return nil, fmt.Errorf("outcome summary: %w", err)
	}
	excursions, err := AssembleExcursions(result.Trades, opts.ExcursionPercentiles)
	if err != nil {
		return nil, fmt.Errorf("excursion profile: %w", err)
	}

	report := &Report{
		DatasetID: DatasetID(result),
		Counts: ReportCounts{
			InputRows:          result.InputRows,
			DroppedEntryTime:   result.DroppedEntryTime,
			InvalidProfit:      result.InvalidProfit,
			ValidTrades:        result.ValidTrades(),
			OutsideDailyDays:   outsideDaily,
			OutsideOutcomeDays: outsideOutcome,
		},
		Daily:          daily,
		Outcomes:       outcomes,
		LossExcursions: excursions,
	}
	if opts.IncludeTrades {
		report.Trades = ClassifyTrades(result.Trades)
	}
	return report, nil
}

// DatasetID derives a stable id from the normalized content. Row order in the
// source does not affect it.
func DatasetID(result *service.NormalizeResult) uuid.UUID {
	lines := make([]string, 0, len(result.Trades))
	for _, t := range result.Trades {
		lines = append(lines, strings.Join([]string{
			strconv.FormatInt(t.EntryTime.UnixNano(), 10),
			formatValue(t.ProfitR),
			formatValue(t.MFER),
		}, "|"))
	}
	sort.Strings(lines)

	h := sha256.New()
	fmt.Fprintf(h, "rows=%d;dropped=%d;", result.InputRows, result.DroppedEntryTime)
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return uuid.NewSHA1(datasetNamespace, h.Sum(nil))
}

func formatValue(v stats.Value) string {
	f, ok := v.Get()
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
