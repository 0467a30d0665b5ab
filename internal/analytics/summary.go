package analytics

import (
	"sort"
	"time"

	"github.com/yourusername/tradestats/internal/models"
	"github.com/yourusername/tradestats/internal/stats"
)

// DaySummary is the R-multiple performance of trades entered on one weekday.
type DaySummary struct {
	Day         time.Weekday `json:"-"`
	EntryDay    string       `json:"entry_day"`
	Wins        int          `json:"wins"`
	Losses      int          `json:"losses"`
	Breakevens  int          `json:"breakevens"`
	Total       int          `json:"total"`
	Invalid     int          `json:"invalid"`
	Expectancy  stats.Value  `json:"expectancy"`
	WinRate     float64      `json:"win_rate"`
	AvgWin      stats.Value  `json:"avg_win"`
	AvgLoss     stats.Value  `json:"avg_loss"`
	MedianR     stats.Value  `json:"median_r"`
	LargestWin  stats.Value  `json:"largest_win"`
	LargestLoss stats.Value  `json:"largest_loss"`
}

// OutcomeCell is the count and share of one outcome within a day.
type OutcomeCell struct {
	Outcome models.Outcome `json:"outcome"`
	Count   int            `json:"count"`
	Percent float64        `json:"percent"`
}

// OutcomeRow is one day of the trade count report, with cells in
// Win, Loss, Breakeven order.
type OutcomeRow struct {
	Day      time.Weekday  `json:"-"`
	EntryDay string        `json:"entry_day"`
	Cells    []OutcomeCell `json:"cells"`
	Total    int           `json:"total"`
}

// Cell returns the cell for outcome o.
func (r OutcomeRow) Cell(o models.Outcome) OutcomeCell {
	for _, c := range r.Cells {
		if c.Outcome == o {
			return c
		}
	}
	return OutcomeCell{Outcome: o}
}

// PercentileValue is a quantile level and its value.
type PercentileValue struct {
	P     float64     `json:"p"`
	Value stats.Value `json:"value"`
}

// ExcursionProfile describes the MFE distribution of losing trades.
type ExcursionProfile struct {
	Count       int               `json:"count"`
	Median      stats.Value       `json:"median"`
	Percentiles []PercentileValue `json:"percentiles"`
	Values      []float64         `json:"values"`
}

// AssembleDaily builds one DaySummary per day in days, in that order. Trades
// without a defined profit only count towards Invalid. The second return value
// is the number of classified trades whose day is not in days.
func AssembleDaily(trades []models.TradeRecord, days []time.Weekday) ([]DaySummary, int, error) {
	grouped, err := GroupByDay(trades, days)
	if err != nil {
		return nil, 0, err
	}
	invalid, err := GroupBy(trades, days, func(t models.TradeRecord) (time.Weekday, bool) {
		return t.EntryDay, !t.HasProfit()
	})
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]DaySummary, 0, len(days))
	for i, grp := range grouped.Groups {
		s := summarizeDay(grp.Key, grp.Trades)
		s.Invalid = len(invalid.Groups[i].Trades)
		summaries = append(summaries, s)
	}
	return summaries, grouped.Outside, nil
}

func summarizeDay(day time.Weekday, trades []models.TradeRecord) DaySummary {
	values := profits(trades)
	var wins, losses []float64
	breakevens := 0
	for _, v := range values {
		switch models.OutcomeOf(v) {
		case models.OutcomeWin:
			wins = append(wins, v)
		case models.OutcomeLoss:
			losses = append(losses, v)
		default:
			breakevens++
		}
	}

	return DaySummary{
		Day:         day,
		EntryDay:    day.String(),
		Wins:        len(wins),
		Losses:      len(losses),
		Breakevens:  breakevens,
		Total:       len(values),
		Expectancy:  stats.Mean(values),
		WinRate:     stats.Percent(len(wins), len(values)),
		AvgWin:      stats.Mean(wins),
		AvgLoss:     stats.Mean(losses),
		MedianR:     stats.Median(values),
		LargestWin:  stats.Max(wins),
		LargestLoss: stats.Min(losses),
	}
}

// AssembleOutcomes builds one OutcomeRow per day in days with counts and
// percentages per outcome. Percentages are 0 for days without trades.
func AssembleOutcomes(trades []models.TradeRecord, days []time.Weekday) ([]OutcomeRow, int, error) {
	grouped, err := GroupByDayOutcome(trades, days)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]OutcomeRow, 0, len(days))
	for _, day := range days {
		row := OutcomeRow{Day: day, EntryDay: models.DayCode(day)}
		for _, o := range models.Outcomes {
			grp, _ := grouped.Get(DayOutcome{Day: day, Outcome: o})
			row.Total += len(grp.Trades)
			row.Cells = append(row.Cells, OutcomeCell{Outcome: o, Count: len(grp.Trades)})
		}
		for i := range row.Cells {
			row.Cells[i].Percent = stats.Percent(row.Cells[i].Count, row.Total)
		}
		rows = append(rows, row)
	}
	return rows, grouped.Outside, nil
}

// AssembleExcursions profiles the MFE of losing trades that carry an MFE value.
// levels are quantile levels in [0,1].
func AssembleExcursions(trades []models.TradeRecord, levels []float64) (ExcursionProfile, error) {
	values := make([]float64, 0)
	for _, t := range trades {
		profit, ok := t.ProfitR.Get()
		if !ok || models.OutcomeOf(profit) != models.OutcomeLoss {
			continue
		}
		if mfe, ok := t.MFER.Get(); ok {
			values = append(values, mfe)
		}
	}

	profile := ExcursionProfile{
		Count:       len(values),
		Median:      stats.Median(values),
		Percentiles: make([]PercentileValue, 0, len(levels)),
		Values:      sortedValues(values),
	}
	for _, p := range levels {
		v, err := stats.Percentile(values, p)
		if err != nil {
			return ExcursionProfile{}, &models.InvalidInputError{Field: "percentile", Value: p, Reason: err.Error()}
		}
		profile.Percentiles = append(profile.Percentiles, PercentileValue{P: p, Value: v})
	}
	return profile, nil
}

func sortedValues(values []float64) []float64 {
	out := append([]float64{}, values...)
	sort.Float64s(out)
	return out
}
