// Package analytics groups normalized trades and assembles ordered summaries.
package analytics

import (
	"github.com/yourusername/tradestats/internal/models"
	"github.com/yourusername/tradestats/internal/stats"
)

// Classify maps a profit value to its outcome. An undefined profit cannot be
// classified and callers are expected to filter such trades first.
func Classify(profitR stats.Value) (models.Outcome, error) {
	v, ok := profitR.Get()
	if !ok {
		return "", &models.InvalidInputError{
			Field:  "profit_r",
			Reason: "cannot classify an absent profit value",
		}
	}
	return models.OutcomeOf(v), nil
}

// ClassifyTrades returns the classified view of every trade with a defined
// profit, in input order.
func ClassifyTrades(trades []models.TradeRecord) []models.ClassifiedTrade {
	out := make([]models.ClassifiedTrade, 0, len(trades))
	for _, t := range trades {
		profit, ok := t.ProfitR.Get()
		if !ok {
			continue
		}
		out = append(out, models.ClassifiedTrade{
			Row:       t.Row,
			EntryTime: t.EntryTime,
			EntryDay:  t.EntryDay.String(),
			ProfitR:   profit,
			MFER:      t.MFER,
			Outcome:   models.OutcomeOf(profit),
		})
	}
	return out
}

// profits returns the defined profit values of trades.
func profits(trades []models.TradeRecord) []float64 {
	values := make([]float64, 0, len(trades))
	for _, t := range trades {
		if v, ok := t.ProfitR.Get(); ok {
			values = append(values, v)
		}
	}
	return values
}
