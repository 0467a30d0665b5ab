package analytics

import (
	"fmt"
	"time"

	"github.com/yourusername/tradestats/internal/models"
)

// Group is one bucket of trades for a canonical key.
type Group[K comparable] struct {
	Key    K
	Trades []models.TradeRecord
}

// Grouping is the result of partitioning trades over a canonical key set.
type Grouping[K comparable] struct {
	Groups []Group[K]
	// Outside counts trades whose key is not part of the key set.
	Outside int
	// Skipped counts trades the key function declined.
	Skipped int
}

// Total returns the number of trades placed in a bucket.
func (g Grouping[K]) Total() int {
	total := 0
	for _, grp := range g.Groups {
		total += len(grp.Trades)
	}
	return total
}

// Get returns the bucket for key.
func (g Grouping[K]) Get(key K) (Group[K], bool) {
	for _, grp := range g.Groups {
		if grp.Key == key {
			return grp, true
		}
	}
	return Group[K]{}, false
}

// GroupBy partitions trades in one pass into a bucket per key of keys, in the
// order of keys. Every key gets a bucket, empty or not; the key set is never
// inferred from the data. keyOf returns false for trades that should not be
// grouped.
func GroupBy[K comparable](trades []models.TradeRecord, keys []K, keyOf func(models.TradeRecord) (K, bool)) (Grouping[K], error) {
	index := make(map[K]int, len(keys))
	groups := make([]Group[K], len(keys))
	for i, k := range keys {
		if _, dup := index[k]; dup {
			return Grouping[K]{}, &models.InvalidInputError{
				Field:  "key_set",
				Value:  fmt.Sprint(k),
				Reason: "duplicate key in canonical key set",
			}
		}
		index[k] = i
		groups[i] = Group[K]{Key: k, Trades: []models.TradeRecord{}}
	}

	result := Grouping[K]{Groups: groups}
	for _, t := range trades {
		k, ok := keyOf(t)
		if !ok {
			result.Skipped++
			continue
		}
		i, known := index[k]
		if !known {
			result.Outside++
			continue
		}
		result.Groups[i].Trades = append(result.Groups[i].Trades, t)
	}
	return result, nil
}

// GroupByDay buckets trades with a defined profit by entry weekday.
func GroupByDay(trades []models.TradeRecord, days []time.Weekday) (Grouping[time.Weekday], error) {
	return GroupBy(trades, days, func(t models.TradeRecord) (time.Weekday, bool) {
		return t.EntryDay, t.HasProfit()
	})
}

// DayOutcome is the two-dimensional key of the outcome count report.
type DayOutcome struct {
	Day     time.Weekday
	Outcome models.Outcome
}

// DayOutcomeKeys expands days × outcomes in day-major order.
func DayOutcomeKeys(days []time.Weekday, outcomes []models.Outcome) []DayOutcome {
	keys := make([]DayOutcome, 0, len(days)*len(outcomes))
	for _, d := range days {
		for _, o := range outcomes {
			keys = append(keys, DayOutcome{Day: d, Outcome: o})
		}
	}
	return keys
}

// GroupByDayOutcome buckets trades with a defined profit by weekday and outcome.
func GroupByDayOutcome(trades []models.TradeRecord, days []time.Weekday) (Grouping[DayOutcome], error) {
	keys := DayOutcomeKeys(days, models.Outcomes)
	return GroupBy(trades, keys, func(t models.TradeRecord) (DayOutcome, bool) {
		v, ok := t.ProfitR.Get()
		if !ok {
			return DayOutcome{}, false
		}
		return DayOutcome{Day: t.EntryDay, Outcome: models.OutcomeOf(v)}, true
	})
}
