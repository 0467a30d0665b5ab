package models

import (
	"time"

	"github.com/yourusername/tradestats/internal/stats"
)

// TradeRecord is a normalized trade. Instances are never mutated after the
// normalizer returns them.
type TradeRecord struct {
	Row       int          `json:"row"`
	EntryTime time.Time    `json:"entry_time"`
	EntryDay  time.Weekday `json:"entry_day"`
	ProfitR   stats.Value  `json:"profit_r"`
	MFER      stats.Value  `json:"mfe_r"`
}

// HasProfit reports whether the trade takes part in statistics.
func (t TradeRecord) HasProfit() bool {
	return t.ProfitR.IsDefined()
}

// ClassifiedTrade is a trade with a defined profit and its outcome, the shape
// consumed by histogram renderers.
type ClassifiedTrade struct {
	Row       int         `json:"row"`
	EntryTime time.Time   `json:"entry_time"`
	EntryDay  string      `json:"entry_day"`
	ProfitR   float64     `json:"profit_r"`
	MFER      stats.Value `json:"mfe_r"`
	Outcome   Outcome     `json:"outcome"`
}
