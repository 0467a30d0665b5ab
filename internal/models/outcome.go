package models

// Outcome classifies a trade by the sign of its R-multiple profit.
type Outcome string

const (
	OutcomeWin       Outcome = "Win"
	OutcomeLoss      Outcome = "Loss"
	OutcomeBreakeven Outcome = "Breakeven"
)

// Outcomes is the fixed column order used by outcome reports.
var Outcomes = []Outcome{OutcomeWin, OutcomeLoss, OutcomeBreakeven}

// OutcomeOf maps a signed profit to its outcome. Zero (including -0) is Breakeven.
func OutcomeOf(profitR float64) Outcome {
	switch {
	case profitR > 0:
		return OutcomeWin
	case profitR < 0:
		return OutcomeLoss
	default:
		return OutcomeBreakeven
	}
}
