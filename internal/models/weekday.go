package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDailyDays is the canonical key set of the per-day R report.
var DefaultDailyDays = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

// DefaultOutcomeDays is the canonical key set of the day/outcome count report.
var DefaultOutcomeDays = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday,
}

// DayCode returns the three-letter upper-case code, e.g. "MON".
func DayCode(d time.Weekday) string {
	return strings.ToUpper(d.String()[:3])
}

// ParseWeekday accepts full names ("Monday") or three-letter codes ("MON"),
// case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// ParseWeekdays parses an ordered list of day names and rejects duplicates.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	seen := make(map[time.Weekday]bool, len(names))
	for _, n := range names {
		d, err := ParseWeekday(n)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			return nil, &InvalidInputError{Field: "weekday", Value: n, Reason: "duplicate day in key set"}
		}
		seen[d] = true
		days = append(days, d)
	}
	return days, nil
}
