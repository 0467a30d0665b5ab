package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidInput marks arguments outside an operation's domain.
var ErrInvalidInput = errors.New("invalid input")

// sortedCopy returns an ascending copy of values. Every reduction below works
// on the sorted copy, so results do not depend on input order.
func sortedCopy(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted
}

// Sum adds values in ascending order.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range sortedCopy(values) {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean, undefined for an empty input.
func Mean(values []float64) Value {
	if len(values) == 0 {
		return Undefined()
	}
	return Defined(Sum(values) / float64(len(values)))
}

// Percentile returns the p-th quantile (p in [0,1]) using linear interpolation
// between closest ranks (Hyndman-Fan type 7).
func Percentile(values []float64, p float64) (Value, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Undefined(), fmt.Errorf("%w: percentile %v out of range [0,1]", ErrInvalidInput, p)
	}
	n := len(values)
	if n == 0 {
		return Undefined(), nil
	}
	sorted := sortedCopy(values)
	if n == 1 {
		return Defined(sorted[0]), nil
	}

	idx := p * float64(n-1)
	lower := int(math.Floor(idx))
	upper := lower + 1
	if upper >= n {
		return Defined(sorted[n-1]), nil
	}
	frac := idx - float64(lower)
	return Defined(sorted[lower] + frac*(sorted[upper]-sorted[lower])), nil
}

// Median is Percentile(values, 0.5).
func Median(values []float64) Value {
	v, _ := Percentile(values, 0.5)
	return v
}

// Min returns the smallest value, undefined for an empty input.
func Min(values []float64) Value {
	if len(values) == 0 {
		return Undefined()
	}
	return Defined(sortedCopy(values)[0])
}

// Max returns the largest value, undefined for an empty input.
func Max(values []float64) Value {
	if len(values) == 0 {
		return Undefined()
	}
	sorted := sortedCopy(values)
	return Defined(sorted[len(sorted)-1])
}

// Ratio returns count/total, or 0 when total is 0.
// Proportions of nothing are zero; averages of nothing are undefined.
func Ratio(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// Percent is Ratio scaled to 0..100.
func Percent(count, total int) float64 {
	return 100 * Ratio(count, total)
}
