package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tradestats/internal/stats"
)

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name   string
		profit float64
		want   Outcome
	}{
		{name: "positive", profit: 2, want: OutcomeWin},
		{name: "tiny positive", profit: math.SmallestNonzeroFloat64, want: OutcomeWin},
		{name: "negative", profit: -1, want: OutcomeLoss},
		{name: "zero", profit: 0, want: OutcomeBreakeven},
		{name: "negative zero", profit: math.Copysign(0, -1), want: OutcomeBreakeven},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeOf(tt.profit))
		})
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		input string
		want  time.Weekday
	}{
		{"Sunday", time.Sunday},
		{"MON", time.Monday},
		{"tue", time.Tuesday},
		{" wednesday ", time.Wednesday},
		{"SAT", time.Saturday},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseWeekday("Funday")
	assert.Error(t, err)
}

func TestParseWeekdaysRejectsDuplicates(t *testing.T) {
	_, err := ParseWeekdays([]string{"MON", "Monday"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	days, err := ParseWeekdays([]string{"FRI", "MON"})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Friday, time.Monday}, days)
}

func TestDayCode(t *testing.T) {
	assert.Equal(t, "SUN", DayCode(time.Sunday))
	assert.Equal(t, "THU", DayCode(time.Thursday))
}

func TestSchemaError(t *testing.T) {
	var err error = &SchemaError{Missing: []string{ColumnProfitR}}
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Contains(t, err.Error(), "Profit(R)")

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Profit(R)"}, schemaErr.Missing)
}

func TestDatasetMissingColumns(t *testing.T) {
	ds := &Dataset{Columns: []string{ColumnEntryTime, ColumnMFER}}
	assert.Equal(t, []string{ColumnProfitR}, ds.MissingColumns(ColumnEntryTime, ColumnProfitR))
	assert.Empty(t, ds.MissingColumns(ColumnEntryTime))
}

func TestPercentileRangeErrorIsInvalidInput(t *testing.T) {
	_, err := stats.Percentile([]float64{1, 2, 3}, 1.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var typed error = &InvalidInputError{Field: "percentile", Reason: "out of range"}
	assert.True(t, errors.Is(typed, stats.ErrInvalidInput))
}
