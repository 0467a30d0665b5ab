package stats

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanEmptyIsUndefined(t *testing.T) {
	m := Mean(nil)
	assert.False(t, m.IsDefined())
	assert.Equal(t, NotAvailable, m.String())

	m = Mean([]float64{})
	assert.False(t, m.IsDefined())
}

func TestMean(t *testing.T) {
	m := Mean([]float64{2, -1})
	v, ok := m.Get()
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestMeanIsOrderIndependent(t *testing.T) {
	values := []float64{0.1, 1e16, -1e16, 0.2, 0.3, 3.7, -2.25}
	reversed := make([]float64, len(values))
	for i, v := range values {
		reversed[len(values)-1-i] = v
	}
	shuffled := []float64{-1e16, 3.7, 0.2, 1e16, -2.25, 0.1, 0.3}

	base := Mean(values)
	assert.Equal(t, base, Mean(reversed))
	assert.Equal(t, base, Mean(shuffled))
	assert.Equal(t, Sum(values), Sum(shuffled))
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{name: "70th of one to five", values: []float64{1, 2, 3, 4, 5}, p: 0.7, want: 3.8},
		{name: "70th unsorted", values: []float64{5, 3, 1, 4, 2}, p: 0.7, want: 3.8},
		{name: "minimum", values: []float64{4, 2, 9}, p: 0, want: 2},
		{name: "maximum", values: []float64{4, 2, 9}, p: 1, want: 9},
		{name: "single value", values: []float64{1.5}, p: 0.3, want: 1.5},
		{name: "median even count", values: []float64{1, 2, 3, 4}, p: 0.5, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentile(tt.values, tt.p)
			require.NoError(t, err)
			v, ok := got.Get()
			require.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-12)
		})
	}
}

func TestPercentileEmptyIsUndefined(t *testing.T) {
	got, err := Percentile(nil, 0.7)
	require.NoError(t, err)
	assert.False(t, got.IsDefined())
	assert.False(t, Median(nil).IsDefined())
}

func TestPercentileRejectsOutOfRange(t *testing.T) {
	for _, p := range []float64{-0.1, 1.01, math.NaN()} {
		_, err := Percentile([]float64{1, 2}, p)
		require.Error(t, err, "p=%v", p)
		assert.True(t, errors.Is(err, ErrInvalidInput), "p=%v", p)
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, err := Percentile(values, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, Ratio(0, 0))
	assert.Equal(t, 0.0, Percent(0, 0))
	assert.Equal(t, 0.5, Ratio(1, 2))
	assert.InDelta(t, 33.333333, Percent(1, 3), 1e-6)
}

func TestMinMax(t *testing.T) {
	assert.False(t, Min(nil).IsDefined())
	assert.False(t, Max(nil).IsDefined())
	assert.Equal(t, Defined(-2), Min([]float64{1, -2, 3}))
	assert.Equal(t, Defined(3), Max([]float64{1, -2, 3}))
}

func TestDefinedRejectsNonFinite(t *testing.T) {
	assert.False(t, Defined(math.NaN()).IsDefined())
	assert.False(t, Defined(math.Inf(1)).IsDefined())
	assert.True(t, Defined(0).IsDefined())
}

func TestValueRoundAndFormat(t *testing.T) {
	assert.Equal(t, Defined(1.24), Defined(1.235).Round(2))
	assert.Equal(t, "0.50", Defined(0.5).Format(2))
	assert.Equal(t, NotAvailable, Undefined().Format(2))
	assert.False(t, Undefined().Round(2).IsDefined())
}

func TestValueJSON(t *testing.T) {
	payload := struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}{A: Defined(1.5), B: Undefined()}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(data))

	var decoded struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, payload.A, decoded.A)
	assert.False(t, decoded.B.IsDefined())
}
