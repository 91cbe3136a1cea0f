package finance_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeadSteam/finproject/finance"
)

func TestComputeVarianceDifferenceAndPercentage(t *testing.T) {
	cases := []struct {
		name     string
		plan     float64
		actual   float64
		wantDiff float64
		wantPct  float64
	}{
		{"under plan is favorable", 100, 90, 10, 10},
		{"over plan is unfavorable", 100, 125, -25, -25},
		{"exactly on plan", 80, 80, 0, 0},
		{"fractional", 3, 1, 2, 66.66666666666667},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := finance.ComputeVariance(dec(tc.plan), dec(tc.actual))
			assert.True(t, v.Difference.Equal(dec(tc.wantDiff)),
				"difference: want %v got %s", tc.wantDiff, v.Difference)

			got, _ := v.Percentage.Float64()
			assert.InDelta(t, tc.wantPct, got, 1e-9, "percentage")
		})
	}
}

func TestComputeVarianceZeroPlanGuardsDivision(t *testing.T) {
	// plan == 0 must return percentage 0, never NaN/Inf or a panic,
	// regardless of the actual
	for _, actual := range []float64{0, 1, 1000} {
		v := finance.ComputeVariance(decimal.Zero, dec(actual))
		assert.True(t, v.Percentage.IsZero(), "plan=0 actual=%v", actual)
	}
}

func TestVarianceSignConvention(t *testing.T) {
	// Positive difference renders green (favorable), negative red.
	assert.True(t, finance.ComputeVariance(dec(100), dec(90)).Favorable())
	assert.False(t, finance.ComputeVariance(dec(100), dec(110)).Favorable())
}

func TestDisplayPercentageRoundsToOneDecimal(t *testing.T) {
	v := finance.ComputeVariance(dec(3), dec(1))
	require.Equal(t, "66.7", v.DisplayPercentage().String())

	// The unrounded value stays available for further computation.
	assert.False(t, v.Percentage.Equal(v.DisplayPercentage()))
}
