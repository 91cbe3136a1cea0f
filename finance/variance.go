package finance

import "github.com/shopspring/decimal"

// =============================================================================
// VARIANCE - Plan-vs-actual deviation
// =============================================================================

// Variance is the deviation of an actual from its plan.
//
// Sign convention: positive Difference means under-spend (favorable),
// negative means over-spend (unfavorable). Downstream display relies on
// this convention (positive renders green, negative red).
type Variance struct {
	// Difference is plan - actual.
	Difference decimal.Decimal

	// Percentage is Difference / plan * 100, unrounded, and zero when
	// plan is not positive (division guard). Use DisplayPercentage for
	// the one-decimal rendering.
	Percentage decimal.Decimal
}

// ComputeVariance computes the plan-vs-actual variance.
func ComputeVariance(plan, actual decimal.Decimal) Variance {
	diff := plan.Sub(actual)
	pct := decimal.Zero
	if plan.IsPositive() {
		pct = diff.Div(plan).Mul(decimal.NewFromInt(100))
	}
	return Variance{Difference: diff, Percentage: pct}
}

// DisplayPercentage returns the percentage rounded to one decimal place.
func (v Variance) DisplayPercentage() decimal.Decimal {
	return v.Percentage.Round(1)
}

// Favorable reports whether the variance is at or under plan.
func (v Variance) Favorable() bool {
	return !v.Difference.IsNegative()
}
