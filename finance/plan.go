/*
plan.go - Yearly plan distribution and recalculation

PURPOSE:
  Two pure calculations over a metric's plan grid for one year:

  DistributeYearlyPlan splits a yearly target evenly across quarters and
  months. Values are rounded to two decimal places with the rounding
  remainder folded into the last quarter and the last month of each
  quarter, so the distributed grid always reconciles exactly with the
  yearly value.

  RecalculatePlanWithActual adjusts remaining month plans after an actual
  deviates from plan: the edited month's plan becomes the actual, the
  difference is spread evenly over the months still ahead, quarter plans
  are re-derived as sums of their months and the year plan as the sum of
  quarters. Month plans are clamped at zero.

  Both functions return updates for the caller (the storage layer) to
  apply; nothing here touches persistence.
*/
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var four = decimal.NewFromInt(4)
var three = decimal.NewFromInt(3)

// =============================================================================
// DISTRIBUTION - Yearly target -> quarter and month plans
// =============================================================================

// PlanDistribution is the even split of a yearly plan value.
type PlanDistribution struct {
	Year     decimal.Decimal
	Quarters [4]decimal.Decimal  // index 0 = Q1
	Months   [12]decimal.Decimal // index 0 = January
}

// DistributeYearlyPlan splits yearly evenly across 4 quarters and the
// 3 months of each quarter. Rounding residue lands in Q4 and in the
// last month of each quarter.
func DistributeYearlyPlan(yearly decimal.Decimal) PlanDistribution {
	dist := PlanDistribution{Year: yearly}

	quarterly := yearly.Div(four).Round(2)
	quarterRemainder := yearly.Sub(quarterly.Mul(four))

	for quarter := 1; quarter <= 4; quarter++ {
		qv := quarterly
		if quarter == 4 {
			qv = qv.Add(quarterRemainder)
		}
		dist.Quarters[quarter-1] = qv

		monthly := qv.Div(three).Round(2)
		monthRemainder := qv.Sub(monthly.Mul(three))
		for i, month := range MonthsOf(quarter) {
			mv := monthly
			if i == 2 {
				mv = mv.Add(monthRemainder)
			}
			dist.Months[month-1] = mv
		}
	}
	return dist
}

// =============================================================================
// RECALCULATION - Redistribute plan after an observed actual
// =============================================================================

// PlanGrid is a metric's existing plan values for one year, keyed by
// 1-based month and quarter. Missing entries mean no plan row exists
// for that period; recalculation only updates existing rows.
type PlanGrid struct {
	Year     decimal.Decimal
	HasYear  bool
	Quarters map[int]decimal.Decimal
	Months   map[int]decimal.Decimal
}

// PlanUpdate is one plan row to rewrite.
type PlanUpdate struct {
	Period Period
	Value  decimal.Decimal
}

// RecalculatePlanWithActual redistributes the plan for (year) after the
// actual for actualMonth came in at actualValue. currentMonth anchors
// "the months still ahead": months in [actualMonth+1, currentMonth) are
// already elapsed, so their plans are folded into the amount to spread.
//
// Returns the month, quarter and year plan rows to rewrite, in that
// order. With no yearly plan there is nothing to redistribute.
func RecalculatePlanWithActual(grid PlanGrid, year, actualMonth int, actualValue decimal.Decimal, currentMonth int) ([]PlanUpdate, error) {
	if actualMonth < 1 || actualMonth > 12 {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidMonth, actualMonth)
	}
	if actualValue.IsNegative() {
		return nil, ErrNegativeValue
	}
	if !grid.HasYear {
		return nil, ErrYearPlanMissing
	}
	if currentMonth < 1 {
		currentMonth = 1
	}

	var updates []PlanUpdate
	newMonths := make(map[int]decimal.Decimal, len(grid.Months))
	for m, v := range grid.Months {
		newMonths[m] = v
	}

	// The edited month's plan becomes the observed actual.
	diff := decimal.Zero
	if old, ok := grid.Months[actualMonth]; ok {
		diff = actualValue.Sub(old)
		newMonths[actualMonth] = actualValue
		updates = append(updates, PlanUpdate{Period: MonthPeriod(year, actualMonth), Value: actualValue})
	}

	// Months already elapsed since the edited one cannot absorb any
	// adjustment; fold their plans into the amount to spread.
	if actualMonth < currentMonth {
		for month := actualMonth + 1; month < currentMonth; month++ {
			if v, ok := grid.Months[month]; ok {
				diff = diff.Add(v)
			}
		}
	}

	first := actualMonth + 1
	if currentMonth > first {
		first = currentMonth
	}
	var future []int
	for month := first; month <= 12; month++ {
		future = append(future, month)
	}
	if len(future) > 0 && !diff.IsZero() {
		n := decimal.NewFromInt(int64(len(future)))
		perMonth := diff.Div(n).Round(2)
		remainder := diff.Sub(perMonth.Mul(n))

		for i, month := range future {
			old, ok := grid.Months[month]
			if !ok {
				continue
			}
			next := old.Sub(perMonth)
			if i == len(future)-1 {
				next = next.Sub(remainder)
			}
			if next.IsNegative() {
				next = decimal.Zero
			}
			newMonths[month] = next
			updates = append(updates, PlanUpdate{Period: MonthPeriod(year, month), Value: next})
		}
	}

	// Re-derive quarters from the adjusted months and the year from the
	// quarters, so every level reconciles.
	yearTotal := decimal.Zero
	for quarter := 1; quarter <= 4; quarter++ {
		sum := decimal.Zero
		for _, month := range MonthsOf(quarter) {
			if v, ok := newMonths[month]; ok {
				sum = sum.Add(v)
			}
		}
		yearTotal = yearTotal.Add(sum)
		if _, ok := grid.Quarters[quarter]; ok {
			updates = append(updates, PlanUpdate{Period: QuarterPeriod(year, quarter), Value: sum})
		}
	}
	if !yearTotal.Equal(grid.Year) {
		updates = append(updates, PlanUpdate{Period: YearPeriod(year), Value: yearTotal})
	}

	return updates, nil
}

// =============================================================================
// RECALCULATION TRIGGER - When is redistribution warranted?
// =============================================================================

// RecalculationRequest is what the plan recalculation endpoint accepts.
type RecalculationRequest struct {
	MetricID    MetricID
	ShopID      ShopID
	Year        int
	ActualMonth int
	ActualValue decimal.Decimal
}

// PlanRemainingMonths decides whether recording newActual for fromMonth
// warrants a plan recalculation. Redistribution is warranted only when
// the actual deviates from the month's plan and months remain in the
// year; December edits and on-plan actuals are no-ops.
func PlanRemainingMonths(metricID MetricID, shopID ShopID, year, fromMonth int, monthPlan, newActual decimal.Decimal) (*RecalculationRequest, bool) {
	if fromMonth >= 12 || fromMonth < 1 {
		return nil, false
	}
	if monthPlan.Equal(newActual) {
		return nil, false
	}
	return &RecalculationRequest{
		MetricID:    metricID,
		ShopID:      shopID,
		Year:        year,
		ActualMonth: fromMonth,
		ActualValue: newActual,
	}, true
}
