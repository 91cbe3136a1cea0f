/*
aggregate.go - The PeriodAggregator

PURPOSE:
  Reshapes flat (Metric, Period) inputs for one year into nested
  year/quarter/month reporting views. This is the central calculation
  behind report tables and bar charts.

AGGREGATION RULES:
  Year plan:      direct year-level lookup; falls back to the sum of the
                  twelve month plans (never quarters, never averaging).
  Year actual:    direct year-level lookup; falls back to the sum of
                  month actuals, mirroring the plan fallback.
  Quarter plan:   direct lookup, default 0.
  Quarter actual: ALWAYS the sum of the quarter's month actuals. A raw
                  quarter-level actual in the input is ignored; quarterly
                  actuals are derived bottom-up.
  Month plan:     direct lookup, default 0.
  Month actual:   direct lookup; absent stays null so that "no data
                  entered" is distinguishable from "entered as zero".

FAILURE SEMANTICS:
  Per-record problems (unresolvable period key, malformed record,
  duplicate slot) skip the record and append a Warning. The aggregation
  itself fails only for structurally missing top-level input.

PURITY:
  Aggregate never mutates its inputs and holds no state; identical
  inputs produce identical outputs.
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATED VIEW - Derived, read-only projection
// =============================================================================

// PlanActual is one cell of the reporting grid. Plan defaults to zero
// when absent; Actual is null when no observation was recorded.
type PlanActual struct {
	Plan   decimal.Decimal
	Actual decimal.NullDecimal
}

// ActualOrZero returns the actual value, or zero when absent.
func (pa PlanActual) ActualOrZero() decimal.Decimal {
	if !pa.Actual.Valid {
		return decimal.Zero
	}
	return pa.Actual.Decimal
}

// Variance returns the plan-vs-actual variance for the cell, treating
// an absent actual as zero.
func (pa PlanActual) Variance() Variance {
	return ComputeVariance(pa.Plan, pa.ActualOrZero())
}

// AggregatedMetricView is the nested projection for one metric and one
// year. It has no independent lifecycle: recomputed on every aggregation
// request, never persisted or cached.
type AggregatedMetricView struct {
	MetricID   MetricID
	MetricName string
	Unit       string
	CategoryID CategoryID
	Year       int

	Total    PlanActual     // year-level cell
	Quarters [4]PlanActual  // index 0 = Q1
	Months   [12]PlanActual // index 0 = January
}

// Quarter returns the cell for 1-based quarter q.
func (v AggregatedMetricView) Quarter(q int) PlanActual {
	return v.Quarters[q-1]
}

// Month returns the cell for 1-based month m.
func (v AggregatedMetricView) Month(m int) PlanActual {
	return v.Months[m-1]
}

// =============================================================================
// AGGREGATE - (Metric[], Period[], year) -> AggregatedMetricView[]
// =============================================================================

// Aggregate builds a view per metric from the periods of one year.
// Periods are deduplicated first-wins by composite key; value records
// that cannot be resolved are skipped with a warning. The returned
// warnings list is empty for clean input, never nil-checked by callers.
func Aggregate(metrics []Metric, periods []Period, year int) ([]AggregatedMetricView, []Warning, error) {
	if periods == nil {
		return nil, nil, ErrNilPeriods
	}
	if metrics == nil {
		return nil, nil, ErrNilMetrics
	}

	set, warnings := NewPeriodSet(periods)
	set = set.ForYear(year)

	views := make([]AggregatedMetricView, 0, len(metrics))
	for _, m := range metrics {
		view, w := aggregateMetric(m, set, year)
		warnings = append(warnings, w...)
		views = append(views, view)
	}
	return views, warnings, nil
}

func aggregateMetric(m Metric, set *PeriodSet, year int) (AggregatedMetricView, []Warning) {
	var warnings []Warning

	plans, w := collectValues(m, m.PlanValues, set)
	warnings = append(warnings, w...)
	actuals, w := collectValues(m, m.ActualValues, set)
	warnings = append(warnings, w...)

	view := AggregatedMetricView{
		MetricID:   m.ID,
		MetricName: m.Name,
		Unit:       m.Unit,
		CategoryID: m.CategoryID,
		Year:       year,
	}

	// Month cells: plan defaults to zero, actual stays null when absent.
	for month := 1; month <= 12; month++ {
		key := MonthPeriod(year, month).Key()
		cell := PlanActual{Plan: decimal.Zero}
		if plan, ok := plans[key]; ok {
			cell.Plan = plan
		}
		if actual, ok := actuals[key]; ok {
			cell.Actual = decimal.NullDecimal{Decimal: actual, Valid: true}
		}
		view.Months[month-1] = cell
	}

	// Quarter cells: plan by direct lookup, actual derived bottom-up
	// from months regardless of any quarter-level actual in the input.
	for quarter := 1; quarter <= 4; quarter++ {
		key := QuarterPeriod(year, quarter).Key()
		cell := PlanActual{Plan: decimal.Zero}
		if plan, ok := plans[key]; ok {
			cell.Plan = plan
		}
		sum := decimal.Zero
		seen := false
		for _, month := range MonthsOf(quarter) {
			if mc := view.Months[month-1]; mc.Actual.Valid {
				sum = sum.Add(mc.Actual.Decimal)
				seen = true
			}
		}
		if seen {
			cell.Actual = decimal.NullDecimal{Decimal: sum, Valid: true}
		}
		view.Quarters[quarter-1] = cell
	}

	// Year cell: direct lookup first, sum-of-months fallback for both
	// plan and actual. The plan fallback never extrapolates from quarters.
	yearKey := YearPeriod(year).Key()
	if plan, ok := plans[yearKey]; ok {
		view.Total.Plan = plan
	} else {
		sum := decimal.Zero
		for month := 1; month <= 12; month++ {
			sum = sum.Add(view.Months[month-1].Plan)
		}
		view.Total.Plan = sum
	}
	if actual, ok := actuals[yearKey]; ok {
		view.Total.Actual = decimal.NullDecimal{Decimal: actual, Valid: true}
	} else {
		sum := decimal.Zero
		seen := false
		for month := 1; month <= 12; month++ {
			if mc := view.Months[month-1]; mc.Actual.Valid {
				sum = sum.Add(mc.Actual.Decimal)
				seen = true
			}
		}
		if seen {
			view.Total.Actual = decimal.NullDecimal{Decimal: sum, Valid: true}
		}
	}

	return view, warnings
}

// collectValues resolves a metric's records against the period set,
// producing one value per period key. Uniqueness holds per period AND
// shop, so records from different shops for the same period are summed
// into the period's cell, while a repeated (period, shop) pair is
// dropped with a warning and the first occurrence kept. Malformed
// records contribute nothing.
func collectValues(m Metric, records []ValueRecord, set *PeriodSet) (map[PeriodKey]decimal.Decimal, []Warning) {
	out := make(map[PeriodKey]decimal.Decimal, len(records))
	type slot struct {
		key  PeriodKey
		shop ShopID
	}
	seen := make(map[slot]struct{}, len(records))
	var warnings []Warning

	for _, r := range records {
		if r.MetricID != "" && r.MetricID != m.ID {
			warnings = append(warnings, Warning{
				Code: WarnMalformedRecord, MetricID: m.ID, PeriodKey: r.PeriodKey,
				Message: "record belongs to a different metric",
			})
			continue
		}
		if r.PeriodKey == "" {
			warnings = append(warnings, Warning{
				Code: WarnMalformedRecord, MetricID: m.ID,
				Message: "record has no period key",
			})
			continue
		}
		if r.Value.IsNegative() {
			warnings = append(warnings, Warning{
				Code: WarnMalformedRecord, MetricID: m.ID, PeriodKey: r.PeriodKey,
				Message: "negative value",
			})
			continue
		}
		if _, ok := set.Lookup(r.PeriodKey); !ok {
			warnings = append(warnings, Warning{
				Code: WarnMissingPeriod, MetricID: m.ID, PeriodKey: r.PeriodKey,
				Message: "period not in supplied set",
			})
			continue
		}
		id := slot{key: r.PeriodKey, shop: r.ShopID}
		if _, ok := seen[id]; ok {
			warnings = append(warnings, Warning{
				Code: WarnDuplicateRecord, MetricID: m.ID, PeriodKey: r.PeriodKey,
				Message: "duplicate record dropped, first occurrence kept",
			})
			continue
		}
		seen[id] = struct{}{}
		out[r.PeriodKey] = out[r.PeriodKey].Add(r.Value)
	}
	return out, warnings
}
