/*
aggregate_test.go - Behavioral tests for the PeriodAggregator

Each test states one guaranteed behavior of the aggregation rules:
fallback policies, bottom-up quarter actuals, null-vs-zero actuals,
graceful skipping of bad records, and purity.
*/
package finance_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeadSteam/finproject/finance"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// fullYearPeriods returns the year, quarter and month periods for year.
func fullYearPeriods(year int) []finance.Period {
	periods := []finance.Period{finance.YearPeriod(year)}
	for q := 1; q <= 4; q++ {
		periods = append(periods, finance.QuarterPeriod(year, q))
	}
	for m := 1; m <= 12; m++ {
		periods = append(periods, finance.MonthPeriod(year, m))
	}
	return periods
}

// monthPeriodsOnly returns just the twelve month periods for year.
func monthPeriodsOnly(year int) []finance.Period {
	var periods []finance.Period
	for m := 1; m <= 12; m++ {
		periods = append(periods, finance.MonthPeriod(year, m))
	}
	return periods
}

func planRecord(m finance.Metric, p finance.Period, v float64) finance.ValueRecord {
	return finance.ValueRecord{MetricID: m.ID, ShopID: "shop-1", PeriodKey: p.Key(), Value: dec(v)}
}

func hoursMetric() finance.Metric {
	return finance.Metric{ID: "m-hours", Name: "Hours", Unit: "hours", CategoryID: "c-staff"}
}

// =============================================================================
// YEAR-LEVEL FALLBACKS
// =============================================================================

func TestYearlyPlanUsesYearRecordWhenPresent(t *testing.T) {
	// GIVEN a year-level plan of 5000 alongside month plans that sum
	// to a different total
	m := hoursMetric()
	m.PlanValues = append(m.PlanValues, planRecord(m, finance.YearPeriod(2025), 5000))
	for month := 1; month <= 12; month++ {
		m.PlanValues = append(m.PlanValues, planRecord(m, finance.MonthPeriod(2025, month), 100))
	}

	// WHEN aggregating
	views, warnings, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)
	require.Empty(t, warnings)

	// THEN the direct year record wins over the sum of months
	require.Len(t, views, 1)
	assert.True(t, views[0].Total.Plan.Equal(dec(5000)),
		"year plan should come from the year-level record, got %s", views[0].Total.Plan)
}

func TestYearlyPlanFallsBackToSumOfMonths(t *testing.T) {
	// GIVEN no year-level plan record and twelve month plans of 1000
	m := hoursMetric()
	for month := 1; month <= 12; month++ {
		m.PlanValues = append(m.PlanValues, planRecord(m, finance.MonthPeriod(2025, month), 1000))
	}

	views, warnings, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)
	require.Empty(t, warnings)

	// THEN the yearly plan is the sum of the twelve month plans
	assert.True(t, views[0].Total.Plan.Equal(dec(12000)),
		"expected 12 x 1000 = 12000, got %s", views[0].Total.Plan)
}

func TestYearlyPlanFallbackIgnoresQuarterPlans(t *testing.T) {
	// GIVEN quarter plans but no year or month plans
	m := hoursMetric()
	for q := 1; q <= 4; q++ {
		m.PlanValues = append(m.PlanValues, planRecord(m, finance.QuarterPeriod(2025, q), 900))
	}

	views, _, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)

	// THEN the fallback sums months only: quarters never feed the
	// yearly plan total
	assert.True(t, views[0].Total.Plan.IsZero(),
		"year plan must not be extrapolated from quarter plans, got %s", views[0].Total.Plan)
}

// =============================================================================
// QUARTER ACTUALS ARE DERIVED BOTTOM-UP
// =============================================================================

func TestQuarterActualIsSumOfMonthsEvenWhenQuarterRecordExists(t *testing.T) {
	// GIVEN month actuals of 90 for Q1 plus a conflicting raw
	// quarter-level actual of 999
	m := hoursMetric()
	for _, month := range []int{1, 2, 3} {
		m.ActualValues = append(m.ActualValues, planRecord(m, finance.MonthPeriod(2025, month), 90))
	}
	m.ActualValues = append(m.ActualValues, planRecord(m, finance.QuarterPeriod(2025, 1), 999))

	views, _, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)

	// THEN the quarter actual is derived from the months; the raw
	// quarter record is ignored
	q1 := views[0].Quarter(1)
	require.True(t, q1.Actual.Valid)
	assert.True(t, q1.Actual.Decimal.Equal(dec(270)),
		"quarter actual must be the month sum 270, got %s", q1.Actual.Decimal)
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestHoursScenarioTwelveMonthsNoYearOrQuarterRecords(t *testing.T) {
	// GIVEN metric "Hours" with month plans of 100 and month actuals of
	// 90, and only month periods supplied (no year or quarter records)
	m := hoursMetric()
	for month := 1; month <= 12; month++ {
		m.PlanValues = append(m.PlanValues, planRecord(m, finance.MonthPeriod(2025, month), 100))
		m.ActualValues = append(m.ActualValues, planRecord(m, finance.MonthPeriod(2025, month), 90))
	}

	views, warnings, err := finance.Aggregate([]finance.Metric{m}, monthPeriodsOnly(2025), 2025)
	require.NoError(t, err)
	require.Empty(t, warnings)
	v := views[0]

	// THEN yearly plan = 1200, yearly actual = 1080 (sum-of-months
	// fallback on both sides)
	assert.True(t, v.Total.Plan.Equal(dec(1200)), "year plan: got %s", v.Total.Plan)
	require.True(t, v.Total.Actual.Valid)
	assert.True(t, v.Total.Actual.Decimal.Equal(dec(1080)), "year actual: got %s", v.Total.Actual.Decimal)

	// AND each quarter has plan 0 (no quarter record) and actual 270
	for q := 1; q <= 4; q++ {
		cell := v.Quarter(q)
		assert.True(t, cell.Plan.IsZero(), "Q%d plan should default to zero", q)
		require.True(t, cell.Actual.Valid, "Q%d actual should be present", q)
		assert.True(t, cell.Actual.Decimal.Equal(dec(270)), "Q%d actual: got %s", q, cell.Actual.Decimal)
	}
}

// =============================================================================
// NULL VS ZERO ACTUALS
// =============================================================================

func TestMonthWithoutActualIsNullNotZero(t *testing.T) {
	// GIVEN an actual of 0 for January and nothing for February
	m := hoursMetric()
	m.ActualValues = append(m.ActualValues, planRecord(m, finance.MonthPeriod(2025, 1), 0))

	views, _, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)
	v := views[0]

	// THEN "entered as zero" and "no data entered" are distinguishable
	assert.True(t, v.Month(1).Actual.Valid, "explicit zero must be a present actual")
	assert.True(t, v.Month(1).Actual.Decimal.IsZero())
	assert.False(t, v.Month(2).Actual.Valid, "missing actual must stay null")
}

func TestQuarterWithNoMonthActualsHasNullActual(t *testing.T) {
	m := hoursMetric()
	m.ActualValues = append(m.ActualValues, planRecord(m, finance.MonthPeriod(2025, 1), 50))

	views, _, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)
	v := views[0]

	require.True(t, v.Quarter(1).Actual.Valid)
	assert.True(t, v.Quarter(1).Actual.Decimal.Equal(dec(50)))
	assert.False(t, v.Quarter(2).Actual.Valid, "quarter with no data must stay null")
}

// =============================================================================
// GRACEFUL DEGRADATION
// =============================================================================

func TestUnresolvablePeriodKeySkipsRecordWithWarning(t *testing.T) {
	// GIVEN a record referencing a year absent from the period set
	m := hoursMetric()
	m.PlanValues = append(m.PlanValues,
		planRecord(m, finance.MonthPeriod(2025, 1), 100),
		planRecord(m, finance.MonthPeriod(2019, 1), 777),
	)

	views, warnings, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err, "one bad record must never fail the aggregation")

	// THEN the good record lands, the bad one is skipped and reported
	assert.True(t, views[0].Month(1).Plan.Equal(dec(100)))
	require.Len(t, warnings, 1)
	assert.Equal(t, finance.WarnMissingPeriod, warnings[0].Code)
	assert.Equal(t, finance.MetricID("m-hours"), warnings[0].MetricID)
}

func TestMalformedRecordsAreZeroContribution(t *testing.T) {
	m := hoursMetric()
	m.PlanValues = append(m.PlanValues,
		finance.ValueRecord{MetricID: "someone-else", ShopID: "shop-1", PeriodKey: finance.MonthPeriod(2025, 1).Key(), Value: dec(100)},
		finance.ValueRecord{MetricID: m.ID, ShopID: "shop-1", PeriodKey: "", Value: dec(100)},
		finance.ValueRecord{MetricID: m.ID, ShopID: "shop-1", PeriodKey: finance.MonthPeriod(2025, 2).Key(), Value: dec(-5)},
	)

	views, warnings, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)

	assert.True(t, views[0].Total.Plan.IsZero())
	require.Len(t, warnings, 3)
	for _, w := range warnings {
		assert.Equal(t, finance.WarnMalformedRecord, w.Code)
	}
}

func TestDuplicateValueRecordFirstWins(t *testing.T) {
	m := hoursMetric()
	jan := finance.MonthPeriod(2025, 1)
	m.PlanValues = append(m.PlanValues,
		planRecord(m, jan, 100),
		planRecord(m, jan, 250),
	)

	views, warnings, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)

	assert.True(t, views[0].Month(1).Plan.Equal(dec(100)), "first record must win")
	require.Len(t, warnings, 1)
	assert.Equal(t, finance.WarnDuplicateRecord, warnings[0].Code)
}

func TestRecordsFromDifferentShopsSumPerPeriod(t *testing.T) {
	m := hoursMetric()
	jan := finance.MonthPeriod(2025, 1)

	// Uniqueness is per (period, shop): two shops reporting the same
	// month are both legitimate and contribute to the month's cell.
	m.PlanValues = append(m.PlanValues,
		finance.ValueRecord{MetricID: m.ID, ShopID: "shop-1", PeriodKey: jan.Key(), Value: dec(100)},
		finance.ValueRecord{MetricID: m.ID, ShopID: "shop-2", PeriodKey: jan.Key(), Value: dec(40)},
	)
	m.ActualValues = append(m.ActualValues,
		finance.ValueRecord{MetricID: m.ID, ShopID: "shop-1", PeriodKey: jan.Key(), Value: dec(90)},
		finance.ValueRecord{MetricID: m.ID, ShopID: "shop-2", PeriodKey: jan.Key(), Value: dec(30)},
		finance.ValueRecord{MetricID: m.ID, ShopID: "shop-2", PeriodKey: jan.Key(), Value: dec(999)},
	)

	views, warnings, err := finance.Aggregate([]finance.Metric{m}, fullYearPeriods(2025), 2025)
	require.NoError(t, err)

	assert.True(t, views[0].Month(1).Plan.Equal(dec(140)))
	require.True(t, views[0].Month(1).Actual.Valid)
	assert.True(t, views[0].Month(1).Actual.Decimal.Equal(dec(120)), "repeated (period, shop) pair must not double-count")
	require.Len(t, warnings, 1)
	assert.Equal(t, finance.WarnDuplicateRecord, warnings[0].Code)
}

func TestNilInputIsAProgrammerError(t *testing.T) {
	_, _, err := finance.Aggregate([]finance.Metric{hoursMetric()}, nil, 2025)
	assert.ErrorIs(t, err, finance.ErrNilPeriods)

	_, _, err = finance.Aggregate(nil, fullYearPeriods(2025), 2025)
	assert.ErrorIs(t, err, finance.ErrNilMetrics)
}

// =============================================================================
// PURITY
// =============================================================================

func TestAggregateIsIdempotentAndDoesNotMutateInputs(t *testing.T) {
	m := hoursMetric()
	for month := 1; month <= 12; month++ {
		m.PlanValues = append(m.PlanValues, planRecord(m, finance.MonthPeriod(2025, month), 100))
		if month%2 == 0 {
			m.ActualValues = append(m.ActualValues, planRecord(m, finance.MonthPeriod(2025, month), 90))
		}
	}
	metrics := []finance.Metric{m}
	periods := fullYearPeriods(2025)
	planCount, actualCount, periodCount := len(m.PlanValues), len(m.ActualValues), len(periods)

	first, _, err := finance.Aggregate(metrics, periods, 2025)
	require.NoError(t, err)
	second, _, err := finance.Aggregate(metrics, periods, 2025)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must produce identical views")
	assert.Len(t, metrics[0].PlanValues, planCount)
	assert.Len(t, metrics[0].ActualValues, actualCount)
	assert.Len(t, periods, periodCount)
}
