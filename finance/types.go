/*
Package finance provides the core plan/actual aggregation engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  business metrics against a yearly plan. A metric (e.g. "hours worked",
  unit "hours") carries plan and actual observations keyed by reporting
  period; the engine reshapes those flat records into year/quarter/month
  views, computes plan-vs-actual variance, and recalculates remaining
  month plans when an actual deviates from plan.

KEY CONCEPTS IN THIS FILE (types.go):
  - Metric: A named, unit-tagged measurable quantity scoped to a category
  - ValueRecord: One plan or actual observation (metric, shop, period)
  - Category/Shop: Reference entities that scope metrics and records
  - Typed IDs: Prevent mixing metric/shop/category identifiers

DESIGN PRINCIPLES:
  1. Purity: Aggregation never mutates its inputs and holds no state
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Graceful degradation: Bad records are skipped with warnings, never
     failing a whole aggregation

SEE ALSO:
  - period.go: Period value objects and first-wins deduplication
  - aggregate.go: The PeriodAggregator
  - variance.go: Plan-vs-actual variance
  - plan.go: Yearly plan distribution and recalculation
*/
package finance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MetricID string
type ShopID string
type CategoryID string

// =============================================================================
// REFERENCE ENTITIES
// =============================================================================

// Category groups metrics (e.g. "Payroll", "Utilities").
type Category struct {
	ID          CategoryID
	Name        string
	Description string
	Status      bool
}

// Shop is a store location that plan and actual values are recorded for.
type Shop struct {
	ID            ShopID
	Name          string
	NumberOfStaff int
	Description   string
	Address       string
	Status        bool
}

// =============================================================================
// METRIC - A measurable quantity with owned plan/actual collections
// =============================================================================

// Metric is a named, unit-tagged quantity scoped to a category.
// Plan and actual observations are owned collections; the aggregator
// reads them and never writes.
type Metric struct {
	ID         MetricID
	Name       string
	Unit       string
	CategoryID CategoryID

	PlanValues   []ValueRecord
	ActualValues []ValueRecord
}

// =============================================================================
// VALUE RECORD - A single plan or actual observation
// =============================================================================

// ValueRecord ties one non-negative decimal observation to a metric,
// a shop, and a period. A metric has at most one plan and one actual
// record per (period, shop) pair; the aggregator enforces this with
// first-wins semantics when the invariant is violated by its input.
type ValueRecord struct {
	MetricID  MetricID
	ShopID    ShopID
	PeriodKey PeriodKey
	Value     decimal.Decimal
}

// MustDecimal parses s, returning zero on malformed input.
// For fixtures and adapters only; persistence paths validate explicitly.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
