/*
errors.go - Centralized error and warning types for the finance engine

PURPOSE:
  All domain error types in one place. Per-record data problems during
  aggregation never surface as errors; they become Warnings so one bad
  record cannot fail (or silently skew) a whole report. Errors are
  reserved for programmer mistakes and persistence-level failures.

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, finance.ErrMetricNotFound) { ... 404 ... }
    if finance.IsClientError(err) { ... 400 ... }
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNilPeriods is returned when Aggregate is handed a nil periods
	// slice. Structurally missing input is a programmer error, surfaced
	// immediately rather than degraded into warnings.
	ErrNilPeriods = errors.New("periods must be provided")

	// ErrNilMetrics is the metrics-side counterpart of ErrNilPeriods.
	ErrNilMetrics = errors.New("metrics must be provided")

	// ErrInvalidQuarter is returned for quarters outside 1-4.
	ErrInvalidQuarter = errors.New("quarter out of range")

	// ErrInvalidMonth is returned for months outside 1-12.
	ErrInvalidMonth = errors.New("month out of range")

	// ErrIncoherentPeriod is returned when a period's quarter does not
	// match its month (quarter must equal QuarterOf(month)).
	ErrIncoherentPeriod = errors.New("incoherent period")

	// ErrMalformedPeriodKey is returned by ParsePeriodKey for keys not
	// of the form "year:quarter:month".
	ErrMalformedPeriodKey = errors.New("malformed period key")

	// ErrNegativeValue is returned when a plan or actual value is negative.
	ErrNegativeValue = errors.New("value must be non-negative")

	// Entity lookups.
	ErrCategoryNotFound = errors.New("category not found")
	ErrShopNotFound     = errors.New("shop not found")
	ErrMetricNotFound   = errors.New("metric not found")
	ErrPeriodNotFound   = errors.New("period not found")
	ErrValueNotFound    = errors.New("value not found")
	ErrYearNotFound     = errors.New("year not found")

	// ErrDuplicateValue is returned when a plan or actual record already
	// exists for the same (metric, shop, period).
	ErrDuplicateValue = errors.New("value already exists for metric/shop/period")

	// ErrDuplicatePeriod is returned when creating a period whose
	// (year, quarter, month) already exists.
	ErrDuplicatePeriod = errors.New("period already exists")

	// ErrYearPlanMissing is returned by plan recalculation when the
	// metric has no yearly plan to redistribute.
	ErrYearPlanMissing = errors.New("no yearly plan to recalculate")
)

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrShopNotFound) ||
		errors.Is(err, ErrMetricNotFound) ||
		errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrValueNotFound) ||
		errors.Is(err, ErrYearNotFound)
}

// IsClientError reports whether err is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuarter) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrIncoherentPeriod) ||
		errors.Is(err, ErrMalformedPeriodKey) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrYearPlanMissing)
}

// IsConflict reports whether err indicates a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateValue) || errors.Is(err, ErrDuplicatePeriod)
}

// =============================================================================
// WARNINGS - Recoverable per-record problems during aggregation
// =============================================================================

// WarningCode classifies a skipped record.
type WarningCode string

const (
	// WarnMissingPeriod: a value record references a period key that does
	// not resolve in the supplied period set. The record is skipped.
	WarnMissingPeriod WarningCode = "missing_period"

	// WarnDuplicatePeriod: the feed carried two periods for one key;
	// the first occurrence was kept.
	WarnDuplicatePeriod WarningCode = "duplicate_period"

	// WarnInvalidPeriod: a period failed range/coherence validation.
	WarnInvalidPeriod WarningCode = "invalid_period"

	// WarnMalformedRecord: a value record is malformed (negative value,
	// foreign metric id, empty period key). Treated as zero contribution.
	WarnMalformedRecord WarningCode = "malformed_record"

	// WarnDuplicateRecord: a second plan or actual record for the same
	// (period, shop) slot; the first one won.
	WarnDuplicateRecord WarningCode = "duplicate_record"
)

// Warning makes a skipped record observable to the caller instead of
// silently producing a subtly wrong total.
type Warning struct {
	Code      WarningCode
	MetricID  MetricID
	PeriodKey PeriodKey
	Message   string
}

func (w Warning) String() string {
	if w.MetricID == "" {
		return fmt.Sprintf("%s: period %s: %s", w.Code, w.PeriodKey, w.Message)
	}
	return fmt.Sprintf("%s: metric %s period %s: %s", w.Code, w.MetricID, w.PeriodKey, w.Message)
}
