package finance

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// PERIOD - Reporting interval at year, quarter or month granularity
// =============================================================================

// Period identifies one reporting interval. Exactly one granularity is
// active: {Quarter:nil, Month:nil} is a year period, {Quarter:N, Month:nil}
// a quarter period, and {Quarter:N, Month:M} a month period. Whenever both
// are set, Quarter must equal QuarterOf(Month).
//
// Periods are immutable value objects identified by the composite key
// (Year, Quarter, Month); see Key().
type Period struct {
	Year    int
	Quarter *int
	Month   *int
}

// Granularity classifies a period by its active level.
type Granularity string

const (
	GranYear    Granularity = "year"
	GranQuarter Granularity = "quarter"
	GranMonth   Granularity = "month"
)

// PeriodKey is the deterministic composite key "year:quarter:month",
// with "-" standing in for an unset component (e.g. "2025:-:-" for the
// 2025 year period, "2025:2:5" for May 2025).
type PeriodKey string

// QuarterOf returns the 1-based quarter that contains month.
func QuarterOf(month int) int {
	return (month-1)/3 + 1
}

// MonthsOf returns the three 1-based months belonging to quarter.
func MonthsOf(quarter int) [3]int {
	base := (quarter - 1) * 3
	return [3]int{base + 1, base + 2, base + 3}
}

// YearPeriod returns the year-level period for year.
func YearPeriod(year int) Period {
	return Period{Year: year}
}

// QuarterPeriod returns the quarter-level period for (year, quarter).
func QuarterPeriod(year, quarter int) Period {
	q := quarter
	return Period{Year: year, Quarter: &q}
}

// MonthPeriod returns the month-level period for (year, month).
// The quarter component is derived, preserving the invariant.
func MonthPeriod(year, month int) Period {
	q := QuarterOf(month)
	m := month
	return Period{Year: year, Quarter: &q, Month: &m}
}

// Granularity returns the active level of the period.
func (p Period) Granularity() Granularity {
	switch {
	case p.Month != nil:
		return GranMonth
	case p.Quarter != nil:
		return GranQuarter
	default:
		return GranYear
	}
}

// Validate checks range constraints and the quarter/month coherence
// invariant. A month period without a quarter is rejected: callers
// construct via MonthPeriod, which derives it.
func (p Period) Validate() error {
	if p.Quarter != nil && (*p.Quarter < 1 || *p.Quarter > 4) {
		return fmt.Errorf("%w: quarter %d", ErrInvalidQuarter, *p.Quarter)
	}
	if p.Month != nil {
		if *p.Month < 1 || *p.Month > 12 {
			return fmt.Errorf("%w: month %d", ErrInvalidMonth, *p.Month)
		}
		if p.Quarter == nil {
			return fmt.Errorf("%w: month %d has no quarter", ErrIncoherentPeriod, *p.Month)
		}
		if *p.Quarter != QuarterOf(*p.Month) {
			return fmt.Errorf("%w: month %d in quarter %d", ErrIncoherentPeriod, *p.Month, *p.Quarter)
		}
	}
	return nil
}

// Key returns the composite key for the period.
func (p Period) Key() PeriodKey {
	return MakePeriodKey(p.Year, p.Quarter, p.Month)
}

// MakePeriodKey builds a key from raw components.
func MakePeriodKey(year int, quarter, month *int) PeriodKey {
	q, m := "-", "-"
	if quarter != nil {
		q = strconv.Itoa(*quarter)
	}
	if month != nil {
		m = strconv.Itoa(*month)
	}
	return PeriodKey(strconv.Itoa(year) + ":" + q + ":" + m)
}

// ParsePeriodKey parses a key produced by Key or MakePeriodKey.
func ParsePeriodKey(key PeriodKey) (Period, error) {
	parts := strings.Split(string(key), ":")
	if len(parts) != 3 {
		return Period{}, fmt.Errorf("%w: %q", ErrMalformedPeriodKey, key)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrMalformedPeriodKey, key)
	}
	p := Period{Year: year}
	if parts[1] != "-" {
		q, err := strconv.Atoi(parts[1])
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q", ErrMalformedPeriodKey, key)
		}
		p.Quarter = &q
	}
	if parts[2] != "-" {
		m, err := strconv.Atoi(parts[2])
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q", ErrMalformedPeriodKey, key)
		}
		p.Month = &m
	}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// String renders the period for logs and errors.
func (p Period) String() string {
	switch p.Granularity() {
	case GranMonth:
		return fmt.Sprintf("%d-M%02d", p.Year, *p.Month)
	case GranQuarter:
		return fmt.Sprintf("%d-Q%d", p.Year, *p.Quarter)
	default:
		return strconv.Itoa(p.Year)
	}
}

// =============================================================================
// PERIOD SET - Deduplicated lookup for one aggregation pass
// =============================================================================

// PeriodSet indexes periods by composite key with first-wins semantics:
// when the source feed carries two records for the same (year, quarter,
// month), the first occurrence is kept and later ones are dropped with a
// warning. Insertion order from the feed determines precedence; values
// are never averaged or merged.
type PeriodSet struct {
	byKey map[PeriodKey]Period
}

// NewPeriodSet builds a set from the feed order of periods. Invalid
// periods and duplicates are skipped and reported as warnings.
func NewPeriodSet(periods []Period) (*PeriodSet, []Warning) {
	set := &PeriodSet{byKey: make(map[PeriodKey]Period, len(periods))}
	var warnings []Warning
	for _, p := range periods {
		if err := p.Validate(); err != nil {
			warnings = append(warnings, Warning{
				Code:      WarnInvalidPeriod,
				PeriodKey: p.Key(),
				Message:   err.Error(),
			})
			continue
		}
		key := p.Key()
		if _, ok := set.byKey[key]; ok {
			// First wins.
			warnings = append(warnings, Warning{
				Code:      WarnDuplicatePeriod,
				PeriodKey: key,
				Message:   "duplicate period dropped, first occurrence kept",
			})
			continue
		}
		set.byKey[key] = p
	}
	return set, warnings
}

// Lookup resolves a key to its period.
func (s *PeriodSet) Lookup(key PeriodKey) (Period, bool) {
	p, ok := s.byKey[key]
	return p, ok
}

// Len returns the number of distinct periods in the set.
func (s *PeriodSet) Len() int {
	return len(s.byKey)
}

// ForYear returns the subset of periods belonging to year, as a new set.
func (s *PeriodSet) ForYear(year int) *PeriodSet {
	out := &PeriodSet{byKey: make(map[PeriodKey]Period)}
	for k, p := range s.byKey {
		if p.Year == year {
			out.byKey[k] = p
		}
	}
	return out
}
