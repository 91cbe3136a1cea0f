/*
Package analytics builds reporting views on top of the finance core and
the store.

PURPOSE:
  Read-side queries the dashboard consumes: budget totals with a
  per-category breakdown, actual-vs-plan comparisons per metric and
  shop, per-shop actual totals, and the chart grid produced by the
  period aggregator.

DESIGN:
  Everything here is recomputed per call from stored values. Nothing is
  cached; callers who need caching put it in front of the HTTP layer.
  Deviation figures follow finance.ComputeVariance: difference is
  plan minus actual, percentage is guarded against a zero plan.

SEE ALSO:
  - finance/aggregate.go: The aggregation core ChartSeries feeds
  - finance/variance.go: Deviation arithmetic
  - store/sqlite: The persistence these reports read from
*/
package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/DeadSteam/finproject/finance"
	"github.com/DeadSteam/finproject/store/sqlite"
)

// Service computes reporting views from stored values.
type Service struct {
	store *sqlite.Store
}

func NewService(store *sqlite.Store) *Service {
	return &Service{store: store}
}

// =============================================================================
// BUDGET STATISTICS
// =============================================================================

// CategoryStats is one category's slice of the budget.
type CategoryStats struct {
	CategoryID       string
	CategoryName     string
	Plan             decimal.Decimal
	Actual           decimal.Decimal
	Deviation        decimal.Decimal
	DeviationPercent decimal.Decimal
}

// BudgetStatistics totals a period's plan and actual values.
type BudgetStatistics struct {
	TotalPlan        decimal.Decimal
	TotalActual      decimal.Decimal
	Deviation        decimal.Decimal
	DeviationPercent decimal.Decimal
	Categories       []CategoryStats
}

// BudgetStatistics sums plan and actual values for one period, overall
// and per category. shopID narrows to one shop when non-empty.
func (s *Service) BudgetStatistics(ctx context.Context, periodID, shopID string) (*BudgetStatistics, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}

	metricCategory, err := s.metricCategoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx, false)
	if err != nil {
		return nil, err
	}
	categoryName := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryName[c.ID] = c.Name
	}

	filter := sqlite.ValueFilter{PeriodID: periodID, ShopID: shopID}
	plans, err := s.store.ListValues(ctx, sqlite.KindPlan, filter)
	if err != nil {
		return nil, err
	}
	actuals, err := s.store.ListValues(ctx, sqlite.KindActual, filter)
	if err != nil {
		return nil, err
	}

	stats := &BudgetStatistics{}
	byCategory := map[string]*CategoryStats{}
	bucket := func(metricID string) *CategoryStats {
		catID := metricCategory[metricID]
		cs, ok := byCategory[catID]
		if !ok {
			cs = &CategoryStats{CategoryID: catID, CategoryName: categoryName[catID]}
			byCategory[catID] = cs
		}
		return cs
	}

	for _, v := range plans {
		stats.TotalPlan = stats.TotalPlan.Add(v.Amount)
		cs := bucket(v.MetricID)
		cs.Plan = cs.Plan.Add(v.Amount)
	}
	for _, v := range actuals {
		stats.TotalActual = stats.TotalActual.Add(v.Amount)
		cs := bucket(v.MetricID)
		cs.Actual = cs.Actual.Add(v.Amount)
	}

	total := finance.ComputeVariance(stats.TotalPlan, stats.TotalActual)
	stats.Deviation = total.Difference
	stats.DeviationPercent = total.DisplayPercentage()

	for _, cs := range byCategory {
		v := finance.ComputeVariance(cs.Plan, cs.Actual)
		cs.Deviation = v.Difference
		cs.DeviationPercent = v.DisplayPercentage()
		stats.Categories = append(stats.Categories, *cs)
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		return stats.Categories[i].CategoryName < stats.Categories[j].CategoryName
	})
	return stats, nil
}

// =============================================================================
// ACTUAL VS PLAN
// =============================================================================

// MetricComparison pairs one metric's plan and actual for one shop.
type MetricComparison struct {
	MetricID         string
	MetricName       string
	Unit             string
	CategoryID       string
	ShopID           string
	ShopName         string
	Plan             decimal.Decimal
	Actual           decimal.Decimal
	Deviation        decimal.Decimal
	DeviationPercent decimal.Decimal
}

// ActualVsPlan compares stored actuals against plans for one period,
// per metric per shop. shopID and categoryID narrow the result when
// non-empty.
func (s *Service) ActualVsPlan(ctx context.Context, periodID, shopID, categoryID string) ([]MetricComparison, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}

	metrics, err := s.store.ListMetrics(ctx, sqlite.MetricFilter{CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	metricByID := make(map[string]sqlite.Metric, len(metrics))
	for _, m := range metrics {
		metricByID[m.ID] = m
	}

	shops, err := s.store.ListShops(ctx, false)
	if err != nil {
		return nil, err
	}
	shopName := make(map[string]string, len(shops))
	for _, sh := range shops {
		shopName[sh.ID] = sh.Name
	}

	filter := sqlite.ValueFilter{PeriodID: periodID, ShopID: shopID}
	plans, err := s.store.ListValues(ctx, sqlite.KindPlan, filter)
	if err != nil {
		return nil, err
	}
	actuals, err := s.store.ListValues(ctx, sqlite.KindActual, filter)
	if err != nil {
		return nil, err
	}

	type pairKey struct{ metricID, shopID string }
	pairs := map[pairKey]*MetricComparison{}
	touch := func(metricID, shopID string) *MetricComparison {
		m, ok := metricByID[metricID]
		if !ok {
			// Metric outside the category filter, or deleted.
			return nil
		}
		k := pairKey{metricID, shopID}
		mc, ok := pairs[k]
		if !ok {
			mc = &MetricComparison{
				MetricID:   m.ID,
				MetricName: m.Name,
				Unit:       m.Unit,
				CategoryID: m.CategoryID,
				ShopID:     shopID,
				ShopName:   shopName[shopID],
			}
			pairs[k] = mc
		}
		return mc
	}

	for _, v := range plans {
		if mc := touch(v.MetricID, v.ShopID); mc != nil {
			mc.Plan = mc.Plan.Add(v.Amount)
		}
	}
	for _, v := range actuals {
		if mc := touch(v.MetricID, v.ShopID); mc != nil {
			mc.Actual = mc.Actual.Add(v.Amount)
		}
	}

	out := make([]MetricComparison, 0, len(pairs))
	for _, mc := range pairs {
		v := finance.ComputeVariance(mc.Plan, mc.Actual)
		mc.Deviation = v.Difference
		mc.DeviationPercent = v.DisplayPercentage()
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MetricName != out[j].MetricName {
			return out[i].MetricName < out[j].MetricName
		}
		return out[i].ShopName < out[j].ShopName
	})
	return out, nil
}

// =============================================================================
// TOTALS BY SHOP
// =============================================================================

// MetricActual is one metric's recorded actual within a shop total.
type MetricActual struct {
	MetricID   string
	MetricName string
	Unit       string
	Actual     decimal.Decimal
}

// ShopTotals is one shop's actuals for a period.
type ShopTotals struct {
	ShopID   string
	ShopName string
	Metrics  []MetricActual
	Total    decimal.Decimal
}

// TotalMetricsByShop groups a period's actuals by shop. Shops are
// sorted by total, largest first.
func (s *Service) TotalMetricsByShop(ctx context.Context, periodID string) ([]ShopTotals, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}

	metrics, err := s.store.ListMetrics(ctx, sqlite.MetricFilter{})
	if err != nil {
		return nil, err
	}
	metricByID := make(map[string]sqlite.Metric, len(metrics))
	for _, m := range metrics {
		metricByID[m.ID] = m
	}

	shops, err := s.store.ListShops(ctx, false)
	if err != nil {
		return nil, err
	}
	shopName := make(map[string]string, len(shops))
	for _, sh := range shops {
		shopName[sh.ID] = sh.Name
	}

	actuals, err := s.store.ListValues(ctx, sqlite.KindActual, sqlite.ValueFilter{PeriodID: periodID})
	if err != nil {
		return nil, err
	}

	byShop := map[string]*ShopTotals{}
	for _, v := range actuals {
		m, ok := metricByID[v.MetricID]
		if !ok {
			continue
		}
		st, ok := byShop[v.ShopID]
		if !ok {
			st = &ShopTotals{ShopID: v.ShopID, ShopName: shopName[v.ShopID]}
			byShop[v.ShopID] = st
		}
		st.Metrics = append(st.Metrics, MetricActual{
			MetricID:   m.ID,
			MetricName: m.Name,
			Unit:       m.Unit,
			Actual:     v.Amount,
		})
		st.Total = st.Total.Add(v.Amount)
	}

	out := make([]ShopTotals, 0, len(byShop))
	for _, st := range byShop {
		sort.Slice(st.Metrics, func(i, j int) bool {
			return st.Metrics[i].MetricName < st.Metrics[j].MetricName
		})
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].ShopName < out[j].ShopName
	})
	return out, nil
}

// =============================================================================
// CHART SERIES
// =============================================================================

// ChartSeries assembles the year/quarter/month plan-actual grid for
// every metric of a category, scoped to one shop. The result is the raw
// aggregated view; display names are attached at the API boundary.
func (s *Service) ChartSeries(ctx context.Context, categoryID, shopID string, year int) ([]finance.AggregatedMetricView, []finance.Warning, error) {
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.GetShop(ctx, shopID); err != nil {
		return nil, nil, err
	}

	rows, err := s.store.ListPeriods(ctx, sqlite.PeriodFilter{Year: &year})
	if err != nil {
		return nil, nil, err
	}
	periods := make([]finance.Period, 0, len(rows))
	for _, p := range rows {
		periods = append(periods, p.Domain())
	}

	metricRows, err := s.store.ListMetrics(ctx, sqlite.MetricFilter{CategoryID: categoryID})
	if err != nil {
		return nil, nil, err
	}

	metrics := make([]finance.Metric, 0, len(metricRows))
	for _, m := range metricRows {
		fm := finance.Metric{
			ID:         finance.MetricID(m.ID),
			Name:       m.Name,
			Unit:       m.Unit,
			CategoryID: finance.CategoryID(m.CategoryID),
		}
		yf := sqlite.YearValueFilter{Year: year, MetricID: m.ID, ShopID: shopID}
		plans, err := s.store.ListValuesForYear(ctx, sqlite.KindPlan, yf)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range plans {
			fm.PlanValues = append(fm.PlanValues, v.Record())
		}
		actuals, err := s.store.ListValuesForYear(ctx, sqlite.KindActual, yf)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range actuals {
			fm.ActualValues = append(fm.ActualValues, v.Record())
		}
		metrics = append(metrics, fm)
	}

	views, warnings, err := finance.Aggregate(metrics, periods, year)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregation failed: %w", err)
	}
	return views, warnings, nil
}

// metricCategoryIndex maps metric id to category id for every metric.
func (s *Service) metricCategoryIndex(ctx context.Context) (map[string]string, error) {
	metrics, err := s.store.ListMetrics(ctx, sqlite.MetricFilter{})
	if err != nil {
		return nil, err
	}
	idx := make(map[string]string, len(metrics))
	for _, m := range metrics {
		idx[m.ID] = m.CategoryID
	}
	return idx, nil
}
