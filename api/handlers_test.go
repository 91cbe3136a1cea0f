/*
handlers_test.go - HTTP tests for the finance API

Tests go through the full router with an in-memory store, exercising
routing, JSON shapes and status code mapping end to end.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeadSteam/finproject/logx"
	"github.com/DeadSteam/finproject/store/sqlite"
)

const prefix = "/api/v1/finance"

type testAPI struct {
	store  *sqlite.Store
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logx.New(logx.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
	h := NewHandler(store, log)
	return &testAPI{store: store, router: NewRouter(h, []string{"*"})}
}

// do issues a request and decodes the JSON response into out when out
// is non-nil.
func (a *testAPI) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out),
			"response body: %s", rec.Body.String())
	}
	return rec
}

func (a *testAPI) createCategory(t *testing.T, name string) CategoryDTO {
	t.Helper()
	var dto CategoryDTO
	rec := a.do(t, http.MethodPost, prefix+"/categories",
		CreateCategoryRequest{Name: name}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code)
	return dto
}

func (a *testAPI) createShop(t *testing.T, name string) ShopDTO {
	t.Helper()
	var dto ShopDTO
	rec := a.do(t, http.MethodPost, prefix+"/shops",
		CreateShopRequest{Name: name}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code)
	return dto
}

func (a *testAPI) createMetric(t *testing.T, name, categoryID string) MetricDTO {
	t.Helper()
	var dto MetricDTO
	rec := a.do(t, http.MethodPost, prefix+"/metrics",
		CreateMetricRequest{Name: name, Unit: "rub", CategoryID: categoryID}, &dto)
	require.Equal(t, http.StatusCreated, rec.Code)
	return dto
}

func (a *testAPI) createPeriod(t *testing.T, req CreatePeriodRequest) PeriodDTO {
	t.Helper()
	var dto PeriodDTO
	rec := a.do(t, http.MethodPost, prefix+"/periods", req, &dto)
	require.Equal(t, http.StatusCreated, rec.Code)
	return dto
}

func intp(n int) *int { return &n }

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestCategoryCRUD(t *testing.T) {
	a := newTestAPI(t)

	// Create
	created := a.createCategory(t, "Payroll")
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Status)

	// Get
	var got CategoryDTO
	rec := a.do(t, http.MethodGet, prefix+"/categories/"+created.ID, nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Payroll", got.Name)

	// Update
	var updated CategoryDTO
	rec = a.do(t, http.MethodPut, prefix+"/categories/"+created.ID,
		CreateCategoryRequest{Name: "Wages"}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wages", updated.Name)

	// Delete, then 404
	rec = a.do(t, http.MethodDelete, prefix+"/categories/"+created.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodGet, prefix+"/categories/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCategory_RequiresName(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, prefix+"/categories", CreateCategoryRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMetric_UnknownCategoryIs404(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodPost, prefix+"/metrics",
		CreateMetricRequest{Name: "Hours", CategoryID: "missing"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMetric_EmbedsCategory(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	metric := a.createMetric(t, "Hours", cat.ID)

	var got MetricDTO
	rec := a.do(t, http.MethodGet, prefix+"/metrics/"+metric.ID, nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Payroll", got.Category.Name)
}

// =============================================================================
// PERIODS AND YEARS
// =============================================================================

func TestPeriodLifecycleAndLocalizedNames(t *testing.T) {
	a := newTestAPI(t)

	year := a.createPeriod(t, CreatePeriodRequest{Year: 2025})
	assert.Equal(t, "year", year.Type)
	assert.Equal(t, "2025 год", year.DisplayName)

	q2 := a.createPeriod(t, CreatePeriodRequest{Year: 2025, Quarter: intp(2)})
	assert.Equal(t, "II квартал 2025", q2.DisplayName)

	may := a.createPeriod(t, CreatePeriodRequest{Year: 2025, Quarter: intp(2), Month: intp(5)})
	assert.Equal(t, "month", may.Type)
	assert.Equal(t, "Май 2025", may.DisplayName)

	// Duplicate identity conflicts.
	rec := a.do(t, http.MethodPost, prefix+"/periods",
		CreatePeriodRequest{Year: 2025, Quarter: intp(2), Month: intp(5)}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Incoherent identity is a client error. May is in Q2, not Q1.
	rec = a.do(t, http.MethodPost, prefix+"/periods",
		CreatePeriodRequest{Year: 2025, Quarter: intp(1), Month: intp(5)}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var grouped GroupedPeriodsDTO
	rec = a.do(t, http.MethodGet, prefix+"/periods/grouped?year=2025", nil, &grouped)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, grouped.Years, 1)
	assert.Len(t, grouped.Quarters, 1)
	assert.Len(t, grouped.Months, 1)

	// Moving a period to a free identity relocalizes its name; moving it
	// onto an occupied one conflicts.
	var moved PeriodDTO
	rec = a.do(t, http.MethodPut, prefix+"/periods/"+may.ID,
		CreatePeriodRequest{Year: 2025, Quarter: intp(3), Month: intp(9)}, &moved)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Сентябрь 2025", moved.DisplayName)

	rec = a.do(t, http.MethodPut, prefix+"/periods/"+may.ID,
		CreatePeriodRequest{Year: 2025, Quarter: intp(2)}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestYearEndpoints(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, prefix+"/years", CreateYearRequest{Year: 2025}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(t, http.MethodPost, prefix+"/years", CreateYearRequest{Year: 2024}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var years []int
	rec = a.do(t, http.MethodGet, prefix+"/years", nil, &years)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2025, 2024}, years)

	rec = a.do(t, http.MethodDelete, prefix+"/years/2025", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, prefix+"/years", nil, &years)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2024}, years)

	rec = a.do(t, http.MethodDelete, prefix+"/years/2030", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Registering an already-present year conflicts instead of creating
	// a second year-level period row.
	rec = a.do(t, http.MethodPost, prefix+"/years", CreateYearRequest{Year: 2024}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.do(t, http.MethodGet, prefix+"/years", nil, &years)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{2024}, years)
}

// =============================================================================
// VALUES
// =============================================================================

func TestValueCreate_DuplicateTripleIs409(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)
	period := a.createPeriod(t, CreatePeriodRequest{Year: 2025})

	body := CreateValueRequest{
		MetricID: metric.ID, ShopID: shop.ID, PeriodID: period.ID,
		Value: dec("1200"),
	}
	rec := a.do(t, http.MethodPost, prefix+"/plan-values", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodPost, prefix+"/plan-values", body, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The same triple on the actuals side is independent.
	rec = a.do(t, http.MethodPost, prefix+"/actual-values", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestValueCreate_NegativeIs400(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)
	period := a.createPeriod(t, CreatePeriodRequest{Year: 2025})

	rec := a.do(t, http.MethodPost, prefix+"/plan-values", CreateValueRequest{
		MetricID: metric.ID, ShopID: shop.ID, PeriodID: period.ID,
		Value: dec("-5"),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDistributeYearly_WritesAllSeventeenRows(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)

	var resp DistributeYearlyResponse
	rec := a.do(t, http.MethodPost, prefix+"/plan-values/distribute-yearly",
		DistributeYearlyRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2025, Value: dec("1000"),
		}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "1000", resp.Year.String())
	require.Len(t, resp.Quarters, 4)
	require.Len(t, resp.Months, 12)

	// Quarters reconcile with the year despite 1000 not dividing by 4.
	sum := dec("0")
	for _, q := range resp.Quarters {
		sum = sum.Add(q)
	}
	assert.Equal(t, "1000", sum.String())

	// All 17 plan rows exist.
	var values []ValueDTO
	rec = a.do(t, http.MethodGet,
		fmt.Sprintf("%s/plan-values?metric_id=%s", prefix, metric.ID), nil, &values)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, values, 17)

	// Rerunning with a new amount overwrites instead of conflicting.
	rec = a.do(t, http.MethodPost, prefix+"/plan-values/distribute-yearly",
		DistributeYearlyRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2025, Value: dec("2000"),
		}, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2000", resp.Year.String())
}

func TestRecalculateWithActual_RewritesPlans(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)

	// Use a past year so no calendar months are considered elapsed and
	// the spread is deterministic.
	rec := a.do(t, http.MethodPost, prefix+"/plan-values/distribute-yearly",
		DistributeYearlyRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2020, Value: dec("1200"),
		}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// December actual of 150 against its plan of 100.
	var updates []PlanUpdateDTO
	rec = a.do(t, http.MethodPost, prefix+"/plan-values/recalculate-with-actual",
		RecalculateRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2020,
			Month: 12, ActualValue: dec("150"),
		}, &updates)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, updates)

	// With December edited there are no later months to spread into, so
	// the plan simply absorbs the overshoot. Q4 and the year grow by 50.
	byKey := map[string]string{}
	for _, u := range updates {
		key := fmt.Sprintf("%d:%v:%v", u.Year, deref(u.Quarter), deref(u.Month))
		byKey[key] = u.Value.String()
	}
	assert.Equal(t, "150", byKey["2020:4:12"])
	assert.Equal(t, "350", byKey["2020:4:0"])
	assert.Equal(t, "1250", byKey["2020:0:0"])
}

func TestRecalculateWithActual_OnPlanActualLeavesPlansAlone(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)

	rec := a.do(t, http.MethodPost, prefix+"/plan-values/distribute-yearly",
		DistributeYearlyRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2020, Value: dec("1200"),
		}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// March's actual lands exactly on its plan of 100, so nothing is
	// rewritten.
	var updates []PlanUpdateDTO
	rec = a.do(t, http.MethodPost, prefix+"/plan-values/recalculate-with-actual",
		RecalculateRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2020,
			Month: 3, ActualValue: dec("100"),
		}, &updates)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, updates)

	// The distributed grid survives untouched: 100 per month, 300 per
	// quarter, 1200 for the year.
	var values []ValueDTO
	rec = a.do(t, http.MethodGet,
		fmt.Sprintf("%s/plan-values?metric_id=%s", prefix, metric.ID), nil, &values)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, values, 17)
	for _, v := range values {
		assert.Contains(t, []string{"100", "300", "1200"}, v.Value.String())
	}
}

func TestRecalculateWithActual_NoYearlyPlanIs400(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)

	rec := a.do(t, http.MethodPost, prefix+"/plan-values/recalculate-with-actual",
		RecalculateRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2020,
			Month: 3, ActualValue: dec("100"),
		}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListYearlyPlans(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)

	rec := a.do(t, http.MethodPost, prefix+"/plan-values/distribute-yearly",
		DistributeYearlyRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2025, Value: dec("1200"),
		}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []YearlyPlanDTO
	rec = a.do(t, http.MethodGet, prefix+"/yearly-plans?year=2025", nil, &plans)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, plans, 1, "only the year-level row should list")
	assert.Equal(t, "Hours", plans[0].MetricName)
	assert.Equal(t, "Central", plans[0].ShopName)
	assert.Equal(t, "1200", plans[0].Plan.String())
}

// =============================================================================
// ANALYTICS
// =============================================================================

func TestBudgetStatisticsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)
	period := a.createPeriod(t, CreatePeriodRequest{Year: 2025})

	rec := a.do(t, http.MethodPost, prefix+"/plan-values", CreateValueRequest{
		MetricID: metric.ID, ShopID: shop.ID, PeriodID: period.ID, Value: dec("1000"),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = a.do(t, http.MethodPost, prefix+"/actual-values", CreateValueRequest{
		MetricID: metric.ID, ShopID: shop.ID, PeriodID: period.ID, Value: dec("900"),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var stats BudgetStatisticsDTO
	rec = a.do(t, http.MethodGet,
		prefix+"/analytics/budget-statistics?period_id="+period.ID, nil, &stats)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", stats.TotalPlan.String())
	assert.Equal(t, "900", stats.TotalActual.String())
	assert.Equal(t, "100", stats.Deviation.String())
	require.Len(t, stats.Categories, 1)
	assert.Equal(t, "Payroll", stats.Categories[0].CategoryName)

	// Missing period_id is a client error, unknown period a 404.
	rec = a.do(t, http.MethodGet, prefix+"/analytics/budget-statistics", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet,
		prefix+"/analytics/budget-statistics?period_id=missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChartsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	cat := a.createCategory(t, "Payroll")
	shop := a.createShop(t, "Central")
	metric := a.createMetric(t, "Hours", cat.ID)

	rec := a.do(t, http.MethodPost, prefix+"/plan-values/distribute-yearly",
		DistributeYearlyRequest{
			MetricID: metric.ID, ShopID: shop.ID, Year: 2025, Value: dec("1200"),
		}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	url := fmt.Sprintf("%s/analytics/charts?category_id=%s&shop_id=%s&year=2025",
		prefix, cat.ID, shop.ID)
	var resp ChartResponseDTO
	rec = a.do(t, http.MethodGet, url, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, resp.Metrics, 1)
	chart := resp.Metrics[0]
	assert.Equal(t, "Hours", chart.MetricName)
	assert.Equal(t, "1200", chart.Total.Plan.String())
	assert.Nil(t, chart.Total.Actual, "no actuals recorded yet")

	require.Len(t, chart.Quarters, 4)
	assert.Equal(t, "I квартал", chart.Quarters[0].Name)
	assert.Equal(t, "300", chart.Quarters[0].Cell.Plan.String())

	require.Len(t, chart.Months, 12)
	assert.Equal(t, "Январь", chart.Months[0].Name)
	assert.Equal(t, "100", chart.Months[0].Cell.Plan.String())

	// Missing year parameter.
	rec = a.do(t, http.MethodGet,
		fmt.Sprintf("%s/analytics/charts?category_id=%s&shop_id=%s", prefix, cat.ID, shop.ID),
		nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
