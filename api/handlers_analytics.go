package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// =============================================================================
// ANALYTICS ENDPOINTS
// =============================================================================

// BudgetStatistics returns plan/actual totals with a per-category
// breakdown for one period.
// GET /api/v1/finance/analytics/budget-statistics?period_id=&shop_id=
func (h *Handler) BudgetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	periodID := q.Get("period_id")
	if periodID == "" {
		writeError(w, http.StatusBadRequest, "period_id is required", nil)
		return
	}

	stats, err := h.Analytics.BudgetStatistics(r.Context(), periodID, q.Get("shop_id"))
	if err != nil {
		respondError(w, "Failed to compute budget statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetStatisticsDTO(stats))
}

// ActualVsPlan compares actuals against plans per metric per shop.
// GET /api/v1/finance/analytics/actual-vs-plan/{periodID}?shop_id=&category_id=
func (h *Handler) ActualVsPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	comparisons, err := h.Analytics.ActualVsPlan(r.Context(),
		chi.URLParam(r, "periodID"), q.Get("shop_id"), q.Get("category_id"))
	if err != nil {
		respondError(w, "Failed to compare actual vs plan", err)
		return
	}

	dtos := make([]MetricComparisonDTO, 0, len(comparisons))
	for _, c := range comparisons {
		dtos = append(dtos, MetricComparisonDTO{
			MetricID:         c.MetricID,
			MetricName:       c.MetricName,
			Unit:             c.Unit,
			CategoryID:       c.CategoryID,
			ShopID:           c.ShopID,
			ShopName:         c.ShopName,
			Plan:             c.Plan,
			Actual:           c.Actual,
			Deviation:        c.Deviation,
			DeviationPercent: c.DeviationPercent,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TotalMetricsByShop returns per-shop actual totals, largest first.
// GET /api/v1/finance/analytics/total-metrics-by-shop/{periodID}
func (h *Handler) TotalMetricsByShop(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Analytics.TotalMetricsByShop(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		respondError(w, "Failed to total metrics by shop", err)
		return
	}

	dtos := make([]ShopTotalsDTO, 0, len(totals))
	for _, st := range totals {
		dto := ShopTotalsDTO{
			ShopID:   st.ShopID,
			ShopName: st.ShopName,
			Metrics:  []MetricActualDTO{},
			Total:    st.Total,
		}
		for _, m := range st.Metrics {
			dto.Metrics = append(dto.Metrics, MetricActualDTO{
				MetricID:   m.MetricID,
				MetricName: m.MetricName,
				Unit:       m.Unit,
				Actual:     m.Actual,
			})
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Charts returns the year/quarter/month plan-actual grid for every
// metric of a category at one shop, with localized period names.
// GET /api/v1/finance/analytics/charts?category_id=&shop_id=&year=
func (h *Handler) Charts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID := q.Get("category_id")
	shopID := q.Get("shop_id")
	if categoryID == "" || shopID == "" || q.Get("year") == "" {
		writeError(w, http.StatusBadRequest, "category_id, shop_id and year are required", nil)
		return
	}
	year, ok := parseIntParam(w, "year", q.Get("year"))
	if !ok {
		return
	}

	views, warnings, err := h.Analytics.ChartSeries(r.Context(), categoryID, shopID, year)
	if err != nil {
		respondError(w, "Failed to build chart series", err)
		return
	}

	resp := ChartResponseDTO{Year: year, Metrics: []ChartMetricDTO{}}
	for _, v := range views {
		resp.Metrics = append(resp.Metrics, toChartMetricDTO(v))
	}
	for _, warn := range warnings {
		resp.Warnings = append(resp.Warnings, warn.String())
	}
	if len(warnings) > 0 {
		h.Log.Warn("chart aggregation produced warnings",
			"category_id", categoryID, "shop_id", shopID,
			"year", year, "count", len(warnings))
	}
	writeJSON(w, http.StatusOK, resp)
}
