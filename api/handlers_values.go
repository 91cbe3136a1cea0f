package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/DeadSteam/finproject/finance"
	"github.com/DeadSteam/finproject/store/sqlite"
)

// =============================================================================
// VALUE ENDPOINTS - shared by /plan-values and /actual-values
// =============================================================================

// ListValues returns values of one kind with optional filters.
// GET /api/v1/finance/{plan-values|actual-values}?metric_id=&shop_id=&period_id=
func (h *Handler) ListValues(kind sqlite.ValueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := sqlite.ValueFilter{
			MetricID: q.Get("metric_id"),
			ShopID:   q.Get("shop_id"),
			PeriodID: q.Get("period_id"),
		}
		values, err := h.Store.ListValues(r.Context(), kind, filter)
		if err != nil {
			respondError(w, "Failed to list values", err)
			return
		}

		dtos := make([]ValueDTO, 0, len(values))
		for _, v := range values {
			dtos = append(dtos, toValueDTO(v))
		}
		writeJSON(w, http.StatusOK, dtos)
	}
}

// CreateValue records a value. One record per (metric, shop, period);
// duplicates are a 409.
// POST /api/v1/finance/{plan-values|actual-values}
func (h *Handler) CreateValue(kind sqlite.ValueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateValueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.MetricID == "" || req.ShopID == "" || req.PeriodID == "" {
			writeError(w, http.StatusBadRequest, "metric_id, shop_id and period_id are required", nil)
			return
		}

		ctx := r.Context()
		if _, err := h.Store.GetMetric(ctx, req.MetricID); err != nil {
			respondError(w, "Failed to resolve metric", err)
			return
		}
		if _, err := h.Store.GetShop(ctx, req.ShopID); err != nil {
			respondError(w, "Failed to resolve shop", err)
			return
		}
		if _, err := h.Store.GetPeriod(ctx, req.PeriodID); err != nil {
			respondError(w, "Failed to resolve period", err)
			return
		}

		v := sqlite.Value{
			MetricID: req.MetricID,
			ShopID:   req.ShopID,
			PeriodID: req.PeriodID,
			Amount:   req.Value,
		}
		if err := h.Store.SaveValue(ctx, kind, &v); err != nil {
			respondError(w, "Failed to create value", err)
			return
		}
		writeJSON(w, http.StatusCreated, toValueDTO(v))
	}
}

// GetValue returns one value.
// GET /api/v1/finance/{plan-values|actual-values}/{id}
func (h *Handler) GetValue(kind sqlite.ValueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.Store.GetValue(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, "Failed to get value", err)
			return
		}
		writeJSON(w, http.StatusOK, toValueDTO(*v))
	}
}

// UpdateValue rewrites the amount of a value.
// PUT /api/v1/finance/{plan-values|actual-values}/{id}
func (h *Handler) UpdateValue(kind sqlite.ValueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateValueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}

		id := chi.URLParam(r, "id")
		if err := h.Store.UpdateValue(r.Context(), kind, id, req.Value); err != nil {
			respondError(w, "Failed to update value", err)
			return
		}
		v, err := h.Store.GetValue(r.Context(), kind, id)
		if err != nil {
			respondError(w, "Failed to read back value", err)
			return
		}
		writeJSON(w, http.StatusOK, toValueDTO(*v))
	}
}

// DeleteValue removes a value.
// DELETE /api/v1/finance/{plan-values|actual-values}/{id}
func (h *Handler) DeleteValue(kind sqlite.ValueKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Store.DeleteValue(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			respondError(w, "Failed to delete value", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// =============================================================================
// PLAN DISTRIBUTION
// =============================================================================

// DistributeYearly spreads a yearly plan over the year's quarters and
// months and writes all 17 plan rows, creating missing periods on the
// way. Rerunning overwrites the previous distribution.
// POST /api/v1/finance/plan-values/distribute-yearly
func (h *Handler) DistributeYearly(w http.ResponseWriter, r *http.Request) {
	var req DistributeYearlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.MetricID == "" || req.ShopID == "" || req.Year < 1 {
		writeError(w, http.StatusBadRequest, "metric_id, shop_id and year are required", nil)
		return
	}
	if req.Value.IsNegative() {
		writeError(w, http.StatusBadRequest, "Value must be non-negative", finance.ErrNegativeValue)
		return
	}

	ctx := r.Context()
	if _, err := h.Store.GetMetric(ctx, req.MetricID); err != nil {
		respondError(w, "Failed to resolve metric", err)
		return
	}
	if _, err := h.Store.GetShop(ctx, req.ShopID); err != nil {
		respondError(w, "Failed to resolve shop", err)
		return
	}

	dist := finance.DistributeYearlyPlan(req.Value)

	updates := []finance.PlanUpdate{{Period: finance.YearPeriod(req.Year), Value: dist.Year}}
	for q := 1; q <= 4; q++ {
		updates = append(updates, finance.PlanUpdate{
			Period: finance.QuarterPeriod(req.Year, q),
			Value:  dist.Quarters[q-1],
		})
	}
	for m := 1; m <= 12; m++ {
		updates = append(updates, finance.PlanUpdate{
			Period: finance.MonthPeriod(req.Year, m),
			Value:  dist.Months[m-1],
		})
	}

	if err := h.applyPlanUpdates(r, req.MetricID, req.ShopID, updates); err != nil {
		respondError(w, "Failed to write distributed plan", err)
		return
	}

	h.Log.Info("yearly plan distributed",
		"metric_id", req.MetricID, "shop_id", req.ShopID, "year", req.Year)
	writeJSON(w, http.StatusOK, DistributeYearlyResponse{
		Year:     dist.Year,
		Quarters: dist.Quarters[:],
		Months:   dist.Months[:],
	})
}

// RecalculateWithActual redistributes the remaining months' plans after
// an actual came in for one month, then rewrites the affected plan rows.
// POST /api/v1/finance/plan-values/recalculate-with-actual
func (h *Handler) RecalculateWithActual(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.MetricID == "" || req.ShopID == "" || req.Year < 1 {
		writeError(w, http.StatusBadRequest, "metric_id, shop_id and year are required", nil)
		return
	}

	ctx := r.Context()
	if _, err := h.Store.GetMetric(ctx, req.MetricID); err != nil {
		respondError(w, "Failed to resolve metric", err)
		return
	}
	if _, err := h.Store.GetShop(ctx, req.ShopID); err != nil {
		respondError(w, "Failed to resolve shop", err)
		return
	}

	grid, err := h.loadPlanGrid(r, req.MetricID, req.ShopID, req.Year)
	if err != nil {
		respondError(w, "Failed to load plan", err)
		return
	}

	// An actual landing exactly on the month's plan warrants no
	// redistribution; the plan rows stay as they are. December edits
	// still rewrite the edited month and the totals above it even
	// though nothing lies ahead to spread into.
	if monthPlan, ok := grid.Months[req.Month]; ok {
		_, deviates := finance.PlanRemainingMonths(
			finance.MetricID(req.MetricID), finance.ShopID(req.ShopID),
			req.Year, req.Month, monthPlan, req.ActualValue)
		if !deviates && monthPlan.Equal(req.ActualValue) {
			writeJSON(w, http.StatusOK, []PlanUpdateDTO{})
			return
		}
	}

	// Months already behind the calendar are folded into the spread
	// instead of being rewritten. Past years redistribute in full.
	currentMonth := 1
	if now := time.Now(); req.Year == now.Year() {
		currentMonth = int(now.Month())
	}

	updates, err := finance.RecalculatePlanWithActual(grid, req.Year, req.Month, req.ActualValue, currentMonth)
	if err != nil {
		respondError(w, "Failed to recalculate plan", err)
		return
	}

	if err := h.applyPlanUpdates(r, req.MetricID, req.ShopID, updates); err != nil {
		respondError(w, "Failed to write recalculated plan", err)
		return
	}

	h.Log.Info("plan recalculated with actual",
		"metric_id", req.MetricID, "shop_id", req.ShopID,
		"year", req.Year, "month", req.Month)

	dtos := make([]PlanUpdateDTO, 0, len(updates))
	for _, u := range updates {
		dtos = append(dtos, PlanUpdateDTO{
			Year:    u.Period.Year,
			Quarter: u.Period.Quarter,
			Month:   u.Period.Month,
			Value:   u.Value,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListYearlyPlans returns year-level plans with their labels.
// GET /api/v1/finance/yearly-plans?year=
func (h *Handler) ListYearlyPlans(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, ok := parseIntParam(w, "year", raw)
		if !ok {
			return
		}
		year = parsed
	}

	plans, err := h.Store.ListYearlyPlans(r.Context(), year)
	if err != nil {
		respondError(w, "Failed to list yearly plans", err)
		return
	}

	dtos := make([]YearlyPlanDTO, 0, len(plans))
	for _, p := range plans {
		dtos = append(dtos, YearlyPlanDTO{
			Year:         p.Year,
			MetricID:     p.MetricID,
			MetricName:   p.MetricName,
			Unit:         p.Unit,
			CategoryID:   p.CategoryID,
			CategoryName: p.CategoryName,
			ShopID:       p.ShopID,
			ShopName:     p.ShopName,
			Plan:         p.Plan,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PLAN HELPERS
// =============================================================================

// loadPlanGrid reads a metric/shop's stored plan rows for one year into
// the grid the recalculation arithmetic consumes.
func (h *Handler) loadPlanGrid(r *http.Request, metricID, shopID string, year int) (finance.PlanGrid, error) {
	rows, err := h.Store.ListValuesForYear(r.Context(), sqlite.KindPlan, sqlite.YearValueFilter{
		Year:     year,
		MetricID: metricID,
		ShopID:   shopID,
	})
	if err != nil {
		return finance.PlanGrid{}, err
	}

	grid := finance.PlanGrid{
		Quarters: map[int]decimal.Decimal{},
		Months:   map[int]decimal.Decimal{},
	}
	for _, row := range rows {
		switch {
		case row.Period.Month != nil:
			grid.Months[*row.Period.Month] = row.Amount
		case row.Period.Quarter != nil:
			grid.Quarters[*row.Period.Quarter] = row.Amount
		default:
			grid.Year = row.Amount
			grid.HasYear = true
		}
	}
	return grid, nil
}

// applyPlanUpdates writes plan rows, creating their periods when
// missing.
func (h *Handler) applyPlanUpdates(r *http.Request, metricID, shopID string, updates []finance.PlanUpdate) error {
	ctx := r.Context()
	for _, u := range updates {
		p, err := h.Store.EnsurePeriod(ctx, u.Period.Year, u.Period.Quarter, u.Period.Month)
		if err != nil {
			return err
		}
		if err := h.Store.UpsertValue(ctx, sqlite.KindPlan, metricID, shopID, p.ID, u.Value); err != nil {
			return err
		}
	}
	return nil
}
