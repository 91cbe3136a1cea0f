package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DeadSteam/finproject/store/sqlite"
)

// =============================================================================
// PERIOD ENDPOINTS
// =============================================================================

// ListPeriods returns periods with optional filters.
// GET /api/v1/finance/periods?year=&quarter=&month=&type=
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	filter, ok := parsePeriodFilter(w, r)
	if !ok {
		return
	}

	periods, err := h.Store.ListPeriods(r.Context(), filter)
	if err != nil {
		respondError(w, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, 0, len(periods))
	for _, p := range periods {
		dtos = append(dtos, toPeriodDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPeriodsGrouped returns periods split by granularity.
// GET /api/v1/finance/periods/grouped?year=
func (h *Handler) ListPeriodsGrouped(w http.ResponseWriter, r *http.Request) {
	filter, ok := parsePeriodFilter(w, r)
	if !ok {
		return
	}

	periods, err := h.Store.ListPeriods(r.Context(), filter)
	if err != nil {
		respondError(w, "Failed to list periods", err)
		return
	}

	grouped := GroupedPeriodsDTO{
		Years:    []PeriodDTO{},
		Quarters: []PeriodDTO{},
		Months:   []PeriodDTO{},
	}
	for _, p := range periods {
		dto := toPeriodDTO(p)
		switch dto.Type {
		case "year":
			grouped.Years = append(grouped.Years, dto)
		case "quarter":
			grouped.Quarters = append(grouped.Quarters, dto)
		default:
			grouped.Months = append(grouped.Months, dto)
		}
	}
	writeJSON(w, http.StatusOK, grouped)
}

// CreatePeriod creates a period with a coherent (year, quarter, month)
// identity.
// POST /api/v1/finance/periods
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year == 0 {
		writeError(w, http.StatusBadRequest, "Year is required", nil)
		return
	}

	p := sqlite.Period{Year: req.Year, Quarter: req.Quarter, Month: req.Month}
	if err := h.Store.SavePeriod(r.Context(), &p); err != nil {
		respondError(w, "Failed to create period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(p))
}

// GetPeriod returns one period.
// GET /api/v1/finance/periods/{id}
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPeriod(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "Failed to get period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(*p))
}

// UpdatePeriod rewrites a period's year/quarter/month identity.
// PUT /api/v1/finance/periods/{id}
func (h *Handler) UpdatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year == 0 {
		writeError(w, http.StatusBadRequest, "Year is required", nil)
		return
	}

	p := sqlite.Period{ID: chi.URLParam(r, "id"), Year: req.Year, Quarter: req.Quarter, Month: req.Month}
	if err := h.Store.UpdatePeriod(r.Context(), p); err != nil {
		respondError(w, "Failed to update period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p))
}

// DeletePeriod removes a period.
// DELETE /api/v1/finance/periods/{id}
func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePeriod(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, "Failed to delete period", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// YEAR ENDPOINTS
// =============================================================================

// ListYears returns every year with at least one period, newest first.
// GET /api/v1/finance/years
func (h *Handler) ListYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.Store.DistinctYears(r.Context())
	if err != nil {
		respondError(w, "Failed to list years", err)
		return
	}
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, years)
}

// CreateYear registers a year by creating its year-level period.
// POST /api/v1/finance/years
func (h *Handler) CreateYear(w http.ResponseWriter, r *http.Request) {
	var req CreateYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year < 1 {
		writeError(w, http.StatusBadRequest, "Year is required", nil)
		return
	}

	p := sqlite.Period{Year: req.Year}
	if err := h.Store.SavePeriod(r.Context(), &p); err != nil {
		respondError(w, "Failed to create year", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(p))
}

// DeleteYear removes all periods of a year and their values.
// DELETE /api/v1/finance/years/{year}
func (h *Handler) DeleteYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	if err := h.Store.DeleteYear(r.Context(), year); err != nil {
		respondError(w, "Failed to delete year", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parsePeriodFilter reads period query filters, writing a 400 on bad
// numbers. The second return is false when a response was written.
func parsePeriodFilter(w http.ResponseWriter, r *http.Request) (sqlite.PeriodFilter, bool) {
	q := r.URL.Query()
	filter := sqlite.PeriodFilter{Type: q.Get("type")}

	for _, f := range []struct {
		name string
		dst  **int
	}{
		{"year", &filter.Year},
		{"quarter", &filter.Quarter},
		{"month", &filter.Month},
	} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid "+f.name, err)
			return sqlite.PeriodFilter{}, false
		}
		*f.dst = &n
	}
	return filter, true
}
