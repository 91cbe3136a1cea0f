/*
handlers.go - HTTP API handlers for reference data

PURPOSE:
  Exposes the finance service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.
  This file covers categories, shops and metrics; sibling handlers_*
  files cover periods, values and analytics.

ENDPOINTS (prefix /api/v1/finance):
  Categories:
    GET    /categories            List (optional ?active=true)
    POST   /categories            Create
    GET    /categories/{id}       Get
    PUT    /categories/{id}       Update
    DELETE /categories/{id}       Delete

  Shops:
    GET    /shops                 List (optional ?active=true)
    POST   /shops                 Create
    GET    /shops/{id}            Get
    PUT    /shops/{id}            Update
    DELETE /shops/{id}            Delete

  Metrics:
    GET    /metrics               List (?category_id=&shop_id=&search=)
    POST   /metrics               Create
    GET    /metrics/{id}          Get with its category
    PUT    /metrics/{id}          Update
    DELETE /metrics/{id}          Delete

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Analytics: Reporting service
  - Log: Structured logger

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entity not found
  - 409: Uniqueness conflict
  - 500: Internal errors
  Domain sentinels are mapped by respondError, so handlers never
  inspect error strings.

SECURITY NOTE:
  No authentication. The service runs behind the dashboard's gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - handlers_periods.go, handlers_values.go, handlers_analytics.go
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DeadSteam/finproject/analytics"
	"github.com/DeadSteam/finproject/finance"
	"github.com/DeadSteam/finproject/logx"
	"github.com/DeadSteam/finproject/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Analytics *analytics.Service
	Log       *logx.Logger
}

// NewHandler creates a handler over the given store.
func NewHandler(store *sqlite.Store, log *logx.Logger) *Handler {
	return &Handler{
		Store:     store,
		Analytics: analytics.NewService(store),
		Log:       log.WithComponent(logx.ComponentHTTP),
	}
}

// =============================================================================
// CATEGORY ENDPOINTS
// =============================================================================

// ListCategories returns all categories.
// GET /api/v1/finance/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	categories, err := h.Store.ListCategories(r.Context(), onlyActive)
	if err != nil {
		respondError(w, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		dtos = append(dtos, toCategoryDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory creates a category.
// POST /api/v1/finance/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	c := sqlite.Category{
		Name:        req.Name,
		Description: req.Description,
		Status:      true,
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if err := h.Store.SaveCategory(r.Context(), &c); err != nil {
		respondError(w, "Failed to create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(c))
}

// GetCategory returns one category.
// GET /api/v1/finance/categories/{id}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.Store.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "Failed to get category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*c))
}

// UpdateCategory rewrites a category.
// PUT /api/v1/finance/categories/{id}
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	c := sqlite.Category{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
		Status:      true,
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if err := h.Store.UpdateCategory(r.Context(), c); err != nil {
		respondError(w, "Failed to update category", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(c))
}

// DeleteCategory removes a category.
// DELETE /api/v1/finance/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHOP ENDPOINTS
// =============================================================================

// ListShops returns all shops.
// GET /api/v1/finance/shops
func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	shops, err := h.Store.ListShops(r.Context(), onlyActive)
	if err != nil {
		respondError(w, "Failed to list shops", err)
		return
	}

	dtos := make([]ShopDTO, 0, len(shops))
	for _, sh := range shops {
		dtos = append(dtos, toShopDTO(sh))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateShop creates a shop.
// POST /api/v1/finance/shops
func (h *Handler) CreateShop(w http.ResponseWriter, r *http.Request) {
	var req CreateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	sh := sqlite.Shop{
		Name:          req.Name,
		NumberOfStaff: req.NumberOfStaff,
		Description:   req.Description,
		Address:       req.Address,
		Status:        true,
	}
	if req.Status != nil {
		sh.Status = *req.Status
	}
	if err := h.Store.SaveShop(r.Context(), &sh); err != nil {
		respondError(w, "Failed to create shop", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShopDTO(sh))
}

// GetShop returns one shop.
// GET /api/v1/finance/shops/{id}
func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	sh, err := h.Store.GetShop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "Failed to get shop", err)
		return
	}
	writeJSON(w, http.StatusOK, toShopDTO(*sh))
}

// UpdateShop rewrites a shop.
// PUT /api/v1/finance/shops/{id}
func (h *Handler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	var req CreateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	sh := sqlite.Shop{
		ID:            chi.URLParam(r, "id"),
		Name:          req.Name,
		NumberOfStaff: req.NumberOfStaff,
		Description:   req.Description,
		Address:       req.Address,
		Status:        true,
	}
	if req.Status != nil {
		sh.Status = *req.Status
	}
	if err := h.Store.UpdateShop(r.Context(), sh); err != nil {
		respondError(w, "Failed to update shop", err)
		return
	}
	writeJSON(w, http.StatusOK, toShopDTO(sh))
}

// DeleteShop removes a shop.
// DELETE /api/v1/finance/shops/{id}
func (h *Handler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteShop(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, "Failed to delete shop", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// METRIC ENDPOINTS
// =============================================================================

// ListMetrics returns metrics with optional filters.
// GET /api/v1/finance/metrics?category_id=&shop_id=&search=
func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sqlite.MetricFilter{
		CategoryID: q.Get("category_id"),
		ShopID:     q.Get("shop_id"),
		Search:     q.Get("search"),
	}
	metrics, err := h.Store.ListMetrics(r.Context(), filter)
	if err != nil {
		respondError(w, "Failed to list metrics", err)
		return
	}

	dtos := make([]MetricDTO, 0, len(metrics))
	for _, m := range metrics {
		dtos = append(dtos, toMetricDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMetric creates a metric under an existing category.
// POST /api/v1/finance/metrics
func (h *Handler) CreateMetric(w http.ResponseWriter, r *http.Request) {
	var req CreateMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "Name and category_id are required", nil)
		return
	}
	if _, err := h.Store.GetCategory(r.Context(), req.CategoryID); err != nil {
		respondError(w, "Failed to resolve category", err)
		return
	}

	m := sqlite.Metric{Name: req.Name, Unit: req.Unit, CategoryID: req.CategoryID}
	if err := h.Store.SaveMetric(r.Context(), &m); err != nil {
		respondError(w, "Failed to create metric", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMetricDTO(m))
}

// GetMetric returns one metric with its category attached.
// GET /api/v1/finance/metrics/{id}
func (h *Handler) GetMetric(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.GetMetric(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "Failed to get metric", err)
		return
	}

	dto := toMetricDTO(*m)
	if c, err := h.Store.GetCategory(r.Context(), m.CategoryID); err == nil {
		cat := toCategoryDTO(*c)
		dto.Category = &cat
	}
	writeJSON(w, http.StatusOK, dto)
}

// UpdateMetric rewrites a metric.
// PUT /api/v1/finance/metrics/{id}
func (h *Handler) UpdateMetric(w http.ResponseWriter, r *http.Request) {
	var req CreateMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "Name and category_id are required", nil)
		return
	}
	if _, err := h.Store.GetCategory(r.Context(), req.CategoryID); err != nil {
		respondError(w, "Failed to resolve category", err)
		return
	}

	m := sqlite.Metric{
		ID:         chi.URLParam(r, "id"),
		Name:       req.Name,
		Unit:       req.Unit,
		CategoryID: req.CategoryID,
	}
	if err := h.Store.UpdateMetric(r.Context(), m); err != nil {
		respondError(w, "Failed to update metric", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricDTO(m))
}

// DeleteMetric removes a metric.
// DELETE /api/v1/finance/metrics/{id}
func (h *Handler) DeleteMetric(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteMetric(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, "Failed to delete metric", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// parseIntParam converts a query or path value, writing a 400 on
// failure. The second return is false when a response was written.
func parseIntParam(w http.ResponseWriter, name, raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return n, true
}

// respondError maps domain sentinels to HTTP status codes.
func respondError(w http.ResponseWriter, message string, err error) {
	switch {
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case finance.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case finance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
