/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Reference data:
    CategoryDTO, CreateCategoryRequest
    ShopDTO, CreateShopRequest
    MetricDTO, CreateMetricRequest

  Periods:
    PeriodDTO, CreatePeriodRequest, GroupedPeriodsDTO

  Values:
    ValueDTO, CreateValueRequest, UpdateValueRequest
    DistributeYearlyRequest, RecalculateRequest
    YearlyPlanDTO

  Analytics:
    BudgetStatisticsDTO, MetricComparisonDTO, ShopTotalsDTO
    ChartMetricDTO with its PlanActualDTO cells

DECIMALS:
  Monetary amounts travel as JSON strings via shopspring/decimal so
  clients never go through binary floats. Nullable actuals are null,
  not 0.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - finance/locale.go: Display names attached to period DTOs
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/DeadSteam/finproject/analytics"
	"github.com/DeadSteam/finproject/finance"
	"github.com/DeadSteam/finproject/store/sqlite"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

type CategoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      bool   `json:"status"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      *bool  `json:"status"`
}

type ShopDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	NumberOfStaff int    `json:"number_of_staff"`
	Description   string `json:"description"`
	Address       string `json:"address"`
	Status        bool   `json:"status"`
}

type CreateShopRequest struct {
	Name          string `json:"name"`
	NumberOfStaff int    `json:"number_of_staff"`
	Description   string `json:"description"`
	Address       string `json:"address"`
	Status        *bool  `json:"status"`
}

type MetricDTO struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Unit       string       `json:"unit"`
	CategoryID string       `json:"category_id"`
	Category   *CategoryDTO `json:"category,omitempty"`
}

type CreateMetricRequest struct {
	Name       string `json:"name"`
	Unit       string `json:"unit"`
	CategoryID string `json:"category_id"`
}

// =============================================================================
// PERIODS AND YEARS
// =============================================================================

type PeriodDTO struct {
	ID          string `json:"id"`
	Year        int    `json:"year"`
	Quarter     *int   `json:"quarter"`
	Month       *int   `json:"month"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
}

type CreatePeriodRequest struct {
	Year    int  `json:"year"`
	Quarter *int `json:"quarter"`
	Month   *int `json:"month"`
}

// GroupedPeriodsDTO splits periods by granularity.
type GroupedPeriodsDTO struct {
	Years    []PeriodDTO `json:"years"`
	Quarters []PeriodDTO `json:"quarters"`
	Months   []PeriodDTO `json:"months"`
}

type CreateYearRequest struct {
	Year int `json:"year"`
}

// =============================================================================
// VALUES
// =============================================================================

type ValueDTO struct {
	ID       string          `json:"id"`
	MetricID string          `json:"metric_id"`
	ShopID   string          `json:"shop_id"`
	PeriodID string          `json:"period_id"`
	Value    decimal.Decimal `json:"value"`
}

type CreateValueRequest struct {
	MetricID string          `json:"metric_id"`
	ShopID   string          `json:"shop_id"`
	PeriodID string          `json:"period_id"`
	Value    decimal.Decimal `json:"value"`
}

type UpdateValueRequest struct {
	Value decimal.Decimal `json:"value"`
}

type DistributeYearlyRequest struct {
	MetricID string          `json:"metric_id"`
	ShopID   string          `json:"shop_id"`
	Year     int             `json:"year"`
	Value    decimal.Decimal `json:"value"`
}

type RecalculateRequest struct {
	MetricID    string          `json:"metric_id"`
	ShopID      string          `json:"shop_id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	ActualValue decimal.Decimal `json:"actual_value"`
}

// DistributeYearlyResponse echoes the distribution that was written:
// quarters indexed 0-3 for Q1-Q4, months 0-11 for January-December.
type DistributeYearlyResponse struct {
	Year     decimal.Decimal   `json:"year"`
	Quarters []decimal.Decimal `json:"quarters"`
	Months   []decimal.Decimal `json:"months"`
}

// PlanUpdateDTO is one rewritten plan row from a recalculation.
type PlanUpdateDTO struct {
	Year    int             `json:"year"`
	Quarter *int            `json:"quarter"`
	Month   *int            `json:"month"`
	Value   decimal.Decimal `json:"value"`
}

type YearlyPlanDTO struct {
	Year         int             `json:"year"`
	MetricID     string          `json:"metric_id"`
	MetricName   string          `json:"metric_name"`
	Unit         string          `json:"unit"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	ShopID       string          `json:"shop_id"`
	ShopName     string          `json:"shop_name"`
	Plan         decimal.Decimal `json:"plan"`
}

// =============================================================================
// ANALYTICS
// =============================================================================

type CategoryStatsDTO struct {
	CategoryID       string          `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	Plan             decimal.Decimal `json:"plan"`
	Actual           decimal.Decimal `json:"actual"`
	Deviation        decimal.Decimal `json:"deviation"`
	DeviationPercent decimal.Decimal `json:"deviation_percent"`
}

type BudgetStatisticsDTO struct {
	TotalPlan        decimal.Decimal    `json:"total_plan"`
	TotalActual      decimal.Decimal    `json:"total_actual"`
	Deviation        decimal.Decimal    `json:"deviation"`
	DeviationPercent decimal.Decimal    `json:"deviation_percent"`
	Categories       []CategoryStatsDTO `json:"categories"`
}

type MetricComparisonDTO struct {
	MetricID         string          `json:"metric_id"`
	MetricName       string          `json:"metric_name"`
	Unit             string          `json:"unit"`
	CategoryID       string          `json:"category_id"`
	ShopID           string          `json:"shop_id"`
	ShopName         string          `json:"shop_name"`
	Plan             decimal.Decimal `json:"plan"`
	Actual           decimal.Decimal `json:"actual"`
	Deviation        decimal.Decimal `json:"deviation"`
	DeviationPercent decimal.Decimal `json:"deviation_percent"`
}

type MetricActualDTO struct {
	MetricID   string          `json:"metric_id"`
	MetricName string          `json:"metric_name"`
	Unit       string          `json:"unit"`
	Actual     decimal.Decimal `json:"actual"`
}

type ShopTotalsDTO struct {
	ShopID   string            `json:"shop_id"`
	ShopName string            `json:"shop_name"`
	Metrics  []MetricActualDTO `json:"metrics"`
	Total    decimal.Decimal   `json:"total"`
}

// PlanActualDTO is one cell of the chart grid. Actual is null when no
// data was recorded, which is different from a recorded zero.
type PlanActualDTO struct {
	Plan   decimal.Decimal  `json:"plan"`
	Actual *decimal.Decimal `json:"actual"`
}

type ChartQuarterDTO struct {
	Quarter int           `json:"quarter"`
	Name    string        `json:"name"`
	Cell    PlanActualDTO `json:"values"`
}

type ChartMonthDTO struct {
	Month int           `json:"month"`
	Name  string        `json:"name"`
	Cell  PlanActualDTO `json:"values"`
}

type ChartMetricDTO struct {
	MetricID   string            `json:"metric_id"`
	MetricName string            `json:"metric_name"`
	Unit       string            `json:"unit"`
	Year       int               `json:"year"`
	Total      PlanActualDTO     `json:"total"`
	Quarters   []ChartQuarterDTO `json:"quarters"`
	Months     []ChartMonthDTO   `json:"months"`
}

type ChartResponseDTO struct {
	Year     int              `json:"year"`
	Metrics  []ChartMetricDTO `json:"metrics"`
	Warnings []string         `json:"warnings,omitempty"`
}

// ErrorResponse is the JSON error body all handlers return.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCategoryDTO(c sqlite.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Description: c.Description, Status: c.Status}
}

func toShopDTO(sh sqlite.Shop) ShopDTO {
	return ShopDTO{
		ID:            sh.ID,
		Name:          sh.Name,
		NumberOfStaff: sh.NumberOfStaff,
		Description:   sh.Description,
		Address:       sh.Address,
		Status:        sh.Status,
	}
}

func toMetricDTO(m sqlite.Metric) MetricDTO {
	return MetricDTO{ID: m.ID, Name: m.Name, Unit: m.Unit, CategoryID: m.CategoryID}
}

func toPeriodDTO(p sqlite.Period) PeriodDTO {
	domain := p.Domain()
	return PeriodDTO{
		ID:          p.ID,
		Year:        p.Year,
		Quarter:     p.Quarter,
		Month:       p.Month,
		Type:        string(domain.Granularity()),
		DisplayName: domain.DisplayName(),
	}
}

func toValueDTO(v sqlite.Value) ValueDTO {
	return ValueDTO{
		ID:       v.ID,
		MetricID: v.MetricID,
		ShopID:   v.ShopID,
		PeriodID: v.PeriodID,
		Value:    v.Amount,
	}
}

func toPlanActualDTO(pa finance.PlanActual) PlanActualDTO {
	dto := PlanActualDTO{Plan: pa.Plan}
	if pa.Actual.Valid {
		actual := pa.Actual.Decimal
		dto.Actual = &actual
	}
	return dto
}

func toChartMetricDTO(v finance.AggregatedMetricView) ChartMetricDTO {
	dto := ChartMetricDTO{
		MetricID:   string(v.MetricID),
		MetricName: v.MetricName,
		Unit:       v.Unit,
		Year:       v.Year,
		Total:      toPlanActualDTO(v.Total),
	}
	for q := 1; q <= 4; q++ {
		dto.Quarters = append(dto.Quarters, ChartQuarterDTO{
			Quarter: q,
			Name:    finance.QuarterName(q),
			Cell:    toPlanActualDTO(v.Quarter(q)),
		})
	}
	for m := 1; m <= 12; m++ {
		dto.Months = append(dto.Months, ChartMonthDTO{
			Month: m,
			Name:  finance.MonthName(m),
			Cell:  toPlanActualDTO(v.Month(m)),
		})
	}
	return dto
}

func toBudgetStatisticsDTO(stats *analytics.BudgetStatistics) BudgetStatisticsDTO {
	dto := BudgetStatisticsDTO{
		TotalPlan:        stats.TotalPlan,
		TotalActual:      stats.TotalActual,
		Deviation:        stats.Deviation,
		DeviationPercent: stats.DeviationPercent,
		Categories:       []CategoryStatsDTO{},
	}
	for _, c := range stats.Categories {
		dto.Categories = append(dto.Categories, CategoryStatsDTO{
			CategoryID:       c.CategoryID,
			CategoryName:     c.CategoryName,
			Plan:             c.Plan,
			Actual:           c.Actual,
			Deviation:        c.Deviation,
			DeviationPercent: c.DeviationPercent,
		})
	}
	return dto
}
