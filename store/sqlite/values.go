package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DeadSteam/finproject/finance"
)

// ValueKind selects which value table an operation targets. Plan and
// actual records share a schema and all CRUD paths.
type ValueKind string

const (
	KindPlan   ValueKind = "plan_values"
	KindActual ValueKind = "actual_values"
)

func (k ValueKind) table() string {
	if k == KindActual {
		return "actual_values"
	}
	return "plan_values"
}

// =============================================================================
// PERIODS
// =============================================================================

type Period struct {
	ID      string
	Year    int
	Quarter *int
	Month   *int
}

// Domain converts a row into a finance.Period.
func (p Period) Domain() finance.Period {
	return finance.Period{Year: p.Year, Quarter: p.Quarter, Month: p.Month}
}

// PeriodFilter narrows ListPeriods. Type is one of "year", "quarter",
// "month" or empty for all granularities.
type PeriodFilter struct {
	Year    *int
	Quarter *int
	Month   *int
	Type    string
	Offset  int
	Limit   int
}

func (s *Store) ListPeriods(ctx context.Context, f PeriodFilter) ([]Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []any

	if f.Year != nil {
		conds = append(conds, "year = ?")
		args = append(args, *f.Year)
	}
	if f.Quarter != nil {
		conds = append(conds, "quarter = ?")
		args = append(args, *f.Quarter)
	}
	if f.Month != nil {
		conds = append(conds, "month = ?")
		args = append(args, *f.Month)
	}
	switch f.Type {
	case "year":
		conds = append(conds, "quarter IS NULL AND month IS NULL")
	case "quarter":
		conds = append(conds, "quarter IS NOT NULL AND month IS NULL")
	case "month":
		conds = append(conds, "month IS NOT NULL")
	}

	query := `SELECT id, year, quarter, month FROM periods`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY year ASC, quarter ASC NULLS FIRST, month ASC NULLS FIRST`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPeriod(ctx context.Context, id string) (*Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, year, quarter, month FROM periods WHERE id = ?`, id)
	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrPeriodNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPeriod locates a period row by its composite identity.
func (s *Store) FindPeriod(ctx context.Context, year int, quarter, month *int) (*Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPeriodLocked(ctx, year, quarter, month)
}

func (s *Store) findPeriodLocked(ctx context.Context, year int, quarter, month *int) (*Period, error) {
	conds := []string{"year = ?"}
	args := []any{year}
	if quarter == nil {
		conds = append(conds, "quarter IS NULL")
	} else {
		conds = append(conds, "quarter = ?")
		args = append(args, *quarter)
	}
	if month == nil {
		conds = append(conds, "month IS NULL")
	} else {
		conds = append(conds, "month = ?")
		args = append(args, *month)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, year, quarter, month FROM periods WHERE `+strings.Join(conds, " AND "), args...)
	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrPeriodNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePeriod inserts a period row. The composite identity must be
// coherent (validated by finance.Period) and unique.
func (s *Store) SavePeriod(ctx context.Context, p *Period) error {
	if err := p.Domain().Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO periods (id, year, quarter, month) VALUES (?, ?, ?, ?)`,
		p.ID, p.Year, nullInt(p.Quarter), nullInt(p.Month),
	)
	if isUniqueConstraintError(err) {
		return finance.ErrDuplicatePeriod
	}
	if err != nil {
		return fmt.Errorf("failed to save period: %w", err)
	}
	return nil
}

// EnsurePeriod returns the period with the given identity, creating it
// when absent. Used by bulk plan writes so callers never pre-register
// every month of a year by hand.
func (s *Store) EnsurePeriod(ctx context.Context, year int, quarter, month *int) (*Period, error) {
	if err := (finance.Period{Year: year, Quarter: quarter, Month: month}).Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.findPeriodLocked(ctx, year, quarter, month)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, finance.ErrPeriodNotFound) {
		return nil, err
	}

	created := &Period{ID: uuid.NewString(), Year: year, Quarter: quarter, Month: month}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO periods (id, year, quarter, month) VALUES (?, ?, ?, ?)`,
		created.ID, created.Year, nullInt(created.Quarter), nullInt(created.Month),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure period: %w", err)
	}
	return created, nil
}

// UpdatePeriod rewrites a period's identity. The new triple must be
// coherent and not collide with another period row.
func (s *Store) UpdatePeriod(ctx context.Context, p Period) error {
	if err := p.Domain().Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE periods SET year = ?, quarter = ?, month = ? WHERE id = ?`,
		p.Year, nullInt(p.Quarter), nullInt(p.Month), p.ID,
	)
	if isUniqueConstraintError(err) {
		return finance.ErrDuplicatePeriod
	}
	if err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}
	return notFoundIfZero(res, finance.ErrPeriodNotFound)
}

func (s *Store) DeletePeriod(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM periods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete period: %w", err)
	}
	return notFoundIfZero(res, finance.ErrPeriodNotFound)
}

// DistinctYears returns every year any period exists for, descending.
func (s *Store) DistinctYears(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT year FROM periods ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

// DeleteYear removes all periods of a year together with every plan and
// actual value attached to them.
func (s *Store) DeleteYear(ctx context.Context, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"plan_values", "actual_values"} {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE period_id IN (SELECT id FROM periods WHERE year = ?)`, year)
		if err != nil {
			return fmt.Errorf("failed to delete year values: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM periods WHERE year = ?`, year)
	if err != nil {
		return fmt.Errorf("failed to delete year periods: %w", err)
	}
	if err := notFoundIfZero(res, finance.ErrYearNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// VALUES
// =============================================================================

// Value is one plan or actual observation row.
type Value struct {
	ID        string
	MetricID  string
	ShopID    string
	PeriodID  string
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValueWithPeriod joins a value row with its period identity, the shape
// the aggregation core consumes.
type ValueWithPeriod struct {
	Value
	Period Period
}

// Record converts a joined row into a finance.ValueRecord.
func (v ValueWithPeriod) Record() finance.ValueRecord {
	return finance.ValueRecord{
		MetricID:  finance.MetricID(v.MetricID),
		ShopID:    finance.ShopID(v.ShopID),
		PeriodKey: v.Period.Domain().Key(),
		Value:     v.Amount,
	}
}

// ValueFilter narrows ListValues.
type ValueFilter struct {
	MetricID string
	ShopID   string
	PeriodID string
	Offset   int
	Limit    int
}

func (s *Store) ListValues(ctx context.Context, kind ValueKind, f ValueFilter) ([]Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []any
	if f.MetricID != "" {
		conds = append(conds, "metric_id = ?")
		args = append(args, f.MetricID)
	}
	if f.ShopID != "" {
		conds = append(conds, "shop_id = ?")
		args = append(args, f.ShopID)
	}
	if f.PeriodID != "" {
		conds = append(conds, "period_id = ?")
		args = append(args, f.PeriodID)
	}

	query := `SELECT id, metric_id, shop_id, period_id, value, created_at, updated_at FROM ` + kind.table()
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list values: %w", err)
	}
	defer rows.Close()

	var out []Value
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) GetValue(ctx context.Context, kind ValueKind, id string) (*Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, metric_id, shop_id, period_id, value, created_at, updated_at FROM `+kind.table()+` WHERE id = ?`, id)
	v, err := scanValue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrValueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SaveValue inserts a value row. Duplicate (metric, shop, period)
// triples map to finance.ErrDuplicateValue.
func (s *Store) SaveValue(ctx context.Context, kind ValueKind, v *Value) error {
	if v.Amount.IsNegative() {
		return finance.ErrNegativeValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+kind.table()+` (id, metric_id, shop_id, period_id, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.MetricID, v.ShopID, v.PeriodID, v.Amount.String(),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return finance.ErrDuplicateValue
	}
	if err != nil {
		return fmt.Errorf("failed to save value: %w", err)
	}
	return nil
}

// UpdateValue rewrites the amount of an existing row.
func (s *Store) UpdateValue(ctx context.Context, kind ValueKind, id string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return finance.ErrNegativeValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE `+kind.table()+` SET value = ?, updated_at = ? WHERE id = ?`,
		amount.String(), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update value: %w", err)
	}
	return notFoundIfZero(res, finance.ErrValueNotFound)
}

// UpsertValue writes the amount for a (metric, shop, period) triple,
// inserting or overwriting as needed. Plan distribution and
// recalculation go through here so reruns stay idempotent.
func (s *Store) UpsertValue(ctx context.Context, kind ValueKind, metricID, shopID, periodID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return finance.ErrNegativeValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+kind.table()+` (id, metric_id, shop_id, period_id, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(metric_id, shop_id, period_id)
		 DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		uuid.NewString(), metricID, shopID, periodID, amount.String(), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert value: %w", err)
	}
	return nil
}

func (s *Store) DeleteValue(ctx context.Context, kind ValueKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+kind.table()+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete value: %w", err)
	}
	return notFoundIfZero(res, finance.ErrValueNotFound)
}

// YearValueFilter narrows ListValuesForYear.
type YearValueFilter struct {
	Year     int
	MetricID string
	ShopID   string
}

// ListValuesForYear returns every value of a kind joined with its
// period, for one calendar year. This is the aggregation input query.
func (s *Store) ListValuesForYear(ctx context.Context, kind ValueKind, f YearValueFilter) ([]ValueWithPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conds := []string{"p.year = ?"}
	args := []any{f.Year}
	if f.MetricID != "" {
		conds = append(conds, "v.metric_id = ?")
		args = append(args, f.MetricID)
	}
	if f.ShopID != "" {
		conds = append(conds, "v.shop_id = ?")
		args = append(args, f.ShopID)
	}

	query := `
		SELECT v.id, v.metric_id, v.shop_id, v.period_id, v.value, v.created_at, v.updated_at,
		       p.id, p.year, p.quarter, p.month
		FROM ` + kind.table() + ` v
		JOIN periods p ON p.id = v.period_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY p.year ASC, p.quarter ASC NULLS FIRST, p.month ASC NULLS FIRST`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list year values: %w", err)
	}
	defer rows.Close()

	var out []ValueWithPeriod
	for rows.Next() {
		var v ValueWithPeriod
		var value, createdAt, updatedAt string
		var quarter, month sql.NullInt64
		if err := rows.Scan(
			&v.ID, &v.MetricID, &v.ShopID, &v.PeriodID, &value, &createdAt, &updatedAt,
			&v.Period.ID, &v.Period.Year, &quarter, &month,
		); err != nil {
			return nil, err
		}
		v.Amount = parseDecimal(value)
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		v.Period.Quarter = intPtr(quarter)
		v.Period.Month = intPtr(month)
		out = append(out, v)
	}
	return out, rows.Err()
}

// YearlyPlan is one metric's year-level plan row with its labels, the
// shape the yearly-plans listing returns.
type YearlyPlan struct {
	Year         int
	MetricID     string
	MetricName   string
	Unit         string
	CategoryID   string
	CategoryName string
	ShopID       string
	ShopName     string
	Plan         decimal.Decimal
}

// ListYearlyPlans returns every year-level plan value joined with its
// metric, category and shop names. Zero year means all years.
func (s *Store) ListYearlyPlans(ctx context.Context, year int) ([]YearlyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT p.year, m.id, m.name, m.unit, c.id, c.name, sh.id, sh.name, v.value
		FROM plan_values v
		JOIN periods p ON p.id = v.period_id AND p.quarter IS NULL AND p.month IS NULL
		JOIN metrics m ON m.id = v.metric_id
		JOIN categories c ON c.id = m.category_id
		JOIN shops sh ON sh.id = v.shop_id`
	var args []any
	if year != 0 {
		query += ` WHERE p.year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY p.year DESC, c.name ASC, m.name ASC, sh.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list yearly plans: %w", err)
	}
	defer rows.Close()

	var out []YearlyPlan
	for rows.Next() {
		var yp YearlyPlan
		var value string
		if err := rows.Scan(&yp.Year, &yp.MetricID, &yp.MetricName, &yp.Unit,
			&yp.CategoryID, &yp.CategoryName, &yp.ShopID, &yp.ShopName, &value); err != nil {
			return nil, err
		}
		yp.Plan = parseDecimal(value)
		out = append(out, yp)
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(r rowScanner) (Period, error) {
	var p Period
	var quarter, month sql.NullInt64
	if err := r.Scan(&p.ID, &p.Year, &quarter, &month); err != nil {
		return Period{}, err
	}
	p.Quarter = intPtr(quarter)
	p.Month = intPtr(month)
	return p, nil
}

func scanValue(r rowScanner) (Value, error) {
	var v Value
	var value, createdAt, updatedAt string
	if err := r.Scan(&v.ID, &v.MetricID, &v.ShopID, &v.PeriodID, &value, &createdAt, &updatedAt); err != nil {
		return Value{}, err
	}
	v.Amount = parseDecimal(value)
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	v.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return v, nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
