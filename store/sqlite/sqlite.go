/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Stores the finance reference data (categories, shops, metrics), the
  reporting periods, and the plan/actual value records. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  categories:     Expense categories that scope metrics
  shops:          Store locations values are recorded for
  metrics:        Named, unit-tagged measurable quantities
  periods:        Reporting intervals; UNIQUE(year, quarter, month)
  plan_values:    Plan observations; UNIQUE(metric, shop, period)
  actual_values:  Actual observations; same uniqueness

UNIQUENESS ENFORCEMENT:
  The (metric, shop, period) invariant for values and the composite
  period identity are enforced by the database, not application checks.
  Violations map to finance.ErrDuplicateValue / finance.ErrDuplicatePeriod.

DECIMALS:
  Values are stored as TEXT and parsed with shopspring/decimal, so no
  precision is lost to floating point.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL
  (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/finproject.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). Use ":memory:" for tests. For
  production, use a proper migration tool (golang-migrate, goose) with
  versioned migrations.

SEE ALSO:
  - finance/types.go: Domain types the rows map to
  - store/sqlite/values.go: Period and value persistence
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/DeadSteam/finproject/finance"
)

// Store implements persistence for the finance domain using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shops (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		number_of_staff INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category_id TEXT NOT NULL REFERENCES categories(id),
		unit TEXT NOT NULL DEFAULT 'pcs',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_category
		ON metrics(category_id);

	-- Reporting periods. Exactly one granularity per row:
	-- year-level (quarter and month NULL), quarter-level (month NULL),
	-- or month-level (both set).
	CREATE TABLE IF NOT EXISTS periods (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		quarter INTEGER CHECK (quarter BETWEEN 1 AND 4),
		month INTEGER CHECK (month BETWEEN 1 AND 12),
		UNIQUE(year, quarter, month)
	);

	-- SQLite treats NULLs as distinct in UNIQUE constraints, so the
	-- table constraint only covers month-level rows. Partial indexes
	-- close the gap for year- and quarter-level identities.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_year_unique
		ON periods(year) WHERE quarter IS NULL AND month IS NULL;

	CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_quarter_unique
		ON periods(year, quarter) WHERE month IS NULL;

	CREATE INDEX IF NOT EXISTS idx_periods_year
		ON periods(year);

	CREATE TABLE IF NOT EXISTS plan_values (
		id TEXT PRIMARY KEY,
		metric_id TEXT NOT NULL REFERENCES metrics(id),
		shop_id TEXT NOT NULL REFERENCES shops(id),
		period_id TEXT NOT NULL REFERENCES periods(id),
		value TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(metric_id, shop_id, period_id)
	);

	CREATE TABLE IF NOT EXISTS actual_values (
		id TEXT PRIMARY KEY,
		metric_id TEXT NOT NULL REFERENCES metrics(id),
		shop_id TEXT NOT NULL REFERENCES shops(id),
		period_id TEXT NOT NULL REFERENCES periods(id),
		value TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(metric_id, shop_id, period_id)
	);

	CREATE INDEX IF NOT EXISTS idx_plan_values_metric ON plan_values(metric_id);
	CREATE INDEX IF NOT EXISTS idx_plan_values_shop ON plan_values(shop_id);
	CREATE INDEX IF NOT EXISTS idx_plan_values_period ON plan_values(period_id);
	CREATE INDEX IF NOT EXISTS idx_actual_values_metric ON actual_values(metric_id);
	CREATE INDEX IF NOT EXISTS idx_actual_values_shop ON actual_values(shop_id);
	CREATE INDEX IF NOT EXISTS idx_actual_values_period ON actual_values(period_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW TYPES
// =============================================================================

type Category struct {
	ID          string
	Name        string
	Description string
	Status      bool
	CreatedAt   time.Time
}

type Shop struct {
	ID            string
	Name          string
	NumberOfStaff int
	Description   string
	Address       string
	Status        bool
	CreatedAt     time.Time
}

type Metric struct {
	ID         string
	Name       string
	CategoryID string
	Unit       string
	CreatedAt  time.Time
}

// =============================================================================
// CATEGORIES
// =============================================================================

// ListCategories returns all categories, optionally only active ones.
func (s *Store) ListCategories(ctx context.Context, onlyActive bool) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, description, status, created_at FROM categories`
	if onlyActive {
		query += ` WHERE status = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns one category or finance.ErrCategoryNotFound.
func (s *Store) GetCategory(ctx context.Context, id string) (*Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Category
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, status, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

// SaveCategory inserts a category, generating an id when absent.
func (s *Store) SaveCategory(ctx context.Context, c *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, description, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Status, c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// UpdateCategory rewrites a category's mutable fields.
func (s *Store) UpdateCategory(ctx context.Context, c Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, status = ? WHERE id = ?`,
		c.Name, c.Description, c.Status, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return notFoundIfZero(res, finance.ErrCategoryNotFound)
}

// DeleteCategory removes a category and, with it, referential access to
// its metrics. Callers decide whether to cascade metric removal first.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return notFoundIfZero(res, finance.ErrCategoryNotFound)
}

// =============================================================================
// SHOPS
// =============================================================================

func (s *Store) ListShops(ctx context.Context, onlyActive bool) ([]Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, number_of_staff, description, address, status, created_at FROM shops`
	if onlyActive {
		query += ` WHERE status = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer rows.Close()

	var out []Shop
	for rows.Next() {
		var sh Shop
		var createdAt string
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.NumberOfStaff, &sh.Description, &sh.Address, &sh.Status, &createdAt); err != nil {
			return nil, err
		}
		sh.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) GetShop(ctx context.Context, id string) (*Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sh Shop
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, number_of_staff, description, address, status, created_at FROM shops WHERE id = ?`, id,
	).Scan(&sh.ID, &sh.Name, &sh.NumberOfStaff, &sh.Description, &sh.Address, &sh.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrShopNotFound
	}
	if err != nil {
		return nil, err
	}
	sh.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &sh, nil
}

func (s *Store) SaveShop(ctx context.Context, sh *Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	sh.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shops (id, name, number_of_staff, description, address, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.Name, sh.NumberOfStaff, sh.Description, sh.Address, sh.Status,
		sh.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}
	return nil
}

func (s *Store) UpdateShop(ctx context.Context, sh Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE shops SET name = ?, number_of_staff = ?, description = ?, address = ?, status = ? WHERE id = ?`,
		sh.Name, sh.NumberOfStaff, sh.Description, sh.Address, sh.Status, sh.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shop: %w", err)
	}
	return notFoundIfZero(res, finance.ErrShopNotFound)
}

func (s *Store) DeleteShop(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM shops WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return notFoundIfZero(res, finance.ErrShopNotFound)
}

// =============================================================================
// METRICS
// =============================================================================

// MetricFilter narrows ListMetrics. ShopID keeps only metrics that have
// at least one plan or actual value recorded for that shop.
type MetricFilter struct {
	CategoryID string
	ShopID     string
	Search     string
	Offset     int
	Limit      int
}

func (s *Store) ListMetrics(ctx context.Context, f MetricFilter) ([]Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []any

	if f.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Search != "" {
		conds = append(conds, "(name LIKE ? OR unit LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.ShopID != "" {
		conds = append(conds, `(id IN (SELECT metric_id FROM plan_values WHERE shop_id = ?)
			OR id IN (SELECT metric_id FROM actual_values WHERE shop_id = ?))`)
		args = append(args, f.ShopID, f.ShopID)
	}

	query := `SELECT id, name, category_id, unit, created_at FROM metrics`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY name ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Name, &m.CategoryID, &m.Unit, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMetric(ctx context.Context, id string) (*Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m Metric
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, category_id, unit, created_at FROM metrics WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.CategoryID, &m.Unit, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrMetricNotFound
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &m, nil
}

func (s *Store) SaveMetric(ctx context.Context, m *Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Unit == "" {
		m.Unit = "pcs"
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (id, name, category_id, unit, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.CategoryID, m.Unit, m.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save metric: %w", err)
	}
	return nil
}

func (s *Store) UpdateMetric(ctx context.Context, m Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE metrics SET name = ?, category_id = ?, unit = ? WHERE id = ?`,
		m.Name, m.CategoryID, m.Unit, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update metric: %w", err)
	}
	return notFoundIfZero(res, finance.ErrMetricNotFound)
}

func (s *Store) DeleteMetric(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM metrics WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete metric: %w", err)
	}
	return notFoundIfZero(res, finance.ErrMetricNotFound)
}

// =============================================================================
// HELPERS
// =============================================================================

func notFoundIfZero(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
