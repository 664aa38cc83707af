package customer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a customer does not exist or belongs to
// another supplier.
var ErrNotFound = errors.New("customer: not found")

// Customer is a buyer site belonging to one supplier tenant.
type Customer struct {
	ID              string
	SupplierID      string
	SiteName        string
	DeliveryAddress string
	Phone           string
	Email           string
	Blocked         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TrendStats holds the raw windowed aggregates for one customer.
// WeekCount covers the last 7 days, the 12-week fields cover the last
// 84 days, and ComparisonSum covers the 84 days before that.
type TrendStats struct {
	WeekCount     int
	WeekCount12   int
	WeekSum12     decimal.Decimal
	ComparisonSum decimal.Decimal
	ProductCodes  []string
}

// TrendRow is a customer joined with its windowed order activity.
type TrendRow struct {
	Customer
	TrendStats
}

// ListFilter narrows the trend listing. Search matches site name or
// delivery address case-insensitively. Blocked filters by blocked
// status when non-nil.
type ListFilter struct {
	Search  string
	Blocked *bool
	Page    int
	PerPage int
}

// Store persists customers and computes their order-activity windows.
type Store interface {
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	GetByID(ctx context.Context, supplierID, id string) (Customer, error)
	SoftDelete(ctx context.Context, supplierID, id string, at time.Time) error
	SetBlocked(ctx context.Context, supplierID, id string, blocked bool) error
	ListWithTrends(ctx context.Context, supplierID string, anchor time.Time, f ListFilter) ([]TrendRow, error)
}

// PGStore implements Store on a pgx pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) Create(ctx context.Context, c Customer) (Customer, error) {
	const q = `
		INSERT INTO customers (supplier_id, site_name, delivery_address, phone, email, blocked)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := s.Pool.QueryRow(ctx, q,
		c.SupplierID, c.SiteName, c.DeliveryAddress, c.Phone, c.Email, c.Blocked,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *PGStore) Update(ctx context.Context, c Customer) (Customer, error) {
	const q = `
		UPDATE customers
		SET site_name = $3, delivery_address = $4, phone = $5, email = $6, blocked = $7, updated_at = now()
		WHERE supplier_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING created_at, updated_at`
	err := s.Pool.QueryRow(ctx, q,
		c.SupplierID, c.ID, c.SiteName, c.DeliveryAddress, c.Phone, c.Email, c.Blocked,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (s *PGStore) GetByID(ctx context.Context, supplierID, id string) (Customer, error) {
	const q = `
		SELECT id, supplier_id, site_name, delivery_address, phone, email, blocked, created_at, updated_at
		FROM customers
		WHERE supplier_id = $1 AND id = $2 AND deleted_at IS NULL`
	var c Customer
	err := s.Pool.QueryRow(ctx, q, supplierID, id).Scan(
		&c.ID, &c.SupplierID, &c.SiteName, &c.DeliveryAddress, &c.Phone, &c.Email, &c.Blocked, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (s *PGStore) SoftDelete(ctx context.Context, supplierID, id string, at time.Time) error {
	const q = `
		UPDATE customers SET deleted_at = $3, updated_at = $3
		WHERE supplier_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := s.Pool.Exec(ctx, q, supplierID, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetBlocked(ctx context.Context, supplierID, id string, blocked bool) error {
	const q = `
		UPDATE customers SET blocked = $3, updated_at = now()
		WHERE supplier_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := s.Pool.Exec(ctx, q, supplierID, id, blocked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// trendQuery aggregates each order exactly once per window before the
// item join so multi-item orders are not double counted. All window
// boundaries derive from the anchor parameter, never from now() in
// SQL, so callers control the clock.
const trendQuery = `
	WITH order_stats AS (
		SELECT o.customer_id,
		       COUNT(*) FILTER (WHERE o.issued_at > $2 - interval '7 days')  AS week_count,
		       COUNT(*) FILTER (WHERE o.issued_at > $2 - interval '84 days') AS week_count_12,
		       COALESCE(SUM(o.total) FILTER (WHERE o.issued_at > $2 - interval '84 days'), 0)  AS week_sum_12,
		       COALESCE(SUM(o.total) FILTER (WHERE o.issued_at <= $2 - interval '84 days'), 0) AS comparison_sum
		FROM orders o
		WHERE o.supplier_id = $1
		  AND o.deleted_at IS NULL
		  AND o.issued_at > $2 - interval '168 days'
		  AND o.issued_at <= $2
		GROUP BY o.customer_id
	),
	product_stats AS (
		SELECT o.customer_id, array_agg(DISTINCT i.code) AS codes
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		WHERE o.supplier_id = $1
		  AND o.deleted_at IS NULL
		  AND o.issued_at > $2 - interval '84 days'
		  AND o.issued_at <= $2
		GROUP BY o.customer_id
	)
	SELECT c.id, c.supplier_id, c.site_name, c.delivery_address, c.phone, c.email, c.blocked,
	       c.created_at, c.updated_at,
	       COALESCE(os.week_count, 0),
	       COALESCE(os.week_count_12, 0),
	       COALESCE(os.week_sum_12, 0),
	       COALESCE(os.comparison_sum, 0),
	       COALESCE(ps.codes, '{}')
	FROM customers c
	LEFT JOIN order_stats os ON os.customer_id = c.id
	LEFT JOIN product_stats ps ON ps.customer_id = c.id
	WHERE c.supplier_id = $1
	  AND c.deleted_at IS NULL
	  AND ($3 = '' OR c.site_name ILIKE '%' || $3 || '%' OR c.delivery_address ILIKE '%' || $3 || '%')
	  AND ($4::boolean IS NULL OR c.blocked = $4)
	ORDER BY c.site_name, c.id
	LIMIT $5 OFFSET $6`

func (s *PGStore) ListWithTrends(ctx context.Context, supplierID string, anchor time.Time, f ListFilter) ([]TrendRow, error) {
	limit := f.PerPage
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * limit
	}
	rows, err := s.Pool.Query(ctx, trendQuery, supplierID, anchor, f.Search, f.Blocked, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TrendRow, 0, limit)
	for rows.Next() {
		var tr TrendRow
		err := rows.Scan(
			&tr.ID, &tr.SupplierID, &tr.SiteName, &tr.DeliveryAddress, &tr.Phone, &tr.Email, &tr.Blocked,
			&tr.CreatedAt, &tr.UpdatedAt,
			&tr.WeekCount, &tr.WeekCount12, &tr.WeekSum12, &tr.ComparisonSum, &tr.ProductCodes,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
