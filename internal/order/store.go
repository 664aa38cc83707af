package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-supplier/internal/pricing"
)

var (
	// ErrNotFound is returned when an order does not exist or belongs
	// to another supplier.
	ErrNotFound = errors.New("order: not found")
	// ErrCustomerMissing is returned when the referenced customer does
	// not exist.
	ErrCustomerMissing = errors.New("order: customer does not exist")
)

// ListFilter narrows the order listing. Every field is pushed into the
// SQL query.
type ListFilter struct {
	Status     Status
	CustomerID string
	IssuedFrom time.Time
	IssuedTo   time.Time
	Page       int
	PerPage    int
}

// Store persists orders and their line items.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	Update(ctx context.Context, o Order) (Order, error)
	GetByID(ctx context.Context, supplierID, id string) (Order, error)
	List(ctx context.Context, supplierID string, f ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, supplierID, id string, status Status) error
	SoftDelete(ctx context.Context, supplierID, id string, at time.Time) error
}

// PGStore implements Store on a pgx pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

// nextOrderNo claims the next per-supplier order number inside the
// caller's transaction. The row is locked by the upsert so two
// concurrent inserts for one supplier serialize here.
func nextOrderNo(ctx context.Context, tx pgx.Tx, supplierID string) (int64, error) {
	const q = `
		INSERT INTO order_counters AS oc (supplier_id, next_no)
		VALUES ($1, 2)
		ON CONFLICT (supplier_id) DO UPDATE SET next_no = oc.next_no + 1
		RETURNING next_no - 1`
	var no int64
	err := tx.QueryRow(ctx, q, supplierID).Scan(&no)
	return no, err
}

func (s *PGStore) Create(ctx context.Context, o Order) (Order, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	o.OrderNo, err = nextOrderNo(ctx, tx, o.SupplierID)
	if err != nil {
		return Order{}, fmt.Errorf("claim order number: %w", err)
	}

	const q = `
		INSERT INTO orders (supplier_id, customer_id, order_no, status, discount_percent, tax_percent,
		                    subtotal, total, issued_at, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, q,
		o.SupplierID, o.CustomerID, o.OrderNo, o.Status, o.DiscountPercent, o.TaxPercent,
		o.Subtotal, o.Total, o.IssuedAt, o.DueAt,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, mapOrderError(err)
	}
	if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *PGStore) Update(ctx context.Context, o Order) (Order, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
		UPDATE orders
		SET customer_id = $3, discount_percent = $4, tax_percent = $5,
		    subtotal = $6, total = $7, issued_at = $8, due_at = $9, updated_at = now()
		WHERE supplier_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING order_no, status, created_at, updated_at`
	err = tx.QueryRow(ctx, q,
		o.SupplierID, o.ID, o.CustomerID, o.DiscountPercent, o.TaxPercent,
		o.Subtotal, o.Total, o.IssuedAt, o.DueAt,
	).Scan(&o.OrderNo, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, mapOrderError(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return Order{}, err
	}
	if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID string, items []pricing.LineItem) error {
	const q = `
		INSERT INTO order_items (order_id, code, title, unit, quantity, price, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, it := range items {
		if _, err := tx.Exec(ctx, q, orderID, it.Code, it.Title, it.Unit, it.Quantity, it.Price, i); err != nil {
			return fmt.Errorf("insert line item %d: %w", i, err)
		}
	}
	return nil
}

func (s *PGStore) GetByID(ctx context.Context, supplierID, id string) (Order, error) {
	const q = `
		SELECT id, supplier_id, customer_id, order_no, status, discount_percent, tax_percent,
		       subtotal, total, issued_at, due_at, created_at, updated_at
		FROM orders
		WHERE supplier_id = $1 AND id = $2 AND deleted_at IS NULL`
	var o Order
	err := s.Pool.QueryRow(ctx, q, supplierID, id).Scan(
		&o.ID, &o.SupplierID, &o.CustomerID, &o.OrderNo, &o.Status, &o.DiscountPercent, &o.TaxPercent,
		&o.Subtotal, &o.Total, &o.IssuedAt, &o.DueAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = s.loadItems(ctx, o.ID)
	return o, err
}

func (s *PGStore) loadItems(ctx context.Context, orderID string) ([]pricing.LineItem, error) {
	const q = `
		SELECT code, title, unit, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY position`
	rows, err := s.Pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []pricing.LineItem
	for rows.Next() {
		var it pricing.LineItem
		if err := rows.Scan(&it.Code, &it.Title, &it.Unit, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PGStore) List(ctx context.Context, supplierID string, f ListFilter) ([]Order, int, error) {
	limit := f.PerPage
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * limit
	}
	const q = `
		SELECT id, supplier_id, customer_id, order_no, status, discount_percent, tax_percent,
		       subtotal, total, issued_at, due_at, created_at, updated_at,
		       COUNT(*) OVER ()
		FROM orders
		WHERE supplier_id = $1
		  AND deleted_at IS NULL
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR customer_id::text = $3)
		  AND ($4::timestamptz IS NULL OR issued_at >= $4)
		  AND ($5::timestamptz IS NULL OR issued_at < $5)
		ORDER BY order_no DESC
		LIMIT $6 OFFSET $7`
	rows, err := s.Pool.Query(ctx, q,
		supplierID, string(f.Status), f.CustomerID, nullTime(f.IssuedFrom), nullTime(f.IssuedTo), limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Order
		total int
	)
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID, &o.SupplierID, &o.CustomerID, &o.OrderNo, &o.Status, &o.DiscountPercent, &o.TaxPercent,
			&o.Subtotal, &o.Total, &o.IssuedAt, &o.DueAt, &o.CreatedAt, &o.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (s *PGStore) UpdateStatus(ctx context.Context, supplierID, id string, status Status) error {
	const q = `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE supplier_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := s.Pool.Exec(ctx, q, supplierID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SoftDelete(ctx context.Context, supplierID, id string, at time.Time) error {
	const q = `
		UPDATE orders SET deleted_at = $3, updated_at = $3
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

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func mapOrderError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrCustomerMissing
	}
	return err
}
