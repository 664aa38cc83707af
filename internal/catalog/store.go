package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a product does not exist or belongs
	// to another supplier.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrDuplicateCode is returned when a product code is already used
	// within the supplier's catalogue.
	ErrDuplicateCode = errors.New("catalog: product code already exists")
)

// Product is one catalogue entry. Code is unique per supplier and is
// what order line items reference.
type Product struct {
	ID         string          `json:"id"`
	SupplierID string          `json:"-"`
	Code       string          `json:"code"`
	Title      string          `json:"title"`
	Unit       string          `json:"unit"`
	Price      decimal.Decimal `json:"price"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Store persists catalogue products.
type Store interface {
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	GetByID(ctx context.Context, supplierID, id string) (Product, error)
	List(ctx context.Context, supplierID, search string, page, perPage int) ([]Product, int, error)
	Delete(ctx context.Context, supplierID, id string) error
}

// PGStore implements Store on a pgx pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) Create(ctx context.Context, p Product) (Product, error) {
	const q = `
		INSERT INTO products (supplier_id, code, title, unit, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := s.Pool.QueryRow(ctx, q, p.SupplierID, p.Code, p.Title, p.Unit, p.Price).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, mapProductError(err)
	}
	return p, nil
}

func (s *PGStore) Update(ctx context.Context, p Product) (Product, error) {
	const q = `
		UPDATE products
		SET code = $3, title = $4, unit = $5, price = $6, updated_at = now()
		WHERE supplier_id = $1 AND id = $2
		RETURNING created_at, updated_at`
	err := s.Pool.QueryRow(ctx, q, p.SupplierID, p.ID, p.Code, p.Title, p.Unit, p.Price).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, mapProductError(err)
	}
	return p, nil
}

func (s *PGStore) GetByID(ctx context.Context, supplierID, id string) (Product, error) {
	const q = `
		SELECT id, supplier_id, code, title, unit, price, created_at, updated_at
		FROM products WHERE supplier_id = $1 AND id = $2`
	var p Product
	err := s.Pool.QueryRow(ctx, q, supplierID, id).Scan(
		&p.ID, &p.SupplierID, &p.Code, &p.Title, &p.Unit, &p.Price, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (s *PGStore) List(ctx context.Context, supplierID, search string, page, perPage int) ([]Product, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}
	const q = `
		SELECT id, supplier_id, code, title, unit, price, created_at, updated_at,
		       COUNT(*) OVER ()
		FROM products
		WHERE supplier_id = $1
		  AND ($2 = '' OR code ILIKE '%' || $2 || '%' OR title ILIKE '%' || $2 || '%')
		ORDER BY code
		LIMIT $3 OFFSET $4`
	rows, err := s.Pool.Query(ctx, q, supplierID, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   []Product
		total int
	)
	for rows.Next() {
		var p Product
		err := rows.Scan(&p.ID, &p.SupplierID, &p.Code, &p.Title, &p.Unit, &p.Price, &p.CreatedAt, &p.UpdatedAt, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, supplierID, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM products WHERE supplier_id = $1 AND id = $2`, supplierID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapProductError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}
