package company

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Profile is the public face of a supplier: what buyers see on the
// marketplace listing. Categories and PromoKeys are stored as text
// arrays, PromoKeys holds object-storage keys of uploaded promo
// assets.
type Profile struct {
	SupplierID string    `json:"-"`
	Name       string    `json:"name"`
	About      string    `json:"about"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	Website    string    `json:"website"`
	Categories []string  `json:"categories"`
	PromoKeys  []string  `json:"promoKeys"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store persists company profiles.
type Store interface {
	Get(ctx context.Context, supplierID string) (Profile, error)
	Upsert(ctx context.Context, p Profile) (Profile, error)
}

// PGStore implements Store on a pgx pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

// Get returns the stored profile, or an empty one when the supplier
// has not filled it in yet.
func (s *PGStore) Get(ctx context.Context, supplierID string) (Profile, error) {
	const q = `
		SELECT name, about, address, phone, website, categories, promo_keys, updated_at
		FROM companies WHERE supplier_id = $1`
	p := Profile{SupplierID: supplierID}
	err := s.Pool.QueryRow(ctx, q, supplierID).Scan(
		&p.Name, &p.About, &p.Address, &p.Phone, &p.Website, &p.Categories, &p.PromoKeys, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{SupplierID: supplierID, Categories: []string{}, PromoKeys: []string{}}, nil
	}
	return p, err
}

func (s *PGStore) Upsert(ctx context.Context, p Profile) (Profile, error) {
	const q = `
		INSERT INTO companies (supplier_id, name, about, address, phone, website, categories, promo_keys, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (supplier_id) DO UPDATE
		SET name = EXCLUDED.name, about = EXCLUDED.about, address = EXCLUDED.address,
		    phone = EXCLUDED.phone, website = EXCLUDED.website,
		    categories = EXCLUDED.categories, promo_keys = EXCLUDED.promo_keys,
		    updated_at = now()
		RETURNING updated_at`
	err := s.Pool.QueryRow(ctx, q,
		p.SupplierID, p.Name, p.About, p.Address, p.Phone, p.Website, p.Categories, p.PromoKeys,
	).Scan(&p.UpdatedAt)
	return p, err
}

// Input carries the editable profile fields.
type Input struct {
	Name       string   `json:"name" validate:"required,min=2,max=200"`
	About      string   `json:"about" validate:"max=2000"`
	Address    string   `json:"address" validate:"max=500"`
	Phone      string   `json:"phone" validate:"max=40"`
	Website    string   `json:"website" validate:"omitempty,url,max=200"`
	Categories []string `json:"categories" validate:"max=20,dive,min=1,max=64"`
	PromoKeys  []string `json:"promoKeys" validate:"max=20,dive,min=1,max=256"`
}

// Service owns the company profile.
type Service struct {
	Store Store
}

func NewService(store Store) *Service {
	return &Service{Store: store}
}

func (s *Service) Get(ctx context.Context, supplierID string) (Profile, error) {
	return s.Store.Get(ctx, supplierID)
}

// Save validates and upserts the profile. Categories are trimmed and
// deduplicated, preserving first-seen order.
func (s *Service) Save(ctx context.Context, supplierID string, in Input) (Profile, error) {
	if err := common.Validate(in); err != nil {
		return Profile{}, err
	}
	return s.Store.Upsert(ctx, Profile{
		SupplierID: supplierID,
		Name:       strings.TrimSpace(in.Name),
		About:      strings.TrimSpace(in.About),
		Address:    strings.TrimSpace(in.Address),
		Phone:      strings.TrimSpace(in.Phone),
		Website:    strings.TrimSpace(in.Website),
		Categories: dedupe(in.Categories),
		PromoKeys:  dedupe(in.PromoKeys),
	})
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
