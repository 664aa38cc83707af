package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-supplier/internal/common"
)

var (
	errNotFound      = common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, nil)
	errDuplicateCode = common.NewAppError("DUPLICATE_CODE", "product code already exists", http.StatusConflict, nil)
)

// Service owns the product catalogue. Listings are cached per supplier
// and invalidated on every write.
type Service struct {
	Store Store
	Cache *Cache
	Log   zerolog.Logger
}

func NewService(store Store, cache *Cache, log zerolog.Logger) *Service {
	return &Service{Store: store, Cache: cache, Log: log}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Code  string          `json:"code" validate:"required,min=1,max=64"`
	Title string          `json:"title" validate:"required,min=1,max=200"`
	Unit  string          `json:"unit" validate:"max=32"`
	Price decimal.Decimal `json:"price"`
}

func listCacheKey(supplierID string) string {
	return fmt.Sprintf("catalog:%s:list", supplierID)
}

func (s *Service) Create(ctx context.Context, supplierID string, in ProductInput) (Product, error) {
	if err := common.Validate(in); err != nil {
		return Product{}, err
	}
	p, err := s.Store.Create(ctx, Product{
		SupplierID: supplierID,
		Code:       strings.TrimSpace(in.Code),
		Title:      strings.TrimSpace(in.Title),
		Unit:       strings.TrimSpace(in.Unit),
		Price:      in.Price,
	})
	if errors.Is(err, ErrDuplicateCode) {
		return Product{}, errDuplicateCode
	}
	if err != nil {
		return Product{}, err
	}
	s.invalidate(ctx, supplierID)
	return p, nil
}

func (s *Service) Update(ctx context.Context, supplierID, id string, in ProductInput) (Product, error) {
	if err := common.Validate(in); err != nil {
		return Product{}, err
	}
	p, err := s.Store.Update(ctx, Product{
		ID:         id,
		SupplierID: supplierID,
		Code:       strings.TrimSpace(in.Code),
		Title:      strings.TrimSpace(in.Title),
		Unit:       strings.TrimSpace(in.Unit),
		Price:      in.Price,
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return Product{}, errNotFound
	case errors.Is(err, ErrDuplicateCode):
		return Product{}, errDuplicateCode
	case err != nil:
		return Product{}, err
	}
	s.invalidate(ctx, supplierID)
	return p, nil
}

func (s *Service) Get(ctx context.Context, supplierID, id string) (Product, error) {
	p, err := s.Store.GetByID(ctx, supplierID, id)
	if errors.Is(err, ErrNotFound) {
		return Product{}, errNotFound
	}
	return p, err
}

type listPayload struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// List returns the supplier's catalogue page. The unfiltered first
// page is served from cache when possible; cache failures fall through
// to the database.
func (s *Service) List(ctx context.Context, supplierID, search string, page, perPage int) ([]Product, int, error) {
	cacheable := search == "" && page <= 1
	key := listCacheKey(supplierID)
	if cacheable {
		var cached listPayload
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.Log.Warn().Err(err).Msg("catalog cache read")
		}
		if hit {
			return cached.Products, cached.Total, nil
		}
	}
	products, total, err := s.Store.List(ctx, supplierID, search, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if cacheable {
		if err := s.Cache.SetJSON(ctx, key, listPayload{Products: products, Total: total}); err != nil {
			s.Log.Warn().Err(err).Msg("catalog cache write")
		}
	}
	return products, total, nil
}

func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	err := s.Store.Delete(ctx, supplierID, id)
	if errors.Is(err, ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx, supplierID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, supplierID string) {
	if err := s.Cache.Invalidate(ctx, listCacheKey(supplierID)); err != nil {
		s.Log.Warn().Err(err).Msg("catalog cache invalidate")
	}
}
