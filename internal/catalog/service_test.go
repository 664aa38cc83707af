package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	products map[string]Product
	listHits int
}

func newStubStore() *stubStore {
	return &stubStore{products: map[string]Product{}}
}

func (s *stubStore) Create(_ context.Context, p Product) (Product, error) {
	for _, existing := range s.products {
		if existing.Code == p.Code {
			return Product{}, ErrDuplicateCode
		}
	}
	p.ID = "prod-" + p.Code
	s.products[p.ID] = p
	return p, nil
}

func (s *stubStore) Update(_ context.Context, p Product) (Product, error) {
	if _, ok := s.products[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *stubStore) GetByID(_ context.Context, _, id string) (Product, error) {
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *stubStore) List(_ context.Context, _, _ string, _, _ int) ([]Product, int, error) {
	s.listHits++
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (s *stubStore) Delete(_ context.Context, _, id string) error {
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestListUsesCacheOnSecondRead(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, testCache(t), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "sup-1", ProductInput{Code: "COF-01", Title: "Coffee", Price: decimal.NewFromInt(8)})
	require.NoError(t, err)

	_, total, err := svc.List(ctx, "sup-1", "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, 1, store.listHits)

	_, _, err = svc.List(ctx, "sup-1", "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, store.listHits, "second unfiltered read should hit the cache")
}

func TestWritesInvalidateCache(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, testCache(t), zerolog.Nop())
	ctx := context.Background()

	p, err := svc.Create(ctx, "sup-1", ProductInput{Code: "COF-01", Title: "Coffee", Price: decimal.NewFromInt(8)})
	require.NoError(t, err)

	_, _, err = svc.List(ctx, "sup-1", "", 1, 50)
	require.NoError(t, err)

	_, err = svc.Update(ctx, "sup-1", p.ID, ProductInput{Code: "COF-01", Title: "Dark Roast", Price: decimal.NewFromInt(9)})
	require.NoError(t, err)

	products, _, err := svc.List(ctx, "sup-1", "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, "Dark Roast", products[0].Title)
	require.Equal(t, 2, store.listHits, "update must invalidate the cached listing")
}

func TestSearchBypassesCache(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, testCache(t), zerolog.Nop())
	ctx := context.Background()

	_, _, err := svc.List(ctx, "sup-1", "coffee", 1, 50)
	require.NoError(t, err)
	_, _, err = svc.List(ctx, "sup-1", "coffee", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 2, store.listHits)
}

func TestDuplicateCode(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, testCache(t), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "sup-1", ProductInput{Code: "COF-01", Title: "Coffee"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "sup-1", ProductInput{Code: "COF-01", Title: "Other"})
	require.ErrorIs(t, err, errDuplicateCode)
}

func TestNilCacheIsNoop(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, NewCache(nil, 0), zerolog.Nop())
	ctx := context.Background()

	_, _, err := svc.List(ctx, "sup-1", "", 1, 50)
	require.NoError(t, err)
	_, _, err = svc.List(ctx, "sup-1", "", 1, 50)
	require.NoError(t, err)
	require.Equal(t, 2, store.listHits)
}
