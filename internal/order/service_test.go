package order

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/obs"
	"github.com/noah-isme/backend-supplier/internal/pricing"
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())
	os.Exit(m.Run())
}

type stubStore struct {
	orders  map[string]Order
	nextNo  int64
	created int
}

func newStubStore() *stubStore {
	return &stubStore{orders: map[string]Order{}}
}

func (s *stubStore) Create(_ context.Context, o Order) (Order, error) {
	if o.CustomerID == "ghost" {
		return Order{}, ErrCustomerMissing
	}
	s.nextNo++
	s.created++
	o.OrderNo = s.nextNo
	o.ID = "ord-" + o.CustomerID + "-" + time.Now().Format("150405.000000000")
	s.orders[o.ID] = o
	return o, nil
}

func (s *stubStore) Update(_ context.Context, o Order) (Order, error) {
	prev, ok := s.orders[o.ID]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.OrderNo = prev.OrderNo
	o.Status = prev.Status
	s.orders[o.ID] = o
	return o, nil
}

func (s *stubStore) GetByID(_ context.Context, _, id string) (Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *stubStore) List(_ context.Context, _ string, f ListFilter) ([]Order, int, error) {
	var out []Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (s *stubStore) UpdateStatus(_ context.Context, _, id string, status Status) error {
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

func (s *stubStore) SoftDelete(_ context.Context, _, id string, _ time.Time) error {
	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func newTestService(store Store) *Service {
	svc := NewService(store, nil, zerolog.Nop(), 10, 20, 7*24*time.Hour)
	svc.Now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func items(rows ...pricing.LineItem) []pricing.LineItem { return rows }

func TestCreateAppliesDefaults(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)

	o, err := svc.Create(context.Background(), "sup-1", Input{
		CustomerID: "cust-1",
		Items:      items(pricing.LineItem{Code: "A", Quantity: 2, Price: 10}),
	})
	require.NoError(t, err)
	require.Equal(t, 10.0, o.DiscountPercent)
	require.Equal(t, 20.0, o.TaxPercent)
	require.Equal(t, StatusUnopened, o.Status)
	require.Equal(t, int64(1), o.OrderNo)
	require.Equal(t, svc.Now(), o.IssuedAt)
	require.Equal(t, svc.Now().Add(7*24*time.Hour), o.DueAt)
	// 20 - 2 + 4
	require.True(t, o.Total.Equal(decimal.RequireFromString("22")), "got %s", o.Total)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newStubStore())

	_, err := svc.Create(context.Background(), "sup-1", Input{Items: items(pricing.LineItem{Quantity: 1, Price: 1})})
	require.ErrorIs(t, err, errNoCustomer)

	_, err = svc.Create(context.Background(), "sup-1", Input{CustomerID: "cust-1"})
	require.ErrorIs(t, err, errNoItems)
}

func TestCreateUnknownCustomer(t *testing.T) {
	svc := newTestService(newStubStore())
	_, err := svc.Create(context.Background(), "sup-1", Input{
		CustomerID: "ghost",
		Items:      items(pricing.LineItem{Quantity: 1, Price: 1}),
	})
	require.ErrorIs(t, err, errCustomerMissing)
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	in := Input{CustomerID: "cust-1", Items: items(pricing.LineItem{Quantity: 1, Price: 5})}

	first, err := svc.Create(context.Background(), "sup-1", in)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "sup-1", in)
	require.NoError(t, err)
	require.Equal(t, first.OrderNo+1, second.OrderNo)
}

func TestUpdateRecomputesTotals(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	o, err := svc.Create(context.Background(), "sup-1", Input{
		CustomerID: "cust-1",
		Items:      items(pricing.LineItem{Quantity: 1, Price: 100}),
	})
	require.NoError(t, err)

	disc, tax := 0.0, 0.0
	updated, err := svc.Update(context.Background(), "sup-1", o.ID, Input{
		CustomerID:      "cust-1",
		Items:           items(pricing.LineItem{Quantity: 3, Price: 1.5}),
		DiscountPercent: &disc,
		TaxPercent:      &tax,
	})
	require.NoError(t, err)
	require.True(t, updated.Subtotal.Equal(decimal.RequireFromString("4.5")))
	require.True(t, updated.Total.Equal(updated.Subtotal), "zero percents keep total equal to subtotal")
	require.Equal(t, o.OrderNo, updated.OrderNo, "order number never changes on edit")
}

func TestRecomputationIsIdempotent(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	in := Input{
		CustomerID: "cust-1",
		Items: items(
			pricing.LineItem{Code: "A", Quantity: 2, Price: 10},
			pricing.LineItem{Code: "B", Quantity: 3, Price: 1.5},
		),
	}
	o, err := svc.Create(context.Background(), "sup-1", in)
	require.NoError(t, err)

	sum := pricing.Compute(o.Items, o.DiscountPercent, o.TaxPercent)
	require.True(t, o.Subtotal.Equal(sum.Subtotal))
	require.True(t, o.Total.Equal(sum.Total))
}

func TestSetStatus(t *testing.T) {
	store := newStubStore()
	svc := newTestService(store)
	o, err := svc.Create(context.Background(), "sup-1", Input{
		CustomerID: "cust-1",
		Items:      items(pricing.LineItem{Quantity: 1, Price: 1}),
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.SetStatus(context.Background(), "sup-1", o.ID, Status("shredded")), errUnknownStatus)
	require.NoError(t, svc.SetStatus(context.Background(), "sup-1", o.ID, StatusSent))

	got, err := svc.Get(context.Background(), "sup-1", o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, got.Status)
}

func TestDeleteMissingOrder(t *testing.T) {
	svc := newTestService(newStubStore())
	err := svc.Delete(context.Background(), "sup-1", "nope")
	appErr := common.AsAppError(err)
	require.NotNil(t, appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}
