package customer

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
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())
	os.Exit(m.Run())
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubStore struct {
	rows       []TrendRow
	customers  map[string]Customer
	lastAnchor time.Time
	lastFilter ListFilter
	deleted    map[string]time.Time
}

func newStubStore() *stubStore {
	return &stubStore{customers: map[string]Customer{}, deleted: map[string]time.Time{}}
}

func (s *stubStore) Create(_ context.Context, c Customer) (Customer, error) {
	c.ID = "cust-1"
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	s.customers[c.ID] = c
	return c, nil
}

func (s *stubStore) Update(_ context.Context, c Customer) (Customer, error) {
	if _, ok := s.customers[c.ID]; !ok {
		return Customer{}, ErrNotFound
	}
	s.customers[c.ID] = c
	return c, nil
}

func (s *stubStore) GetByID(_ context.Context, _, id string) (Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (s *stubStore) SoftDelete(_ context.Context, _, id string, at time.Time) error {
	if _, ok := s.customers[id]; !ok {
		return ErrNotFound
	}
	delete(s.customers, id)
	s.deleted[id] = at
	return nil
}

func (s *stubStore) SetBlocked(_ context.Context, _, id string, blocked bool) error {
	c, ok := s.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.Blocked = blocked
	s.customers[id] = c
	return nil
}

func (s *stubStore) ListWithTrends(_ context.Context, _ string, anchor time.Time, f ListFilter) ([]TrendRow, error) {
	s.lastAnchor = anchor
	s.lastFilter = f
	return s.rows, nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestListTrendsDerivesSpendDelta(t *testing.T) {
	store := newStubStore()
	// one order of 100 ten days ago, one of 50 a hundred days ago
	store.rows = []TrendRow{{
		Customer: Customer{ID: "c1", SiteName: "North Cafe"},
		TrendStats: TrendStats{
			WeekCount:     0,
			WeekCount12:   1,
			WeekSum12:     dec("100"),
			ComparisonSum: dec("50"),
			ProductCodes:  []string{"COF-01", "TEA-02"},
		},
	}}
	svc := NewService(store, nil, testLogger())
	anchor := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return anchor }

	trends, err := svc.ListTrends(context.Background(), "sup-1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, trends, 1)
	require.Equal(t, 1, trends[0].WeekCount12)
	require.True(t, trends[0].TrendSpend.Equal(dec("50")), "got %s", trends[0].TrendSpend)
	require.Equal(t, "COF-01,TEA-02", trends[0].TrendProducts)
	require.Equal(t, anchor, store.lastAnchor)
}

func TestListTrendsZeroActivity(t *testing.T) {
	store := newStubStore()
	store.rows = []TrendRow{{Customer: Customer{ID: "c1", SiteName: "Quiet Site"}}}
	svc := NewService(store, nil, testLogger())

	trends, err := svc.ListTrends(context.Background(), "sup-1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, trends, 1)
	require.Zero(t, trends[0].WeekCount)
	require.Zero(t, trends[0].WeekCount12)
	require.True(t, trends[0].TrendSpend.IsZero())
	require.Equal(t, "", trends[0].TrendProducts)
}

func TestListTrendsNegativeDelta(t *testing.T) {
	store := newStubStore()
	store.rows = []TrendRow{{
		Customer:   Customer{ID: "c1"},
		TrendStats: TrendStats{WeekSum12: dec("20"), ComparisonSum: dec("80")},
	}}
	svc := NewService(store, nil, testLogger())

	trends, err := svc.ListTrends(context.Background(), "sup-1", ListFilter{})
	require.NoError(t, err)
	require.True(t, trends[0].TrendSpend.Equal(dec("-60")))
}

func TestListTrendsPassesFilter(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, nil, testLogger())
	blocked := true

	_, err := svc.ListTrends(context.Background(), "sup-1", ListFilter{Search: "cafe", Blocked: &blocked, Page: 2, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, "cafe", store.lastFilter.Search)
	require.NotNil(t, store.lastFilter.Blocked)
	require.True(t, *store.lastFilter.Blocked)
	require.Equal(t, 2, store.lastFilter.Page)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newStubStore(), nil, testLogger())
	_, err := svc.Create(context.Background(), "sup-1", CreateInput{SiteName: ""})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestDeleteMissingCustomer(t *testing.T) {
	svc := NewService(newStubStore(), nil, testLogger())
	err := svc.Delete(context.Background(), "sup-1", "nope")
	appErr := common.AsAppError(err)
	require.NotNil(t, appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestDeleteSoftDeletes(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, nil, testLogger())
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return at }

	c, err := svc.Create(context.Background(), "sup-1", CreateInput{SiteName: "North Cafe"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), "sup-1", c.ID))
	require.Equal(t, at, store.deleted[c.ID])

	_, err = svc.Get(context.Background(), "sup-1", c.ID)
	require.Error(t, err)
}
