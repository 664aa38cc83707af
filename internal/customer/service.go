package customer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/events"
	"github.com/noah-isme/backend-supplier/internal/obs"
)

var errNotFound = common.NewAppError("NOT_FOUND", "customer not found", http.StatusNotFound, nil)

// Trend is the customer listing row served to the back-office grid.
// TrendSpend is the quarter-over-quarter revenue delta: the last 84
// days of order totals minus the 84 days before that.
type Trend struct {
	Customer      Customer
	WeekCount     int
	WeekCount12   int
	TrendProducts string
	TrendSpend    decimal.Decimal
}

// Service owns customer CRUD and the trend listing.
type Service struct {
	Store Store
	Bus   *events.Bus
	Log   zerolog.Logger
	Now   func() time.Time
}

func NewService(store Store, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{Store: store, Bus: bus, Log: log, Now: time.Now}
}

// CreateInput carries the fields a supplier can set on a customer.
type CreateInput struct {
	SiteName        string `json:"siteName" validate:"required,min=2,max=200"`
	DeliveryAddress string `json:"deliveryAddress" validate:"max=500"`
	Phone           string `json:"phone" validate:"max=40"`
	Email           string `json:"email" validate:"omitempty,email"`
}

func (s *Service) Create(ctx context.Context, supplierID string, in CreateInput) (Customer, error) {
	if err := common.Validate(in); err != nil {
		return Customer{}, err
	}
	c, err := s.Store.Create(ctx, Customer{
		SupplierID:      supplierID,
		SiteName:        strings.TrimSpace(in.SiteName),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.TrimSpace(in.Email),
	})
	if err != nil {
		return Customer{}, err
	}
	s.publish(ctx, events.TopicCustomerCreated, c.ID, map[string]any{"siteName": c.SiteName})
	return c, nil
}

func (s *Service) Update(ctx context.Context, supplierID, id string, in CreateInput, blocked bool) (Customer, error) {
	if err := common.Validate(in); err != nil {
		return Customer{}, err
	}
	c, err := s.Store.Update(ctx, Customer{
		ID:              id,
		SupplierID:      supplierID,
		SiteName:        strings.TrimSpace(in.SiteName),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.TrimSpace(in.Email),
		Blocked:         blocked,
	})
	if errors.Is(err, ErrNotFound) {
		return Customer{}, errNotFound
	}
	return c, err
}

func (s *Service) Get(ctx context.Context, supplierID, id string) (Customer, error) {
	c, err := s.Store.GetByID(ctx, supplierID, id)
	if errors.Is(err, ErrNotFound) {
		return Customer{}, errNotFound
	}
	return c, err
}

// Delete soft-deletes a customer. Deleted customers drop out of every
// listing immediately.
func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	err := s.Store.SoftDelete(ctx, supplierID, id, s.Now())
	if errors.Is(err, ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		return err
	}
	s.publish(ctx, events.TopicCustomerDeleted, id, nil)
	return nil
}

func (s *Service) SetBlocked(ctx context.Context, supplierID, id string, blocked bool) error {
	err := s.Store.SetBlocked(ctx, supplierID, id, blocked)
	if errors.Is(err, ErrNotFound) {
		return errNotFound
	}
	return err
}

// ListTrends returns one row per live customer with activity windows
// anchored to the current clock.
func (s *Service) ListTrends(ctx context.Context, supplierID string, f ListFilter) ([]Trend, error) {
	started := s.Now()
	rows, err := s.Store.ListWithTrends(ctx, supplierID, started, f)
	if err != nil {
		obs.TrendQueriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	obs.TrendQueriesTotal.WithLabelValues("ok").Inc()
	obs.TrendQueryLatency.Observe(obs.DurationMillis(s.Now().Sub(started)))

	out := make([]Trend, 0, len(rows))
	for _, r := range rows {
		out = append(out, Trend{
			Customer:      r.Customer,
			WeekCount:     r.WeekCount,
			WeekCount12:   r.WeekCount12,
			TrendProducts: strings.Join(r.ProductCodes, ","),
			TrendSpend:    r.WeekSum12.Sub(r.ComparisonSum),
		})
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, topic, aggregateID string, payload map[string]any) {
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(ctx, topic, aggregateID, payload); err != nil {
		s.Log.Warn().Err(err).Str("topic", topic).Msg("publish event")
	}
}
