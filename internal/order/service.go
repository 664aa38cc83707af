package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/events"
	"github.com/noah-isme/backend-supplier/internal/obs"
	"github.com/noah-isme/backend-supplier/internal/pricing"
)

var (
	errNoCustomer      = common.NewAppError("NO_CUSTOMER_SELECTED", "a customer must be selected", http.StatusUnprocessableEntity, nil)
	errNoItems         = common.NewAppError("EMPTY_ORDER", "an order needs at least one line item", http.StatusUnprocessableEntity, nil)
	errUnknownStatus   = common.NewAppError("INVALID_STATUS", "unknown order status", http.StatusUnprocessableEntity, nil)
	errNotFound        = common.NewAppError("NOT_FOUND", "order not found", http.StatusNotFound, nil)
	errCustomerMissing = common.NewAppError("CUSTOMER_NOT_FOUND", "customer does not exist", http.StatusUnprocessableEntity, nil)
)

// Service assembles, prices and persists orders.
type Service struct {
	Store           Store
	Bus             *events.Bus
	Log             zerolog.Logger
	DefaultDiscount float64
	DefaultTax      float64
	DueOffset       time.Duration
	Now             func() time.Time
}

func NewService(store Store, bus *events.Bus, log zerolog.Logger, defaultDiscount, defaultTax float64, dueOffset time.Duration) *Service {
	return &Service{
		Store:           store,
		Bus:             bus,
		Log:             log,
		DefaultDiscount: defaultDiscount,
		DefaultTax:      defaultTax,
		DueOffset:       dueOffset,
		Now:             time.Now,
	}
}

// Input carries everything a supplier submits when creating or editing
// an order. Nil percentages fall back to the service defaults, nil
// dates fall back to now and now plus the due offset.
type Input struct {
	CustomerID      string             `json:"customerId"`
	Items           []pricing.LineItem `json:"items"`
	DiscountPercent *float64           `json:"discountPercent"`
	TaxPercent      *float64           `json:"taxPercent"`
	IssuedAt        *time.Time         `json:"issuedAt"`
	DueAt           *time.Time         `json:"dueAt"`
}

// build validates the input and assembles a priced order. Totals are
// always recomputed server-side from the line items, never trusted
// from the client.
func (s *Service) build(in Input, supplierID string) (Order, error) {
	if in.CustomerID == "" {
		return Order{}, errNoCustomer
	}
	if len(in.Items) == 0 {
		return Order{}, errNoItems
	}
	now := s.Now()
	o := Order{
		SupplierID:      supplierID,
		CustomerID:      in.CustomerID,
		Status:          StatusUnopened,
		DiscountPercent: s.DefaultDiscount,
		TaxPercent:      s.DefaultTax,
		Items:           in.Items,
		IssuedAt:        now,
		DueAt:           now.Add(s.DueOffset),
	}
	if in.DiscountPercent != nil {
		o.DiscountPercent = *in.DiscountPercent
	}
	if in.TaxPercent != nil {
		o.TaxPercent = *in.TaxPercent
	}
	if in.IssuedAt != nil {
		o.IssuedAt = *in.IssuedAt
	}
	if in.DueAt != nil {
		o.DueAt = *in.DueAt
	}
	sum := pricing.Compute(o.Items, o.DiscountPercent, o.TaxPercent)
	o.Subtotal = sum.Subtotal
	o.Total = sum.Total
	return o, nil
}

func (s *Service) Create(ctx context.Context, supplierID string, in Input) (Order, error) {
	o, err := s.build(in, supplierID)
	if err != nil {
		obs.OrdersCreatedTotal.WithLabelValues("invalid").Inc()
		return Order{}, err
	}
	created, err := s.Store.Create(ctx, o)
	if errors.Is(err, ErrCustomerMissing) {
		obs.OrdersCreatedTotal.WithLabelValues("invalid").Inc()
		return Order{}, errCustomerMissing
	}
	if err != nil {
		obs.OrdersCreatedTotal.WithLabelValues("error").Inc()
		return Order{}, err
	}
	obs.OrdersCreatedTotal.WithLabelValues("ok").Inc()
	s.publish(ctx, events.TopicOrderCreated, created.ID, map[string]any{
		"orderNo": created.OrderNo,
		"total":   created.Total,
	})
	return created, nil
}

func (s *Service) Update(ctx context.Context, supplierID, id string, in Input) (Order, error) {
	o, err := s.build(in, supplierID)
	if err != nil {
		return Order{}, err
	}
	o.ID = id
	updated, err := s.Store.Update(ctx, o)
	switch {
	case errors.Is(err, ErrNotFound):
		return Order{}, errNotFound
	case errors.Is(err, ErrCustomerMissing):
		return Order{}, errCustomerMissing
	case err != nil:
		return Order{}, err
	}
	s.publish(ctx, events.TopicOrderUpdated, updated.ID, map[string]any{"orderNo": updated.OrderNo})
	return updated, nil
}

func (s *Service) Get(ctx context.Context, supplierID, id string) (Order, error) {
	o, err := s.Store.GetByID(ctx, supplierID, id)
	if errors.Is(err, ErrNotFound) {
		return Order{}, errNotFound
	}
	return o, err
}

func (s *Service) List(ctx context.Context, supplierID string, f ListFilter) ([]Order, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, errUnknownStatus
	}
	return s.Store.List(ctx, supplierID, f)
}

func (s *Service) SetStatus(ctx context.Context, supplierID, id string, status Status) error {
	if !status.Valid() {
		return errUnknownStatus
	}
	err := s.Store.UpdateStatus(ctx, supplierID, id, status)
	if errors.Is(err, ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		return err
	}
	obs.OrderStatusTransitions.WithLabelValues(string(status)).Inc()
	s.publish(ctx, events.TopicOrderStatusChanged, id, map[string]any{"status": status})
	return nil
}

func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	err := s.Store.SoftDelete(ctx, supplierID, id, s.Now())
	if errors.Is(err, ErrNotFound) {
		return errNotFound
	}
	if err != nil {
		return err
	}
	s.publish(ctx, events.TopicOrderDeleted, id, nil)
	return nil
}

func (s *Service) publish(ctx context.Context, topic, aggregateID string, payload map[string]any) {
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(ctx, topic, aggregateID, payload); err != nil {
		s.Log.Warn().Err(err).Str("topic", topic).Msg("publish event")
	}
}
