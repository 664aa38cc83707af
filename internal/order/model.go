package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-supplier/internal/pricing"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusOpened     Status = "opened"
	StatusSent       Status = "sent"
	StatusProcessing Status = "processing"
	StatusUnopened   Status = "unopened"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpened, StatusSent, StatusProcessing, StatusUnopened, StatusRefunded:
		return true
	}
	return false
}

// Order is a priced order belonging to one supplier. OrderNo is unique
// per supplier and assigned from a server-side counter on insert.
type Order struct {
	ID              string
	SupplierID      string
	CustomerID      string
	OrderNo         int64
	Status          Status
	DiscountPercent float64
	TaxPercent      float64
	Subtotal        decimal.Decimal
	Total           decimal.Decimal
	Items           []pricing.LineItem
	IssuedAt        time.Time
	DueAt           time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
