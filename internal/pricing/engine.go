package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// LineItem describes one product row within an order.
type LineItem struct {
	Code     string  `json:"code"`
	Title    string  `json:"title"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Summary aggregates the computed pricing components of an order.
type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// Subtotal sums quantity times price over the provided items. A non-finite
// quantity or price contributes zero for that factor, so the result is never
// NaN and Subtotal(nil) is zero.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		qty := finiteOrZero(it.Quantity)
		price := finiteOrZero(it.Price)
		if qty.IsZero() || price.IsZero() {
			continue
		}
		sum = sum.Add(qty.Mul(price))
	}
	return sum
}

// Total applies the discount and tax percentages to the item subtotal and
// rounds the result to two decimal places. Rounding is half away from zero.
func Total(items []LineItem, discountPercent, taxPercent float64) decimal.Decimal {
	return Compute(items, discountPercent, taxPercent).Total
}

// Compute returns the full pricing breakdown:
// total = subtotal - subtotal*discount/100 + subtotal*tax/100.
func Compute(items []LineItem, discountPercent, taxPercent float64) Summary {
	subtotal := Subtotal(items)
	discount := subtotal.Mul(finiteOrZero(discountPercent)).Div(hundred)
	tax := subtotal.Mul(finiteOrZero(taxPercent)).Div(hundred)
	total := subtotal.Sub(discount).Add(tax).Round(2)
	return Summary{
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Tax:      tax.Round(2),
		Total:    total,
	}
}

func finiteOrZero(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
