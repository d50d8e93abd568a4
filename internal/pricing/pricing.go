// Package pricing derives display prices from catalog data. Nothing in
// here is stored; every caller recomputes from the current cart and
// product rows.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/storely/storefront-api/internal/model"
)

// DefaultTaxFactor is the fixed multiplier applied to a product's unit
// price for tax-inclusive display. Per-jurisdiction rates are out of
// scope.
var DefaultTaxFactor = decimal.NewFromFloat(1.10)

type Calculator struct {
	taxFactor decimal.Decimal
}

func NewCalculator(taxFactor decimal.Decimal) Calculator {
	return Calculator{taxFactor: taxFactor}
}

func Default() Calculator {
	return Calculator{taxFactor: DefaultTaxFactor}
}

// PriceWithTax returns unitPrice scaled by the tax factor, unrounded.
// Round with Display at the presentation boundary only.
func (c Calculator) PriceWithTax(unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(c.taxFactor)
}

// ItemTotal is quantity times the base unit price. The tax factor is
// deliberately not applied here; line totals use the pre-tax price.
func ItemTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartTotal sums ItemTotal over the cart's items. Items must carry
// their joined Product.
func CartTotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		total = total.Add(ItemTotal(item.Product.UnitPrice, item.Quantity))
	}
	return total
}

// OrderTotal sums the snapshotted unit prices of an order's items.
func OrderTotal(items []model.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(ItemTotal(item.UnitPrice, item.Quantity))
	}
	return total
}

// Display rounds a monetary value half-up to the currency's minor unit.
func Display(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
