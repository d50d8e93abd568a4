package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/storely/storefront-api/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceWithTax(t *testing.T) {
	calc := Default()
	got := calc.PriceWithTax(dec("10.00"))
	assert.True(t, dec("11.00").Equal(got), "got %s", got)
}

func TestPriceWithTax_RoundedAtDisplay(t *testing.T) {
	calc := Default()
	// 3.33 * 1.10 = 3.663, displayed as 3.66
	assert.True(t, dec("3.66").Equal(Display(calc.PriceWithTax(dec("3.33")))))
	// 3.35 * 1.10 = 3.685, half-up to 3.69
	assert.True(t, dec("3.69").Equal(Display(calc.PriceWithTax(dec("3.35")))))
}

func TestItemTotal_UsesBasePrice(t *testing.T) {
	// line totals stay pre-tax
	got := ItemTotal(dec("10.00"), 5)
	assert.True(t, dec("50.00").Equal(got), "got %s", got)
}

func TestCartTotal(t *testing.T) {
	items := []model.CartItem{
		{Quantity: 2, Product: &model.Product{UnitPrice: dec("10.00")}},
		{Quantity: 1, Product: &model.Product{UnitPrice: dec("5.50")}},
	}
	got := CartTotal(items)
	assert.True(t, dec("25.50").Equal(got), "got %s", got)
}

func TestCartTotal_Empty(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(CartTotal(nil)))
}

func TestOrderTotal(t *testing.T) {
	items := []model.OrderItem{
		{Quantity: 3, UnitPrice: dec("2.99")},
		{Quantity: 1, UnitPrice: dec("0.01")},
	}
	got := OrderTotal(items)
	assert.True(t, dec("8.98").Equal(got), "got %s", got)
}
