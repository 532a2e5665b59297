package cart_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testEngine() *cart.TotalsEngine {
	return cart.NewTotalsEngine(d("0.13"))
}

func TestCalculateRoundsAtEachBoundary(t *testing.T) {
	engine := testEngine()

	c := &cart.Cart{
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 3, UnitPrice: d("9.99")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})

	assert.Equal(t, "29.97", c.Subtotal.StringFixed(2))
	// 29.97 * 0.13 = 3.8961, rounded half-up at the tax boundary
	assert.Equal(t, "3.90", c.TaxAmount.StringFixed(2))
	assert.Equal(t, "33.87", c.Total.StringFixed(2))
	assert.Equal(t, "29.97", c.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "0.13", c.TaxRate.StringFixed(2))
	assert.NotEmpty(t, c.CartHash)
}

func TestCalculateModifierContributions(t *testing.T) {
	engine := testEngine()

	index := cart.ModifierIndex{
		10: &menu.Modifier{ID: 10, Name: "Extra Cheese", Price: d("1.50")},
		11: &menu.Modifier{ID: 11, Name: "No Cheese", Price: d("-0.50")},
	}

	c := &cart.Cart{
		Items: []cart.CartItem{
			{
				MenuItemID: 1,
				Quantity:   2,
				UnitPrice:  d("12.99"),
				SelectedModifiers: cart.SelectedModifiers{
					{ModifierID: 10, Quantity: 1},
					{ModifierID: 11, Quantity: 1},
					{ModifierID: 99, Quantity: 1}, // removed from the menu
				},
			},
		},
	}
	engine.Calculate(c, index)

	// (1.50 - 0.50) per unit across 2 units; the unknown modifier
	// contributes nothing.
	assert.Equal(t, "2.00", c.Items[0].ModifierTotal.StringFixed(2))
	assert.Equal(t, "27.98", c.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "25.98", c.Subtotal.StringFixed(2))
	assert.Equal(t, "2.00", c.ModifierTotal.StringFixed(2))
	assert.Equal(t, "3.64", c.TaxAmount.StringFixed(2))
	assert.Equal(t, "31.62", c.Total.StringFixed(2))
}

func TestCalculateIsIdempotent(t *testing.T) {
	engine := testEngine()

	c := &cart.Cart{
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 3, UnitPrice: d("9.99")},
			{MenuItemID: 2, Quantity: 1, UnitPrice: d("2.99")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})
	firstHash := c.CartHash
	firstTotal := c.Total

	engine.Calculate(c, cart.ModifierIndex{})

	assert.Equal(t, firstHash, c.CartHash)
	assert.True(t, firstTotal.Equal(c.Total))
}

func TestCalculateDiscardsClientTotals(t *testing.T) {
	engine := testEngine()

	c := &cart.Cart{
		Subtotal:  d("999.99"),
		TaxAmount: d("0.01"),
		Total:     d("1.00"),
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 1, UnitPrice: d("9.99")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})

	assert.Equal(t, "9.99", c.Subtotal.StringFixed(2))
	assert.Equal(t, "1.30", c.TaxAmount.StringFixed(2))
	assert.Equal(t, "11.29", c.Total.StringFixed(2))
}

func TestCalculateHashTracksContent(t *testing.T) {
	engine := testEngine()

	c := &cart.Cart{
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 1, UnitPrice: d("9.99")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})
	before := c.CartHash

	c.Items[0].Quantity = 2
	engine.Calculate(c, cart.ModifierIndex{})

	assert.NotEqual(t, before, c.CartHash)
}

func TestCalculateTipFromPercentage(t *testing.T) {
	engine := testEngine()

	pct := d("15")
	c := &cart.Cart{
		TipPercentage: &pct,
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 3, UnitPrice: d("9.99")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})

	// 29.97 * 15% = 4.4955, rounded half-up
	assert.Equal(t, "4.50", c.TipAmount.StringFixed(2))
	assert.Equal(t, "38.37", c.Total.StringFixed(2))
}

func TestCalculateExplicitTipWinsOverPercentage(t *testing.T) {
	engine := testEngine()

	pct := d("15")
	c := &cart.Cart{
		TipPercentage: &pct,
		TipAmount:     d("2.00"),
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 1, UnitPrice: d("10.00")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})

	assert.Equal(t, "2.00", c.TipAmount.StringFixed(2))
}

func TestCalculateFloorsNegativeTotals(t *testing.T) {
	engine := testEngine()

	c := &cart.Cart{
		CouponDiscount: d("50.00"),
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 3, UnitPrice: d("9.99")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})

	// Discount exceeds the pre-tax amount: tax and total floor at zero
	// instead of going negative.
	assert.Equal(t, "0.00", c.TaxAmount.StringFixed(2))
	assert.Equal(t, "0.00", c.Total.StringFixed(2))
}

func TestCalculateAddsFees(t *testing.T) {
	engine := testEngine()

	c := &cart.Cart{
		DeliveryFee: d("4.99"),
		ServiceFee:  d("1.25"),
		Items: []cart.CartItem{
			{MenuItemID: 1, Quantity: 1, UnitPrice: d("10.00")},
		},
	}
	engine.Calculate(c, cart.ModifierIndex{})

	// 10.00 + 1.30 tax + 4.99 delivery + 1.25 service
	assert.Equal(t, "17.54", c.Total.StringFixed(2))
}
