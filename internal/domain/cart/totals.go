// internal/domain/cart/totals.go
package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
)

// ModifierIndex maps modifier id to a currently-available modifier.
// Missing entries are treated as zero-priced: a modifier removed from the
// menu must not break an existing cart.
type ModifierIndex map[uint]*menu.Modifier

// TotalsEngine derives every monetary field on a cart from its line items.
// It is deterministic, idempotent, and performs no I/O; callers resolve
// the modifier index and decide whether to persist the result.
type TotalsEngine struct {
	defaultTaxRate decimal.Decimal
}

// NewTotalsEngine creates a totals engine with the configured default tax
// rate, used when a cart has no tax rate persisted yet.
func NewTotalsEngine(defaultTaxRate decimal.Decimal) *TotalsEngine {
	return &TotalsEngine{defaultTaxRate: defaultTaxRate}
}

// money quantizes to two decimals, half-up. Applied at every accumulation
// boundary, not just on the final total.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Calculate recomputes all derived fields on the cart and its items,
// including the cart hash. Client-supplied totals are always discarded.
func (e *TotalsEngine) Calculate(c *Cart, modifiers ModifierIndex) {
	subtotal := decimal.Zero
	modifierTotal := decimal.Zero

	for i := range c.Items {
		item := &c.Items[i]
		qty := decimal.NewFromInt(int64(item.Quantity))

		itemSubtotal := money(item.UnitPrice.Mul(qty))
		subtotal = subtotal.Add(itemSubtotal)

		itemModifierTotal := decimal.Zero
		for _, sel := range normalizedModifiers(item.SelectedModifiers) {
			mod, ok := modifiers[sel.ModifierID]
			if !ok {
				// Unknown or unavailable modifier: soft skip.
				continue
			}
			contribution := mod.Price.
				Mul(decimal.NewFromInt(int64(sel.Quantity))).
				Mul(qty)
			itemModifierTotal = itemModifierTotal.Add(money(contribution))
		}
		item.ModifierTotal = money(itemModifierTotal)
		modifierTotal = modifierTotal.Add(item.ModifierTotal)

		item.LineTotal = money(item.UnitPrice.Sub(item.DiscountApplied).Mul(qty).Add(item.ModifierTotal))
	}

	c.Subtotal = money(subtotal)
	c.ModifierTotal = money(modifierTotal)

	preTaxTotal := money(c.Subtotal.Add(c.ModifierTotal))

	// Discounts are a simple sum; stacking decisions happen upstream.
	totalDiscount := money(c.DiscountAmount.Add(c.CouponDiscount).Add(c.LoyaltyDiscount))
	discountedTotal := preTaxTotal.Sub(totalDiscount)
	if discountedTotal.IsNegative() {
		discountedTotal = decimal.Zero
	}
	discountedTotal = money(discountedTotal)

	// Resolve and persist the tax rate once so recomputation stays
	// idempotent even if the configured default changes later.
	if c.TaxRate.LessThanOrEqual(decimal.Zero) {
		c.TaxRate = e.defaultTaxRate
	}
	c.TaxAmount = money(discountedTotal.Mul(c.TaxRate))

	// Tip: percentage derives amount only when no explicit amount is set.
	// The two inputs are mutually exclusive; the call site clears one when
	// setting the other.
	if c.TipPercentage != nil && c.TipAmount.IsZero() {
		c.TipAmount = money(discountedTotal.Mul(*c.TipPercentage).Div(decimal.NewFromInt(100)))
	}

	total := discountedTotal.
		Add(c.TaxAmount).
		Add(c.DeliveryFee).
		Add(c.ServiceFee).
		Add(c.TipAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	c.Total = money(total)

	c.CartHash = e.computeHash(c)
}

// hashLine is the canonical serialization of one line for the cart hash
type hashLine struct {
	MenuItemID uint              `json:"menu_item_id"`
	Quantity   int               `json:"quantity"`
	UnitPrice  string            `json:"unit_price"`
	Modifiers  SelectedModifiers `json:"modifiers"`
	LineTotal  string            `json:"line_total"`
}

// hashPayload is the canonical serialization the cart hash is taken over
type hashPayload struct {
	Items         []hashLine `json:"items"`
	Subtotal      string     `json:"subtotal"`
	ModifierTotal string     `json:"modifier_total"`
	Discounts     string     `json:"discounts"`
	TaxAmount     string     `json:"tax_amount"`
	Total         string     `json:"total"`
}

// computeHash digests the items, modifiers and totals. The hash is an
// advisory tamper/consistency check, not a merge key, so lines are taken
// in storage order.
func (e *TotalsEngine) computeHash(c *Cart) string {
	payload := hashPayload{
		Items:         make([]hashLine, 0, len(c.Items)),
		Subtotal:      c.Subtotal.StringFixed(2),
		ModifierTotal: c.ModifierTotal.StringFixed(2),
		Discounts:     c.DiscountAmount.Add(c.CouponDiscount).Add(c.LoyaltyDiscount).StringFixed(2),
		TaxAmount:     c.TaxAmount.StringFixed(2),
		Total:         c.Total.StringFixed(2),
	}
	for i := range c.Items {
		item := &c.Items[i]
		payload.Items = append(payload.Items, hashLine{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			Modifiers:  normalizedModifiers(item.SelectedModifiers),
			LineTotal:  item.LineTotal.StringFixed(2),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
