// internal/domain/cart/signature.go
package cart

import (
	"fmt"
	"sort"
	"strings"
)

// LineSignature identifies an orderable configuration: the menu item plus
// its normalized modifier selections. Two lines with equal signatures are
// "the same line" for merge purposes, regardless of modifier order.
type LineSignature string

// Signature computes the line signature for a cart item
func (ci *CartItem) Signature() LineSignature {
	return ComputeSignature(ci.MenuItemID, ci.SelectedModifiers)
}

// ComputeSignature builds an order-independent signature from a menu item
// id and modifier selections. Modifier quantities are floored at 1.
func ComputeSignature(menuItemID uint, mods SelectedModifiers) LineSignature {
	normalized := normalizedModifiers(mods)
	pairs := make([]string, 0, len(normalized))
	for _, m := range normalized {
		pairs = append(pairs, fmt.Sprintf("%d:%d", m.ModifierID, m.Quantity))
	}
	sort.Strings(pairs)
	return LineSignature(fmt.Sprintf("item=%d|mods=%s", menuItemID, strings.Join(pairs, ",")))
}
