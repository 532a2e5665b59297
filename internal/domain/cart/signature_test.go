package cart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/restaurant-backend/internal/domain/cart"
)

func TestSignatureIgnoresModifierOrder(t *testing.T) {
	a := cart.ComputeSignature(7, cart.SelectedModifiers{
		{ModifierID: 1, Quantity: 2},
		{ModifierID: 3, Quantity: 1},
	})
	b := cart.ComputeSignature(7, cart.SelectedModifiers{
		{ModifierID: 3, Quantity: 1},
		{ModifierID: 1, Quantity: 2},
	})

	assert.Equal(t, a, b)
}

func TestSignatureFloorsModifierQuantity(t *testing.T) {
	a := cart.ComputeSignature(7, cart.SelectedModifiers{{ModifierID: 1, Quantity: 0}})
	b := cart.ComputeSignature(7, cart.SelectedModifiers{{ModifierID: 1, Quantity: 1}})

	assert.Equal(t, a, b)
}

func TestSignatureDistinguishesConfigurations(t *testing.T) {
	plain := cart.ComputeSignature(7, nil)
	withCheese := cart.ComputeSignature(7, cart.SelectedModifiers{{ModifierID: 1, Quantity: 1}})
	doubleCheese := cart.ComputeSignature(7, cart.SelectedModifiers{{ModifierID: 1, Quantity: 2}})
	otherItem := cart.ComputeSignature(8, nil)

	assert.NotEqual(t, plain, withCheese)
	assert.NotEqual(t, withCheese, doubleCheese)
	assert.NotEqual(t, plain, otherItem)
}

func TestCartItemSignatureMatchesComputeSignature(t *testing.T) {
	item := cart.CartItem{
		MenuItemID:        7,
		SelectedModifiers: cart.SelectedModifiers{{ModifierID: 1, Quantity: 2}},
	}

	assert.Equal(t, cart.ComputeSignature(7, item.SelectedModifiers), item.Signature())
}
