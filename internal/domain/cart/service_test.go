package cart_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
)

func seedBurger(t *testing.T, db *gorm.DB) *menu.MenuItem {
	item := menu.MenuItem{Name: "House Burger", Price: d("10.99"), IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)
	return &item
}

func TestAddItemMergesMatchingLines(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())
	item := seedBurger(t, db)
	userID := uint(1)

	_, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	c, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "32.97", c.Subtotal.StringFixed(2))
}

func TestAddItemKeepsDistinctConfigurationsApart(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())
	item := seedBurger(t, db)
	userID := uint(1)

	_, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	c, err := svc.AddItem(&userID, "", &cart.AddItemRequest{
		MenuItemID: item.ID,
		Quantity:   1,
		Modifiers:  cart.SelectedModifiers{{ModifierID: 10, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Len(t, c.Items, 2)
}

func TestAddItemRejectsUnavailableItem(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())
	userID := uint(1)

	item := menu.MenuItem{Name: "Seasonal Special", Price: d("19.99"), IsAvailable: false}
	require.NoError(t, db.Create(&item).Error)

	_, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	assert.Error(t, err)
}

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())
	item := seedBurger(t, db)
	userID := uint(1)

	c, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 2})
	require.NoError(t, err)

	c, err = svc.UpdateItem(&userID, "", c.Items[0].ID, &cart.UpdateItemRequest{Quantity: 0})
	require.NoError(t, err)

	assert.Empty(t, c.Items)
	assert.Equal(t, "0.00", c.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", c.Total.StringFixed(2))
}

func TestSetDeliveryOption(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())
	item := seedBurger(t, db)
	userID := uint(1)

	_, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	c, err := svc.SetDeliveryOption(&userID, "", cart.DeliveryDelivery, nil)
	require.NoError(t, err)
	assert.Equal(t, "4.99", c.DeliveryFee.StringFixed(2))

	_, err = svc.SetDeliveryOption(&userID, "", cart.DeliveryDineIn, nil)
	assert.ErrorIs(t, err, cart.ErrTableRequired)

	tableID := uint(4)
	c, err = svc.SetDeliveryOption(&userID, "", cart.DeliveryDineIn, &tableID)
	require.NoError(t, err)
	require.NotNil(t, c.TableID)
	assert.Equal(t, tableID, *c.TableID)
	assert.Equal(t, "0.00", c.DeliveryFee.StringFixed(2))

	// Switching back to pickup clears the table.
	c, err = svc.SetDeliveryOption(&userID, "", cart.DeliveryPickup, nil)
	require.NoError(t, err)
	assert.Nil(t, c.TableID)
}

func TestSetTip(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())
	item := seedBurger(t, db)
	userID := uint(1)

	_, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	amount := d("3.00")
	pct := d("20")
	_, err = svc.SetTip(&userID, "", &amount, &pct)
	assert.Error(t, err)

	c, err := svc.SetTip(&userID, "", nil, &pct)
	require.NoError(t, err)
	// 20% of 10.99 = 2.198
	assert.Equal(t, "2.20", c.TipAmount.StringFixed(2))
	require.NotNil(t, c.TipPercentage)

	c, err = svc.SetTip(&userID, "", &amount, nil)
	require.NoError(t, err)
	assert.Equal(t, "3.00", c.TipAmount.StringFixed(2))
	assert.Nil(t, c.TipPercentage)
}

func TestExpireStaleCarts(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())
	item := seedBurger(t, db)
	userID := uint(1)

	c, err := svc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	fresh := createCart(t, db, nil, "fresh-session")

	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Session(&gorm.Session{SkipHooks: true}).
		Model(&cart.Cart{}).Where("id = ?", c.ID).
		Update("last_activity_at", stale).Error)

	expired, err := svc.ExpireStaleCarts()
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var staleCart cart.Cart
	require.NoError(t, db.First(&staleCart, c.ID).Error)
	assert.Equal(t, cart.CartStatusAbandoned, staleCart.Status)

	var freshCart cart.Cart
	require.NoError(t, db.First(&freshCart, fresh.ID).Error)
	assert.Equal(t, cart.CartStatusActive, freshCart.Status)
}
