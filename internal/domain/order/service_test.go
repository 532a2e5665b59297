package order_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
	"github.com/your-org/restaurant-backend/internal/domain/order"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() *config.Config {
	return &config.Config{
		Restaurant: config.RestaurantConfig{
			Currency:            "USD",
			DefaultTaxRate:      d("0.13"),
			DeliveryFee:         d("4.99"),
			CartInactivityLimit: 25 * time.Minute,
			LoyaltyPointValue:   d("0.01"),
			StatusEventChannel:  "orders:status",
		},
	}
}

func setupOrderDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&menu.Category{}, &menu.MenuItem{}, &menu.ModifierGroup{}, &menu.Modifier{},
		&cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
	)
	require.NoError(t, err)
	return db
}

// seedMenu creates one pizza with an available and an unavailable
// modifier, returning the item and both modifiers
func seedMenu(t *testing.T, db *gorm.DB) (*menu.MenuItem, *menu.Modifier, *menu.Modifier) {
	item := menu.MenuItem{Name: "Margherita Pizza", Price: d("12.99"), IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)

	group := menu.ModifierGroup{MenuItemID: item.ID, Name: "Toppings"}
	require.NoError(t, db.Create(&group).Error)

	cheese := menu.Modifier{GroupID: group.ID, Name: "Extra Cheese", Price: d("1.50"), IsAvailable: true}
	require.NoError(t, db.Create(&cheese).Error)

	retired := menu.Modifier{GroupID: group.ID, Name: "Truffle Oil", Price: d("3.00"), IsAvailable: false}
	require.NoError(t, db.Create(&retired).Error)

	return &item, &cheese, &retired
}

// placeOrder builds a one-line cart for the user and converts it
func placeOrder(t *testing.T, db *gorm.DB, userID uint) *order.Order {
	cfg := testConfig()
	item, cheese, _ := seedMenu(t, db)

	cartSvc := cart.NewService(db, nil, cfg)
	c, err := cartSvc.AddItem(&userID, "", &cart.AddItemRequest{
		MenuItemID: item.ID,
		Quantity:   2,
		Modifiers:  cart.SelectedModifiers{{ModifierID: cheese.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	orderSvc := order.NewService(db, nil, cfg)
	o, err := orderSvc.CreateFromCart(context.Background(), c.ID, &order.CustomerInfo{Name: "Alex"}, &userID)
	require.NoError(t, err)
	return o
}

func TestCreateFromCartFreezesLines(t *testing.T) {
	db := setupOrderDB(t)
	cfg := testConfig()
	item, cheese, retired := seedMenu(t, db)
	userID := uint(1)

	cartSvc := cart.NewService(db, nil, cfg)
	c, err := cartSvc.AddItem(&userID, "", &cart.AddItemRequest{
		MenuItemID: item.ID,
		Quantity:   2,
		Modifiers: cart.SelectedModifiers{
			{ModifierID: cheese.ID, Quantity: 1},
			{ModifierID: retired.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	orderSvc := order.NewService(db, nil, cfg)
	o, err := orderSvc.CreateFromCart(context.Background(), c.ID, &order.CustomerInfo{
		Name:  "Alex",
		Phone: "555-0100",
	}, &userID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))
	assert.Equal(t, order.OrderStatusPending, o.Status)
	assert.Equal(t, "Alex", o.CustomerName)
	assert.True(t, o.TotalAmount.Equal(c.Total))
	assert.True(t, o.TaxAmount.Equal(c.TaxAmount))
	require.NotNil(t, o.SourceCartID)
	assert.Equal(t, c.ID, *o.SourceCartID)

	require.Len(t, o.Items, 1)
	line := o.Items[0]
	assert.Equal(t, "Margherita Pizza", line.Name)
	assert.Equal(t, 2, line.Quantity)

	// Only the available modifier is frozen; the retired one contributed
	// nothing to the totals and is not carried either.
	require.Len(t, line.Modifiers, 1)
	assert.Equal(t, "Extra Cheese", line.Modifiers[0].Name)
	assert.True(t, line.Modifiers[0].Price.Equal(d("1.50")))

	// Creation writes the first audit row with no previous status.
	var history []order.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", o.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PreviousStatus)
	assert.Equal(t, order.OrderStatusPending, history[0].NewStatus)
	assert.Equal(t, order.HistorySourceSystem, history[0].Source)

	// The cart converts exactly once.
	var reloaded cart.Cart
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, cart.CartStatusConverted, reloaded.Status)

	_, err = orderSvc.CreateFromCart(context.Background(), c.ID, &order.CustomerInfo{Name: "Alex"}, &userID)
	assert.ErrorIs(t, err, cart.ErrCartNotActive)
}

func TestCreateFromCartRejectsEmptyCart(t *testing.T) {
	db := setupOrderDB(t)
	cfg := testConfig()
	userID := uint(1)

	cartSvc := cart.NewService(db, nil, cfg)
	c, err := cartSvc.GetOrCreateActiveCart(&userID, "")
	require.NoError(t, err)

	orderSvc := order.NewService(db, nil, cfg)
	_, err = orderSvc.CreateFromCart(context.Background(), c.ID, &order.CustomerInfo{Name: "Alex"}, &userID)
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
}

func TestTransitionLifecycle(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)
	ctx := context.Background()

	o2, err := svc.TransitionTo(ctx, o.ID, "in_progress", &userID, &order.TransitionOptions{Reason: "Kitchen picked up"})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusPreparing, o2.Status)
	assert.NotNil(t, o2.StartedPreparingAt)

	// Legacy vocabulary is accepted on input.
	o3, err := svc.TransitionTo(ctx, o.ID, "ready", &userID, nil)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusReady, o3.Status)
	assert.NotNil(t, o3.ReadyAt)

	o4, err := svc.TransitionTo(ctx, o.ID, "completed", &userID, nil)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCompleted, o4.Status)
	assert.NotNil(t, o4.CompletedAt)

	// creation + three transitions
	var history []order.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", o.ID).Order("created_at ASC, id ASC").Find(&history).Error)
	require.Len(t, history, 4)
	assert.Equal(t, order.HistorySourceTransition, history[1].Source)
	require.NotNil(t, history[1].PreviousStatus)
	assert.Equal(t, order.OrderStatusPending, *history[1].PreviousStatus)
	assert.Equal(t, order.OrderStatusPreparing, history[1].NewStatus)
	assert.Equal(t, "Kitchen picked up", history[1].Reason)
	require.NotNil(t, history[3].PreviousStatus)
	assert.Equal(t, order.OrderStatusReady, *history[3].PreviousStatus)
}

func TestTransitionGuardRejectsAndWritesNothing(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)
	ctx := context.Background()

	_, err := svc.TransitionTo(ctx, o.ID, "completed", &userID, nil)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	var reloaded order.Order
	require.NoError(t, db.First(&reloaded, o.ID).Error)
	assert.Equal(t, order.OrderStatusPending, reloaded.Status)

	// No history row beyond the creation event.
	var count int64
	db.Model(&order.OrderStatusHistory{}).Where("order_id = ?", o.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTransitionFromTerminalStateFails(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)
	ctx := context.Background()

	_, err := svc.CancelOrder(ctx, o.ID, "Customer changed their mind", &userID)
	require.NoError(t, err)

	_, err = svc.TransitionTo(ctx, o.ID, "in_progress", &userID, nil)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestOverrideStatusBypassesGuard(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)
	ctx := context.Background()

	// pending -> refunded is not a workflow transition; the override
	// path writes it anyway and marks the audit row accordingly.
	o2, err := svc.UpdateStatus(ctx, o.ID, order.OrderStatusRefunded, &userID, "Charge disputed")
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusRefunded, o2.Status)
	assert.NotNil(t, o2.CancelledAt)

	var history []order.OrderStatusHistory
	require.NoError(t, db.Where("order_id = ?", o.ID).Order("created_at ASC, id ASC").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, order.HistorySourceOverride, history[1].Source)
	assert.Equal(t, "Charge disputed", history[1].Reason)
}

func TestOverrideStatusRejectsUnknownValue(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)

	_, err := svc.UpdateStatus(context.Background(), o.ID, order.OrderStatus("shipped"), &userID, "")
	assert.ErrorIs(t, err, order.ErrUnknownStatus)
}

func TestUpdateItemStatus(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)

	require.NoError(t, svc.UpdateItemStatus(o.ID, o.Items[0].ID, order.OrderStatusReady, &userID))

	var item order.OrderItem
	require.NoError(t, db.First(&item, o.Items[0].ID).Error)
	assert.Equal(t, order.OrderStatusReady, item.Status)

	err := svc.UpdateItemStatus(o.ID, 9999, order.OrderStatusReady, &userID)
	assert.Error(t, err)
}

func TestRecordRefundBounds(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)

	err := svc.RecordRefund(o.ID, o.TotalAmount.Add(d("0.01")), &userID)
	assert.ErrorIs(t, err, order.ErrRefundExceedsTotal)

	err = svc.RecordRefund(o.ID, d("-1.00"), &userID)
	assert.ErrorIs(t, err, order.ErrRefundExceedsTotal)

	require.NoError(t, svc.RecordRefund(o.ID, d("5.00"), &userID))

	var reloaded order.Order
	require.NoError(t, db.First(&reloaded, o.ID).Error)
	assert.Equal(t, "5.00", reloaded.RefundAmount.StringFixed(2))
}

func TestGetOrderByNumber(t *testing.T) {
	db := setupOrderDB(t)
	svc := order.NewService(db, nil, testConfig())
	userID := uint(1)
	o := placeOrder(t, db, userID)

	found, err := svc.GetOrderByNumber(o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
	assert.Len(t, found.Items, 1)
	assert.Len(t, found.StatusHistory, 1)

	_, err = svc.GetOrderByNumber("ORD-00000000-99999")
	assert.Error(t, err)
}
