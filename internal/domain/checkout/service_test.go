package checkout_test

import (
	"context"
	"fmt"
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
	"github.com/your-org/restaurant-backend/internal/domain/checkout"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
	"github.com/your-org/restaurant-backend/internal/domain/order"
	"github.com/your-org/restaurant-backend/internal/domain/promotion"
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

func setupCheckoutDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&menu.Category{}, &menu.MenuItem{}, &menu.ModifierGroup{}, &menu.Modifier{},
		&cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
		&promotion.Coupon{}, &promotion.LoyaltyAccount{},
	)
	require.NoError(t, err)
	return db
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	db := setupCheckoutDB(t)
	cfg := testConfig()
	svc := checkout.NewService(db, nil, cfg)
	userID := uint(1)

	item := menu.MenuItem{Name: "House Burger", Price: d("10.99"), IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Create(&promotion.Coupon{
		Code: "SAVE10", Type: promotion.DiscountPercentage, Value: d("10"), IsActive: true,
	}).Error)

	cartSvc := cart.NewService(db, nil, cfg)
	c, err := cartSvc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 3})
	require.NoError(t, err)

	o, err := svc.PlaceOrder(context.Background(), &userID, "", &checkout.PlaceOrderRequest{
		CustomerName: "Alex",
		CouponCode:   "SAVE10",
	})
	require.NoError(t, err)

	// 32.97 less 10%, then 13% tax on the discounted amount.
	assert.Equal(t, "32.97", o.Subtotal.StringFixed(2))
	assert.Equal(t, "3.30", o.CouponDiscount.StringFixed(2))
	assert.Equal(t, "3.86", o.TaxAmount.StringFixed(2))
	assert.Equal(t, "33.53", o.TotalAmount.StringFixed(2))
	assert.Equal(t, "SAVE10", o.CouponCode)

	var coupon promotion.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE10").First(&coupon).Error)
	assert.Equal(t, 1, coupon.UsageCount)

	// One point per whole currency unit of the order total.
	balance, err := promotion.NewService(db, cfg).GetBalance(userID)
	require.NoError(t, err)
	assert.Equal(t, 33, balance)

	var reloaded cart.Cart
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.Equal(t, cart.CartStatusConverted, reloaded.Status)
}

func TestPlaceOrderSpendsLoyaltyPoints(t *testing.T) {
	db := setupCheckoutDB(t)
	cfg := testConfig()
	svc := checkout.NewService(db, nil, cfg)
	userID := uint(1)

	item := menu.MenuItem{Name: "Iced Tea", Price: d("2.99"), IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Create(&promotion.LoyaltyAccount{
		UserID: userID, Points: 100, TotalEarned: 100,
	}).Error)

	cartSvc := cart.NewService(db, nil, cfg)
	_, err := cartSvc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	o, err := svc.PlaceOrder(context.Background(), &userID, "", &checkout.PlaceOrderRequest{
		CustomerName: "Alex",
		UseLoyalty:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "1.00", o.LoyaltyDiscount.StringFixed(2))
	assert.True(t, o.CouponDiscount.IsZero())

	// 100 points spent, then points earned on the discounted total.
	var account promotion.LoyaltyAccount
	require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
	assert.Equal(t, 100, account.TotalSpent)
	assert.Equal(t, o.TotalAmount.IntPart(), int64(account.Points))
}

func TestPlaceOrderWithoutLoyaltyOptIn(t *testing.T) {
	db := setupCheckoutDB(t)
	cfg := testConfig()
	svc := checkout.NewService(db, nil, cfg)
	userID := uint(1)

	item := menu.MenuItem{Name: "Iced Tea", Price: d("2.99"), IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Create(&promotion.LoyaltyAccount{
		UserID: userID, Points: 100, TotalEarned: 100,
	}).Error)

	cartSvc := cart.NewService(db, nil, cfg)
	_, err := cartSvc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)

	o, err := svc.PlaceOrder(context.Background(), &userID, "", &checkout.PlaceOrderRequest{
		CustomerName: "Alex",
	})
	require.NoError(t, err)

	assert.True(t, o.LoyaltyDiscount.IsZero())

	var account promotion.LoyaltyAccount
	require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
	assert.Equal(t, 0, account.TotalSpent)
}

func TestGetSummaryDoesNotConsume(t *testing.T) {
	db := setupCheckoutDB(t)
	cfg := testConfig()
	svc := checkout.NewService(db, nil, cfg)
	userID := uint(1)

	item := menu.MenuItem{Name: "House Burger", Price: d("10.99"), IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)
	require.NoError(t, db.Create(&promotion.Coupon{
		Code: "SAVE10", Type: promotion.DiscountPercentage, Value: d("10"), IsActive: true,
	}).Error)

	cartSvc := cart.NewService(db, nil, cfg)
	c, err := cartSvc.AddItem(&userID, "", &cart.AddItemRequest{MenuItemID: item.ID, Quantity: 1})
	require.NoError(t, err)
	savedTotal := c.Total

	summary, err := svc.GetSummary(&userID, "", &checkout.SummaryRequest{CouponCode: "SAVE10"})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", summary.CouponCode)
	assert.Equal(t, "1.10", summary.CouponDiscount.StringFixed(2))
	assert.True(t, summary.Cart.Total.LessThan(savedTotal))

	// Nothing was consumed or persisted.
	var coupon promotion.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE10").First(&coupon).Error)
	assert.Equal(t, 0, coupon.UsageCount)

	var reloaded cart.Cart
	require.NoError(t, db.First(&reloaded, c.ID).Error)
	assert.True(t, reloaded.Total.Equal(savedTotal))
	assert.True(t, reloaded.CouponDiscount.IsZero())
}

func TestPlaceOrderRequiresItems(t *testing.T) {
	db := setupCheckoutDB(t)
	cfg := testConfig()
	svc := checkout.NewService(db, nil, cfg)
	userID := uint(1)

	cartSvc := cart.NewService(db, nil, cfg)
	_, err := cartSvc.GetOrCreateActiveCart(&userID, "")
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), &userID, "", &checkout.PlaceOrderRequest{
		CustomerName: "Alex",
	})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
}
