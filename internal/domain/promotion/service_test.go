package promotion_test

import (
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
	"github.com/your-org/restaurant-backend/internal/domain/promotion"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() *config.Config {
	return &config.Config{
		Restaurant: config.RestaurantConfig{
			Currency:          "USD",
			DefaultTaxRate:    d("0.13"),
			LoyaltyPointValue: d("0.01"),
		},
	}
}

func setupPromotionDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&promotion.Coupon{}, &promotion.LoyaltyAccount{}))
	return db
}

func TestCouponValidateFor(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	base := promotion.Coupon{
		Code:     "SAVE10",
		Type:     promotion.DiscountPercentage,
		Value:    d("10"),
		MinOrder: d("20.00"),
		IsActive: true,
	}

	t.Run("valid", func(t *testing.T) {
		c := base
		assert.NoError(t, c.ValidateFor(d("25.00"), now))
	})

	t.Run("inactive", func(t *testing.T) {
		c := base
		c.IsActive = false
		assert.ErrorIs(t, c.ValidateFor(d("25.00"), now), promotion.ErrCouponInactive)
	})

	t.Run("not started", func(t *testing.T) {
		c := base
		c.StartsAt = &future
		assert.ErrorIs(t, c.ValidateFor(d("25.00"), now), promotion.ErrCouponNotStarted)
	})

	t.Run("expired", func(t *testing.T) {
		c := base
		c.ExpiresAt = &past
		assert.ErrorIs(t, c.ValidateFor(d("25.00"), now), promotion.ErrCouponExpired)
	})

	t.Run("exhausted", func(t *testing.T) {
		c := base
		c.UsageLimit = 5
		c.UsageCount = 5
		assert.ErrorIs(t, c.ValidateFor(d("25.00"), now), promotion.ErrCouponExhausted)
	})

	t.Run("below minimum", func(t *testing.T) {
		c := base
		assert.ErrorIs(t, c.ValidateFor(d("19.99"), now), promotion.ErrMinOrderNotMet)
	})
}

func TestCouponDiscountFor(t *testing.T) {
	t.Run("percentage rounds half up", func(t *testing.T) {
		c := promotion.Coupon{Type: promotion.DiscountPercentage, Value: d("10")}
		// 10% of 29.97 = 2.997
		assert.Equal(t, "3.00", c.DiscountFor(d("29.97")).StringFixed(2))
	})

	t.Run("percentage capped at max discount", func(t *testing.T) {
		c := promotion.Coupon{Type: promotion.DiscountPercentage, Value: d("50"), MaxDiscount: d("10.00")}
		assert.Equal(t, "10.00", c.DiscountFor(d("100.00")).StringFixed(2))
	})

	t.Run("fixed capped at order value", func(t *testing.T) {
		c := promotion.Coupon{Type: promotion.DiscountFixed, Value: d("15.00")}
		assert.Equal(t, "8.50", c.DiscountFor(d("8.50")).StringFixed(2))
	})

	t.Run("fixed below order value", func(t *testing.T) {
		c := promotion.Coupon{Type: promotion.DiscountFixed, Value: d("5.00")}
		assert.Equal(t, "5.00", c.DiscountFor(d("30.00")).StringFixed(2))
	})
}

func TestGetCouponIsCaseInsensitive(t *testing.T) {
	db := setupPromotionDB(t)
	svc := promotion.NewService(db, testConfig())

	require.NoError(t, db.Create(&promotion.Coupon{
		Code: "SAVE10", Type: promotion.DiscountPercentage, Value: d("10"), IsActive: true,
	}).Error)

	coupon, err := svc.GetCoupon("save10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", coupon.Code)

	_, err = svc.GetCoupon("NOPE")
	assert.ErrorIs(t, err, promotion.ErrCouponNotFound)
}

func TestApplyBestDiscountPicksWinner(t *testing.T) {
	db := setupPromotionDB(t)
	svc := promotion.NewService(db, testConfig())
	userID := uint(1)

	require.NoError(t, db.Create(&promotion.Coupon{
		Code: "SAVE10", Type: promotion.DiscountPercentage, Value: d("10"), IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&promotion.LoyaltyAccount{
		UserID: userID, Points: 500, TotalEarned: 500,
	}).Error)

	t.Run("loyalty wins on a small order", func(t *testing.T) {
		c := &cart.Cart{Subtotal: d("30.00"), CouponCode: "SAVE10"}
		result, err := svc.ApplyBestDiscount(c, &userID)
		require.NoError(t, err)

		// coupon 3.00 vs 500 points worth 5.00
		assert.Equal(t, "5.00", result.LoyaltyDiscount.StringFixed(2))
		assert.Equal(t, 500, result.PointsSpent)
		assert.True(t, result.CouponDiscount.IsZero())
		assert.True(t, c.CouponDiscount.IsZero())
		assert.Equal(t, "5.00", c.LoyaltyDiscount.StringFixed(2))
	})

	t.Run("coupon wins on a large order", func(t *testing.T) {
		c := &cart.Cart{Subtotal: d("80.00"), CouponCode: "SAVE10"}
		result, err := svc.ApplyBestDiscount(c, &userID)
		require.NoError(t, err)

		assert.Equal(t, "8.00", result.CouponDiscount.StringFixed(2))
		assert.Equal(t, "SAVE10", result.CouponCode)
		assert.True(t, result.LoyaltyDiscount.IsZero())
		assert.True(t, c.LoyaltyDiscount.IsZero())
	})

	t.Run("ties go to the coupon", func(t *testing.T) {
		c := &cart.Cart{Subtotal: d("50.00"), CouponCode: "SAVE10"}
		result, err := svc.ApplyBestDiscount(c, &userID)
		require.NoError(t, err)

		// Both sides are worth exactly 5.00.
		assert.Equal(t, "5.00", result.CouponDiscount.StringFixed(2))
		assert.Equal(t, 0, result.PointsSpent)
	})

	t.Run("partial redemption spends whole points", func(t *testing.T) {
		c := &cart.Cart{Subtotal: d("2.50")}
		result, err := svc.ApplyBestDiscount(c, &userID)
		require.NoError(t, err)

		assert.Equal(t, "2.50", result.LoyaltyDiscount.StringFixed(2))
		assert.Equal(t, 250, result.PointsSpent)
	})

	t.Run("coupon validation errors surface", func(t *testing.T) {
		require.NoError(t, db.Create(&promotion.Coupon{
			Code: "BIG20", Type: promotion.DiscountPercentage, Value: d("20"),
			MinOrder: d("100.00"), IsActive: true,
		}).Error)

		c := &cart.Cart{Subtotal: d("30.00"), CouponCode: "BIG20"}
		_, err := svc.ApplyBestDiscount(c, &userID)
		assert.ErrorIs(t, err, promotion.ErrMinOrderNotMet)
	})
}

func TestCommitRedemption(t *testing.T) {
	db := setupPromotionDB(t)
	svc := promotion.NewService(db, testConfig())
	userID := uint(1)

	require.NoError(t, db.Create(&promotion.Coupon{
		Code: "SAVE10", Type: promotion.DiscountPercentage, Value: d("10"), IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&promotion.LoyaltyAccount{
		UserID: userID, Points: 500, TotalEarned: 500,
	}).Error)

	t.Run("coupon usage increments", func(t *testing.T) {
		result := &promotion.DiscountResult{CouponCode: "SAVE10", CouponDiscount: d("3.00")}
		require.NoError(t, svc.CommitRedemption(db, result, &userID))

		var coupon promotion.Coupon
		require.NoError(t, db.Where("code = ?", "SAVE10").First(&coupon).Error)
		assert.Equal(t, 1, coupon.UsageCount)
	})

	t.Run("points are debited", func(t *testing.T) {
		result := &promotion.DiscountResult{LoyaltyDiscount: d("2.50"), PointsSpent: 250}
		require.NoError(t, svc.CommitRedemption(db, result, &userID))

		var account promotion.LoyaltyAccount
		require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
		assert.Equal(t, 250, account.Points)
		assert.Equal(t, 250, account.TotalSpent)
	})

	t.Run("insufficient points rejected", func(t *testing.T) {
		result := &promotion.DiscountResult{LoyaltyDiscount: d("99.00"), PointsSpent: 9900}
		err := svc.CommitRedemption(db, result, &userID)
		assert.ErrorIs(t, err, promotion.ErrInsufficientPts)
	})
}

func TestEarnPoints(t *testing.T) {
	db := setupPromotionDB(t)
	svc := promotion.NewService(db, testConfig())
	userID := uint(2)

	// One point per whole currency unit; the account is created lazily.
	require.NoError(t, svc.EarnPoints(db, userID, d("33.87")))

	balance, err := svc.GetBalance(userID)
	require.NoError(t, err)
	assert.Equal(t, 33, balance)

	require.NoError(t, svc.EarnPoints(db, userID, d("10.50")))

	var account promotion.LoyaltyAccount
	require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
	assert.Equal(t, 43, account.Points)
	assert.Equal(t, 43, account.TotalEarned)

	// Sub-unit totals earn nothing.
	require.NoError(t, svc.EarnPoints(db, userID, d("0.99")))
	balance, err = svc.GetBalance(userID)
	require.NoError(t, err)
	assert.Equal(t, 43, balance)
}
