// internal/domain/promotion/service.go
package promotion

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/pkg/dbutil"
	"gorm.io/gorm"
)

// Service handles coupon and loyalty business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new promotion service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// DiscountResult describes which discount won and by how much
type DiscountResult struct {
	CouponCode      string          `json:"coupon_code,omitempty"`
	CouponDiscount  decimal.Decimal `json:"coupon_discount"`
	LoyaltyDiscount decimal.Decimal `json:"loyalty_discount"`
	PointsSpent     int             `json:"points_spent"`
}

// GetCoupon fetches a coupon by code, case-insensitively
func (s *Service) GetCoupon(code string) (*Coupon, error) {
	var coupon Coupon
	err := s.db.Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).First(&coupon).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}
	return &coupon, nil
}

// ValidateCoupon checks a code against an order value without applying it
func (s *Service) ValidateCoupon(code string, orderValue decimal.Decimal) (*Coupon, decimal.Decimal, error) {
	coupon, err := s.GetCoupon(code)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := coupon.ValidateFor(orderValue, time.Now().UTC()); err != nil {
		return nil, decimal.Zero, err
	}
	return coupon, coupon.DiscountFor(orderValue), nil
}

// ApplyBestDiscount evaluates the cart's coupon code (if any) against the
// user's redeemable loyalty value and writes the larger of the two onto
// the cart. Exactly one of CouponDiscount / LoyaltyDiscount ends up
// non-zero; the loser is cleared so repeated application cannot stack.
func (s *Service) ApplyBestDiscount(c *cart.Cart, userID *uint) (*DiscountResult, error) {
	base := c.Subtotal.Add(c.ModifierTotal).Sub(c.DiscountAmount)
	if base.IsNegative() {
		base = decimal.Zero
	}
	base = base.Round(2)

	result := &DiscountResult{
		CouponDiscount:  decimal.Zero,
		LoyaltyDiscount: decimal.Zero,
	}

	couponDiscount := decimal.Zero
	if c.CouponCode != "" {
		_, d, err := s.ValidateCoupon(c.CouponCode, base)
		if err != nil {
			return nil, err
		}
		couponDiscount = d
	}

	loyaltyDiscount := decimal.Zero
	pointsNeeded := 0
	if userID != nil {
		account, err := s.getAccount(*userID)
		if err != nil {
			return nil, err
		}
		if account != nil && account.Points > 0 {
			loyaltyDiscount, pointsNeeded = s.redeemableValue(account.Points, base)
		}
	}

	if couponDiscount.GreaterThanOrEqual(loyaltyDiscount) {
		c.CouponDiscount = couponDiscount
		c.LoyaltyDiscount = decimal.Zero
		result.CouponDiscount = couponDiscount
		if couponDiscount.IsPositive() {
			result.CouponCode = c.CouponCode
		}
	} else {
		c.CouponDiscount = decimal.Zero
		c.LoyaltyDiscount = loyaltyDiscount
		result.LoyaltyDiscount = loyaltyDiscount
		result.PointsSpent = pointsNeeded
	}

	return result, nil
}

// redeemableValue converts a points balance into a discount capped at the
// order value, returning the discount and the points it would consume
func (s *Service) redeemableValue(points int, base decimal.Decimal) (decimal.Decimal, int) {
	pointValue := s.config.Restaurant.LoyaltyPointValue
	if !pointValue.IsPositive() {
		return decimal.Zero, 0
	}

	full := pointValue.Mul(decimal.NewFromInt(int64(points))).Round(2)
	if full.LessThanOrEqual(base) {
		return full, points
	}

	// Partial redemption: only whole points are spent.
	needed := base.Div(pointValue).Ceil()
	if needed.IntPart() > int64(points) {
		return full, points
	}
	spent := int(needed.IntPart())
	value := pointValue.Mul(needed).Round(2)
	if value.GreaterThan(base) {
		value = base
	}
	return value, spent
}

// CommitRedemption finalizes a winning discount inside tx: increments
// coupon usage or debits loyalty points. Called once per placed order.
func (s *Service) CommitRedemption(tx *gorm.DB, result *DiscountResult, userID *uint) error {
	if result == nil {
		return nil
	}

	if result.CouponCode != "" && result.CouponDiscount.IsPositive() {
		err := tx.Model(&Coupon{}).
			Where("UPPER(code) = ?", strings.ToUpper(result.CouponCode)).
			Update("usage_count", gorm.Expr("usage_count + 1")).Error
		if err != nil {
			return fmt.Errorf("failed to record coupon usage: %w", err)
		}
	}

	if result.PointsSpent > 0 && userID != nil {
		var account LoyaltyAccount
		err := dbutil.LockForUpdate(tx).
			Where("user_id = ?", *userID).First(&account).Error
		if err != nil {
			return fmt.Errorf("failed to load loyalty account: %w", err)
		}
		if account.Points < result.PointsSpent {
			return ErrInsufficientPts
		}
		err = tx.Model(&account).Updates(map[string]interface{}{
			"points":      gorm.Expr("points - ?", result.PointsSpent),
			"total_spent": gorm.Expr("total_spent + ?", result.PointsSpent),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to debit loyalty points: %w", err)
		}
	}

	return nil
}

// EarnPoints credits loyalty points for a completed purchase. One point
// per whole currency unit of the order total.
func (s *Service) EarnPoints(tx *gorm.DB, userID uint, orderTotal decimal.Decimal) error {
	earned := int(orderTotal.IntPart())
	if earned <= 0 {
		return nil
	}

	var account LoyaltyAccount
	err := tx.Where("user_id = ?", userID).First(&account).Error
	if err == gorm.ErrRecordNotFound {
		account = LoyaltyAccount{UserID: userID, Points: earned, TotalEarned: earned}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to create loyalty account: %w", err)
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "points": earned}).Info("✅ Loyalty account created")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load loyalty account: %w", err)
	}

	err = tx.Model(&account).Updates(map[string]interface{}{
		"points":       gorm.Expr("points + ?", earned),
		"total_earned": gorm.Expr("total_earned + ?", earned),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to credit loyalty points: %w", err)
	}
	return nil
}

// GetBalance returns the user's current points balance
func (s *Service) GetBalance(userID uint) (int, error) {
	account, err := s.getAccount(userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Points, nil
}

func (s *Service) getAccount(userID uint) (*LoyaltyAccount, error) {
	var account LoyaltyAccount
	err := s.db.Where("user_id = ?", userID).First(&account).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load loyalty account: %w", err)
	}
	return &account, nil
}
