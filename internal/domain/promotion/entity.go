// internal/domain/promotion/entity.go
package promotion

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountType determines how a coupon's value is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Domain errors
var (
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrCouponInactive   = errors.New("coupon is not active")
	ErrCouponExpired    = errors.New("coupon has expired")
	ErrCouponNotStarted = errors.New("coupon is not yet valid")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrMinOrderNotMet   = errors.New("order does not meet coupon minimum")
	ErrInsufficientPts  = errors.New("not enough loyalty points")
)

// Coupon is a redeemable discount code
type Coupon struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Description string          `gorm:"size:255" json:"description"`
	Type        DiscountType    `gorm:"not null;size:20" json:"type"`
	Value       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"value"`
	MinOrder    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"min_order"`
	MaxDiscount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"max_discount"` // zero means uncapped
	UsageLimit  int             `gorm:"not null;default:0" json:"usage_limit"`                     // zero means unlimited
	UsageCount  int             `gorm:"not null;default:0" json:"usage_count"`
	StartsAt    *time.Time      `json:"starts_at"`
	ExpiresAt   *time.Time      `json:"expires_at"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// LoyaltyAccount tracks a user's redeemable points balance
type LoyaltyAccount struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Points      int       `gorm:"not null;default:0" json:"points"`
	TotalEarned int       `gorm:"not null;default:0" json:"total_earned"`
	TotalSpent  int       `gorm:"not null;default:0" json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides
func (Coupon) TableName() string         { return "coupons" }
func (LoyaltyAccount) TableName() string { return "loyalty_accounts" }

// ValidateFor checks whether the coupon applies to an order of the given
// pre-discount value at the given time
func (c *Coupon) ValidateFor(orderValue decimal.Decimal, now time.Time) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return ErrCouponNotStarted
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrCouponExpired
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return ErrCouponExhausted
	}
	if orderValue.LessThan(c.MinOrder) {
		return ErrMinOrderNotMet
	}
	return nil
}

// DiscountFor computes the coupon's discount against a pre-discount
// value, capped at MaxDiscount when set and never exceeding the value
func (c *Coupon) DiscountFor(orderValue decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		discount = orderValue.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
	case DiscountFixed:
		discount = c.Value.Round(2)
	default:
		return decimal.Zero
	}

	if c.MaxDiscount.IsPositive() && discount.GreaterThan(c.MaxDiscount) {
		discount = c.MaxDiscount
	}
	if discount.GreaterThan(orderValue) {
		discount = orderValue
	}
	return discount.Round(2)
}
