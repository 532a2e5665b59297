// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/order"
	"github.com/your-org/restaurant-backend/internal/domain/promotion"
	"gorm.io/gorm"
)

// Service handles checkout business logic
type Service struct {
	db               *gorm.DB
	redisClient      *redis.Client
	config           *config.Config
	cartService      *cart.Service
	orderService     *order.Service
	promotionService *promotion.Service
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:               db,
		redisClient:      redisClient,
		config:           cfg,
		cartService:      cart.NewService(db, redisClient, cfg),
		orderService:     order.NewService(db, redisClient, cfg),
		promotionService: promotion.NewService(db, cfg),
	}
}

// SummaryRequest represents checkout summary parameters
type SummaryRequest struct {
	CouponCode string `json:"coupon_code"`
	UseLoyalty bool   `json:"use_loyalty"`
}

// Summary is the pre-placement view of the cart with discounts applied
type Summary struct {
	Cart            *cart.Cart      `json:"cart"`
	CouponCode      string          `json:"coupon_code,omitempty"`
	CouponDiscount  decimal.Decimal `json:"coupon_discount"`
	LoyaltyDiscount decimal.Decimal `json:"loyalty_discount"`
	PointsSpent     int             `json:"points_spent"`
	Currency        string          `json:"currency"`
}

// PlaceOrderRequest represents order placement input
type PlaceOrderRequest struct {
	CustomerName    string `json:"customer_name" binding:"required"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerEmail   string `json:"customer_email"`
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes"`
	CouponCode      string `json:"coupon_code"`
	UseLoyalty      bool   `json:"use_loyalty"`
}

// GetSummary recomputes the cart with the best available discount applied
// but does not consume coupons or points
func (s *Service) GetSummary(userID *uint, sessionKey string, req *SummaryRequest) (*Summary, error) {
	c, err := s.cartService.GetCart(userID, sessionKey)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return nil, cart.ErrEmptyCart
	}

	if req != nil && req.CouponCode != "" {
		c.CouponCode = req.CouponCode
	}

	loyaltyUser := userID
	if req != nil && !req.UseLoyalty {
		loyaltyUser = nil
	}

	result, err := s.promotionService.ApplyBestDiscount(c, loyaltyUser)
	if err != nil {
		return nil, err
	}

	// Discounts feed back into tax and total, so recompute without saving.
	if err := s.cartService.Recalculate(c, false); err != nil {
		return nil, err
	}

	return &Summary{
		Cart:            c,
		CouponCode:      result.CouponCode,
		CouponDiscount:  result.CouponDiscount,
		LoyaltyDiscount: result.LoyaltyDiscount,
		PointsSpent:     result.PointsSpent,
		Currency:        s.config.Restaurant.Currency,
	}, nil
}

// PlaceOrder runs the full placement flow: apply the winning discount,
// persist the recalculated cart, convert it to an order, then consume the
// coupon or points and credit earned loyalty.
func (s *Service) PlaceOrder(ctx context.Context, userID *uint, sessionKey string, req *PlaceOrderRequest) (*order.Order, error) {
	c, err := s.cartService.GetCart(userID, sessionKey)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, cart.ErrEmptyCart
	}
	if !c.IsActive() {
		return nil, cart.ErrCartNotActive
	}
	if len(c.Items) == 0 {
		return nil, cart.ErrEmptyCart
	}

	if req.CouponCode != "" {
		c.CouponCode = req.CouponCode
	}

	loyaltyUser := userID
	if !req.UseLoyalty {
		loyaltyUser = nil
	}

	discount, err := s.promotionService.ApplyBestDiscount(c, loyaltyUser)
	if err != nil {
		return nil, err
	}

	if err := s.cartService.Recalculate(c, true); err != nil {
		return nil, fmt.Errorf("failed to finalize cart totals: %w", err)
	}

	o, err := s.orderService.CreateFromCart(ctx, c.ID, &order.CustomerInfo{
		Name:            req.CustomerName,
		Phone:           req.CustomerPhone,
		Email:           req.CustomerEmail,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}, userID)
	if err != nil {
		return nil, err
	}

	// The order exists from here on: redemption and earning failures are
	// logged, not surfaced, to keep placement from double-charging.
	if err := s.promotionService.CommitRedemption(s.db, discount, userID); err != nil {
		logrus.WithError(err).WithField("order_id", o.ID).Warn("failed to commit discount redemption")
	}
	if userID != nil {
		if err := s.promotionService.EarnPoints(s.db, *userID, o.TotalAmount); err != nil {
			logrus.WithError(err).WithField("order_id", o.ID).Warn("failed to credit loyalty points")
		}
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"total":        o.TotalAmount.StringFixed(2),
	}).Info("✅ Order placed")

	return o, nil
}
