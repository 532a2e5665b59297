// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/checkout"
	"github.com/your-org/restaurant-backend/internal/domain/promotion"
	"github.com/your-org/restaurant-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	config          *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkout.NewService(db, redisClient, cfg),
		config:          cfg,
	}
}

// GetSummary handles POST /checkout/summary
func (h *CheckoutHandler) GetSummary(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	var req checkout.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	summary, err := h.checkoutService.GetSummary(userID, sessionKey, &req)
	if err != nil {
		c.JSON(h.errorStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout summary calculated successfully",
		"data":    summary,
	})
}

// PlaceOrder handles POST /checkout
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	o, err := h.checkoutService.PlaceOrder(c.Request.Context(), userID, sessionKey, &req)
	if err != nil {
		c.JSON(h.errorStatus(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    o,
	})
}

// errorStatus maps domain errors to HTTP status codes
func (h *CheckoutHandler) errorStatus(err error) int {
	switch {
	case errors.Is(err, cart.ErrEmptyCart), errors.Is(err, cart.ErrCartNotActive),
		errors.Is(err, cart.ErrTableRequired), errors.Is(err, cart.ErrTableNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, promotion.ErrCouponNotFound):
		return http.StatusNotFound
	case errors.Is(err, promotion.ErrCouponExpired), errors.Is(err, promotion.ErrCouponInactive),
		errors.Is(err, promotion.ErrCouponExhausted), errors.Is(err, promotion.ErrCouponNotStarted),
		errors.Is(err, promotion.ErrMinOrderNotMet):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *CheckoutHandler) sessionKeyFor(c *gin.Context, userID *uint) string {
	if userID != nil {
		return ""
	}

	sessionKey, err := c.Cookie("session_id")
	if err != nil || sessionKey == "" {
		sessionKey = uuid.New().String()
		c.SetCookie("session_id", sessionKey, 86400, "/", "", false, true)
	}
	return sessionKey
}
