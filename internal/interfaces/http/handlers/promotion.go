// internal/interfaces/http/handlers/promotion.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/promotion"
	"github.com/your-org/restaurant-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// PromotionHandler handles coupon and loyalty endpoints
type PromotionHandler struct {
	promotionService *promotion.Service
	config           *config.Config
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(db *gorm.DB, cfg *config.Config) *PromotionHandler {
	return &PromotionHandler{
		promotionService: promotion.NewService(db, cfg),
		config:           cfg,
	}
}

// ValidateCoupon handles POST /promotions/coupons/validate
func (h *PromotionHandler) ValidateCoupon(c *gin.Context) {
	var req struct {
		Code       string          `json:"code" binding:"required"`
		OrderValue decimal.Decimal `json:"order_value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	coupon, discount, err := h.promotionService.ValidateCoupon(req.Code, req.OrderValue)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon is valid",
		"data": gin.H{
			"code":     coupon.Code,
			"type":     coupon.Type,
			"discount": discount,
		},
	})
}

// GetLoyaltyBalance handles GET /promotions/loyalty
func (h *PromotionHandler) GetLoyaltyBalance(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	points, err := h.promotionService.GetBalance(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve loyalty balance",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Loyalty balance retrieved successfully",
		"data": gin.H{
			"points":      points,
			"point_value": h.config.Restaurant.LoyaltyPointValue,
		},
	})
}
