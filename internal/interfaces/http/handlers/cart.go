// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CartHandler {
	return &CartHandler{
		cartService: cart.NewService(db, redisClient, cfg),
		config:      cfg,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	cartResponse, err := h.cartService.GetCart(userID, sessionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    cartResponse,
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.AddItem(userID, sessionKey, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    cartResponse,
	})
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	var req cart.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.UpdateItem(userID, sessionKey, uint(itemID), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    cartResponse,
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	cartResponse, err := h.cartService.RemoveItem(userID, sessionKey, uint(itemID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    cartResponse,
	})
}

// SetDeliveryOption handles PUT /cart/delivery
func (h *CartHandler) SetDeliveryOption(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	var req struct {
		DeliveryOption string `json:"delivery_option" binding:"required"`
		TableID        *uint  `json:"table_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.SetDeliveryOption(userID, sessionKey, cart.DeliveryOption(req.DeliveryOption), req.TableID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Delivery option updated successfully",
		"data":    cartResponse,
	})
}

// SetTip handles PUT /cart/tip
func (h *CartHandler) SetTip(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)
	sessionKey := h.sessionKeyFor(c, userID)

	var req struct {
		Amount     *decimal.Decimal `json:"amount"`
		Percentage *decimal.Decimal `json:"percentage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.SetTip(userID, sessionKey, req.Amount, req.Percentage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tip updated successfully",
		"data":    cartResponse,
	})
}

// MergeGuestCart handles POST /cart/merge - called after login
func (h *CartHandler) MergeGuestCart(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	sessionKey := h.getOrCreateSessionKey(c)

	summary, err := h.cartService.MergeGuestCartToUser(c.Request.Context(), userID, sessionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to merge cart",
		})
		return
	}

	uid := userID
	cartResponse, err := h.cartService.GetCart(&uid, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve merged cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Guest cart merged successfully",
		"data": gin.H{
			"cart":  cartResponse,
			"merge": summary,
		},
	})
}

// GetSessionCart handles GET /cart/session - the lightweight guest cart
func (h *CartHandler) GetSessionCart(c *gin.Context) {
	sessionKey := h.getOrCreateSessionKey(c)

	sc, err := h.cartService.GetSessionCart(c.Request.Context(), sessionKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve session cart",
		})
		return
	}

	// Reads count as activity too; keep the inactivity window from
	// expiring a cart the guest is still looking at.
	if err := h.cartService.TouchSession(c.Request.Context(), sessionKey); err != nil {
		logrus.WithError(err).WithField("session_key", sessionKey).
			Warn("failed to refresh session cart activity")
	}

	items, subtotal, err := h.cartService.EnrichSessionCart(c.Request.Context(), sc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to resolve session cart items",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session cart retrieved successfully",
		"data": gin.H{
			"session_key": sc.SessionKey,
			"items":       items,
			"subtotal":    subtotal,
		},
	})
}

// AddSessionItem handles POST /cart/session/items
func (h *CartHandler) AddSessionItem(c *gin.Context) {
	sessionKey := h.getOrCreateSessionKey(c)

	var req struct {
		MenuItemID uint                   `json:"menu_item_id" binding:"required"`
		Quantity   int                    `json:"quantity" binding:"required,min=1"`
		Modifiers  cart.SelectedModifiers `json:"modifiers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sc, err := h.cartService.AddSessionItem(c.Request.Context(), sessionKey, req.MenuItemID, req.Quantity, req.Modifiers)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to session cart successfully",
		"data":    sc,
	})
}

// UpdateSessionItem handles PUT /cart/session/items
func (h *CartHandler) UpdateSessionItem(c *gin.Context) {
	sessionKey := h.getOrCreateSessionKey(c)

	var req struct {
		MenuItemID uint                   `json:"menu_item_id" binding:"required"`
		Quantity   int                    `json:"quantity"`
		Modifiers  cart.SelectedModifiers `json:"modifiers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sc, err := h.cartService.UpdateSessionItem(c.Request.Context(), sessionKey, req.MenuItemID, req.Modifiers, req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session cart updated successfully",
		"data":    sc,
	})
}

// ClearSessionCart handles DELETE /cart/session
func (h *CartHandler) ClearSessionCart(c *gin.Context) {
	sessionKey := h.getOrCreateSessionKey(c)

	if err := h.cartService.ClearSessionCart(c.Request.Context(), sessionKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear session cart",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session cart cleared successfully",
	})
}

// sessionKeyFor returns the session key for guests and "" for
// authenticated users, whose carts are keyed by user id
func (h *CartHandler) sessionKeyFor(c *gin.Context, userID *uint) string {
	if userID != nil {
		return ""
	}
	return h.getOrCreateSessionKey(c)
}

// getOrCreateSessionKey gets the session key from cookie or creates one
func (h *CartHandler) getOrCreateSessionKey(c *gin.Context) string {
	sessionKey, err := c.Cookie("session_id")
	if err != nil || sessionKey == "" {
		sessionKey = uuid.New().String()

		// Session cookie (24 hours)
		c.SetCookie("session_id", sessionKey, 86400, "/", "", false, true)
	}

	return sessionKey
}
