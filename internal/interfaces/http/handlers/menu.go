// internal/interfaces/http/handlers/menu.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
	"gorm.io/gorm"
)

// MenuHandler handles menu endpoints
type MenuHandler struct {
	menuService *menu.Service
	config      *config.Config
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *MenuHandler {
	return &MenuHandler{
		menuService: menu.NewService(db, redisClient, cfg),
		config:      cfg,
	}
}

// GetCategories handles GET /menu/categories
func (h *MenuHandler) GetCategories(c *gin.Context) {
	categories, err := h.menuService.GetCategories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve categories",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Categories retrieved successfully",
		"data":    categories,
	})
}

// GetItems handles GET /menu/items
func (h *MenuHandler) GetItems(c *gin.Context) {
	var categoryID *uint
	if param := c.Query("category_id"); param != "" {
		if id, err := strconv.ParseUint(param, 10, 32); err == nil {
			cid := uint(id)
			categoryID = &cid
		}
	}

	availableOnly := c.DefaultQuery("available_only", "true") == "true"

	items, err := h.menuService.GetItems(categoryID, availableOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve menu items",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Menu items retrieved successfully",
		"data":    items,
	})
}

// GetItem handles GET /menu/items/:id
func (h *MenuHandler) GetItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	item, err := h.menuService.GetItem(uint(itemID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Menu item not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Menu item retrieved successfully",
		"data":    item,
	})
}

// SetAvailability handles PUT /staff/menu/items/:id/availability (86ing)
func (h *MenuHandler) SetAvailability(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid item ID",
		})
		return
	}

	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.menuService.SetAvailability(uint(itemID), *req.Available); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Menu item availability updated successfully",
	})
}
