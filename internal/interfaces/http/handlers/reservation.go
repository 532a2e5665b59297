// internal/interfaces/http/handlers/reservation.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/dining"
	"github.com/your-org/restaurant-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// ReservationHandler handles table and reservation endpoints
type ReservationHandler struct {
	diningService *dining.Service
	config        *config.Config
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(db *gorm.DB, cfg *config.Config) *ReservationHandler {
	return &ReservationHandler{
		diningService: dining.NewService(db, cfg),
		config:        cfg,
	}
}

// GetTables handles GET /tables
func (h *ReservationHandler) GetTables(c *gin.Context) {
	tables, err := h.diningService.GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve tables",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tables retrieved successfully",
		"data":    tables,
	})
}

// CreateReservation handles POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	userID := middleware.UserIDPtrFromContext(c)

	var req dining.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	reservation, err := h.diningService.CreateReservation(userID, &req)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Reservation created successfully",
		"data":    reservation,
	})
}

// StaffGetReservations handles GET /staff/reservations?date=YYYY-MM-DD
func (h *ReservationHandler) StaffGetReservations(c *gin.Context) {
	day := time.Now()
	if param := c.Query("date"); param != "" {
		parsed, err := time.Parse("2006-01-02", param)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid date format, expected YYYY-MM-DD",
			})
			return
		}
		day = parsed
	}

	reservations, err := h.diningService.GetReservations(day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve reservations",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservations retrieved successfully",
		"data":    reservations,
	})
}

// StaffUpdateReservationStatus handles PUT /staff/reservations/:id/status
func (h *ReservationHandler) StaffUpdateReservationStatus(c *gin.Context) {
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid reservation ID",
		})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.diningService.UpdateReservationStatus(uint(reservationID), dining.ReservationStatus(req.Status)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reservation status updated successfully",
	})
}
