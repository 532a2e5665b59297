package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
	"github.com/your-org/restaurant-backend/internal/domain/order"
	"github.com/your-org/restaurant-backend/internal/interfaces/http/handlers"
)

func testConfig() *config.Config {
	return &config.Config{
		Restaurant: config.RestaurantConfig{
			Currency:            "USD",
			DefaultTaxRate:      decimal.RequireFromString("0.13"),
			DeliveryFee:         decimal.RequireFromString("4.99"),
			CartInactivityLimit: 25 * time.Minute,
			LoyaltyPointValue:   decimal.RequireFromString("0.01"),
			StatusEventChannel:  "orders:status",
		},
	}
}

func setupHandlerDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&menu.Category{}, &menu.MenuItem{}, &menu.ModifierGroup{}, &menu.Modifier{},
		&cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStatusHistory{},
	)
	require.NoError(t, err)
	return db
}

// staffContext mimics the auth middleware for routes that need a
// signed-in staff member
func staffContext(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("is_staff", true)
		c.Next()
	}
}

func setupOrderRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	handler := handlers.NewOrderHandler(db, nil, cfg)

	router := gin.New()
	router.GET("/orders/number/:number", handler.TrackOrder)

	staff := router.Group("/staff", staffContext(9))
	staff.PUT("/orders/:id/transition", handler.StaffTransitionOrder)
	staff.PUT("/orders/:id/status", handler.StaffOverrideStatus)
	return router
}

func seedOrder(t *testing.T, db *gorm.DB) *order.Order {
	cfg := testConfig()

	item := menu.MenuItem{Name: "Margherita Pizza", Price: decimal.RequireFromString("12.99"), IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)

	userID := uint(1)
	cartSvc := cart.NewService(db, nil, cfg)
	c, err := cartSvc.AddItem(&userID, "", &cart.AddItemRequest{
		MenuItemID: item.ID,
		Quantity:   2,
	})
	require.NoError(t, err)

	orderSvc := order.NewService(db, nil, cfg)
	o, err := orderSvc.CreateFromCart(context.Background(), c.ID, &order.CustomerInfo{Name: "Alex"}, &userID)
	require.NoError(t, err)
	return o
}

func TestTrackOrder(t *testing.T) {
	db := setupHandlerDB(t)
	router := setupOrderRouter(t, db)
	o := seedOrder(t, db)

	t.Run("known order number", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/number/"+o.OrderNumber, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				OrderNumber    string `json:"order_number"`
				Status         string `json:"status"`
				WorkflowStatus string `json:"workflow_status"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, o.OrderNumber, resp.Data.OrderNumber)
		assert.Equal(t, "pending", resp.Data.Status)
		assert.Equal(t, "pending", resp.Data.WorkflowStatus)
	})

	t.Run("unknown order number", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/number/ORD-DOES-NOT-EXIST", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStaffTransitionOrder(t *testing.T) {
	db := setupHandlerDB(t)
	router := setupOrderRouter(t, db)
	o := seedOrder(t, db)

	transition := func(body gin.H) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut,
			fmt.Sprintf("/staff/orders/%d/transition", o.ID),
			bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("valid transition", func(t *testing.T) {
		w := transition(gin.H{"status": "in_progress", "reason": "Kitchen picked up"})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data order.Order `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, order.OrderStatusPreparing, resp.Data.Status)
		assert.NotNil(t, resp.Data.StartedPreparingAt)
	})

	t.Run("guard rejects a skipped step", func(t *testing.T) {
		w := transition(gin.H{"status": "completed"})
		assert.Equal(t, http.StatusConflict, w.Code)

		var current order.Order
		require.NoError(t, db.First(&current, o.ID).Error)
		assert.Equal(t, order.OrderStatusPreparing, current.Status)
	})

	t.Run("missing status field", func(t *testing.T) {
		w := transition(gin.H{"reason": "no status"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStaffOverrideStatus(t *testing.T) {
	db := setupHandlerDB(t)
	router := setupOrderRouter(t, db)
	o := seedOrder(t, db)

	override := func(body gin.H) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut,
			fmt.Sprintf("/staff/orders/%d/status", o.ID),
			bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("bypasses the workflow guard", func(t *testing.T) {
		w := override(gin.H{"status": "refunded", "reason": "Charge disputed"})
		assert.Equal(t, http.StatusOK, w.Code)

		var current order.Order
		require.NoError(t, db.First(&current, o.ID).Error)
		assert.Equal(t, order.OrderStatusRefunded, current.Status)

		var history []order.OrderStatusHistory
		require.NoError(t, db.Where("order_id = ?", o.ID).Order("id ASC").Find(&history).Error)
		require.NotEmpty(t, history)
		assert.Equal(t, order.HistorySourceOverride, history[len(history)-1].Source)
	})

	t.Run("unknown status value", func(t *testing.T) {
		w := override(gin.H{"status": "shipped"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
