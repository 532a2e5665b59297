// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/interfaces/http/handlers"
	"github.com/your-org/restaurant-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes registers every API route group on the given router group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupAuthRoutes(rg, db, redisClient, cfg)
	SetupMenuRoutes(rg, db, redisClient, cfg)
	SetupCartRoutes(rg, db, redisClient, cfg)
	SetupCheckoutRoutes(rg, db, redisClient, cfg)
	SetupOrderRoutes(rg, db, redisClient, cfg)
	SetupReservationRoutes(rg, db, redisClient, cfg)
	SetupStaffRoutes(rg, db, redisClient, cfg)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, redisClient, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.PUT("/password", authHandler.ChangePassword)
		}
	}
}

// SetupMenuRoutes sets up menu browsing routes
func SetupMenuRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	menuHandler := handlers.NewMenuHandler(db, redisClient, cfg)

	menu := rg.Group("/menu")
	menu.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		menu.GET("/categories", menuHandler.GetCategories)
		menu.GET("/items", menuHandler.GetItems)
		menu.GET("/items/:id", menuHandler.GetItem)
	}
}

// SetupCartRoutes sets up cart and session cart routes
func SetupCartRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	cartHandler := handlers.NewCartHandler(db, redisClient, cfg)

	// Cart routes work with guest sessions or authenticated users
	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cart.GET("", cartHandler.GetCart)
		cart.POST("/items", cartHandler.AddToCart)
		cart.PUT("/items/:id", cartHandler.UpdateCartItem)
		cart.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cart.PUT("/delivery", cartHandler.SetDeliveryOption)
		cart.PUT("/tip", cartHandler.SetTip)

		// Session (Redis) cart endpoints
		session := cart.Group("/session")
		{
			session.GET("", cartHandler.GetSessionCart)
			session.POST("/items", cartHandler.AddSessionItem)
			session.PUT("/items/:id", cartHandler.UpdateSessionItem)
			session.DELETE("", cartHandler.ClearSessionCart)
		}

		// Merging the guest cart requires a logged-in user
		merge := cart.Group("")
		merge.Use(middleware.AuthMiddleware(cfg))
		{
			merge.POST("/merge", cartHandler.MergeGuestCart)
		}
	}
}

// SetupCheckoutRoutes sets up checkout and promotion routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	checkoutHandler := handlers.NewCheckoutHandler(db, redisClient, cfg)
	promotionHandler := handlers.NewPromotionHandler(db, cfg)

	// Guests can place orders, so checkout is optional-auth
	checkout := rg.Group("/checkout")
	checkout.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		checkout.POST("", checkoutHandler.PlaceOrder)
		checkout.POST("/summary", checkoutHandler.GetSummary)
	}

	promotions := rg.Group("/promotions")
	{
		promotions.POST("/coupons/validate", promotionHandler.ValidateCoupon)

		loyalty := promotions.Group("")
		loyalty.Use(middleware.AuthMiddleware(cfg))
		{
			loyalty.GET("/loyalty", promotionHandler.GetLoyaltyBalance)
		}
	}
}

// SetupOrderRoutes sets up customer order routes
func SetupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, redisClient, cfg)

	// Public order tracking by number
	rg.GET("/orders/number/:number", orderHandler.TrackOrder)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PUT("/:id/cancel", orderHandler.CancelOrder)
		orders.GET("/:id/receipt", orderHandler.GenerateReceipt)
	}
}

// SetupReservationRoutes sets up table and reservation routes
func SetupReservationRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	reservationHandler := handlers.NewReservationHandler(db, cfg)

	rg.GET("/tables", reservationHandler.GetTables)

	reservations := rg.Group("/reservations")
	reservations.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		reservations.POST("", reservationHandler.CreateReservation)
	}
}

// SetupStaffRoutes sets up staff-only management routes
func SetupStaffRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, redisClient, cfg)
	menuHandler := handlers.NewMenuHandler(db, redisClient, cfg)
	reservationHandler := handlers.NewReservationHandler(db, cfg)
	analyticsHandler := handlers.NewAnalyticsHandler(db, cfg)

	staff := rg.Group("/staff")
	staff.Use(middleware.AuthMiddleware(cfg))
	staff.Use(middleware.StaffMiddleware())
	{
		// Order management
		orders := staff.Group("/orders")
		{
			orders.GET("", orderHandler.StaffGetOrders)
			orders.GET("/:id", orderHandler.StaffGetOrder)
			orders.PUT("/:id/transition", orderHandler.StaffTransitionOrder)
			orders.PUT("/:id/status", orderHandler.StaffOverrideStatus)
			orders.PUT("/:id/items/:itemId/status", orderHandler.StaffUpdateItemStatus)
			orders.POST("/:id/refund", orderHandler.StaffRefundOrder)
		}

		// Menu management
		menu := staff.Group("/menu")
		{
			menu.PUT("/items/:id/availability", menuHandler.SetAvailability)
		}

		// Reservation management
		reservations := staff.Group("/reservations")
		{
			reservations.GET("", reservationHandler.StaffGetReservations)
			reservations.PUT("/:id/status", reservationHandler.StaffUpdateReservationStatus)
		}

		// Analytics
		analytics := staff.Group("/analytics")
		{
			analytics.GET("/dashboard", analyticsHandler.GetDashboard)
			analytics.GET("/sales", analyticsHandler.GetSales)
		}
	}
}
