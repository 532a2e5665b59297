// internal/domain/analytics/service.go
package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/restaurant-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles analytics business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// DashboardStats represents overall dashboard statistics
type DashboardStats struct {
	// Revenue metrics
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RevenueToday     decimal.Decimal `json:"revenue_today"`
	RevenueThisWeek  decimal.Decimal `json:"revenue_this_week"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
	RevenueGrowth    float64         `json:"revenue_growth"` // Percentage vs last month

	// Order metrics
	TotalOrders     int64   `json:"total_orders"`
	OrdersToday     int64   `json:"orders_today"`
	OrdersThisWeek  int64   `json:"orders_this_week"`
	OrdersThisMonth int64   `json:"orders_this_month"`
	OrderGrowth     float64 `json:"order_growth"`

	// Guest and table metrics
	TotalUsers        int64 `json:"total_users"`
	NewUsersThisMonth int64 `json:"new_users_this_month"`
	ActiveTables      int64 `json:"active_tables"` // Tables with an open dine-in order

	// Menu metrics
	TotalMenuItems       int64 `json:"total_menu_items"`
	AvailableMenuItems   int64 `json:"available_menu_items"`
	UnavailableMenuItems int64 `json:"unavailable_menu_items"`

	// Averages
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
	AvgTip        decimal.Decimal `json:"avg_tip"`
}

// SalesAnalytics represents sales analytics over a period
type SalesAnalytics struct {
	DailyRevenue  []TimeSeriesData `json:"daily_revenue"`
	TotalSales    int64            `json:"total_sales"`
	TotalRevenue  decimal.Decimal  `json:"total_revenue"`
	AvgOrderValue decimal.Decimal  `json:"avg_order_value"`
	TopItems      []ItemSalesData  `json:"top_items"`
	SalesByStatus []StatusData     `json:"sales_by_status"`
	PeakHours     []HourData       `json:"peak_hours"`
}

// TimeSeriesData is one point on a revenue timeline
type TimeSeriesData struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
	Count int64           `json:"count,omitempty"`
}

// ItemSalesData summarizes sales of one menu item
type ItemSalesData struct {
	MenuItemID uint            `json:"menu_item_id"`
	Name       string          `json:"name"`
	TotalSold  int64           `json:"total_sold"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int64           `json:"order_count"`
}

// StatusData is an order count + value per status
type StatusData struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Value  decimal.Decimal `json:"value"`
}

// HourData is order volume for one hour of the day
type HourData struct {
	Hour       int             `json:"hour"`
	OrderCount int64           `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// revenueFilter excludes orders that never produced revenue
const revenueFilter = "status NOT IN ('cancelled', 'refunded')"

// GetDashboardStats retrieves overall dashboard statistics
func (s *Service) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}
	now := time.Now()

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thisWeek := today.AddDate(0, 0, -int(today.Weekday()))
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	// Revenue metrics
	s.db.Raw("SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE " + revenueFilter).Scan(&stats.TotalRevenue)
	s.db.Raw("SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE "+revenueFilter+" AND created_at >= ?", today).Scan(&stats.RevenueToday)
	s.db.Raw("SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE "+revenueFilter+" AND created_at >= ?", thisWeek).Scan(&stats.RevenueThisWeek)
	s.db.Raw("SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE "+revenueFilter+" AND created_at >= ?", thisMonth).Scan(&stats.RevenueThisMonth)

	var lastMonthRevenue decimal.Decimal
	s.db.Raw("SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE "+revenueFilter+" AND created_at >= ? AND created_at < ?", lastMonth, thisMonth).Scan(&lastMonthRevenue)
	if lastMonthRevenue.IsPositive() {
		growth, _ := stats.RevenueThisMonth.Sub(lastMonthRevenue).Div(lastMonthRevenue).Mul(decimal.NewFromInt(100)).Float64()
		stats.RevenueGrowth = growth
	}

	// Order metrics
	s.db.Raw("SELECT COUNT(*) FROM orders").Scan(&stats.TotalOrders)
	s.db.Raw("SELECT COUNT(*) FROM orders WHERE created_at >= ?", today).Scan(&stats.OrdersToday)
	s.db.Raw("SELECT COUNT(*) FROM orders WHERE created_at >= ?", thisWeek).Scan(&stats.OrdersThisWeek)
	s.db.Raw("SELECT COUNT(*) FROM orders WHERE created_at >= ?", thisMonth).Scan(&stats.OrdersThisMonth)

	var lastMonthOrders int64
	s.db.Raw("SELECT COUNT(*) FROM orders WHERE created_at >= ? AND created_at < ?", lastMonth, thisMonth).Scan(&lastMonthOrders)
	if lastMonthOrders > 0 {
		stats.OrderGrowth = float64(stats.OrdersThisMonth-lastMonthOrders) / float64(lastMonthOrders) * 100
	}

	// User metrics
	s.db.Raw("SELECT COUNT(*) FROM users").Scan(&stats.TotalUsers)
	s.db.Raw("SELECT COUNT(*) FROM users WHERE created_at >= ?", thisMonth).Scan(&stats.NewUsersThisMonth)

	// Tables currently serving a live dine-in order
	s.db.Raw("SELECT COUNT(DISTINCT table_id) FROM orders WHERE table_id IS NOT NULL AND status IN ('pending', 'confirmed', 'preparing', 'ready')").Scan(&stats.ActiveTables)

	// Menu metrics
	s.db.Raw("SELECT COUNT(*) FROM menu_items").Scan(&stats.TotalMenuItems)
	s.db.Raw("SELECT COUNT(*) FROM menu_items WHERE is_available = true").Scan(&stats.AvailableMenuItems)
	stats.UnavailableMenuItems = stats.TotalMenuItems - stats.AvailableMenuItems

	if stats.TotalOrders > 0 {
		stats.AvgOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(stats.TotalOrders)).Round(2)
	}
	s.db.Raw("SELECT COALESCE(AVG(tip_amount), 0) FROM orders WHERE " + revenueFilter).Scan(&stats.AvgTip)
	stats.AvgTip = stats.AvgTip.Round(2)

	return stats, nil
}

// GetSalesAnalytics retrieves sales analytics for the last N days
func (s *Service) GetSalesAnalytics(days int) (*SalesAnalytics, error) {
	analytics := &SalesAnalytics{}

	if days <= 0 {
		days = 30
	}
	startDate := time.Now().AddDate(0, 0, -days)

	rows, err := s.db.Raw(`
		SELECT
			DATE(created_at) as date,
			COALESCE(SUM(total_amount), 0) as revenue,
			COUNT(*) as order_count
		FROM orders
		WHERE created_at >= ? AND `+revenueFilter+`
		GROUP BY DATE(created_at)
		ORDER BY date
	`, startDate).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to get daily revenue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data TimeSeriesData
		if err := rows.Scan(&data.Date, &data.Value, &data.Count); err != nil {
			continue
		}
		analytics.DailyRevenue = append(analytics.DailyRevenue, data)
	}

	s.db.Raw("SELECT COUNT(*) FROM orders WHERE created_at >= ? AND "+revenueFilter, startDate).Scan(&analytics.TotalSales)
	s.db.Raw("SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE created_at >= ? AND "+revenueFilter, startDate).Scan(&analytics.TotalRevenue)
	if analytics.TotalSales > 0 {
		analytics.AvgOrderValue = analytics.TotalRevenue.Div(decimal.NewFromInt(analytics.TotalSales)).Round(2)
	}

	itemRows, err := s.db.Raw(`
		SELECT
			oi.menu_item_id,
			oi.name,
			COALESCE(SUM(oi.quantity), 0) as total_sold,
			COALESCE(SUM(oi.line_total), 0) as revenue,
			COUNT(DISTINCT o.id) as order_count
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		WHERE o.created_at >= ? AND o.`+revenueFilter+`
		GROUP BY oi.menu_item_id, oi.name
		ORDER BY revenue DESC
		LIMIT 10
	`, startDate).Rows()
	if err == nil {
		defer itemRows.Close()
		for itemRows.Next() {
			var item ItemSalesData
			if err := itemRows.Scan(&item.MenuItemID, &item.Name, &item.TotalSold, &item.Revenue, &item.OrderCount); err != nil {
				continue
			}
			analytics.TopItems = append(analytics.TopItems, item)
		}
	}

	statusRows, err := s.db.Raw(`
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE created_at >= ?
		GROUP BY status
	`, startDate).Rows()
	if err == nil {
		defer statusRows.Close()
		for statusRows.Next() {
			var data StatusData
			if err := statusRows.Scan(&data.Status, &data.Count, &data.Value); err != nil {
				continue
			}
			analytics.SalesByStatus = append(analytics.SalesByStatus, data)
		}
	}

	hourRows, err := s.db.Raw(`
		SELECT
			EXTRACT(HOUR FROM created_at)::int as hour,
			COUNT(*) as order_count,
			COALESCE(SUM(total_amount), 0) as revenue
		FROM orders
		WHERE created_at >= ? AND `+revenueFilter+`
		GROUP BY hour
		ORDER BY order_count DESC
	`, startDate).Rows()
	if err == nil {
		defer hourRows.Close()
		for hourRows.Next() {
			var data HourData
			if err := hourRows.Scan(&data.Hour, &data.OrderCount, &data.Revenue); err != nil {
				continue
			}
			analytics.PeakHours = append(analytics.PeakHours, data)
		}
	}

	return analytics, nil
}
