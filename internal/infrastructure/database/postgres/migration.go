// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/dining"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
	"github.com/your-org/restaurant-backend/internal/domain/order"
	"github.com/your-org/restaurant-backend/internal/domain/promotion"
	"github.com/your-org/restaurant-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// User domain - Base tables
		&user.User{},

		// Menu domain - Base tables
		&menu.Category{},
		&menu.MenuItem{},
		&menu.ModifierGroup{},
		&menu.Modifier{},

		// Dining domain
		&dining.Table{},
		&dining.Reservation{},

		// Cart domain
		&cart.Cart{},
		&cart.CartItem{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Promotion domain
		&promotion.Coupon{},
		&promotion.LoyaltyAccount{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Menu indexes
		"CREATE INDEX IF NOT EXISTS idx_menu_items_category_available ON menu_items(category_id, is_available)",
		"CREATE INDEX IF NOT EXISTS idx_menu_items_price ON menu_items(price)",
		"CREATE INDEX IF NOT EXISTS idx_menu_categories_sort_order ON menu_categories(sort_order)",
		"CREATE INDEX IF NOT EXISTS idx_modifiers_group_available ON modifiers(group_id, is_available)",

		// Cart indexes. A user or session holds at most one active cart.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_active_user ON carts(user_id) WHERE status = 'active' AND user_id IS NOT NULL AND deleted_at IS NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_active_session ON carts(session_key) WHERE status = 'active' AND session_key IS NOT NULL AND deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_carts_status_activity ON carts(status, last_activity_at)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_cart ON cart_items(cart_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_table_status ON orders(table_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_menu_item ON order_items(menu_item_id)",

		// Order status history indexes
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_source ON order_status_history(source)",

		// Reservation indexes
		"CREATE INDEX IF NOT EXISTS idx_reservations_table_window ON reservations(table_id, starts_at, ends_at)",
		"CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)",

		// Coupon indexes
		"CREATE INDEX IF NOT EXISTS idx_coupons_active_expires ON coupons(is_active, expires_at)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return m.createConstraints()
}

// createConstraints adds CHECK constraints the entity hooks also enforce,
// so direct SQL writes cannot violate them either
func (m *Migration) createConstraints() error {
	constraints := []string{
		"ALTER TABLE carts ADD CONSTRAINT chk_carts_ownership CHECK ((user_id IS NOT NULL) <> (session_key IS NOT NULL))",
		"ALTER TABLE carts ADD CONSTRAINT chk_carts_dine_in_table CHECK (delivery_option <> 'dine_in' OR table_id IS NOT NULL)",
		"ALTER TABLE orders ADD CONSTRAINT chk_orders_dine_in_table CHECK (delivery_option <> 'dine_in' OR table_id IS NOT NULL)",
		"ALTER TABLE orders ADD CONSTRAINT chk_orders_refund_bound CHECK (refund_amount <= total_amount)",
		"ALTER TABLE cart_items ADD CONSTRAINT chk_cart_items_quantity CHECK (quantity > 0)",
		"ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity CHECK (quantity > 0)",
	}

	for _, constraintSQL := range constraints {
		// Re-running on an existing schema reports duplicates; ignore them.
		if err := m.db.Exec(constraintSQL).Error; err != nil {
			log.Printf("⏭️ Constraint skipped: %v", err)
		}
	}
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedStaffUser(); err != nil {
		return fmt.Errorf("failed to seed staff user: %w", err)
	}

	if err := m.seedMenu(); err != nil {
		return fmt.Errorf("failed to seed menu: %w", err)
	}

	if err := m.seedTables(); err != nil {
		return fmt.Errorf("failed to seed tables: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedStaffUser() error {
	log.Println("👤 Seeding staff user...")

	var existing user.User
	result := m.db.Where("email = ?", "staff@example.com").First(&existing)
	if result.Error == nil {
		log.Println("⏭️ Staff user already exists")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("staff123"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	staff := user.User{
		Email:        "staff@example.com",
		PasswordHash: string(hashedPassword),
		FirstName:    "Front",
		LastName:     "Desk",
		IsStaff:      true,
		IsActive:     true,
	}
	if err := m.db.Create(&staff).Error; err != nil {
		return fmt.Errorf("failed to create staff user: %w", err)
	}

	log.Println("✅ Created staff user: staff@example.com (password: staff123)")
	return nil
}

// seedMenu creates a small starter menu so a fresh install is usable
func (m *Migration) seedMenu() error {
	log.Println("🍽️ Seeding menu...")

	var count int64
	m.db.Model(&menu.Category{}).Count(&count)
	if count > 0 {
		log.Println("⏭️ Menu already seeded")
		return nil
	}

	categories := []menu.Category{
		{Name: "Appetizers", Slug: "appetizers", SortOrder: 1, IsActive: true},
		{Name: "Mains", Slug: "mains", SortOrder: 2, IsActive: true},
		{Name: "Drinks", Slug: "drinks", SortOrder: 3, IsActive: true},
	}
	for i := range categories {
		if err := m.db.Create(&categories[i]).Error; err != nil {
			return err
		}
	}

	items := []menu.MenuItem{
		{CategoryID: &categories[0].ID, Name: "Garlic Bread", Price: decimal.RequireFromString("5.49"), IsAvailable: true, PrepMinutes: 10},
		{CategoryID: &categories[1].ID, Name: "Margherita Pizza", Price: decimal.RequireFromString("12.99"), IsAvailable: true, PrepMinutes: 20},
		{CategoryID: &categories[1].ID, Name: "House Burger", Price: decimal.RequireFromString("10.99"), IsAvailable: true, PrepMinutes: 15},
		{CategoryID: &categories[2].ID, Name: "Iced Tea", Price: decimal.RequireFromString("2.99"), IsAvailable: true, PrepMinutes: 2},
	}
	for i := range items {
		if err := m.db.Create(&items[i]).Error; err != nil {
			return err
		}
	}

	group := menu.ModifierGroup{MenuItemID: items[1].ID, Name: "Toppings", MaxSelect: 5}
	if err := m.db.Create(&group).Error; err != nil {
		return err
	}
	modifiers := []menu.Modifier{
		{GroupID: group.ID, Name: "Extra Cheese", Price: decimal.RequireFromString("1.50"), IsAvailable: true, SortOrder: 1},
		{GroupID: group.ID, Name: "Mushrooms", Price: decimal.RequireFromString("1.00"), IsAvailable: true, SortOrder: 2},
		{GroupID: group.ID, Name: "No Cheese", Price: decimal.RequireFromString("-0.50"), IsAvailable: true, SortOrder: 3},
	}
	for i := range modifiers {
		if err := m.db.Create(&modifiers[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d categories, %d items", len(categories), len(items))
	return nil
}

func (m *Migration) seedTables() error {
	log.Println("🪑 Seeding dining tables...")

	var count int64
	m.db.Model(&dining.Table{}).Count(&count)
	if count > 0 {
		log.Println("⏭️ Tables already seeded")
		return nil
	}

	for number := 1; number <= 10; number++ {
		capacity := 2
		if number > 6 {
			capacity = 4
		}
		table := dining.Table{Number: number, Capacity: capacity, Section: "main", IsActive: true}
		if err := m.db.Create(&table).Error; err != nil {
			return err
		}
	}

	log.Println("✅ Seeded 10 dining tables")
	return nil
}
