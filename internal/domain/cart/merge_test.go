package cart_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
)

func testConfig() *config.Config {
	return &config.Config{
		Restaurant: config.RestaurantConfig{
			Currency:            "USD",
			DefaultTaxRate:      d("0.13"),
			DeliveryFee:         d("4.99"),
			CartInactivityLimit: 25 * time.Minute,
			LoyaltyPointValue:   d("0.01"),
			StatusEventChannel:  "orders:status",
		},
	}
}

func setupCartDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&menu.Category{}, &menu.MenuItem{}, &menu.ModifierGroup{}, &menu.Modifier{},
		&cart.Cart{}, &cart.CartItem{},
	)
	require.NoError(t, err)
	return db
}

func createCart(t *testing.T, db *gorm.DB, userID *uint, sessionKey string) *cart.Cart {
	c := cart.NewCart(userID, sessionKey)
	require.NoError(t, db.Create(c).Error)
	return c
}

func addLine(t *testing.T, db *gorm.DB, c *cart.Cart, menuItemID uint, qty int, price string, mods cart.SelectedModifiers) {
	line := cart.CartItem{
		CartID:            c.ID,
		MenuItemID:        menuItemID,
		Quantity:          qty,
		UnitPrice:         d(price),
		OriginalPrice:     d(price),
		SelectedModifiers: mods,
	}
	require.NoError(t, db.Create(&line).Error)
}

func TestMergeCartsIncrement(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())

	userID := uint(1)
	dest := createCart(t, db, &userID, "")
	addLine(t, db, dest, 1, 2, "10.99", nil)

	source := createCart(t, db, nil, "guest-session")
	addLine(t, db, source, 1, 3, "10.99", nil)
	addLine(t, db, source, 2, 1, "2.99", nil)

	summary, merged, err := svc.MergeCarts(source.ID, dest.ID, cart.MergeIncrement)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Moved)
	assert.Equal(t, 1, summary.Merged)
	assert.Equal(t, 1, summary.Created)
	assert.Len(t, merged.Items, 2)

	var quantities []int
	for _, item := range merged.Items {
		if item.MenuItemID == 1 {
			quantities = append(quantities, item.Quantity)
		}
	}
	assert.Equal(t, []int{5}, quantities)

	// 10.99 * 5 + 2.99
	assert.Equal(t, "57.94", merged.Subtotal.StringFixed(2))

	// The source keeps its row for audit continuity but loses its items.
	var reloaded cart.Cart
	require.NoError(t, db.First(&reloaded, source.ID).Error)
	assert.Equal(t, cart.CartStatusAbandoned, reloaded.Status)

	var itemCount int64
	db.Model(&cart.CartItem{}).Where("cart_id = ?", source.ID).Count(&itemCount)
	assert.Equal(t, int64(0), itemCount)
}

func TestMergeCartsReplace(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())

	userID := uint(1)
	dest := createCart(t, db, &userID, "")
	addLine(t, db, dest, 1, 2, "10.99", nil)

	source := createCart(t, db, nil, "guest-session")
	addLine(t, db, source, 1, 3, "10.99", nil)

	summary, merged, err := svc.MergeCarts(source.ID, dest.ID, cart.MergeReplace)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Merged)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 3, merged.Items[0].Quantity)
}

func TestMergeCartsMatchesBySignature(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())

	userID := uint(1)
	dest := createCart(t, db, &userID, "")
	addLine(t, db, dest, 1, 1, "12.99", cart.SelectedModifiers{{ModifierID: 10, Quantity: 1}})

	// Same item, different modifiers: a distinct line, not a merge.
	source := createCart(t, db, nil, "guest-session")
	addLine(t, db, source, 1, 1, "12.99", cart.SelectedModifiers{{ModifierID: 11, Quantity: 1}})

	summary, merged, err := svc.MergeCarts(source.ID, dest.ID, cart.MergeIncrement)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Merged)
	assert.Equal(t, 1, summary.Created)
	assert.Len(t, merged.Items, 2)
}

func TestMergeCartsSameCartIsNoop(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())

	userID := uint(1)
	c := createCart(t, db, &userID, "")
	addLine(t, db, c, 1, 2, "10.99", nil)

	summary, merged, err := svc.MergeCarts(c.ID, c.ID, cart.MergeIncrement)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Moved)
	assert.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
}

func TestMergeCartsRejectsInactiveDestination(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())

	userID := uint(1)
	dest := createCart(t, db, &userID, "")
	require.NoError(t, db.Model(dest).Update("status", cart.CartStatusConverted).Error)

	source := createCart(t, db, nil, "guest-session")
	addLine(t, db, source, 1, 1, "10.99", nil)

	_, _, err := svc.MergeCarts(source.ID, dest.ID, cart.MergeIncrement)
	assert.ErrorIs(t, err, cart.ErrCartNotActive)
}

func TestMergeCartsRejectsConvertedSource(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())

	userID := uint(1)
	dest := createCart(t, db, &userID, "")

	source := createCart(t, db, nil, "guest-session")
	addLine(t, db, source, 1, 1, "10.99", nil)
	require.NoError(t, db.Model(source).Update("status", cart.CartStatusConverted).Error)

	_, _, err := svc.MergeCarts(source.ID, dest.ID, cart.MergeIncrement)
	assert.ErrorIs(t, err, cart.ErrCartNotActive)

	// The checked-out cart keeps its terminal status and its lines.
	var reloaded cart.Cart
	require.NoError(t, db.Preload("Items").First(&reloaded, source.ID).Error)
	assert.Equal(t, cart.CartStatusConverted, reloaded.Status)
	assert.Len(t, reloaded.Items, 1)

	var destItems int64
	require.NoError(t, db.Model(&cart.CartItem{}).Where("cart_id = ?", dest.ID).Count(&destItems).Error)
	assert.Zero(t, destItems)
}

func TestMergeCartsRejectsUnknownStrategy(t *testing.T) {
	db := setupCartDB(t)
	svc := cart.NewService(db, nil, testConfig())

	_, _, err := svc.MergeCarts(1, 2, cart.MergeStrategy("upsert"))
	assert.Error(t, err)
}
