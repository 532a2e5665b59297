// internal/domain/cart/entity.go
package cart

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartStatus represents the cart lifecycle state. Only an active cart is
// mutable; every other state is terminal for that row.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusConverted CartStatus = "converted"
	CartStatusExpired   CartStatus = "expired"
)

// DeliveryOption represents how the order will be fulfilled
type DeliveryOption string

const (
	DeliveryDineIn   DeliveryOption = "dine_in"
	DeliveryPickup   DeliveryOption = "pickup"
	DeliveryDelivery DeliveryOption = "delivery"
)

// Domain validation errors surfaced as 4xx at the API boundary
var (
	ErrCartNotActive   = errors.New("cart is not active")
	ErrCartOwnership   = errors.New("cart must be owned by a user or a session, not both or neither")
	ErrTableRequired   = errors.New("dine-in carts require a table")
	ErrTableNotAllowed = errors.New("pickup and delivery carts cannot have a table")
	ErrEmptyCart       = errors.New("cart has no items")
)

// ModifierSelection is one chosen modifier on a cart line
type ModifierSelection struct {
	ModifierID uint `json:"modifier_id"`
	Quantity   int  `json:"quantity"`
}

// SelectedModifiers is stored as a JSON column. Order is irrelevant for
// line identity; see Signature.
type SelectedModifiers []ModifierSelection

// Value implements driver.Valuer
func (m SelectedModifiers) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (m *SelectedModifiers) Scan(value interface{}) error {
	if value == nil {
		*m = SelectedModifiers{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into SelectedModifiers", value)
	}
}

// Cart represents a mutable pre-order basket. Every monetary field is
// derived by the totals engine and never trusted from client input.
type Cart struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CartUUID   string     `gorm:"uniqueIndex;not null;size:36" json:"cart_uuid"`
	UserID     *uint      `gorm:"index" json:"user_id"`
	SessionKey *string    `gorm:"index;size:64" json:"session_key,omitempty"`
	Status     CartStatus `gorm:"not null;default:'active';index" json:"status"`

	DeliveryOption DeliveryOption `gorm:"not null;default:'pickup';size:20" json:"delivery_option"`
	TableID        *uint          `gorm:"index" json:"table_id"`

	// Derived monetary fields
	Subtotal        decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"subtotal"`
	ModifierTotal   decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"modifier_total"`
	DiscountAmount  decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	CouponDiscount  decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"coupon_discount"`
	LoyaltyDiscount decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"loyalty_discount"`
	TipAmount       decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"tip_amount"`
	TipPercentage   *decimal.Decimal `gorm:"type:decimal(5,2)" json:"tip_percentage,omitempty"`
	DeliveryFee     decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"delivery_fee"`
	ServiceFee      decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"service_fee"`
	TaxRate         decimal.Decimal  `gorm:"type:decimal(6,4);not null;default:0" json:"tax_rate"`
	TaxAmount       decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"tax_amount"`
	Total           decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"total"`

	CouponCode string `gorm:"size:50" json:"coupon_code"`

	// Advisory integrity digest over (items, modifiers, totals). Not a
	// security boundary.
	CartHash string `gorm:"size:64" json:"cart_hash"`

	LastActivityAt time.Time      `gorm:"index" json:"last_activity_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
}

// CartItem is one line in a cart. unit_price and original_price are a
// price snapshot taken when the line was added; later menu price changes
// do not touch existing lines.
type CartItem struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	CartID     uint `gorm:"not null;index" json:"cart_id"`
	MenuItemID uint `gorm:"not null;index" json:"menu_item_id"`

	Quantity          int               `gorm:"not null;default:1" json:"quantity"`
	UnitPrice         decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	OriginalPrice     decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"original_price"`
	DiscountApplied   decimal.Decimal   `gorm:"type:decimal(10,2);not null;default:0" json:"discount_applied"`
	SelectedModifiers SelectedModifiers `gorm:"type:text" json:"selected_modifiers"`

	// Derived on every recompute
	ModifierTotal decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"modifier_total"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"line_total"`

	Notes     string    `gorm:"size:500" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// NewCart creates an active cart for either a user or a guest session
func NewCart(userID *uint, sessionKey string) *Cart {
	cart := &Cart{
		CartUUID:       uuid.New().String(),
		UserID:         userID,
		Status:         CartStatusActive,
		DeliveryOption: DeliveryPickup,
		LastActivityAt: time.Now().UTC(),
	}
	if userID == nil && sessionKey != "" {
		cart.SessionKey = &sessionKey
	}
	return cart
}

// IsActive reports whether the cart can still be mutated
func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

// Validate enforces structural invariants. Totals computation never
// validates; only save paths do.
func (c *Cart) Validate() error {
	hasUser := c.UserID != nil
	hasSession := c.SessionKey != nil && *c.SessionKey != ""
	if hasUser == hasSession {
		return ErrCartOwnership
	}

	switch c.DeliveryOption {
	case DeliveryDineIn:
		if c.TableID == nil {
			return ErrTableRequired
		}
	case DeliveryPickup, DeliveryDelivery:
		if c.TableID != nil {
			return ErrTableNotAllowed
		}
	default:
		return fmt.Errorf("unknown delivery option %q", c.DeliveryOption)
	}

	return nil
}

// BeforeSave runs invariant checks on every write
func (c *Cart) BeforeSave(tx *gorm.DB) error {
	return c.Validate()
}

// Touch refreshes the last-activity timestamp
func (c *Cart) Touch() {
	c.LastActivityAt = time.Now().UTC()
}

// normalizedModifiers returns the selections with quantity floored at 1
func normalizedModifiers(mods SelectedModifiers) SelectedModifiers {
	out := make(SelectedModifiers, 0, len(mods))
	for _, m := range mods {
		qty := m.Quantity
		if qty < 1 {
			qty = 1
		}
		out = append(out, ModifierSelection{ModifierID: m.ModifierID, Quantity: qty})
	}
	return out
}

// ModifierIDs returns the distinct modifier ids referenced by this line
func (ci *CartItem) ModifierIDs() []uint {
	seen := make(map[uint]struct{}, len(ci.SelectedModifiers))
	ids := make([]uint, 0, len(ci.SelectedModifiers))
	for _, m := range ci.SelectedModifiers {
		if _, ok := seen[m.ModifierID]; ok {
			continue
		}
		seen[m.ModifierID] = struct{}{}
		ids = append(ids, m.ModifierID)
	}
	return ids
}
