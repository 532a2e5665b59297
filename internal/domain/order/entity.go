// internal/domain/order/entity.go
package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"gorm.io/gorm"
)

// OrderStatus is the full storage enum. The guarded workflow operates on
// the simplified vocabulary in statemachine.go; this richer set is what
// rows actually carry and what legacy/admin flows may write.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// HistorySource marks which mutation path wrote a history row
type HistorySource string

const (
	// HistorySourceTransition is the guarded state-machine path
	HistorySourceTransition HistorySource = "transition"
	// HistorySourceOverride is the unguarded administrative path
	HistorySourceOverride HistorySource = "override"
	// HistorySourceSystem is order creation and other internal events
	HistorySourceSystem HistorySource = "system"
)

// Domain validation errors
var (
	ErrRefundExceedsTotal = errors.New("refund amount cannot exceed order total")
	ErrTableRequired      = errors.New("dine-in orders require a table")
	ErrTableNotAllowed    = errors.New("pickup and delivery orders cannot have a table")
)

// FrozenModifier is a modifier captured at order time. Name and price are
// frozen deliberately: later menu edits must not alter historical orders.
type FrozenModifier struct {
	ModifierID uint            `json:"modifier_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// FrozenModifiers is stored as a JSON column on order items
type FrozenModifiers []FrozenModifier

// Value implements driver.Valuer
func (m FrozenModifiers) Value() (driver.Value, error) {
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
func (m *FrozenModifiers) Scan(value interface{}) error {
	if value == nil {
		*m = FrozenModifiers{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into FrozenModifiers", value)
	}
}

// Order is an immutable-after-creation snapshot of a converted cart, plus
// a mutable status.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      *uint       `gorm:"index" json:"user_id"` // Nullable for guest orders
	Status      OrderStatus `gorm:"not null;default:'pending';index" json:"status"`

	// Customer contact captured at checkout
	CustomerName  string `gorm:"size:200" json:"customer_name"`
	CustomerPhone string `gorm:"size:20" json:"customer_phone"`
	CustomerEmail string `gorm:"size:255" json:"customer_email"`

	DeliveryOption  cart.DeliveryOption `gorm:"not null;size:20" json:"delivery_option"`
	TableID         *uint               `gorm:"index" json:"table_id"`
	DeliveryAddress string              `gorm:"size:500" json:"delivery_address"`

	// Monetary snapshot copied from the cart at creation
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
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	RefundAmount    decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"refund_amount"`

	CouponCode string `gorm:"size:50" json:"coupon_code"`
	Currency   string `gorm:"size:3;default:'USD'" json:"currency"`
	Notes      string `gorm:"type:text" json:"notes"`

	// Traceability link back to the originating cart
	SourceCartID *uint `gorm:"index" json:"source_cart_id"`

	// Workflow timestamps, set once on first entry into each state
	StartedPreparingAt *time.Time `json:"started_preparing_at"`
	ReadyAt            *time.Time `json:"ready_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"status_history,omitempty"`
}

// OrderItem is one frozen line in an order
type OrderItem struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	MenuItemID uint        `gorm:"not null;index" json:"menu_item_id"`
	Name       string      `gorm:"not null;size:255" json:"name"`
	Status     OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	DiscountApplied decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_applied"`
	Modifiers       FrozenModifiers `gorm:"type:text" json:"modifiers"`
	ModifierTotal   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"modifier_total"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`

	Notes     string    `gorm:"size:500" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderStatusHistory is the append-only audit ledger. Rows are never
// mutated or deleted; created_at ordering is the canonical timeline.
type OrderStatusHistory struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	OrderID        uint          `gorm:"not null;index" json:"order_id"`
	PreviousStatus *OrderStatus  `gorm:"size:30" json:"previous_status"` // nil only for the creation event
	NewStatus      OrderStatus   `gorm:"not null;size:30" json:"new_status"`
	ChangedByID    *uint         `gorm:"index" json:"changed_by_id"` // nil means system
	Source         HistorySource `gorm:"not null;default:'transition';size:20" json:"source"`
	Reason         string        `gorm:"size:255" json:"reason"`
	Notes          string        `gorm:"type:text" json:"notes"`
	IPAddress      string        `gorm:"size:45" json:"ip_address"`
	UserAgent      string        `gorm:"size:255" json:"user_agent"`
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Validate enforces structural invariants mirroring the cart's
func (o *Order) Validate() error {
	if o.RefundAmount.GreaterThan(o.TotalAmount) {
		return ErrRefundExceedsTotal
	}

	switch o.DeliveryOption {
	case cart.DeliveryDineIn:
		if o.TableID == nil {
			return ErrTableRequired
		}
	case cart.DeliveryPickup, cart.DeliveryDelivery:
		if o.TableID != nil {
			return ErrTableNotAllowed
		}
	default:
		return fmt.Errorf("unknown delivery option %q", o.DeliveryOption)
	}

	return nil
}

// BeforeSave runs invariant checks on every write
func (o *Order) BeforeSave(tx *gorm.DB) error {
	return o.Validate()
}

// GenerateOrderNumber formats the order number from the row id
func GenerateOrderNumber(orderID uint) string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", time.Now().UTC().Format("20060102"), orderID)
}

// CalculateTotals re-derives the order's aggregate fields from its frozen
// line totals. Items are immutable once the order exists, so modifier
// availability is never re-resolved here.
func (o *Order) CalculateTotals() {
	subtotal := decimal.Zero
	modifierTotal := decimal.Zero
	for i := range o.Items {
		item := &o.Items[i]
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.UnitPrice.Mul(qty).Round(2))
		modifierTotal = modifierTotal.Add(item.ModifierTotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.ModifierTotal = modifierTotal.Round(2)

	preTaxTotal := o.Subtotal.Add(o.ModifierTotal).Round(2)
	totalDiscount := o.DiscountAmount.Add(o.CouponDiscount).Add(o.LoyaltyDiscount).Round(2)
	discountedTotal := preTaxTotal.Sub(totalDiscount)
	if discountedTotal.IsNegative() {
		discountedTotal = decimal.Zero
	}
	discountedTotal = discountedTotal.Round(2)

	o.TaxAmount = discountedTotal.Mul(o.TaxRate).Round(2)

	if o.TipPercentage != nil && o.TipAmount.IsZero() {
		o.TipAmount = discountedTotal.Mul(*o.TipPercentage).Div(decimal.NewFromInt(100)).Round(2)
	}

	total := discountedTotal.
		Add(o.TaxAmount).
		Add(o.DeliveryFee).
		Add(o.ServiceFee).
		Add(o.TipAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.TotalAmount = total.Round(2)
}
