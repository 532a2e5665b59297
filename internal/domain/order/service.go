// internal/domain/order/service.go
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/cart"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
	"github.com/your-org/restaurant-backend/internal/pkg/dbutil"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db          *gorm.DB
	config      *config.Config
	cartService *cart.Service
	menuService *menu.Service
	publisher   *EventPublisher
}

// NewService creates a new order service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		cartService: cart.NewService(db, redisClient, cfg),
		menuService: menu.NewService(db, redisClient, cfg),
		publisher:   NewEventPublisher(redisClient, cfg.Restaurant.StatusEventChannel),
	}
}

// CustomerInfo is the contact and fulfillment detail captured at checkout
type CustomerInfo struct {
	Name            string `json:"name" binding:"required"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes"`
}

// TransitionOptions carries optional audit metadata for a transition
type TransitionOptions struct {
	Reason    string
	Notes     string
	IPAddress string
	UserAgent string
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	DateFrom  string      `form:"date_from"`
	DateTo    string      `form:"date_to"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
}

// OrderListResponse represents orders with pagination
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CreateFromCart atomically converts an active cart into an order. The
// cart's monetary fields are copied verbatim, its lines are materialized
// into frozen order items (modifier names and prices captured as JSON),
// and the cart is marked converted exactly once.
func (s *Service) CreateFromCart(ctx context.Context, cartID uint, info *CustomerInfo, byUser *uint) (*Order, error) {
	var created *Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var c cart.Cart
		err := dbutil.LockForUpdate(tx).
			Preload("Items").
			First(&c, cartID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("cart not found")
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}

		if !c.IsActive() {
			return cart.ErrCartNotActive
		}
		if len(c.Items) == 0 {
			return cart.ErrEmptyCart
		}

		modifierIndex, err := s.resolveCartModifiers(&c)
		if err != nil {
			return err
		}

		sourceCartID := c.ID
		o := Order{
			UserID:          c.UserID,
			Status:          OrderStatusPending,
			CustomerName:    info.Name,
			CustomerPhone:   info.Phone,
			CustomerEmail:   info.Email,
			DeliveryOption:  c.DeliveryOption,
			TableID:         c.TableID,
			DeliveryAddress: info.DeliveryAddress,
			Subtotal:        c.Subtotal,
			ModifierTotal:   c.ModifierTotal,
			DiscountAmount:  c.DiscountAmount,
			CouponDiscount:  c.CouponDiscount,
			LoyaltyDiscount: c.LoyaltyDiscount,
			TipAmount:       c.TipAmount,
			TipPercentage:   c.TipPercentage,
			DeliveryFee:     c.DeliveryFee,
			ServiceFee:      c.ServiceFee,
			TaxRate:         c.TaxRate,
			TaxAmount:       c.TaxAmount,
			TotalAmount:     c.Total,
			CouponCode:      c.CouponCode,
			Currency:        s.config.Restaurant.Currency,
			Notes:           info.Notes,
			SourceCartID:    &sourceCartID,
		}
		// Order numbers derive from the row id, assigned after insert.
		o.OrderNumber = fmt.Sprintf("pending-%s", c.CartUUID)

		if err := tx.Create(&o).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		o.OrderNumber = GenerateOrderNumber(o.ID)
		if err := tx.Model(&o).Update("order_number", o.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to assign order number: %w", err)
		}

		for i := range c.Items {
			line := s.freezeCartItem(&o, &c.Items[i], modifierIndex)
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			o.Items = append(o.Items, line)
		}

		// Creation event: previous status is nil.
		history := OrderStatusHistory{
			OrderID:     o.ID,
			NewStatus:   OrderStatusPending,
			ChangedByID: byUser,
			Source:      HistorySourceSystem,
			Reason:      "Order created",
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create status history: %w", err)
		}

		if err := s.cartService.MarkConverted(tx, &c); err != nil {
			return err
		}

		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// freezeCartItem materializes one cart line into an immutable order line
func (s *Service) freezeCartItem(o *Order, ci *cart.CartItem, index cart.ModifierIndex) OrderItem {
	frozen := make(FrozenModifiers, 0, len(ci.SelectedModifiers))
	for _, sel := range ci.SelectedModifiers {
		mod, ok := index[sel.ModifierID]
		if !ok {
			// Unavailable at conversion time: contributes nothing,
			// so it is not frozen either.
			continue
		}
		qty := sel.Quantity
		if qty < 1 {
			qty = 1
		}
		frozen = append(frozen, FrozenModifier{
			ModifierID: mod.ID,
			Name:       mod.Name,
			Price:      mod.Price,
			Quantity:   qty,
		})
	}

	name := fmt.Sprintf("menu item %d", ci.MenuItemID)
	if item, err := s.menuService.GetItem(ci.MenuItemID); err == nil {
		name = item.Name
	}

	return OrderItem{
		OrderID:         o.ID,
		MenuItemID:      ci.MenuItemID,
		Name:            name,
		Status:          OrderStatusPending,
		Quantity:        ci.Quantity,
		UnitPrice:       ci.UnitPrice,
		DiscountApplied: ci.DiscountApplied,
		Modifiers:       frozen,
		ModifierTotal:   ci.ModifierTotal,
		LineTotal:       ci.LineTotal,
		Notes:           ci.Notes,
	}
}

func (s *Service) resolveCartModifiers(c *cart.Cart) (cart.ModifierIndex, error) {
	seen := make(map[uint]struct{})
	var ids []uint
	for i := range c.Items {
		for _, id := range c.Items[i].ModifierIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	resolved, err := s.menuService.GetAvailableModifiers(ids)
	if err != nil {
		return nil, err
	}
	index := make(cart.ModifierIndex, len(resolved))
	for id, mod := range resolved {
		index[id] = mod
	}
	return index, nil
}

// TransitionTo moves an order through the guarded workflow. The status
// string may use either vocabulary. On a guard violation nothing is
// written; on success the canonical status and first-entry timestamp are
// persisted, one history row is appended and an event is broadcast (both
// best-effort).
func (s *Service) TransitionTo(ctx context.Context, orderID uint, newStatus string, byUser *uint, opts *TransitionOptions) (*Order, error) {
	target, err := NormalizeStatus(newStatus)
	if err != nil {
		return nil, err
	}

	var o Order
	var oldStatus OrderStatus

	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := dbutil.LockForUpdate(tx).First(&o, orderID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("order not found")
			}
			return fmt.Errorf("failed to load order: %w", err)
		}

		current := o.WorkflowOf()
		if !CanTransition(current, target) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current, target)
		}

		oldStatus = o.Status
		now := time.Now().UTC()
		o.applyEntryTimestamp(target, now)
		o.Status = CanonicalStatus(target)

		err = tx.Model(&o).Select(
			"status", "started_preparing_at", "ready_at", "completed_at", "cancelled_at",
		).Updates(map[string]interface{}{
			"status":               o.Status,
			"started_preparing_at": o.StartedPreparingAt,
			"ready_at":             o.ReadyAt,
			"completed_at":         o.CompletedAt,
			"cancelled_at":         o.CancelledAt,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to persist status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Audit and broadcast are availability-over-strict-auditability: a
	// failure in either never unwinds the committed status change.
	s.appendHistory(&o, &oldStatus, o.Status, byUser, HistorySourceTransition, opts)
	s.publisher.PublishStatusChanged(ctx, &o, oldStatus, o.Status, byUser)

	return &o, nil
}

// UpdateStatus is the unguarded administrative path. It writes any full
// enum value without consulting the transition table, keeps the timestamp
// bookkeeping, and marks its audit rows as overrides so they are
// distinguishable from guarded transitions.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, status OrderStatus, byUser *uint, reason string) (*Order, error) {
	var o Order
	var oldStatus OrderStatus

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := dbutil.LockForUpdate(tx).First(&o, orderID).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("order not found")
			}
			return fmt.Errorf("failed to load order: %w", err)
		}

		if _, ok := fullToWorkflow[status]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
		}

		oldStatus = o.Status
		now := time.Now().UTC()
		o.applyEntryTimestamp(fullToWorkflow[status], now)
		o.Status = status

		err = tx.Model(&o).Select(
			"status", "started_preparing_at", "ready_at", "completed_at", "cancelled_at",
		).Updates(map[string]interface{}{
			"status":               o.Status,
			"started_preparing_at": o.StartedPreparingAt,
			"ready_at":             o.ReadyAt,
			"completed_at":         o.CompletedAt,
			"cancelled_at":         o.CancelledAt,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to persist status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.appendHistory(&o, &oldStatus, o.Status, byUser, HistorySourceOverride, &TransitionOptions{Reason: reason})
	s.publisher.PublishStatusChanged(ctx, &o, oldStatus, o.Status, byUser)

	return &o, nil
}

// UpdateItemStatus moves one order item to a new full-enum status, with
// an override audit row on the owning order
func (s *Service) UpdateItemStatus(orderID, itemID uint, status OrderStatus, byUser *uint) error {
	if _, ok := fullToWorkflow[status]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	result := s.db.Model(&OrderItem{}).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update item status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order item not found")
	}

	history := OrderStatusHistory{
		OrderID:     orderID,
		NewStatus:   status,
		ChangedByID: byUser,
		Source:      HistorySourceOverride,
		Reason:      fmt.Sprintf("Item %d status updated", itemID),
	}
	if err := s.db.Create(&history).Error; err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Warn("failed to write item status history")
	}
	return nil
}

// appendHistory writes one audit row; failures are logged, never raised
func (s *Service) appendHistory(o *Order, previous *OrderStatus, newStatus OrderStatus, byUser *uint, source HistorySource, opts *TransitionOptions) {
	history := OrderStatusHistory{
		OrderID:        o.ID,
		PreviousStatus: previous,
		NewStatus:      newStatus,
		ChangedByID:    byUser,
		Source:         source,
	}
	if opts != nil {
		history.Reason = opts.Reason
		history.Notes = opts.Notes
		history.IPAddress = opts.IPAddress
		history.UserAgent = opts.UserAgent
	}

	if err := s.db.Create(&history).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_id":   o.ID,
			"new_status": newStatus,
		}).Warn("failed to write order status history")
	}
}

// CancelOrder cancels through the guarded workflow
func (s *Service) CancelOrder(ctx context.Context, orderID uint, reason string, byUser *uint) (*Order, error) {
	return s.TransitionTo(ctx, orderID, string(WorkflowCancelled), byUser, &TransitionOptions{Reason: reason})
}

// RecordRefund records a refund amount against the order
func (s *Service) RecordRefund(orderID uint, amount decimal.Decimal, byUser *uint) error {
	var o Order
	if err := s.db.First(&o, orderID).Error; err != nil {
		return fmt.Errorf("order not found: %w", err)
	}

	refund := amount.Round(2)
	if refund.IsNegative() || refund.GreaterThan(o.TotalAmount) {
		return ErrRefundExceedsTotal
	}

	o.RefundAmount = refund
	if err := s.db.Model(&o).Update("refund_amount", refund).Error; err != nil {
		return fmt.Errorf("failed to record refund: %w", err)
	}
	return nil
}

// GetOrder retrieves a single order with items and history
func (s *Service) GetOrder(id uint) (*Order, error) {
	var o Order
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&o, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}
	return &o, nil
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var o Order
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("order_number = ?", orderNumber).
		First(&o)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}
	return &o, nil
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(req *OrderListRequest) (*OrderListResponse, error) {
	var orders []Order
	var total int64

	query := s.db.Model(&Order{}).Preload("Items")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}
	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	query = query.Order(buildOrderClause(req.SortBy, req.SortOrder))

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetUserOrders retrieves orders for a specific user
func (s *Service) GetUserOrders(userID uint, page, limit int) (*OrderListResponse, error) {
	return s.GetOrders(&OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}
	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
