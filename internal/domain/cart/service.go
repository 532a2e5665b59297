// internal/domain/cart/service.go
package cart

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/menu"
	"github.com/your-org/restaurant-backend/internal/pkg/dbutil"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	menuService *menu.Service
	engine      *TotalsEngine
}

// NewService creates a new cart service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		menuService: menu.NewService(db, redisClient, cfg),
		engine:      NewTotalsEngine(cfg.Restaurant.DefaultTaxRate),
	}
}

// AddItemRequest represents an add-to-cart request
type AddItemRequest struct {
	MenuItemID uint              `json:"menu_item_id" binding:"required"`
	Quantity   int               `json:"quantity" binding:"required,min=1"`
	Modifiers  SelectedModifiers `json:"modifiers"`
	Notes      string            `json:"notes"`
}

// UpdateItemRequest represents a quantity update. Zero removes the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// GetOrCreateActiveCart returns the single active cart for the owner,
// creating one if none exists. The lookup locks matching rows so two
// concurrent requests cannot both decide to create.
func (s *Service) GetOrCreateActiveCart(userID *uint, sessionKey string) (*Cart, error) {
	var result *Cart
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.lockActiveCart(tx, userID, sessionKey)
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if err == gorm.ErrRecordNotFound {
			c = NewCart(userID, sessionKey)
			if err := tx.Create(c).Error; err != nil {
				return fmt.Errorf("failed to create cart: %w", err)
			}
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockActiveCart fetches the owner's active cart FOR UPDATE within tx
func (s *Service) lockActiveCart(tx *gorm.DB, userID *uint, sessionKey string) (*Cart, error) {
	query := dbutil.LockForUpdate(tx).
		Preload("Items").
		Where("status = ?", CartStatusActive)

	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		if sessionKey == "" {
			return nil, fmt.Errorf("session key required for guest cart")
		}
		query = query.Where("session_key = ?", sessionKey)
	}

	var c Cart
	if err := query.Order("created_at desc").First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCart retrieves the owner's active cart without creating one
func (s *Service) GetCart(userID *uint, sessionKey string) (*Cart, error) {
	query := s.db.Preload("Items").Where("status = ?", CartStatusActive)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		if sessionKey == "" {
			return nil, fmt.Errorf("session key required for guest cart")
		}
		query = query.Where("session_key = ?", sessionKey)
	}

	var c Cart
	if err := query.Order("created_at desc").First(&c).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve cart: %w", err)
	}
	return &c, nil
}

// AddItem adds a line to the owner's active cart, merging into an
// existing line when the signature matches. The menu price is snapshotted
// onto the new line at add time.
func (s *Service) AddItem(userID *uint, sessionKey string, req *AddItemRequest) (*Cart, error) {
	item, err := s.menuService.GetItem(req.MenuItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsAvailable {
		return nil, fmt.Errorf("menu item %q is not available", item.Name)
	}

	var result *Cart
	err = s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.lockActiveCart(tx, userID, sessionKey)
		if err == gorm.ErrRecordNotFound {
			c = NewCart(userID, sessionKey)
			if err := tx.Create(c).Error; err != nil {
				return fmt.Errorf("failed to create cart: %w", err)
			}
		} else if err != nil {
			return err
		}

		signature := ComputeSignature(req.MenuItemID, req.Modifiers)
		merged := false
		for i := range c.Items {
			if c.Items[i].Signature() == signature {
				c.Items[i].Quantity += req.Quantity
				if err := tx.Save(&c.Items[i]).Error; err != nil {
					return fmt.Errorf("failed to update cart item: %w", err)
				}
				merged = true
				break
			}
		}

		if !merged {
			line := CartItem{
				CartID:            c.ID,
				MenuItemID:        req.MenuItemID,
				Quantity:          req.Quantity,
				UnitPrice:         item.Price,
				OriginalPrice:     item.Price,
				SelectedModifiers: normalizedModifiers(req.Modifiers),
				Notes:             req.Notes,
			}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to create cart item: %w", err)
			}
			c.Items = append(c.Items, line)
		}

		if err := s.recalculate(tx, c, true); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateItem changes a line's quantity; zero removes the line
func (s *Service) UpdateItem(userID *uint, sessionKey string, itemID uint, req *UpdateItemRequest) (*Cart, error) {
	if req.Quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative")
	}

	var result *Cart
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.lockActiveCart(tx, userID, sessionKey)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrCartNotActive
			}
			return err
		}

		found := false
		for i := range c.Items {
			if c.Items[i].ID != itemID {
				continue
			}
			found = true
			if req.Quantity == 0 {
				if err := tx.Delete(&c.Items[i]).Error; err != nil {
					return fmt.Errorf("failed to remove cart item: %w", err)
				}
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = req.Quantity
				if err := tx.Save(&c.Items[i]).Error; err != nil {
					return fmt.Errorf("failed to update cart item: %w", err)
				}
			}
			break
		}
		if !found {
			return fmt.Errorf("item not found in cart")
		}

		if err := s.recalculate(tx, c, true); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveItem removes a line from the cart
func (s *Service) RemoveItem(userID *uint, sessionKey string, itemID uint) (*Cart, error) {
	return s.UpdateItem(userID, sessionKey, itemID, &UpdateItemRequest{Quantity: 0})
}

// SetDeliveryOption switches fulfillment mode and applies the matching
// fees from configuration. Dine-in requires a table; pickup and delivery
// clear it.
func (s *Service) SetDeliveryOption(userID *uint, sessionKey string, option DeliveryOption, tableID *uint) (*Cart, error) {
	var result *Cart
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.lockActiveCart(tx, userID, sessionKey)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrCartNotActive
			}
			return err
		}

		c.DeliveryOption = option
		switch option {
		case DeliveryDineIn:
			c.TableID = tableID
			c.DeliveryFee = decimal.Zero
			c.ServiceFee = decimal.Zero // recalculated below from the rate
		case DeliveryPickup:
			c.TableID = nil
			c.DeliveryFee = decimal.Zero
			c.ServiceFee = decimal.Zero
		case DeliveryDelivery:
			c.TableID = nil
			c.DeliveryFee = s.config.Restaurant.DeliveryFee
			c.ServiceFee = decimal.Zero
		default:
			return fmt.Errorf("unknown delivery option %q", option)
		}

		if err := c.Validate(); err != nil {
			return err
		}

		if option == DeliveryDineIn && s.config.Restaurant.ServiceFeeRate.IsPositive() {
			preTax := c.Subtotal.Add(c.ModifierTotal)
			c.ServiceFee = preTax.Mul(s.config.Restaurant.ServiceFeeRate).Round(2)
		}

		if err := s.recalculate(tx, c, true); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetTip sets either a fixed tip amount or a percentage. Setting one
// clears the other; the totals engine derives the amount from the
// percentage on the next recompute.
func (s *Service) SetTip(userID *uint, sessionKey string, amount *decimal.Decimal, percentage *decimal.Decimal) (*Cart, error) {
	if amount != nil && percentage != nil {
		return nil, fmt.Errorf("tip amount and tip percentage are mutually exclusive")
	}

	var result *Cart
	err := s.db.Transaction(func(tx *gorm.DB) error {
		c, err := s.lockActiveCart(tx, userID, sessionKey)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrCartNotActive
			}
			return err
		}

		switch {
		case amount != nil:
			if amount.IsNegative() {
				return fmt.Errorf("tip amount cannot be negative")
			}
			c.TipAmount = amount.Round(2)
			c.TipPercentage = nil
		case percentage != nil:
			if percentage.IsNegative() {
				return fmt.Errorf("tip percentage cannot be negative")
			}
			c.TipPercentage = percentage
			c.TipAmount = decimal.Zero
		default:
			c.TipAmount = decimal.Zero
			c.TipPercentage = nil
		}

		if err := s.recalculate(tx, c, true); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Recalculate recomputes all derived monetary fields. With save=false the
// caller gets a preview and nothing is persisted.
func (s *Service) Recalculate(c *Cart, save bool) error {
	return s.recalculate(s.db, c, save)
}

func (s *Service) recalculate(tx *gorm.DB, c *Cart, save bool) error {
	index, err := s.resolveModifiers(c)
	if err != nil {
		return err
	}

	s.engine.Calculate(c, index)
	c.Touch()

	if !save {
		return nil
	}

	for i := range c.Items {
		if c.Items[i].ID == 0 {
			continue
		}
		err := tx.Model(&c.Items[i]).Select("quantity", "modifier_total", "line_total").
			Updates(map[string]interface{}{
				"quantity":       c.Items[i].Quantity,
				"modifier_total": c.Items[i].ModifierTotal,
				"line_total":     c.Items[i].LineTotal,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to persist cart item totals: %w", err)
		}
	}

	if err := tx.Save(c).Error; err != nil {
		return fmt.Errorf("failed to persist cart totals: %w", err)
	}
	return nil
}

// resolveModifiers builds the per-computation modifier index for a cart
func (s *Service) resolveModifiers(c *Cart) (ModifierIndex, error) {
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

	index := make(ModifierIndex, len(resolved))
	for id, mod := range resolved {
		index[id] = mod
	}
	return index, nil
}

// MarkConverted transitions the cart to converted. Called exactly once,
// when an order is created from it.
func (s *Service) MarkConverted(tx *gorm.DB, c *Cart) error {
	if !c.IsActive() {
		return ErrCartNotActive
	}
	c.Status = CartStatusConverted
	return tx.Model(c).Update("status", CartStatusConverted).Error
}

// ExpireStaleCarts marks active carts with no activity inside the
// configured window as abandoned. Called from the periodic sweep in
// cmd/api.
func (s *Service) ExpireStaleCarts() (int64, error) {
	cutoff := time.Now().UTC().Add(-s.config.Restaurant.CartInactivityLimit)
	// Batch update; hooks expect a loaded cart and must not run here.
	result := s.db.Session(&gorm.Session{SkipHooks: true}).
		Model(&Cart{}).
		Where("status = ? AND last_activity_at < ?", CartStatusActive, cutoff).
		Update("status", CartStatusAbandoned)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire stale carts: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logrus.WithField("count", result.RowsAffected).Info("expired stale carts")
	}
	return result.RowsAffected, nil
}
