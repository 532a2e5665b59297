// internal/domain/cart/session.go
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const sessionCartTTL = 24 * time.Hour

// SessionCart is the guest-side cart: a denormalized item list stored in
// Redis with no server-side price snapshot. Prices are resolved at
// enrichment time against the current menu and can drift until the cart
// is merged into a DB cart at login.
type SessionCart struct {
	SessionKey     string            `json:"session_key"`
	Items          []SessionCartItem `json:"items"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

// SessionCartItem is one guest cart line: {id, quantity, modifiers?}
type SessionCartItem struct {
	MenuItemID uint              `json:"id"`
	Quantity   int               `json:"quantity"`
	Modifiers  SelectedModifiers `json:"modifiers,omitempty"`
}

// EnrichedSessionItem is a display-ready guest cart line with current
// menu names and prices resolved
type EnrichedSessionItem struct {
	MenuItemID    uint              `json:"menu_item_id"`
	Name          string            `json:"name"`
	Quantity      int               `json:"quantity"`
	UnitPrice     decimal.Decimal   `json:"unit_price"`
	Modifiers     SelectedModifiers `json:"modifiers,omitempty"`
	ModifierTotal decimal.Decimal   `json:"modifier_total"`
	LineTotal     decimal.Decimal   `json:"line_total"`
}

func sessionCartKey(sessionKey string) string {
	return fmt.Sprintf("cart:session:%s", sessionKey)
}

// GetSessionCart loads the guest cart, applying the inactivity window:
// a cart idle longer than the configured limit is cleared eagerly here
// rather than by a background sweep.
func (s *Service) GetSessionCart(ctx context.Context, sessionKey string) (*SessionCart, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key required for guest cart")
	}

	data, err := s.redisClient.Get(ctx, sessionCartKey(sessionKey)).Result()
	if err == redis.Nil {
		return emptySessionCart(sessionKey), nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session cart: %w", err)
	}

	var sc SessionCart
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return nil, fmt.Errorf("failed to decode session cart: %w", err)
	}

	if s.sessionExpired(&sc) {
		if err := s.redisClient.Del(ctx, sessionCartKey(sessionKey)).Err(); err != nil {
			return nil, fmt.Errorf("failed to clear expired session cart: %w", err)
		}
		return emptySessionCart(sessionKey), nil
	}

	return &sc, nil
}

func emptySessionCart(sessionKey string) *SessionCart {
	now := time.Now().UTC()
	return &SessionCart{
		SessionKey:     sessionKey,
		Items:          []SessionCartItem{},
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
	}
}

func (s *Service) sessionExpired(sc *SessionCart) bool {
	limit := s.config.Restaurant.CartInactivityLimit
	if limit <= 0 {
		return false
	}
	return time.Since(sc.LastActivityAt) > limit
}

// saveSessionCart persists the guest cart and refreshes its activity
// timestamp
func (s *Service) saveSessionCart(ctx context.Context, sc *SessionCart) error {
	now := time.Now().UTC()
	sc.UpdatedAt = now
	sc.LastActivityAt = now

	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode session cart: %w", err)
	}
	return s.redisClient.Set(ctx, sessionCartKey(sc.SessionKey), data, sessionCartTTL).Err()
}

// AddSessionItem adds a line to the guest cart, merging by signature
func (s *Service) AddSessionItem(ctx context.Context, sessionKey string, menuItemID uint, quantity int, modifiers SelectedModifiers) (*SessionCart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}

	sc, err := s.GetSessionCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	signature := ComputeSignature(menuItemID, modifiers)
	merged := false
	for i := range sc.Items {
		if ComputeSignature(sc.Items[i].MenuItemID, sc.Items[i].Modifiers) == signature {
			sc.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		sc.Items = append(sc.Items, SessionCartItem{
			MenuItemID: menuItemID,
			Quantity:   quantity,
			Modifiers:  normalizedModifiers(modifiers),
		})
	}

	if err := s.saveSessionCart(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// UpdateSessionItem sets a line's quantity by signature; zero removes it
func (s *Service) UpdateSessionItem(ctx context.Context, sessionKey string, menuItemID uint, modifiers SelectedModifiers, quantity int) (*SessionCart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative")
	}

	sc, err := s.GetSessionCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	signature := ComputeSignature(menuItemID, modifiers)
	found := false
	for i := range sc.Items {
		if ComputeSignature(sc.Items[i].MenuItemID, sc.Items[i].Modifiers) != signature {
			continue
		}
		found = true
		if quantity == 0 {
			sc.Items = append(sc.Items[:i], sc.Items[i+1:]...)
		} else {
			sc.Items[i].Quantity = quantity
		}
		break
	}
	if !found {
		return nil, fmt.Errorf("item not found in cart")
	}

	if err := s.saveSessionCart(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// ClearSessionCart removes the guest cart entirely
func (s *Service) ClearSessionCart(ctx context.Context, sessionKey string) error {
	return s.redisClient.Del(ctx, sessionCartKey(sessionKey)).Err()
}

// EnrichSessionCart resolves current menu names and prices for a guest
// cart. Lines whose menu item has disappeared or gone unavailable are
// silently omitted; unknown modifiers contribute nothing.
func (s *Service) EnrichSessionCart(ctx context.Context, sc *SessionCart) ([]EnrichedSessionItem, decimal.Decimal, error) {
	ids := make([]uint, 0, len(sc.Items))
	for _, item := range sc.Items {
		ids = append(ids, item.MenuItemID)
	}

	menuItems, err := s.menuService.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	var modifierIDs []uint
	seen := make(map[uint]struct{})
	for _, item := range sc.Items {
		for _, m := range item.Modifiers {
			if _, ok := seen[m.ModifierID]; ok {
				continue
			}
			seen[m.ModifierID] = struct{}{}
			modifierIDs = append(modifierIDs, m.ModifierID)
		}
	}
	modifiers, err := s.menuService.GetAvailableModifiers(modifierIDs)
	if err != nil {
		return nil, decimal.Zero, err
	}

	enriched := make([]EnrichedSessionItem, 0, len(sc.Items))
	subtotal := decimal.Zero
	for _, item := range sc.Items {
		mi, ok := menuItems[item.MenuItemID]
		if !ok || !mi.IsAvailable {
			continue
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		modifierTotal := decimal.Zero
		for _, sel := range normalizedModifiers(item.Modifiers) {
			mod, ok := modifiers[sel.ModifierID]
			if !ok {
				continue
			}
			modifierTotal = modifierTotal.Add(
				mod.Price.Mul(decimal.NewFromInt(int64(sel.Quantity))).Mul(qty).Round(2))
		}

		lineTotal := mi.Price.Mul(qty).Add(modifierTotal).Round(2)
		enriched = append(enriched, EnrichedSessionItem{
			MenuItemID:    item.MenuItemID,
			Name:          mi.Name,
			Quantity:      item.Quantity,
			UnitPrice:     mi.Price,
			Modifiers:     item.Modifiers,
			ModifierTotal: modifierTotal.Round(2),
			LineTotal:     lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	return enriched, subtotal.Round(2), nil
}

// TouchSession refreshes the guest cart's activity timestamp without
// changing its contents
func (s *Service) TouchSession(ctx context.Context, sessionKey string) error {
	sc, err := s.GetSessionCart(ctx, sessionKey)
	if err != nil {
		return err
	}
	if len(sc.Items) == 0 {
		return nil
	}
	return s.saveSessionCart(ctx, sc)
}
