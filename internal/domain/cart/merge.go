// internal/domain/cart/merge.go
package cart

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/restaurant-backend/internal/pkg/dbutil"
	"gorm.io/gorm"
)

// MergeStrategy decides how matching lines combine
type MergeStrategy string

const (
	// MergeIncrement adds source quantity to the destination line.
	// Default at login-merge time.
	MergeIncrement MergeStrategy = "increment"
	// MergeReplace overwrites the destination quantity with the source's.
	MergeReplace MergeStrategy = "replace"
)

// MergeSummary reports what a merge did
type MergeSummary struct {
	Moved   int `json:"moved"`   // source lines processed
	Merged  int `json:"merged"`  // combined into an existing destination line
	Created int `json:"created"` // new destination lines
}

// MergeCarts folds the source cart into the destination cart inside one
// transaction. Matching lines (equal signatures) combine per strategy;
// unmatched source lines are copied with their captured prices, not
// re-priced from the menu. The source keeps its row for audit continuity:
// its items are deleted and it is marked abandoned.
func (s *Service) MergeCarts(sourceID, destinationID uint, strategy MergeStrategy) (*MergeSummary, *Cart, error) {
	if strategy == "" {
		strategy = MergeIncrement
	}
	if strategy != MergeIncrement && strategy != MergeReplace {
		return nil, nil, fmt.Errorf("unknown merge strategy %q", strategy)
	}

	// Redundant merge-on-login calls can pass the same cart twice.
	if sourceID == destinationID {
		var c Cart
		if err := s.db.Preload("Items").First(&c, destinationID).Error; err != nil {
			return nil, nil, fmt.Errorf("cart not found: %w", err)
		}
		return &MergeSummary{}, &c, nil
	}

	var summary MergeSummary
	var destination *Cart

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Lock both rows; a concurrent checkout must not convert the
		// source mid-merge. Lock in id order to avoid deadlocks.
		firstID, secondID := sourceID, destinationID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		var locked []Cart
		if err := dbutil.LockForUpdate(tx).
			Where("id IN ?", []uint{firstID, secondID}).
			Find(&locked).Error; err != nil {
			return fmt.Errorf("failed to lock carts: %w", err)
		}
		if len(locked) != 2 {
			return fmt.Errorf("cart not found")
		}

		var source, dest Cart
		for _, c := range locked {
			if c.ID == sourceID {
				source = c
			} else {
				dest = c
			}
		}

		if !dest.IsActive() {
			return ErrCartNotActive
		}
		// A converted source has already been checked out; merging it
		// would duplicate its lines and overwrite a terminal status.
		if !source.IsActive() {
			return ErrCartNotActive
		}

		if err := tx.Where("cart_id = ?", source.ID).Find(&source.Items).Error; err != nil {
			return fmt.Errorf("failed to load source items: %w", err)
		}
		if err := tx.Where("cart_id = ?", dest.ID).Find(&dest.Items).Error; err != nil {
			return fmt.Errorf("failed to load destination items: %w", err)
		}

		// Index destination line positions by signature.
		index := make(map[LineSignature]int, len(dest.Items))
		for i := range dest.Items {
			index[dest.Items[i].Signature()] = i
		}

		for i := range source.Items {
			src := &source.Items[i]
			summary.Moved++

			if pos, ok := index[src.Signature()]; ok {
				existing := &dest.Items[pos]
				switch strategy {
				case MergeIncrement:
					existing.Quantity += src.Quantity
				case MergeReplace:
					existing.Quantity = src.Quantity
				}
				if err := tx.Save(existing).Error; err != nil {
					return fmt.Errorf("failed to merge cart item: %w", err)
				}
				summary.Merged++
				continue
			}

			line := CartItem{
				CartID:            dest.ID,
				MenuItemID:        src.MenuItemID,
				Quantity:          src.Quantity,
				UnitPrice:         src.UnitPrice,
				OriginalPrice:     src.OriginalPrice,
				DiscountApplied:   src.DiscountApplied,
				SelectedModifiers: src.SelectedModifiers,
				Notes:             src.Notes,
			}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to copy cart item: %w", err)
			}
			dest.Items = append(dest.Items, line)
			index[line.Signature()] = len(dest.Items) - 1
			summary.Created++
		}

		// Cart-level fields merge conservatively: never clobber a table
		// or non-default delivery option already on the destination.
		if dest.TableID == nil && source.TableID != nil && source.DeliveryOption == DeliveryDineIn {
			if dest.DeliveryOption == DeliveryPickup {
				dest.DeliveryOption = DeliveryDineIn
				dest.TableID = source.TableID
			}
		} else if dest.DeliveryOption == DeliveryPickup && source.DeliveryOption == DeliveryDelivery {
			dest.DeliveryOption = DeliveryDelivery
			dest.DeliveryFee = source.DeliveryFee
		}

		if err := s.recalculate(tx, &dest, true); err != nil {
			return err
		}

		// Empty out the source but keep its row.
		if err := tx.Where("cart_id = ?", source.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear source cart: %w", err)
		}
		if err := tx.Model(&source).Update("status", CartStatusAbandoned).Error; err != nil {
			return fmt.Errorf("failed to abandon source cart: %w", err)
		}

		destination = &dest
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &summary, destination, nil
}

// MergeGuestCartToUser folds a guest's Redis session cart into the user's
// active DB cart at login. Prices are captured at this moment: the new
// CartItem snapshots whatever the menu charges now, which is what the
// guest last saw.
func (s *Service) MergeGuestCartToUser(ctx context.Context, userID uint, sessionKey string) (*MergeSummary, error) {
	sc, err := s.GetSessionCart(ctx, sessionKey)
	if err != nil || len(sc.Items) == 0 {
		return &MergeSummary{}, err
	}

	ids := make([]uint, 0, len(sc.Items))
	for _, item := range sc.Items {
		ids = append(ids, item.MenuItemID)
	}
	menuItems, err := s.menuService.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var summary MergeSummary
	err = s.db.Transaction(func(tx *gorm.DB) error {
		dest, err := s.lockActiveCart(tx, &userID, "")
		if err == gorm.ErrRecordNotFound {
			dest = NewCart(&userID, "")
			if err := tx.Create(dest).Error; err != nil {
				return fmt.Errorf("failed to create cart: %w", err)
			}
		} else if err != nil {
			return err
		}

		index := make(map[LineSignature]int, len(dest.Items))
		for i := range dest.Items {
			index[dest.Items[i].Signature()] = i
		}

		for _, guestItem := range sc.Items {
			mi, ok := menuItems[guestItem.MenuItemID]
			if !ok || !mi.IsAvailable {
				// Catalog changed under the guest: drop the line.
				continue
			}
			summary.Moved++

			signature := ComputeSignature(guestItem.MenuItemID, guestItem.Modifiers)
			if pos, ok := index[signature]; ok {
				existing := &dest.Items[pos]
				existing.Quantity += guestItem.Quantity
				if err := tx.Save(existing).Error; err != nil {
					return fmt.Errorf("failed to merge cart item: %w", err)
				}
				summary.Merged++
				continue
			}

			line := CartItem{
				CartID:            dest.ID,
				MenuItemID:        guestItem.MenuItemID,
				Quantity:          guestItem.Quantity,
				UnitPrice:         mi.Price,
				OriginalPrice:     mi.Price,
				SelectedModifiers: normalizedModifiers(guestItem.Modifiers),
			}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to create cart item: %w", err)
			}
			dest.Items = append(dest.Items, line)
			index[signature] = len(dest.Items) - 1
			summary.Created++
		}

		return s.recalculate(tx, dest, true)
	})
	if err != nil {
		return nil, err
	}

	if err := s.ClearSessionCart(ctx, sessionKey); err != nil {
		// The merge already committed; a leftover session cart only
		// costs a redundant merge next login.
		logrus.WithError(err).WithField("session_key", sessionKey).
			Warn("failed to clear session cart after merge")
	}

	return &summary, nil
}
