// internal/domain/menu/service.go
package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/restaurant-backend/internal/config"
	"gorm.io/gorm"
)

const itemCacheTTL = 5 * time.Minute

// Service handles menu catalog reads. The cart and session layers treat
// this as a read-only, eventually-fresh price source.
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new menu service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// GetItem retrieves a single menu item with its modifier groups
func (s *Service) GetItem(id uint) (*MenuItem, error) {
	var item MenuItem
	err := s.db.Preload("Category").
		Preload("ModifierGroups.Modifiers").
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("menu item not found")
		}
		return nil, fmt.Errorf("failed to retrieve menu item: %w", err)
	}
	return &item, nil
}

// GetItems lists menu items, optionally filtered by category and availability
func (s *Service) GetItems(categoryID *uint, availableOnly bool) ([]MenuItem, error) {
	query := s.db.Preload("ModifierGroups.Modifiers").Order("name asc")
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}

	var items []MenuItem
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve menu items: %w", err)
	}
	return items, nil
}

// GetCategories lists active categories in display order
func (s *Service) GetCategories() ([]Category, error) {
	var categories []Category
	err := s.db.Where("is_active = ?", true).
		Order("sort_order asc, name asc").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	return categories, nil
}

// GetItemsByIDs batch-loads menu items, serving from the Redis cache when
// possible. Missing ids are simply absent from the result map.
func (s *Service) GetItemsByIDs(ctx context.Context, ids []uint) (map[uint]*MenuItem, error) {
	result := make(map[uint]*MenuItem, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var misses []uint
	for _, id := range ids {
		if item := s.cachedItem(ctx, id); item != nil {
			result[id] = item
		} else {
			misses = append(misses, id)
		}
	}

	if len(misses) > 0 {
		var items []MenuItem
		if err := s.db.Where("id IN ?", misses).Find(&items).Error; err != nil {
			return nil, fmt.Errorf("failed to load menu items: %w", err)
		}
		for i := range items {
			item := items[i]
			result[item.ID] = &item
			s.cacheItem(ctx, &item)
		}
	}

	return result, nil
}

// GetAvailableModifiers resolves modifier ids to currently-available
// modifiers. Unknown or unavailable ids are left out of the map; callers
// treat missing entries as zero-priced (the soft-skip policy).
func (s *Service) GetAvailableModifiers(ids []uint) (map[uint]*Modifier, error) {
	result := make(map[uint]*Modifier, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var modifiers []Modifier
	err := s.db.Where("id IN ? AND is_available = ?", ids, true).Find(&modifiers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load modifiers: %w", err)
	}

	for i := range modifiers {
		result[modifiers[i].ID] = &modifiers[i]
	}
	return result, nil
}

// SetAvailability toggles a menu item on or off the menu (86ing a dish)
func (s *Service) SetAvailability(id uint, available bool) error {
	result := s.db.Model(&MenuItem{}).Where("id = ?", id).Update("is_available", available)
	if result.Error != nil {
		return fmt.Errorf("failed to update availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("menu item not found")
	}
	s.invalidateItem(context.Background(), id)
	return nil
}

// Cache helpers

func (s *Service) cachedItem(ctx context.Context, id uint) *MenuItem {
	if s.redisClient == nil {
		return nil
	}
	val, err := s.redisClient.Get(ctx, itemCacheKey(id)).Result()
	if err != nil {
		return nil
	}
	var item MenuItem
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return nil
	}
	return &item
}

func (s *Service) cacheItem(ctx context.Context, item *MenuItem) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, itemCacheKey(item.ID), data, itemCacheTTL).Err(); err != nil {
		logrus.WithError(err).WithField("menu_item_id", item.ID).Debug("menu cache write failed")
	}
}

func (s *Service) invalidateItem(ctx context.Context, id uint) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, itemCacheKey(id)).Err(); err != nil {
		logrus.WithError(err).WithField("menu_item_id", id).Debug("menu cache invalidation failed")
	}
}

func itemCacheKey(id uint) string {
	return fmt.Sprintf("menu:item:%d", id)
}
