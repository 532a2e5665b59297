// internal/domain/menu/entity.go
package menu

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups menu items (appetizers, mains, drinks, ...)
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:100" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:120" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Items []MenuItem `gorm:"foreignKey:CategoryID" json:"items,omitempty"`
}

// MenuItem represents one orderable dish or drink
type MenuItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL    string          `gorm:"size:512" json:"image_url"`
	IsAvailable bool            `gorm:"index" json:"is_available"`
	PrepMinutes int             `gorm:"default:15" json:"prep_minutes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	Category       *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	ModifierGroups []ModifierGroup `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE" json:"modifier_groups,omitempty"`
}

// ModifierGroup bundles related modifiers for one menu item (size, toppings)
type ModifierGroup struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	MenuItemID uint   `gorm:"not null;index" json:"menu_item_id"`
	Name       string `gorm:"not null;size:100" json:"name"`
	MinSelect  int    `gorm:"default:0" json:"min_select"`
	MaxSelect  int    `gorm:"default:0" json:"max_select"` // 0 means unlimited
	Required   bool   `gorm:"default:false" json:"required"`

	Modifiers []Modifier `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"modifiers,omitempty"`
}

// Modifier is a priced add-on option. A negative price is a discount
// modifier (e.g. "no cheese -0.50").
type Modifier struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	GroupID     uint            `gorm:"not null;index" json:"group_id"`
	Name        string          `gorm:"not null;size:100" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	IsAvailable bool            `gorm:"index" json:"is_available"`
	SortOrder   int             `gorm:"default:0" json:"sort_order"`
}

// TableName overrides
func (Category) TableName() string      { return "menu_categories" }
func (MenuItem) TableName() string      { return "menu_items" }
func (ModifierGroup) TableName() string { return "modifier_groups" }
func (Modifier) TableName() string      { return "modifiers" }
