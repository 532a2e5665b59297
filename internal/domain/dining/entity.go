// internal/domain/dining/entity.go
package dining

import (
	"time"

	"gorm.io/gorm"
)

// ReservationStatus represents the reservation status
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusSeated    ReservationStatus = "seated"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusNoShow    ReservationStatus = "no_show"
)

// Table represents a physical dining table
type Table struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Number    int            `gorm:"uniqueIndex;not null" json:"number"`
	Capacity  int            `gorm:"not null;default:2" json:"capacity"`
	Section   string         `gorm:"size:50" json:"section"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Reservation represents a table booking
type Reservation struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	TableID    uint              `gorm:"not null;index" json:"table_id"`
	UserID     *uint             `gorm:"index" json:"user_id"` // Nullable for walk-in/phone bookings
	GuestName  string            `gorm:"size:200" json:"guest_name"`
	GuestPhone string            `gorm:"size:20" json:"guest_phone"`
	PartySize  int               `gorm:"not null;default:2" json:"party_size"`
	StartsAt   time.Time         `gorm:"not null;index" json:"starts_at"`
	EndsAt     time.Time         `gorm:"not null" json:"ends_at"`
	Status     ReservationStatus `gorm:"not null;default:'pending'" json:"status"`
	Notes      string            `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	DeletedAt  gorm.DeletedAt    `gorm:"index" json:"-"`

	Table *Table `gorm:"foreignKey:TableID" json:"table,omitempty"`
}

// TableName overrides
func (Table) TableName() string       { return "dining_tables" }
func (Reservation) TableName() string { return "reservations" }

// IsTerminal reports whether the reservation can no longer change
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusCompleted ||
		r.Status == ReservationStatusCancelled ||
		r.Status == ReservationStatusNoShow
}
