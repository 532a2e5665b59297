// internal/domain/dining/service.go
package dining

import (
	"fmt"
	"time"

	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/pkg/dbutil"
	"gorm.io/gorm"
)

// Service handles table and reservation business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new dining service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateReservationRequest represents a reservation booking request
type CreateReservationRequest struct {
	TableID    uint      `json:"table_id" binding:"required"`
	GuestName  string    `json:"guest_name" binding:"required"`
	GuestPhone string    `json:"guest_phone"`
	PartySize  int       `json:"party_size" binding:"required,min=1"`
	StartsAt   time.Time `json:"starts_at" binding:"required"`
	Duration   int       `json:"duration_minutes"`
}

// GetTables lists active tables
func (s *Service) GetTables() ([]Table, error) {
	var tables []Table
	if err := s.db.Where("is_active = ?", true).Order("number asc").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve tables: %w", err)
	}
	return tables, nil
}

// GetTable retrieves a single table
func (s *Service) GetTable(id uint) (*Table, error) {
	var table Table
	if err := s.db.First(&table, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("table not found")
		}
		return nil, fmt.Errorf("failed to retrieve table: %w", err)
	}
	return &table, nil
}

// CreateReservation books a table after checking capacity and time conflicts.
// The table row is locked for the duration of the check so two concurrent
// bookings cannot both pass the overlap test.
func (s *Service) CreateReservation(userID *uint, req *CreateReservationRequest) (*Reservation, error) {
	duration := req.Duration
	if duration <= 0 {
		duration = 90
	}
	endsAt := req.StartsAt.Add(time.Duration(duration) * time.Minute)

	var reservation *Reservation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var table Table
		err := dbutil.LockForUpdate(tx).
			Where("id = ? AND is_active = ?", req.TableID, true).
			First(&table).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("table not found")
			}
			return fmt.Errorf("failed to load table: %w", err)
		}

		if req.PartySize > table.Capacity {
			return fmt.Errorf("party size %d exceeds table capacity %d", req.PartySize, table.Capacity)
		}

		var conflicts int64
		err = tx.Model(&Reservation{}).
			Where("table_id = ? AND status IN ? AND starts_at < ? AND ends_at > ?",
				req.TableID,
				[]ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusSeated},
				endsAt, req.StartsAt).
			Count(&conflicts).Error
		if err != nil {
			return fmt.Errorf("failed to check reservation conflicts: %w", err)
		}
		if conflicts > 0 {
			return fmt.Errorf("table %d is already reserved for that time", table.Number)
		}

		reservation = &Reservation{
			TableID:    req.TableID,
			UserID:     userID,
			GuestName:  req.GuestName,
			GuestPhone: req.GuestPhone,
			PartySize:  req.PartySize,
			StartsAt:   req.StartsAt,
			EndsAt:     endsAt,
			Status:     ReservationStatusPending,
		}
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// UpdateReservationStatus moves a reservation to a new status
func (s *Service) UpdateReservationStatus(id uint, status ReservationStatus) error {
	var reservation Reservation
	if err := s.db.First(&reservation, id).Error; err != nil {
		return fmt.Errorf("reservation not found: %w", err)
	}

	if reservation.IsTerminal() {
		return fmt.Errorf("reservation is already %s", reservation.Status)
	}

	return s.db.Model(&reservation).Update("status", status).Error
}

// GetReservations lists reservations for a given day
func (s *Service) GetReservations(day time.Time) ([]Reservation, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var reservations []Reservation
	err := s.db.Preload("Table").
		Where("starts_at >= ? AND starts_at < ?", start, end).
		Order("starts_at asc").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve reservations: %w", err)
	}
	return reservations, nil
}
