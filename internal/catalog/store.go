package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

var _ allocator.Catalog = (*Store)(nil)

// Store keeps hotels, trips with their routes, and shuttles through gorm
type Store struct {
	db *gorm.DB
}

// NewStore creates a new catalog store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Hotel Operations ---

func (s *Store) CreateHotel(ctx context.Context, h *models.Hotel) error {
	rec := &hotelRecord{ID: h.ID, Name: h.Name, CreatedAt: h.CreatedAt}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create hotel: %w", err)
	}
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id uuid.UUID) (*models.Hotel, error) {
	var rec hotelRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, notFound(err, "hotel", id, "failed to get hotel")
	}
	return toHotel(&rec), nil
}

// --- Trip Operations ---

// CreateTrip stores the trip and its routes in one transaction
func (s *Store) CreateTrip(ctx context.Context, t *models.Trip) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", t.HotelID).First(&hotelRecord{}).Error; err != nil {
			return notFound(err, "hotel", t.HotelID, "failed to check hotel")
		}
		if err := tx.Create(fromTrip(t)).Error; err != nil {
			return fmt.Errorf("failed to create trip: %w", err)
		}
		return nil
	})
}

func (s *Store) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var rec tripRecord
	err := s.db.WithContext(ctx).
		Preload("Routes", orderedRoutes).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, notFound(err, "trip", id, "failed to get trip")
	}
	return toTrip(&rec), nil
}

func (s *Store) ListTrips(ctx context.Context, hotelID uuid.UUID) ([]models.Trip, error) {
	var recs []tripRecord
	err := s.db.WithContext(ctx).
		Preload("Routes", orderedRoutes).
		Where("hotel_id = ?", hotelID).
		Order("name").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	trips := make([]models.Trip, 0, len(recs))
	for i := range recs {
		trips = append(trips, *toTrip(&recs[i]))
	}
	return trips, nil
}

// DeleteTrip removes the trip and its routes
func (s *Store) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trip_id = ?", id).Delete(&routeRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete routes: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&tripRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete trip: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFoundError{Resource: "trip", ID: id.String()}
		}
		return nil
	})
}

// --- Shuttle Operations ---

// CreateShuttle refuses a vehicle number already registered at the hotel
func (s *Store) CreateShuttle(ctx context.Context, sh *models.Shuttle) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", sh.HotelID).First(&hotelRecord{}).Error; err != nil {
			return notFound(err, "hotel", sh.HotelID, "failed to check hotel")
		}

		var count int64
		err := tx.Model(&shuttleRecord{}).
			Where("hotel_id = ? AND vehicle_number = ?", sh.HotelID, sh.VehicleNumber).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check vehicle number: %w", err)
		}
		if count > 0 {
			return vehicleConflict(sh.VehicleNumber, nil)
		}

		if err := tx.Create(fromShuttle(sh)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return vehicleConflict(sh.VehicleNumber, err)
			}
			return fmt.Errorf("failed to create shuttle: %w", err)
		}
		return nil
	})
}

// UpdateShuttle writes the mutable shuttle fields
func (s *Store) UpdateShuttle(ctx context.Context, sh *models.Shuttle) error {
	updatedAt := sh.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	res := s.db.WithContext(ctx).
		Model(&shuttleRecord{}).
		Where("id = ?", sh.ID).
		Updates(map[string]any{
			"total_seats": sh.TotalSeats,
			"active":      sh.Active,
			"driver_id":   sh.DriverID,
			"updated_at":  updatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update shuttle: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundError{Resource: "shuttle", ID: sh.ID.String()}
	}
	return nil
}

func (s *Store) GetShuttle(ctx context.Context, id uuid.UUID) (*models.Shuttle, error) {
	var rec shuttleRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, notFound(err, "shuttle", id, "failed to get shuttle")
	}
	sh := toShuttle(&rec)
	return &sh, nil
}

func (s *Store) ListShuttles(ctx context.Context, hotelID uuid.UUID, activeOnly bool) ([]models.Shuttle, error) {
	q := s.db.WithContext(ctx).Where("hotel_id = ?", hotelID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var recs []shuttleRecord
	if err := q.Order("vehicle_number").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list shuttles: %w", err)
	}

	shuttles := make([]models.Shuttle, 0, len(recs))
	for i := range recs {
		shuttles = append(shuttles, toShuttle(&recs[i]))
	}
	return shuttles, nil
}

func orderedRoutes(db *gorm.DB) *gorm.DB {
	return db.Order("order_index")
}

func notFound(err error, resource string, id uuid.UUID, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFoundError{Resource: resource, ID: id.String()}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func vehicleConflict(vehicle string, err error) error {
	return apperrors.ConflictError{
		Resource: "shuttle",
		Msg:      fmt.Sprintf("vehicle number %s already registered", vehicle),
		Err:      err,
	}
}
