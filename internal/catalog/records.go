package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

type hotelRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:200;not null"`
	CreatedAt time.Time
}

func (hotelRecord) TableName() string { return "hotels" }

type tripRecord struct {
	ID        uuid.UUID               `gorm:"type:uuid;primaryKey"`
	HotelID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	Name      string                  `gorm:"size:200;not null"`
	Windows   []models.ScheduleWindow `gorm:"serializer:json;not null"`
	Routes    []routeRecord           `gorm:"foreignKey:TripID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (tripRecord) TableName() string { return "trips" }

type routeRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TripID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_route_order"`
	OrderIndex      int       `gorm:"not null;uniqueIndex:idx_route_order"`
	StartLocationID uuid.UUID `gorm:"type:uuid;not null"`
	EndLocationID   uuid.UUID `gorm:"type:uuid;not null"`
}

func (routeRecord) TableName() string { return "routes" }

type shuttleRecord struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	HotelID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_shuttle_vehicle"`
	VehicleNumber string     `gorm:"size:50;not null;uniqueIndex:idx_shuttle_vehicle"`
	TotalSeats    int        `gorm:"not null"`
	Active        bool       `gorm:"not null"`
	DriverID      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (shuttleRecord) TableName() string { return "shuttles" }

func toHotel(r *hotelRecord) *models.Hotel {
	return &models.Hotel{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func toTrip(r *tripRecord) *models.Trip {
	t := &models.Trip{
		ID:        r.ID,
		HotelID:   r.HotelID,
		Name:      r.Name,
		Windows:   append([]models.ScheduleWindow(nil), r.Windows...),
		CreatedAt: r.CreatedAt,
	}
	for _, route := range r.Routes {
		t.Legs = append(t.Legs, models.Route{
			ID:              route.ID,
			TripID:          route.TripID,
			OrderIndex:      route.OrderIndex,
			StartLocationID: route.StartLocationID,
			EndLocationID:   route.EndLocationID,
		})
	}
	return t
}

func fromTrip(t *models.Trip) *tripRecord {
	r := &tripRecord{
		ID:        t.ID,
		HotelID:   t.HotelID,
		Name:      t.Name,
		Windows:   t.Windows,
		CreatedAt: t.CreatedAt,
	}
	for _, leg := range t.Legs {
		r.Routes = append(r.Routes, routeRecord{
			ID:              leg.ID,
			TripID:          t.ID,
			OrderIndex:      leg.OrderIndex,
			StartLocationID: leg.StartLocationID,
			EndLocationID:   leg.EndLocationID,
		})
	}
	return r
}

func toShuttle(r *shuttleRecord) models.Shuttle {
	return models.Shuttle{
		ID:            r.ID,
		HotelID:       r.HotelID,
		VehicleNumber: r.VehicleNumber,
		TotalSeats:    r.TotalSeats,
		Active:        r.Active,
		DriverID:      r.DriverID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func fromShuttle(s *models.Shuttle) *shuttleRecord {
	return &shuttleRecord{
		ID:            s.ID,
		HotelID:       s.HotelID,
		VehicleNumber: s.VehicleNumber,
		TotalSeats:    s.TotalSeats,
		Active:        s.Active,
		DriverID:      s.DriverID,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
