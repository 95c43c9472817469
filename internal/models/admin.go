package models

import "github.com/google/uuid"

// CreateHotelRequest represents a request to register a hotel
type CreateHotelRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// LegDefinition is one pickup/dropoff pair of a new trip
type LegDefinition struct {
	StartLocationID uuid.UUID `json:"startLocationId" validate:"required"`
	EndLocationID   uuid.UUID `json:"endLocationId" validate:"required"`
}

// CreateTripRequest represents a request to define a trip template
type CreateTripRequest struct {
	HotelID uuid.UUID        `json:"hotelId" validate:"required"`
	Name    string           `json:"name" validate:"required,max=200"`
	Legs    []LegDefinition  `json:"legs" validate:"required,min=1,dive"`
	Windows []ScheduleWindow `json:"windows" validate:"required,min=1,dive"`
}

// CreateShuttleRequest represents a request to register a vehicle
type CreateShuttleRequest struct {
	HotelID       uuid.UUID  `json:"hotelId" validate:"required"`
	VehicleNumber string     `json:"vehicleNumber" validate:"required,max=50"`
	TotalSeats    int        `json:"totalSeats" validate:"required,gt=0,lte=100"`
	DriverID      *uuid.UUID `json:"driverId,omitempty"`
}

// UpdateShuttleRequest toggles availability or the assigned driver
type UpdateShuttleRequest struct {
	Active      *bool      `json:"active,omitempty"`
	DriverID    *uuid.UUID `json:"driverId,omitempty"`
	ClearDriver bool       `json:"clearDriver,omitempty"`
}

// ScheduleTripInstanceRequest pre-creates a trip instance for a slot
type ScheduleTripInstanceRequest struct {
	TripID    uuid.UUID  `json:"tripId" validate:"required"`
	ShuttleID *uuid.UUID `json:"shuttleId,omitempty"`
	Date      string     `json:"date" validate:"required,datetime=2006-01-02"`
	Start     string     `json:"start" validate:"required,datetime=15:04"`
	End       string     `json:"end" validate:"required,datetime=15:04"`
}

// AssignShuttleRequest binds a provisional instance to a vehicle
type AssignShuttleRequest struct {
	ShuttleID uuid.UUID `json:"shuttleId" validate:"required"`
}

// CancelTripInstanceRequest represents an administrative cancellation
type CancelTripInstanceRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Reason string    `json:"reason" validate:"required,max=500"`
}
