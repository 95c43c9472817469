package models

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityQuery asks for free seats of a trip in one slot
type AvailabilityQuery struct {
	TripID  uuid.UUID `json:"tripId"`
	Slot    Slot      `json:"slot"`
	FromLeg *int      `json:"fromLeg,omitempty"`
	ToLeg   *int      `json:"toLeg,omitempty"`
}

// ShuttleAvailability is the free capacity of one shuttle in a slot
type ShuttleAvailability struct {
	ShuttleID      uuid.UUID  `json:"shuttleId"`
	VehicleNumber  string     `json:"vehicleNumber"`
	TotalSeats     int        `json:"totalSeats"`
	UsedSeats      int        `json:"usedSeats"`
	AvailableSeats int        `json:"availableSeats"`
	TripInstanceID *uuid.UUID `json:"tripInstanceId,omitempty"`
}

// AvailabilityReport is the read-only result of findAvailability
type AvailabilityReport struct {
	TripID                 uuid.UUID             `json:"tripId"`
	Slot                   Slot                  `json:"slot"`
	FromLeg                int                   `json:"fromLeg"`
	ToLeg                  int                   `json:"toLeg"`
	TotalAvailableSeats    int                   `json:"totalAvailableSeats"`
	PerShuttleAvailability []ShuttleAvailability `json:"perShuttleAvailability"`
}

// LegOccupancy is one leg row of a trip instance snapshot
type LegOccupancy struct {
	OrderIndex    int        `json:"orderIndex"`
	SeatsOccupied int        `json:"seatsOccupied"`
	SeatHeld      int        `json:"seatHeld"`
	Completed     bool       `json:"completed"`
	ETA           *time.Time `json:"eta,omitempty"`
}

// TripInstanceSnapshot is the dashboard view of one trip instance
type TripInstanceSnapshot struct {
	TripInstanceID  uuid.UUID          `json:"tripInstanceId"`
	TripID          uuid.UUID          `json:"tripId"`
	ShuttleID       *uuid.UUID         `json:"shuttleId,omitempty"`
	Slot            Slot               `json:"slot"`
	Status          TripInstanceStatus `json:"status"`
	PerLegOccupancy []LegOccupancy     `json:"perLegOccupancy"`
	PeakOccupancy   int                `json:"peakOccupancy"`
	Capacity        int                `json:"capacity,omitempty"`
	BookingCount    int                `json:"bookingCount"`
	Version         int64              `json:"version"`
}

// DashboardStats aggregates one hotel day
type DashboardStats struct {
	HotelID            uuid.UUID                  `json:"hotelId"`
	Date               string                     `json:"date"`
	InstancesByStatus  map[TripInstanceStatus]int `json:"instancesByStatus"`
	BookingsByStatus   map[BookingStatus]int      `json:"bookingsByStatus"`
	PaymentsByStatus   map[PaymentStatus]int      `json:"paymentsByStatus"`
	SeatsHeld          int                        `json:"seatsHeld"`
	SeatsOccupied      int                        `json:"seatsOccupied"`
	PeakOccupancySum   int                        `json:"peakOccupancySum"`
	UnassignedInstance int                        `json:"unassignedInstances"`
	ActiveTrips        []TripInstanceSnapshot     `json:"activeTrips"`
}
