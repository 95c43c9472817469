package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TripInstanceStatus string

const (
	TripInstanceStatusScheduled  TripInstanceStatus = "SCHEDULED"
	TripInstanceStatusInProgress TripInstanceStatus = "IN_PROGRESS"
	TripInstanceStatusCompleted  TripInstanceStatus = "COMPLETED"
	TripInstanceStatusCancelled  TripInstanceStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed
func (s TripInstanceStatus) IsTerminal() bool {
	return s == TripInstanceStatusCompleted || s == TripInstanceStatusCancelled
}

// TripInstance is one scheduled occurrence of a trip
type TripInstance struct {
	ID              uuid.UUID          `json:"id"`
	TripID          uuid.UUID          `json:"tripId"`
	HotelID         uuid.UUID          `json:"hotelId"`
	ShuttleID       *uuid.UUID         `json:"shuttleId,omitempty"`
	Ordinal         int                `json:"ordinal"`
	ScheduledDate   string             `json:"scheduledDate"`
	StartTime       string             `json:"scheduledStartTime"`
	EndTime         string             `json:"scheduledEndTime"`
	Status          TripInstanceStatus `json:"status"`
	BookingIDs      []uuid.UUID        `json:"bookingIds"`
	Legs            []RouteInstance    `json:"legs"`
	Version         int64              `json:"version"`
	ActualStartTime *time.Time         `json:"actualStartTime,omitempty"`
	ActualEndTime   *time.Time         `json:"actualEndTime,omitempty"`
	CancelledBy     *uuid.UUID         `json:"cancelledBy,omitempty"`
	CancelReason    string             `json:"cancelReason,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Slot returns the scheduled window of the instance
func (t *TripInstance) Slot() Slot {
	return Slot{Date: t.ScheduledDate, Start: t.StartTime, End: t.EndTime}
}

// IsProvisional reports whether the instance is still waiting for a shuttle
func (t *TripInstance) IsProvisional() bool {
	return t.ShuttleID == nil
}

// SlotKey is the uniqueness key of the instance within its slot
func (t *TripInstance) SlotKey() string {
	if t.ShuttleID != nil {
		return ShuttleSlotKey(*t.ShuttleID)
	}
	return PendingSlotKey(t.HotelID, t.Ordinal)
}

// HasBooking reports whether the booking id is already recorded
func (t *TripInstance) HasBooking(id uuid.UUID) bool {
	for _, b := range t.BookingIDs {
		if b == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to mutate
func (t *TripInstance) Clone() *TripInstance {
	c := *t
	c.BookingIDs = append([]uuid.UUID(nil), t.BookingIDs...)
	c.Legs = append([]RouteInstance(nil), t.Legs...)
	if t.ShuttleID != nil {
		id := *t.ShuttleID
		c.ShuttleID = &id
	}
	return &c
}

func ShuttleSlotKey(shuttleID uuid.UUID) string {
	return "shuttle:" + shuttleID.String()
}

func PendingSlotKey(hotelID uuid.UUID, ordinal int) string {
	return fmt.Sprintf("pending:%s:%d", hotelID, ordinal)
}

// RouteInstance is the per-leg occupancy ledger of a trip instance
type RouteInstance struct {
	ID             uuid.UUID  `json:"id"`
	TripInstanceID uuid.UUID  `json:"tripInstanceId"`
	RouteID        uuid.UUID  `json:"routeId"`
	OrderIndex     int        `json:"orderIndex"`
	SeatsOccupied  int        `json:"seatsOccupied"`
	SeatHeld       int        `json:"seatHeld"`
	Completed      bool       `json:"completed"`
	ETA            *time.Time `json:"eta,omitempty"`
}

// Used returns committed plus held seats on the leg
func (r RouteInstance) Used() int {
	return r.SeatsOccupied + r.SeatHeld
}

// InstanceFilter selects trip instances for manifests and dashboards
type InstanceFilter struct {
	HotelID   *uuid.UUID
	TripID    *uuid.UUID
	ShuttleID *uuid.UUID
	Date      string
}

// MaxUsed returns the highest committed plus held count over legs [from, to].
// A passenger keeps one seat for the whole range, so legs are never summed.
func (t *TripInstance) MaxUsed(from, to int) int {
	peak := 0
	for _, leg := range t.Legs {
		if leg.OrderIndex < from || leg.OrderIndex > to {
			continue
		}
		if used := leg.Used(); used > peak {
			peak = used
		}
	}
	return peak
}

// PeakOccupancy is MaxUsed over the full route
func (t *TripInstance) PeakOccupancy() int {
	return t.MaxUsed(0, len(t.Legs)-1)
}

// Leg returns the route instance with the given order index
func (t *TripInstance) Leg(orderIndex int) (*RouteInstance, bool) {
	for i := range t.Legs {
		if t.Legs[i].OrderIndex == orderIndex {
			return &t.Legs[i], true
		}
	}
	return nil, false
}
