package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingCreated        EventType = "booking.created"
	EventBookingConfirmed      EventType = "booking.confirmed"
	EventBookingRejected       EventType = "booking.rejected"
	EventBookingCancelled      EventType = "booking.cancelled"
	EventBookingHoldExpired    EventType = "booking.hold_expired"
	EventBookingPaymentUpdated EventType = "booking.payment_updated"

	EventTripInstanceScheduled    EventType = "trip_instance.scheduled"
	EventTripInstanceShuttle      EventType = "trip_instance.shuttle_assigned"
	EventTripInstanceStarted      EventType = "trip_instance.started"
	EventTripInstanceLegCompleted EventType = "trip_instance.leg_completed"
	EventTripInstanceCompleted    EventType = "trip_instance.completed"
	EventTripInstanceCancelled    EventType = "trip_instance.cancelled"
)

// Event is published after every booking or trip instance transition
type Event struct {
	ID             uuid.UUID  `json:"id"`
	Type           EventType  `json:"type"`
	OccurredAt     time.Time  `json:"occurredAt"`
	HotelID        uuid.UUID  `json:"hotelId"`
	TripInstanceID uuid.UUID  `json:"tripInstanceId"`
	BookingID      *uuid.UUID `json:"bookingId,omitempty"`
	Status         string     `json:"status"`
	Booking        *Booking   `json:"booking,omitempty"`
}

// Key partitions events by booking, or by trip instance for instance events
func (e Event) Key() string {
	if e.BookingID != nil {
		return e.BookingID.String()
	}
	return e.TripInstanceID.String()
}

func NewBookingEvent(t EventType, b *Booking, at time.Time) Event {
	id := b.ID
	return Event{
		ID:             uuid.New(),
		Type:           t,
		OccurredAt:     at,
		HotelID:        b.HotelID,
		TripInstanceID: b.TripInstanceID,
		BookingID:      &id,
		Status:         string(b.Status),
		Booking:        b,
	}
}

func NewInstanceEvent(t EventType, inst *TripInstance, at time.Time) Event {
	return Event{
		ID:             uuid.New(),
		Type:           t,
		OccurredAt:     at,
		HotelID:        inst.HotelID,
		TripInstanceID: inst.ID,
		Status:         string(inst.Status),
	}
}
