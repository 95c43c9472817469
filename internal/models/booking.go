package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusRejected  BookingStatus = "REJECTED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	PaymentStatusWaived   PaymentStatus = "WAIVED"
)

type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodRoomCharge PaymentMethod = "ROOM_CHARGE"
	PaymentMethodOnline     PaymentMethod = "ONLINE"
)

// BookingSource tells who created the booking, which decides hold vs commit
type BookingSource string

const (
	BookingSourceGuest     BookingSource = "GUEST"
	BookingSourceFrontdesk BookingSource = "FRONTDESK"
)

// SeatState records which ledger counter a booking currently contributes to
type SeatState string

const (
	SeatStateHeld     SeatState = "HELD"
	SeatStateOccupied SeatState = "OCCUPIED"
	SeatStateReleased SeatState = "RELEASED"
)

// Booking is a reservation of seats over a contiguous leg range of one trip instance
type Booking struct {
	ID                 uuid.UUID         `json:"id"`
	GuestID            uuid.UUID         `json:"guestId"`
	HotelID            uuid.UUID         `json:"hotelId"`
	TripID             uuid.UUID         `json:"tripId"`
	TripInstanceID     uuid.UUID         `json:"tripInstanceId"`
	FromLeg            int               `json:"fromLeg"`
	ToLeg              int               `json:"toLeg"`
	Seats              int               `json:"seats"`
	Bags               int               `json:"bags"`
	Source             BookingSource     `json:"source"`
	Status             BookingStatus     `json:"status"`
	PaymentStatus      PaymentStatus     `json:"paymentStatus"`
	PaymentMethod      PaymentMethod     `json:"paymentMethod"`
	SeatState          SeatState         `json:"seatState"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	HoldExpiresAt      *time.Time        `json:"holdExpiresAt,omitempty"`
	CreatedBy          uuid.UUID         `json:"createdBy"`
	ConfirmedBy        *uuid.UUID        `json:"confirmedBy,omitempty"`
	ConfirmedAt        *time.Time        `json:"confirmedAt,omitempty"`
	RejectedBy         *uuid.UUID        `json:"rejectedBy,omitempty"`
	RejectedAt         *time.Time        `json:"rejectedAt,omitempty"`
	RejectionReason    string            `json:"rejectionReason,omitempty"`
	CancelledBy        *uuid.UUID        `json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CancellationReason string            `json:"cancellationReason,omitempty"`
	PaidAt             *time.Time        `json:"paidAt,omitempty"`
	RefundedAt         *time.Time        `json:"refundedAt,omitempty"`
	WaivedBy           *uuid.UUID        `json:"waivedBy,omitempty"`
	WaivedAt           *time.Time        `json:"waivedAt,omitempty"`
	WaiverReason       string            `json:"waiverReason,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// IsCancelled reports whether a cancellation was recorded
func (b *Booking) IsCancelled() bool {
	return b.CancelledAt != nil
}

// HoldExpired reports whether an unconfirmed hold outlived its window
func (b *Booking) HoldExpired(now time.Time) bool {
	return b.Status == BookingStatusPending &&
		b.SeatState == SeatStateHeld &&
		b.HoldExpiresAt != nil &&
		!now.Before(*b.HoldExpiresAt)
}

// Clone returns a copy safe to mutate
func (b *Booking) Clone() *Booking {
	c := *b
	if b.Metadata != nil {
		c.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// BookingFilter selects bookings for reporting and sweeps
type BookingFilter struct {
	TripInstanceID *uuid.UUID
	HotelID        *uuid.UUID
	Date           string
	Status         *BookingStatus
	HeldBefore     *time.Time
}

// CreateBookingRequest is the caller intent for a new booking
type CreateBookingRequest struct {
	GuestID       uuid.UUID         `json:"guestId" validate:"required"`
	TripID        uuid.UUID         `json:"tripId" validate:"required"`
	HotelID       uuid.UUID         `json:"hotelId" validate:"required"`
	ScheduledDate string            `json:"scheduledDate" validate:"required,datetime=2006-01-02"`
	DesiredTime   string            `json:"desiredTime" validate:"required,datetime=15:04"`
	Seats         int               `json:"seats" validate:"required,gt=0"`
	Bags          int               `json:"bags" validate:"min=0"`
	FromLeg       *int              `json:"fromLeg,omitempty" validate:"omitempty,min=0"`
	ToLeg         *int              `json:"toLeg,omitempty" validate:"omitempty,min=0"`
	PaymentMethod PaymentMethod     `json:"paymentMethod" validate:"required,oneof=CASH CARD ROOM_CHARGE ONLINE"`
	Source        BookingSource     `json:"source" validate:"required,oneof=GUEST FRONTDESK"`
	CreatedBy     uuid.UUID         `json:"createdBy" validate:"required"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// AssignedSlot tells the caller where the booking landed
type AssignedSlot struct {
	TripInstanceID     uuid.UUID  `json:"tripInstanceId"`
	ShuttleID          *uuid.UUID `json:"shuttleId,omitempty"`
	ScheduledDate      string     `json:"scheduledDate"`
	ScheduledStartTime string     `json:"scheduledStartTime"`
	ScheduledEndTime   string     `json:"scheduledEndTime"`
}

// CreateBookingResult is returned by createBooking
type CreateBookingResult struct {
	Booking      *Booking     `json:"booking"`
	AssignedSlot AssignedSlot `json:"assignedSlot"`
}

// ConfirmBookingRequest represents a confirmation by frontdesk or payment
type ConfirmBookingRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

// RejectBookingRequest represents a rejection of a pending booking
type RejectBookingRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Reason string    `json:"reason" validate:"required,max=500"`
}

// CancelBookingRequest represents a cancellation of a booking
type CancelBookingRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Reason string    `json:"reason" validate:"max=500"`
}

// PaymentUpdateRequest moves the payment sub-machine
type PaymentUpdateRequest struct {
	Status PaymentStatus `json:"status" validate:"required,oneof=PAID WAIVED REFUNDED"`
	UserID uuid.UUID     `json:"userId" validate:"required"`
	Reason string        `json:"reason" validate:"max=500"`
}
