package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

const (
	HoldExpiredReason   = "hold expired"
	InstanceCancelledBy = "trip instance cancelled"
)

func (s *bookingServiceImpl) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.CreateBookingResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	placed, err := s.alloc.AssignBooking(ctx, *req, now)
	if err != nil {
		return nil, err
	}
	b := placed.Booking

	if b.Status == models.BookingStatusPending {
		if err := s.holds.ScheduleHoldExpiry(ctx, b); err != nil {
			s.log.Warn("Failed to schedule hold expiry, the periodic sweep will release it",
				"booking_id", b.ID,
				"error", err,
			)
		}
	}

	s.publish(ctx, models.NewBookingEvent(models.EventBookingCreated, b, now))
	s.broadcast(ctx, placed.Instance)

	return &models.CreateBookingResult{
		Booking:      b,
		AssignedSlot: placed.AssignedSlot(),
	}, nil
}

func (s *bookingServiceImpl) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.ledger.GetBooking(ctx, bookingID)
}

// ConfirmBooking flips PENDING to CONFIRMED and turns held seats into occupied ones
func (s *bookingServiceImpl) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, req *models.ConfirmBookingRequest) (*models.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	var confirmed *models.Booking
	inst, err := s.updateBooking(ctx, bookingID, func(tx allocator.InstanceTx, b *models.Booking) error {
		if b.Status != models.BookingStatusPending {
			return apperrors.InvalidTransitionError{Entity: "booking", From: string(b.Status), To: string(models.BookingStatusConfirmed)}
		}
		if cur := tx.Instance(); cur.Status.IsTerminal() {
			return apperrors.TripInstanceUnavailableError{InstanceID: cur.ID.String(), Status: string(cur.Status)}
		}
		if err := allocator.ConvertHold(tx.Instance(), b); err != nil {
			return err
		}

		userID := req.UserID
		b.Status = models.BookingStatusConfirmed
		b.ConfirmedBy = &userID
		b.ConfirmedAt = &now
		b.UpdatedAt = now
		confirmed = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking confirmed", "booking_id", bookingID, "confirmed_by", req.UserID)
	s.resolveHold(ctx, bookingID, models.HoldOutcomeConfirmed)
	s.publish(ctx, models.NewBookingEvent(models.EventBookingConfirmed, confirmed, now))
	s.broadcast(ctx, inst)
	return confirmed, nil
}

// RejectBooking flips PENDING to REJECTED and releases the held seats
func (s *bookingServiceImpl) RejectBooking(ctx context.Context, bookingID uuid.UUID, req *models.RejectBookingRequest) (*models.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	var rejected *models.Booking
	inst, err := s.updateBooking(ctx, bookingID, func(tx allocator.InstanceTx, b *models.Booking) error {
		if b.Status != models.BookingStatusPending {
			return apperrors.InvalidTransitionError{Entity: "booking", From: string(b.Status), To: string(models.BookingStatusRejected)}
		}
		if _, err := allocator.ReleaseSeats(tx.Instance(), b); err != nil {
			return err
		}

		userID := req.UserID
		b.Status = models.BookingStatusRejected
		b.RejectedBy = &userID
		b.RejectedAt = &now
		b.RejectionReason = req.Reason
		b.UpdatedAt = now
		rejected = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking rejected", "booking_id", bookingID, "rejected_by", req.UserID, "reason", req.Reason)
	s.resolveHold(ctx, bookingID, models.HoldOutcomeRejected)
	s.publish(ctx, models.NewBookingEvent(models.EventBookingRejected, rejected, now))
	s.broadcast(ctx, inst)
	return rejected, nil
}

// CancelBooking releases whatever the booking holds. A confirmed booking keeps
// its status with cancellation metadata; a pending one becomes REJECTED.
// Cancelling an already cancelled or rejected booking returns it unchanged.
func (s *bookingServiceImpl) CancelBooking(ctx context.Context, bookingID uuid.UUID, req *models.CancelBookingRequest) (*models.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		result     *models.Booking
		wasPending bool
	)
	inst, err := s.updateBooking(ctx, bookingID, func(tx allocator.InstanceTx, b *models.Booking) error {
		result = b
		if b.IsCancelled() || b.Status == models.BookingStatusRejected {
			return errUnchanged
		}
		if cur := tx.Instance(); cur.Status == models.TripInstanceStatusCompleted {
			return apperrors.InvalidTransitionError{Entity: "booking", From: string(b.Status), To: "cancelled", Msg: "trip instance already completed"}
		}
		if _, err := allocator.ReleaseSeats(tx.Instance(), b); err != nil {
			return err
		}

		userID := req.UserID
		b.CancelledBy = &userID
		b.CancelledAt = &now
		b.CancellationReason = req.Reason
		if b.Status == models.BookingStatusPending {
			wasPending = true
			b.Status = models.BookingStatusRejected
			b.RejectedBy = &userID
			b.RejectedAt = &now
			b.RejectionReason = req.Reason
		}
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if inst == nil {
		s.log.Debug("Booking already cancelled", "booking_id", bookingID)
		return result, nil
	}

	s.log.Info("Booking cancelled", "booking_id", bookingID, "cancelled_by", req.UserID)
	if wasPending {
		s.resolveHold(ctx, bookingID, models.HoldOutcomeCancelled)
	}
	s.publish(ctx, models.NewBookingEvent(models.EventBookingCancelled, result, now))
	s.broadcast(ctx, inst)
	return result, nil
}

// UpdatePayment drives UNPAID -> PAID | WAIVED and PAID -> REFUNDED
func (s *bookingServiceImpl) UpdatePayment(ctx context.Context, bookingID uuid.UUID, req *models.PaymentUpdateRequest) (*models.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Status == models.PaymentStatusWaived && req.Reason == "" {
		return nil, apperrors.ValidationError{Field: "reason", Msg: "a waiver requires a reason"}
	}

	now := s.clock()
	var updated *models.Booking
	_, err := s.updateBooking(ctx, bookingID, func(_ allocator.InstanceTx, b *models.Booking) error {
		invalid := apperrors.InvalidTransitionError{Entity: "payment", From: string(b.PaymentStatus), To: string(req.Status)}

		switch req.Status {
		case models.PaymentStatusPaid:
			if b.PaymentStatus != models.PaymentStatusUnpaid || b.Status == models.BookingStatusRejected {
				return invalid
			}
			b.PaidAt = &now
		case models.PaymentStatusWaived:
			if b.PaymentStatus != models.PaymentStatusUnpaid || b.Status == models.BookingStatusRejected {
				return invalid
			}
			userID := req.UserID
			b.WaivedBy = &userID
			b.WaivedAt = &now
			b.WaiverReason = req.Reason
		case models.PaymentStatusRefunded:
			if b.PaymentStatus != models.PaymentStatusPaid {
				return invalid
			}
			b.RefundedAt = &now
		default:
			return invalid
		}

		b.PaymentStatus = req.Status
		b.UpdatedAt = now
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment updated", "booking_id", bookingID, "payment_status", req.Status, "user_id", req.UserID)
	s.publish(ctx, models.NewBookingEvent(models.EventBookingPaymentUpdated, updated, now))
	return updated, nil
}

// ExpireHold rejects a pending booking whose hold has run out. It reports
// false when the booking was resolved in the meantime.
func (s *bookingServiceImpl) ExpireHold(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	now := s.clock()
	var expired *models.Booking
	inst, err := s.updateBooking(ctx, bookingID, func(tx allocator.InstanceTx, b *models.Booking) error {
		if !b.HoldExpired(now) {
			return errUnchanged
		}
		if _, err := allocator.ReleaseSeats(tx.Instance(), b); err != nil {
			return err
		}
		b.Status = models.BookingStatusRejected
		b.RejectedAt = &now
		b.RejectionReason = HoldExpiredReason
		b.UpdatedAt = now
		expired = b
		return nil
	})
	if err != nil {
		return false, err
	}
	if inst == nil {
		return false, nil
	}

	s.log.Info("Hold expired", "booking_id", bookingID, "trip_instance_id", inst.ID)
	s.publish(ctx, models.NewBookingEvent(models.EventBookingHoldExpired, expired, now))
	s.broadcast(ctx, inst)
	return true, nil
}

// SweepExpiredHolds rejects every hold past its expiry
func (s *bookingServiceImpl) SweepExpiredHolds(ctx context.Context) (*models.HoldSweepResult, error) {
	now := s.clock()
	status := models.BookingStatusPending
	candidates, err := s.ledger.ListBookings(ctx, models.BookingFilter{Status: &status, HeldBefore: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}

	result := &models.HoldSweepResult{}
	for _, b := range candidates {
		expired, err := s.ExpireHold(ctx, b.ID)
		if err != nil {
			result.Failed++
			s.log.Error("Failed to expire hold", "booking_id", b.ID, "error", err)
			continue
		}
		if expired {
			result.Rejected++
			result.IDs = append(result.IDs, b.ID.String())
		}
	}

	if result.Rejected > 0 || result.Failed > 0 {
		s.log.Info("Hold sweep finished", "rejected", result.Rejected, "failed", result.Failed)
	}
	return result, nil
}

// updateBooking loads the booking inside its instance guard, applies fn and
// saves it. It returns nil without error when fn reports errUnchanged.
func (s *bookingServiceImpl) updateBooking(ctx context.Context, bookingID uuid.UUID, fn func(tx allocator.InstanceTx, b *models.Booking) error) (*models.TripInstance, error) {
	current, err := s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	inst, _, err := s.mutate(ctx, current.TripInstanceID, func(tx allocator.InstanceTx) error {
		b, err := tx.Booking(bookingID)
		if err != nil {
			return err
		}
		if err := fn(tx, b); err != nil {
			return err
		}
		tx.Instance().UpdatedAt = b.UpdatedAt
		return tx.SaveBooking(b)
	})
	return inst, err
}
