package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/reporting"
)

func (s *bookingServiceImpl) GetAvailability(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityReport, error) {
	return s.alloc.FindAvailability(ctx, q)
}

func (s *bookingServiceImpl) GetTripInstanceSnapshot(ctx context.Context, instanceID uuid.UUID) (*models.TripInstanceSnapshot, error) {
	inst, err := s.ledger.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, inst)
}

// ListTripInstances is the driver manifest: instances of a trip, shuttle or hotel on one date
func (s *bookingServiceImpl) ListTripInstances(ctx context.Context, filter models.InstanceFilter) ([]models.TripInstanceSnapshot, error) {
	if _, err := time.Parse(models.DateLayout, filter.Date); err != nil {
		return nil, apperrors.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
	}
	if filter.TripID == nil && filter.ShuttleID == nil && filter.HotelID == nil {
		return nil, apperrors.ValidationError{Field: "filter", Msg: "a trip, shuttle or hotel is required"}
	}

	instances, err := s.ledger.ListInstances(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip instances: %w", err)
	}

	out := make([]models.TripInstanceSnapshot, 0, len(instances))
	for _, inst := range instances {
		snap, err := s.snapshot(ctx, inst)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, nil
}

func (s *bookingServiceImpl) GetDashboard(ctx context.Context, hotelID uuid.UUID, date string) (*models.DashboardStats, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, apperrors.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
	}
	if _, err := s.catalog.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}

	instances, err := s.ledger.ListInstances(ctx, models.InstanceFilter{HotelID: &hotelID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to list trip instances: %w", err)
	}
	bookings, err := s.ledger.ListBookings(ctx, models.BookingFilter{HotelID: &hotelID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	capacities := make(map[uuid.UUID]int, len(instances))
	for _, inst := range instances {
		if inst.Status.IsTerminal() {
			continue
		}
		capacity, err := s.alloc.Capacity(ctx, inst)
		if err != nil {
			return nil, err
		}
		capacities[inst.ID] = capacity
	}
	return reporting.Dashboard(hotelID, date, instances, bookings, capacities), nil
}

func (s *bookingServiceImpl) ScheduleTripInstance(ctx context.Context, req *models.ScheduleTripInstanceRequest) (*models.TripInstance, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	slot := models.Slot{Date: req.Date, Start: req.Start, End: req.End}
	inst, err := s.alloc.ScheduleInstance(ctx, req.TripID, slot, req.ShuttleID, now)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.NewInstanceEvent(models.EventTripInstanceScheduled, inst, now))
	return inst, nil
}

func (s *bookingServiceImpl) AssignShuttle(ctx context.Context, instanceID uuid.UUID, req *models.AssignShuttleRequest) (*models.TripInstance, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	inst, err := s.alloc.AssignShuttle(ctx, instanceID, req.ShuttleID, now)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.NewInstanceEvent(models.EventTripInstanceShuttle, inst, now))
	s.broadcast(ctx, inst)
	return inst, nil
}

// StartTripInstance moves SCHEDULED to IN_PROGRESS when the driver departs
func (s *bookingServiceImpl) StartTripInstance(ctx context.Context, instanceID uuid.UUID) (*models.TripInstance, error) {
	now := s.clock()
	inst, _, err := s.mutate(ctx, instanceID, func(tx allocator.InstanceTx) error {
		cur := tx.Instance()
		if cur.Status != models.TripInstanceStatusScheduled {
			return apperrors.InvalidTransitionError{Entity: "trip instance", From: string(cur.Status), To: string(models.TripInstanceStatusInProgress)}
		}
		if cur.ShuttleID == nil {
			return apperrors.InvalidTransitionError{Entity: "trip instance", From: string(cur.Status), To: string(models.TripInstanceStatusInProgress), Msg: "no shuttle assigned"}
		}
		cur.Status = models.TripInstanceStatusInProgress
		cur.ActualStartTime = &now
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Trip instance started", "trip_instance_id", instanceID)
	s.publish(ctx, models.NewInstanceEvent(models.EventTripInstanceStarted, inst, now))
	s.broadcast(ctx, inst)
	return inst, nil
}

// MarkLegCompleted records that the driver finished a leg. Legs complete in
// order and finishing the last one completes the instance.
func (s *bookingServiceImpl) MarkLegCompleted(ctx context.Context, instanceID uuid.UUID, legIndex int) (*models.TripInstance, error) {
	now := s.clock()
	var unchanged *models.TripInstance
	inst, changed, err := s.mutate(ctx, instanceID, func(tx allocator.InstanceTx) error {
		cur := tx.Instance()
		if cur.Status != models.TripInstanceStatusInProgress {
			return apperrors.InvalidTransitionError{Entity: "trip instance", From: string(cur.Status), To: "leg completed", Msg: "legs can only be completed while in progress"}
		}
		leg, ok := cur.Leg(legIndex)
		if !ok {
			return apperrors.ValidationError{Field: "legIndex", Msg: fmt.Sprintf("must be between 0 and %d", len(cur.Legs)-1)}
		}
		if leg.Completed {
			unchanged = cur
			return errUnchanged
		}
		for i := 0; i < legIndex; i++ {
			if prev, ok := cur.Leg(i); ok && !prev.Completed {
				return apperrors.InvalidTransitionError{Entity: "leg", From: "open", To: "completed", Msg: fmt.Sprintf("leg %d is not completed yet", i)}
			}
		}

		leg.Completed = true
		cur.UpdatedAt = now
		if allLegsCompleted(cur) {
			cur.Status = models.TripInstanceStatusCompleted
			cur.ActualEndTime = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return unchanged, nil
	}

	s.log.Info("Leg completed", "trip_instance_id", instanceID, "leg", legIndex, "status", inst.Status)
	s.publish(ctx, models.NewInstanceEvent(models.EventTripInstanceLegCompleted, inst, now))
	if inst.Status == models.TripInstanceStatusCompleted {
		s.publish(ctx, models.NewInstanceEvent(models.EventTripInstanceCompleted, inst, now))
	}
	s.broadcast(ctx, inst)
	return inst, nil
}

// CompleteTripInstance moves IN_PROGRESS to COMPLETED once every leg is done
func (s *bookingServiceImpl) CompleteTripInstance(ctx context.Context, instanceID uuid.UUID) (*models.TripInstance, error) {
	now := s.clock()
	inst, _, err := s.mutate(ctx, instanceID, func(tx allocator.InstanceTx) error {
		cur := tx.Instance()
		if cur.Status != models.TripInstanceStatusInProgress {
			return apperrors.InvalidTransitionError{Entity: "trip instance", From: string(cur.Status), To: string(models.TripInstanceStatusCompleted)}
		}
		if !allLegsCompleted(cur) {
			return apperrors.InvalidTransitionError{Entity: "trip instance", From: string(cur.Status), To: string(models.TripInstanceStatusCompleted), Msg: "not every leg is completed"}
		}
		cur.Status = models.TripInstanceStatusCompleted
		cur.ActualEndTime = &now
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Trip instance completed", "trip_instance_id", instanceID)
	s.publish(ctx, models.NewInstanceEvent(models.EventTripInstanceCompleted, inst, now))
	s.broadcast(ctx, inst)
	return inst, nil
}

// CancelTripInstance releases every seat of the instance. Pending bookings are
// rejected and confirmed ones get cancellation metadata.
func (s *bookingServiceImpl) CancelTripInstance(ctx context.Context, instanceID uuid.UUID, req *models.CancelTripInstanceRequest) (*models.TripInstance, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.clock()
	reason := fmt.Sprintf("%s: %s", InstanceCancelledBy, req.Reason)
	var touched []*models.Booking
	inst, _, err := s.mutate(ctx, instanceID, func(tx allocator.InstanceTx) error {
		touched = touched[:0]
		cur := tx.Instance()
		if cur.Status.IsTerminal() {
			return apperrors.InvalidTransitionError{Entity: "trip instance", From: string(cur.Status), To: string(models.TripInstanceStatusCancelled)}
		}

		bookings, err := tx.Bookings()
		if err != nil {
			return err
		}
		userID := req.UserID
		for _, b := range bookings {
			switch {
			case b.Status == models.BookingStatusPending:
				b.Status = models.BookingStatusRejected
				b.RejectedBy = &userID
				b.RejectedAt = &now
				b.RejectionReason = reason
			case b.Status == models.BookingStatusConfirmed && !b.IsCancelled():
				b.CancelledBy = &userID
				b.CancelledAt = &now
				b.CancellationReason = reason
			default:
				continue
			}
			b.SeatState = models.SeatStateReleased
			b.UpdatedAt = now
			if err := tx.SaveBooking(b); err != nil {
				return err
			}
			touched = append(touched, b)
		}

		allocator.ResetLegs(cur)
		cur.Status = models.TripInstanceStatusCancelled
		cur.CancelledBy = &userID
		cur.CancelReason = req.Reason
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Trip instance cancelled",
		"trip_instance_id", instanceID,
		"cancelled_by", req.UserID,
		"bookings_released", len(touched),
	)
	for _, b := range touched {
		if b.Status == models.BookingStatusRejected {
			s.resolveHold(ctx, b.ID, models.HoldOutcomeRejected)
			s.publish(ctx, models.NewBookingEvent(models.EventBookingRejected, b, now))
		} else {
			s.publish(ctx, models.NewBookingEvent(models.EventBookingCancelled, b, now))
		}
	}
	s.publish(ctx, models.NewInstanceEvent(models.EventTripInstanceCancelled, inst, now))
	s.broadcast(ctx, inst)
	return inst, nil
}

func allLegsCompleted(inst *models.TripInstance) bool {
	for _, leg := range inst.Legs {
		if !leg.Completed {
			return false
		}
	}
	return len(inst.Legs) > 0
}
