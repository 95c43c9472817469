package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/reporting"
)

// publish never fails the caller; a lost event is logged
func (s *bookingServiceImpl) publish(ctx context.Context, event models.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish event",
			"event_type", event.Type,
			"key", event.Key(),
			"error", err,
		)
	}
}

// broadcast pushes the latest snapshot of an instance to live subscribers
func (s *bookingServiceImpl) broadcast(ctx context.Context, inst *models.TripInstance) {
	if inst == nil {
		return
	}
	snap, err := s.snapshot(ctx, inst)
	if err != nil {
		s.log.Warn("Failed to build snapshot for broadcast", "trip_instance_id", inst.ID, "error", err)
		return
	}
	s.snapshots.BroadcastSnapshot(*snap)
}

func (s *bookingServiceImpl) resolveHold(ctx context.Context, bookingID uuid.UUID, outcome string) {
	if err := s.holds.ResolveHold(ctx, bookingID, outcome); err != nil {
		s.log.Debug("Hold expiry not signalled", "booking_id", bookingID, "outcome", outcome, "error", err)
	}
}

func (s *bookingServiceImpl) snapshot(ctx context.Context, inst *models.TripInstance) (*models.TripInstanceSnapshot, error) {
	bookings, err := s.ledger.ListBookings(ctx, models.BookingFilter{TripInstanceID: &inst.ID})
	if err != nil {
		return nil, err
	}
	capacity, err := s.alloc.Capacity(ctx, inst)
	if err != nil {
		return nil, err
	}
	snap := reporting.Snapshot(inst, bookings, capacity)
	return &snap, nil
}
