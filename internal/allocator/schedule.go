package allocator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// NewTripInstance builds a SCHEDULED instance with one empty route instance per leg
func NewTripInstance(trip *models.Trip, slot models.Slot, shuttleID *uuid.UUID, ordinal int, now time.Time) *models.TripInstance {
	inst := &models.TripInstance{
		ID:            uuid.New(),
		TripID:        trip.ID,
		HotelID:       trip.HotelID,
		ShuttleID:     shuttleID,
		Ordinal:       ordinal,
		ScheduledDate: slot.Date,
		StartTime:     slot.Start,
		EndTime:       slot.End,
		Status:        models.TripInstanceStatusScheduled,
		BookingIDs:    []uuid.UUID{},
		Legs:          make([]models.RouteInstance, 0, len(trip.Legs)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, route := range trip.Legs {
		inst.Legs = append(inst.Legs, models.RouteInstance{
			ID:             uuid.New(),
			TripInstanceID: inst.ID,
			RouteID:        route.ID,
			OrderIndex:     route.OrderIndex,
		})
	}
	return inst
}

// ScheduleInstance pre-creates an instance of the trip in slot, either on a
// given shuttle or as the next provisional instance of the window
func (a *Allocator) ScheduleInstance(ctx context.Context, tripID uuid.UUID, slot models.Slot, shuttleID *uuid.UUID, now time.Time) (*models.TripInstance, error) {
	if err := slot.Validate(); err != nil {
		return nil, apperrors.ValidationError{Field: "slot", Msg: err.Error()}
	}
	trip, err := a.catalog.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	w, err := a.loadWindow(ctx, trip.HotelID, slot)
	if err != nil {
		return nil, err
	}

	var inst *models.TripInstance
	if shuttleID != nil {
		if _, err := a.usableShuttle(ctx, trip.HotelID, *shuttleID); err != nil {
			return nil, err
		}
		if _, busy := w.assigned[*shuttleID]; busy {
			return nil, apperrors.ConflictError{Resource: "shuttle", Msg: fmt.Sprintf("already runs a trip instance in %s", slot)}
		}
		inst = NewTripInstance(trip, slot, shuttleID, 0, now)
		if victim := w.strands(w.shuttles, w.with(inst), inst.ID); victim != nil {
			return nil, strandedError(victim)
		}
	} else {
		if _, ok := w.nextCharge(); !ok {
			return nil, apperrors.InsufficientCapacityError{Requested: 0, Available: 0}
		}
		inst = NewTripInstance(trip, slot, nil, w.nextOrdinal, now)
	}

	if err := a.ledger.CreateInstance(ctx, inst); err != nil {
		if apperrors.IsConcurrencyConflict(err) && shuttleID != nil {
			return nil, apperrors.ConflictError{Resource: "shuttle", Msg: fmt.Sprintf("already runs a trip instance in %s", slot), Err: err}
		}
		return nil, err
	}

	if shuttleID != nil {
		if err := a.recheck(ctx, w, trip.HotelID, inst.ID); err != nil {
			// a booking raced onto the provisional instance this shuttle was carrying
			if _, cerr := a.ledger.Mutate(ctx, inst.ID, func(tx InstanceTx) error {
				cur := tx.Instance()
				cur.Status = models.TripInstanceStatusCancelled
				cur.CancelReason = "shuttle needed by a provisional instance"
				cur.UpdatedAt = now
				return nil
			}); cerr != nil {
				a.log.Error("Failed to withdraw trip instance", "trip_instance_id", inst.ID, "error", cerr)
			}
			return nil, err
		}
	}
	a.log.Info("Trip instance scheduled", "trip_instance_id", inst.ID, "trip_id", trip.ID, "slot", slot.String())
	return inst, nil
}

// AssignShuttle binds a SCHEDULED instance to an active shuttle of the same
// hotel with enough seats for the instance's current peak
func (a *Allocator) AssignShuttle(ctx context.Context, instanceID, shuttleID uuid.UUID, now time.Time) (*models.TripInstance, error) {
	var out *models.TripInstance
	err := a.Retry(ctx, func() error {
		current, err := a.ledger.GetInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		shuttle, err := a.usableShuttle(ctx, current.HotelID, shuttleID)
		if err != nil {
			return err
		}
		w, err := a.loadWindow(ctx, current.HotelID, current.Slot())
		if err != nil {
			return err
		}
		if other, busy := w.assigned[shuttleID]; busy && other.ID != instanceID {
			return apperrors.ConflictError{Resource: "shuttle", Msg: fmt.Sprintf("already runs a trip instance in %s", current.Slot())}
		}
		proposed := current.Clone()
		proposed.ShuttleID = &shuttle.ID
		if victim := w.strands(w.shuttles, w.with(proposed), instanceID); victim != nil {
			return strandedError(victim)
		}

		out, err = a.ledger.Mutate(ctx, instanceID, func(tx InstanceTx) error {
			inst := tx.Instance()
			if inst.Status != models.TripInstanceStatusScheduled {
				return apperrors.InvalidTransitionError{Entity: "trip instance", From: string(inst.Status), To: "shuttle assignment", Msg: "only scheduled instances can change shuttle"}
			}
			if !sameShuttle(inst.ShuttleID, current.ShuttleID) {
				return apperrors.ConcurrencyConflictError{Resource: "trip instance " + inst.ID.String()}
			}
			if peak := inst.PeakOccupancy(); peak > shuttle.TotalSeats {
				return apperrors.InsufficientCapacityError{Requested: peak, Available: shuttle.TotalSeats}
			}
			id := shuttle.ID
			inst.ShuttleID = &id
			inst.UpdatedAt = now
			return nil
		})
		if err != nil {
			return err
		}

		if err := a.recheck(ctx, w, current.HotelID, instanceID); err != nil {
			previous := current.ShuttleID
			if _, rerr := a.ledger.Mutate(ctx, instanceID, func(tx InstanceTx) error {
				inst := tx.Instance()
				if !sameShuttle(inst.ShuttleID, &shuttle.ID) {
					return nil
				}
				inst.ShuttleID = previous
				inst.UpdatedAt = now
				return nil
			}); rerr != nil {
				return rerr
			}
			return apperrors.ConcurrencyConflictError{Resource: "trip instance " + instanceID.String(), Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("Shuttle assigned", "trip_instance_id", instanceID, "shuttle_id", shuttleID)
	return out, nil
}

// recheck reloads the slot after a shuttle change landed and fails when a
// live instance lost seats it held before
func (a *Allocator) recheck(ctx context.Context, before *window, hotelID, changed uuid.UUID) error {
	after, err := a.loadWindow(ctx, hotelID, before.slot)
	if err != nil {
		return err
	}
	if victim := before.strands(after.shuttles, after.instances, changed); victim != nil {
		return strandedError(victim)
	}
	return nil
}

// CheckRetire fails when taking the shuttle out of service would leave a live
// instance of the hotel with more seats taken than the shuttles left can carry
func (a *Allocator) CheckRetire(ctx context.Context, hotelID, shuttleID uuid.UUID) error {
	shuttles, err := a.catalog.ListShuttles(ctx, hotelID, true)
	if err != nil {
		return fmt.Errorf("failed to list shuttles: %w", err)
	}
	remaining := make([]models.Shuttle, 0, len(shuttles))
	for _, sh := range shuttles {
		if sh.ID != shuttleID {
			remaining = append(remaining, sh)
		}
	}

	instances, err := a.ledger.ListInstances(ctx, models.InstanceFilter{HotelID: &hotelID})
	if err != nil {
		return fmt.Errorf("failed to list trip instances: %w", err)
	}
	slots := make(map[string][]*models.TripInstance)
	var order []models.Slot
	for _, inst := range instances {
		if inst.Status == models.TripInstanceStatusCancelled {
			continue
		}
		key := inst.Slot().String()
		if _, seen := slots[key]; !seen {
			order = append(order, inst.Slot())
		}
		slots[key] = append(slots[key], inst)
	}

	for _, slot := range order {
		group := slots[slot.String()]
		w := buildWindow(slot, shuttles, group)
		if victim := w.strands(remaining, group, uuid.Nil); victim != nil {
			return apperrors.ConflictError{
				Resource: "shuttle",
				Msg:      fmt.Sprintf("trip instance %s in %s still needs its seats", victim.ID, slot),
			}
		}
	}
	return nil
}

func strandedError(victim *models.TripInstance) error {
	return apperrors.ConflictError{
		Resource: "shuttle",
		Msg:      fmt.Sprintf("carries %d seats of trip instance %s in %s", victim.PeakOccupancy(), victim.ID, victim.Slot()),
	}
}

// Capacity is the seat ceiling currently applied to the instance
func (a *Allocator) Capacity(ctx context.Context, inst *models.TripInstance) (int, error) {
	if inst.ShuttleID != nil {
		sh, err := a.catalog.GetShuttle(ctx, *inst.ShuttleID)
		if err != nil {
			return 0, err
		}
		return sh.TotalSeats, nil
	}
	if inst.Status.IsTerminal() {
		return 0, nil
	}
	w, err := a.loadWindow(ctx, inst.HotelID, inst.Slot())
	if err != nil {
		return 0, err
	}
	return w.ceiling(inst), nil
}

func (a *Allocator) usableShuttle(ctx context.Context, hotelID, shuttleID uuid.UUID) (*models.Shuttle, error) {
	shuttle, err := a.catalog.GetShuttle(ctx, shuttleID)
	if err != nil {
		return nil, err
	}
	if shuttle.HotelID != hotelID {
		return nil, apperrors.ValidationError{Field: "shuttleId", Msg: "shuttle belongs to another hotel"}
	}
	if !shuttle.Active {
		return nil, apperrors.ValidationError{Field: "shuttleId", Msg: "shuttle is not active"}
	}
	return shuttle, nil
}
