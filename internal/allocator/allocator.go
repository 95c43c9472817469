package allocator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

const (
	DefaultMaxRetries   = 5
	DefaultRetryBackoff = 20 * time.Millisecond
	DefaultHoldTTL      = 15 * time.Minute
)

type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	HoldTTL      time.Duration
}

// Allocator matches booking requests to trip instances and reserves seats
// over the requested leg range
type Allocator struct {
	catalog Catalog
	ledger  Ledger
	log     *logger.Logger
	opts    Options
}

// Assignment is a committed booking together with the instance it landed on
type Assignment struct {
	Booking  *models.Booking
	Instance *models.TripInstance
}

// AssignedSlot describes where the booking landed
func (a *Assignment) AssignedSlot() models.AssignedSlot {
	return models.AssignedSlot{
		TripInstanceID:     a.Instance.ID,
		ShuttleID:          a.Instance.ShuttleID,
		ScheduledDate:      a.Instance.ScheduledDate,
		ScheduledStartTime: a.Instance.StartTime,
		ScheduledEndTime:   a.Instance.EndTime,
	}
}

func New(catalog Catalog, ledger Ledger, log *logger.Logger, opts Options) *Allocator {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.HoldTTL <= 0 {
		opts.HoldTTL = DefaultHoldTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Allocator{catalog: catalog, ledger: ledger, log: log, opts: opts}
}

// FindAvailability reports free seats per active shuttle for a trip in one slot.
// It never writes to the ledger.
func (a *Allocator) FindAvailability(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityReport, error) {
	if err := q.Slot.Validate(); err != nil {
		return nil, apperrors.ValidationError{Field: "slot", Msg: err.Error()}
	}
	trip, err := a.catalog.GetTrip(ctx, q.TripID)
	if err != nil {
		return nil, err
	}
	from, to, err := resolveLegRange(trip, q.FromLeg, q.ToLeg)
	if err != nil {
		return nil, err
	}

	w, err := a.loadWindow(ctx, trip.HotelID, q.Slot)
	if err != nil {
		return nil, err
	}

	report := &models.AvailabilityReport{
		TripID:                 trip.ID,
		Slot:                   q.Slot,
		FromLeg:                from,
		ToLeg:                  to,
		PerShuttleAvailability: []models.ShuttleAvailability{},
	}
	for _, row := range w.shuttleAvailability(trip.ID, from, to) {
		if row.AvailableSeats <= 0 {
			continue
		}
		report.TotalAvailableSeats += row.AvailableSeats
		report.PerShuttleAvailability = append(report.PerShuttleAvailability, row)
	}
	return report, nil
}

// AssignBooking finds or creates a trip instance with room for the request and
// commits the booking. Guest bookings hold seats; frontdesk bookings occupy them.
func (a *Allocator) AssignBooking(ctx context.Context, req models.CreateBookingRequest, now time.Time) (*Assignment, error) {
	if req.Seats <= 0 {
		return nil, apperrors.ValidationError{Field: "seats", Msg: "must be a positive integer"}
	}
	if req.Bags < 0 {
		return nil, apperrors.ValidationError{Field: "bags", Msg: "cannot be negative"}
	}

	trip, err := a.catalog.GetTrip(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if req.HotelID != uuid.Nil && trip.HotelID != req.HotelID {
		return nil, apperrors.ValidationError{Field: "hotelId", Msg: "trip does not belong to this hotel"}
	}
	from, to, err := resolveLegRange(trip, req.FromLeg, req.ToLeg)
	if err != nil {
		return nil, err
	}
	windows, err := orderWindows(trip.Windows, req.ScheduledDate, req.DesiredTime, now)
	if err != nil {
		return nil, err
	}

	shuttles, err := a.catalog.ListShuttles(ctx, trip.HotelID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list shuttles: %w", err)
	}
	if len(shuttles) == 0 {
		return nil, apperrors.InsufficientCapacityError{Requested: req.Seats, Available: 0}
	}
	largest := 0
	for _, sh := range shuttles {
		if sh.TotalSeats > largest {
			largest = sh.TotalSeats
		}
	}
	if req.Seats > largest {
		return nil, apperrors.ValidationError{Field: "seats", Msg: fmt.Sprintf("cannot exceed the largest shuttle capacity of %d", largest)}
	}

	booking := a.newBooking(req, trip, from, to, now)

	var result *Assignment
	err = a.Retry(ctx, func() error {
		var tryErr error
		result, tryErr = a.tryAssign(ctx, trip, windows, booking, now)
		return tryErr
	})
	if err != nil {
		return nil, err
	}

	a.log.Info("Booking assigned",
		"booking_id", result.Booking.ID,
		"trip_instance_id", result.Instance.ID,
		"slot", result.Instance.Slot().String(),
		"legs", fmt.Sprintf("%d-%d", from, to),
		"seats", req.Seats,
		"status", result.Booking.Status,
	)
	return result, nil
}

func (a *Allocator) tryAssign(ctx context.Context, trip *models.Trip, windows []models.Slot, template *models.Booking, now time.Time) (*Assignment, error) {
	sawCapacity := false
	sawUnavailable := false
	bestAvailable := 0

	noteShortfall := func(available int) {
		sawCapacity = true
		if available > bestAvailable {
			bestAvailable = available
		}
	}

	for _, slot := range windows {
		w, err := a.loadWindow(ctx, trip.HotelID, slot)
		if err != nil {
			return nil, err
		}

		candidates := w.candidates(trip.ID)
		for _, inst := range candidates {
			if inst.Status.IsTerminal() {
				sawUnavailable = true
				continue
			}
			ceiling := w.ceiling(inst)
			if free := ceiling - inst.MaxUsed(template.FromLeg, template.ToLeg); free < template.Seats {
				noteShortfall(free)
				continue
			}

			result, err := a.commit(ctx, inst.ID, inst.ShuttleID, ceiling, template.Clone(), now)
			switch {
			case err == nil:
				return result, nil
			case apperrors.IsInsufficientCapacity(err):
				var capErr apperrors.InsufficientCapacityError
				if errors.As(err, &capErr) {
					noteShortfall(capErr.Available)
				}
				continue
			case apperrors.IsTripInstanceUnavailable(err):
				sawUnavailable = true
				continue
			default:
				return nil, err
			}
		}

		charge, ok := w.nextCharge()
		if !ok {
			if len(candidates) == 0 {
				noteShortfall(0)
			}
			continue
		}
		if charge.TotalSeats < template.Seats {
			noteShortfall(charge.TotalSeats)
			continue
		}

		inst := NewTripInstance(trip, slot, nil, w.nextOrdinal, now)
		if err := a.ledger.CreateInstance(ctx, inst); err != nil {
			return nil, err
		}
		a.log.Debug("Provisional trip instance created",
			"trip_instance_id", inst.ID,
			"trip_id", trip.ID,
			"slot", slot.String(),
			"ordinal", inst.Ordinal,
			"charged_shuttle", charge.VehicleNumber,
		)

		result, err := a.commit(ctx, inst.ID, nil, charge.TotalSeats, template.Clone(), now)
		switch {
		case err == nil:
			return result, nil
		case apperrors.IsInsufficientCapacity(err):
			// the new instance filled up before our commit landed; it stays for later requests
			var capErr apperrors.InsufficientCapacityError
			if errors.As(err, &capErr) {
				noteShortfall(capErr.Available)
			}
			continue
		case apperrors.IsTripInstanceUnavailable(err):
			sawUnavailable = true
			continue
		default:
			return nil, err
		}
	}

	if sawUnavailable && !sawCapacity {
		return nil, apperrors.TripInstanceUnavailableError{}
	}
	if bestAvailable < 0 {
		bestAvailable = 0
	}
	return nil, apperrors.InsufficientCapacityError{Requested: template.Seats, Available: bestAvailable}
}

// commit re-validates capacity and applies the booking under the instance guard
func (a *Allocator) commit(ctx context.Context, instanceID uuid.UUID, expectShuttle *uuid.UUID, ceiling int, booking *models.Booking, now time.Time) (*Assignment, error) {
	inst, err := a.ledger.Mutate(ctx, instanceID, func(tx InstanceTx) error {
		cur := tx.Instance()
		if cur.Status.IsTerminal() {
			return apperrors.TripInstanceUnavailableError{InstanceID: cur.ID.String(), Status: string(cur.Status)}
		}
		if !sameShuttle(cur.ShuttleID, expectShuttle) {
			return apperrors.ConcurrencyConflictError{Resource: "trip instance " + cur.ID.String()}
		}
		if err := CheckCapacity(cur, booking.FromLeg, booking.ToLeg, booking.Seats, ceiling); err != nil {
			return err
		}

		booking.TripInstanceID = cur.ID
		if err := ApplySeats(cur, booking); err != nil {
			return err
		}
		cur.BookingIDs = append(cur.BookingIDs, booking.ID)
		cur.UpdatedAt = now
		return tx.SaveBooking(booking)
	})
	if err != nil {
		return nil, err
	}
	return &Assignment{Booking: booking, Instance: inst}, nil
}

// Retry runs fn until it stops failing with ConcurrencyConflictError, backing
// off linearly between attempts
func (a *Allocator) Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxRetries; attempt++ {
		err := fn()
		if err == nil || !apperrors.IsConcurrencyConflict(err) {
			return err
		}
		lastErr = err
		a.log.Debug("Concurrent update, retrying", "attempt", attempt, "error", err)

		if attempt == a.opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * a.opts.RetryBackoff):
		}
	}
	a.log.Warn("Retries exhausted on concurrent update", "attempts", a.opts.MaxRetries, "error", lastErr)
	return apperrors.ConcurrencyConflictError{Resource: "trip instance", Attempts: a.opts.MaxRetries, Err: lastErr}
}

// HoldTTL is how long a guest hold lives before the sweep may reject it
func (a *Allocator) HoldTTL() time.Duration {
	return a.opts.HoldTTL
}

func (a *Allocator) newBooking(req models.CreateBookingRequest, trip *models.Trip, from, to int, now time.Time) *models.Booking {
	b := &models.Booking{
		ID:            uuid.New(),
		GuestID:       req.GuestID,
		HotelID:       trip.HotelID,
		TripID:        trip.ID,
		FromLeg:       from,
		ToLeg:         to,
		Seats:         req.Seats,
		Bags:          req.Bags,
		Source:        req.Source,
		PaymentStatus: models.PaymentStatusUnpaid,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if b.Source == "" {
		b.Source = models.BookingSourceGuest
	}

	if b.Source == models.BookingSourceFrontdesk {
		confirmedBy := req.CreatedBy
		confirmedAt := now
		b.Status = models.BookingStatusConfirmed
		b.SeatState = models.SeatStateOccupied
		b.ConfirmedBy = &confirmedBy
		b.ConfirmedAt = &confirmedAt
	} else {
		expires := now.Add(a.opts.HoldTTL)
		b.Status = models.BookingStatusPending
		b.SeatState = models.SeatStateHeld
		b.HoldExpiresAt = &expires
	}
	return b
}

// resolveLegRange defaults to the full route and checks 0 <= from <= to <= last leg
func resolveLegRange(trip *models.Trip, fromLeg, toLeg *int) (int, int, error) {
	last := trip.LastLeg()
	if last < 0 {
		return 0, 0, apperrors.ValidationError{Field: "tripId", Msg: "trip has no legs"}
	}
	from, to := 0, last
	if fromLeg != nil {
		from = *fromLeg
	}
	if toLeg != nil {
		to = *toLeg
	}

	var errs apperrors.ValidationErrors
	if from < 0 || from > last {
		errs = append(errs, apperrors.ValidationError{Field: "fromLeg", Msg: fmt.Sprintf("must be between 0 and %d", last)})
	}
	if to < 0 || to > last {
		errs = append(errs, apperrors.ValidationError{Field: "toLeg", Msg: fmt.Sprintf("must be between 0 and %d", last)})
	}
	if len(errs) == 0 && from > to {
		errs = append(errs, apperrors.ValidationError{Field: "fromLeg", Msg: "cannot be after toLeg"})
	}
	if len(errs) > 0 {
		return 0, 0, errs
	}
	return from, to, nil
}

// orderWindows turns the trip's daily windows into slots on date, nearest to
// desiredTime first. A desired time inside a window has distance zero.
func orderWindows(windows []models.ScheduleWindow, date, desiredTime string, now time.Time) ([]models.Slot, error) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, apperrors.ValidationError{Field: "scheduledDate", Msg: "must be YYYY-MM-DD"}
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return nil, apperrors.ValidationError{Field: "scheduledDate", Msg: "cannot be in the past"}
	}
	desired, err := models.ClockMinutes(desiredTime)
	if err != nil {
		return nil, apperrors.ValidationError{Field: "desiredTime", Msg: err.Error()}
	}
	if len(windows) == 0 {
		return nil, apperrors.TripInstanceUnavailableError{}
	}

	type ranked struct {
		slot     models.Slot
		start    int
		distance int
	}
	rankedSlots := make([]ranked, 0, len(windows))
	for _, win := range windows {
		start, err := models.ClockMinutes(win.Start)
		if err != nil {
			return nil, fmt.Errorf("trip window %s-%s: %w", win.Start, win.End, err)
		}
		end, err := models.ClockMinutes(win.End)
		if err != nil {
			return nil, fmt.Errorf("trip window %s-%s: %w", win.Start, win.End, err)
		}

		distance := 0
		switch {
		case desired < start:
			distance = start - desired
		case desired > end:
			distance = desired - end
		}
		rankedSlots = append(rankedSlots, ranked{
			slot:     models.Slot{Date: date, Start: win.Start, End: win.End},
			start:    start,
			distance: distance,
		})
	}

	sort.SliceStable(rankedSlots, func(i, j int) bool {
		if rankedSlots[i].distance != rankedSlots[j].distance {
			return rankedSlots[i].distance < rankedSlots[j].distance
		}
		return rankedSlots[i].start < rankedSlots[j].start
	})

	slots := make([]models.Slot, len(rankedSlots))
	for i, r := range rankedSlots {
		slots[i] = r.slot
	}
	return slots, nil
}

func sameShuttle(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
