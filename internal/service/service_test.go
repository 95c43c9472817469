package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/inventory"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

const testDate = "2030-05-02"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordedEvents) Publish(_ context.Context, e models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordedHolds struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	resolved  map[uuid.UUID]string
}

func (r *recordedHolds) ScheduleHoldExpiry(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, b.ID)
	return nil
}

func (r *recordedHolds) ResolveHold(_ context.Context, id uuid.UUID, outcome string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[id] = outcome
	return nil
}

type recordedSnapshots struct {
	mu    sync.Mutex
	count int
	last  models.TripInstanceSnapshot
}

func (r *recordedSnapshots) BroadcastSnapshot(s models.TripInstanceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	r.last = s
}

type harness struct {
	svc       BookingService
	store     *inventory.Store
	clock     *fakeClock
	events    *recordedEvents
	holds     *recordedHolds
	snapshots *recordedSnapshots
	hotel     *models.Hotel
	trip      *models.Trip
	shuttle   *models.Shuttle
	staff     uuid.UUID
}

// newHarness builds the "Hotel ⇄ Airport" setup: one 4-seat shuttle and a one-leg route
func newHarness(t *testing.T, legs int, seats ...int) *harness {
	t.Helper()
	if len(seats) == 0 {
		seats = []int{4}
	}

	store := inventory.NewStore()
	clock := &fakeClock{now: time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)}
	log := logger.Nop()
	h := &harness{
		store:     store,
		clock:     clock,
		events:    &recordedEvents{},
		holds:     &recordedHolds{resolved: make(map[uuid.UUID]string)},
		snapshots: &recordedSnapshots{},
		staff:     uuid.New(),
	}
	h.svc = NewBookingService(Dependencies{
		Catalog:   store,
		Ledger:    store,
		Allocator: allocator.New(store, store, log, allocator.Options{MaxRetries: 5, RetryBackoff: time.Millisecond, HoldTTL: 15 * time.Minute}),
		Holds:     h.holds,
		Events:    h.events,
		Snapshots: h.snapshots,
		Clock:     clock.Now,
		Log:       log,
	})

	ctx := context.Background()
	var err error
	h.hotel, err = h.svc.CreateHotel(ctx, &models.CreateHotelRequest{Name: "Harbor View"})
	require.NoError(t, err)

	req := &models.CreateTripRequest{
		HotelID: h.hotel.ID,
		Name:    "Hotel ⇄ Airport",
		Windows: []models.ScheduleWindow{{Start: "09:00", End: "10:00"}},
	}
	for i := 0; i < legs; i++ {
		req.Legs = append(req.Legs, models.LegDefinition{StartLocationID: uuid.New(), EndLocationID: uuid.New()})
	}
	h.trip, err = h.svc.CreateTrip(ctx, req)
	require.NoError(t, err)

	for i, n := range seats {
		sh, err := h.svc.CreateShuttle(ctx, &models.CreateShuttleRequest{
			HotelID:       h.hotel.ID,
			VehicleNumber: string(rune('A' + i)),
			TotalSeats:    n,
		})
		require.NoError(t, err)
		if i == 0 {
			h.shuttle = sh
		}
	}
	return h
}

func (h *harness) book(t *testing.T, seats int, source models.BookingSource) (*models.CreateBookingResult, error) {
	t.Helper()
	return h.svc.CreateBooking(context.Background(), &models.CreateBookingRequest{
		GuestID:       uuid.New(),
		TripID:        h.trip.ID,
		HotelID:       h.hotel.ID,
		ScheduledDate: testDate,
		DesiredTime:   "09:00",
		Seats:         seats,
		PaymentMethod: models.PaymentMethodRoomCharge,
		Source:        source,
		CreatedBy:     h.staff,
	})
}

func (h *harness) available(t *testing.T) int {
	t.Helper()
	report, err := h.svc.GetAvailability(context.Background(), models.AvailabilityQuery{
		TripID: h.trip.ID,
		Slot:   models.Slot{Date: testDate, Start: "09:00", End: "10:00"},
	})
	require.NoError(t, err)
	return report.TotalAvailableSeats
}

func (h *harness) instance(t *testing.T, id uuid.UUID) *models.TripInstance {
	t.Helper()
	inst, err := h.store.GetInstance(context.Background(), id)
	require.NoError(t, err)
	return inst
}

func TestScenario_HoldConfirmCancel(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	a, err := h.book(t, 3, models.BookingSourceGuest)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, a.Booking.Status)
	assert.Equal(t, 1, h.available(t))

	_, err = h.book(t, 2, models.BookingSourceGuest)
	assert.True(t, apperrors.IsInsufficientCapacity(err))

	confirmed, err := h.svc.ConfirmBooking(ctx, a.Booking.ID, &models.ConfirmBookingRequest{UserID: h.staff})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	leg := h.instance(t, a.AssignedSlot.TripInstanceID).Legs[0]
	assert.Equal(t, 3, leg.SeatsOccupied)
	assert.Equal(t, 0, leg.SeatHeld)
	assert.Equal(t, 1, h.available(t))

	cancelled, err := h.svc.CancelBooking(ctx, a.Booking.ID, &models.CancelBookingRequest{UserID: h.staff, Reason: "flight moved"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 0, h.instance(t, a.AssignedSlot.TripInstanceID).Legs[0].SeatsOccupied)
	assert.Equal(t, 4, h.available(t))

	assert.Equal(t, []uuid.UUID{a.Booking.ID}, h.holds.scheduled)
	assert.Equal(t, models.HoldOutcomeConfirmed, h.holds.resolved[a.Booking.ID])
	assert.Equal(t, []models.EventType{
		models.EventBookingCreated,
		models.EventBookingConfirmed,
		models.EventBookingCancelled,
	}, h.events.types())
	assert.Equal(t, 3, h.snapshots.count)
}

func TestCancelBooking_IsIdempotent(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	first, err := h.book(t, 2, models.BookingSourceFrontdesk)
	require.NoError(t, err)
	second, err := h.book(t, 1, models.BookingSourceFrontdesk)
	require.NoError(t, err)

	req := &models.CancelBookingRequest{UserID: h.staff, Reason: "no show"}
	_, err = h.svc.CancelBooking(ctx, first.Booking.ID, req)
	require.NoError(t, err)
	again, err := h.svc.CancelBooking(ctx, first.Booking.ID, req)
	require.NoError(t, err)
	assert.NotNil(t, again.CancelledAt)

	leg := h.instance(t, second.AssignedSlot.TripInstanceID).Legs[0]
	assert.Equal(t, 1, leg.SeatsOccupied, "second cancel must not release the other booking's seat")
}

func TestCancelBooking_PendingBecomesRejected(t *testing.T) {
	h := newHarness(t, 1)

	placed, err := h.book(t, 2, models.BookingSourceGuest)
	require.NoError(t, err)

	b, err := h.svc.CancelBooking(context.Background(), placed.Booking.ID, &models.CancelBookingRequest{UserID: h.staff})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, b.Status)
	assert.Equal(t, models.SeatStateReleased, b.SeatState)
	assert.Equal(t, 0, h.instance(t, placed.AssignedSlot.TripInstanceID).Legs[0].SeatHeld)
	assert.Equal(t, models.HoldOutcomeCancelled, h.holds.resolved[placed.Booking.ID])
}

func TestBookingTransitions_Illegal(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	placed, err := h.book(t, 1, models.BookingSourceFrontdesk)
	require.NoError(t, err)

	_, err = h.svc.ConfirmBooking(ctx, placed.Booking.ID, &models.ConfirmBookingRequest{UserID: h.staff})
	assert.True(t, apperrors.IsInvalidTransition(err), "confirming a confirmed booking")

	_, err = h.svc.RejectBooking(ctx, placed.Booking.ID, &models.RejectBookingRequest{UserID: h.staff, Reason: "late"})
	assert.True(t, apperrors.IsInvalidTransition(err), "rejecting a confirmed booking")

	_, err = h.svc.ConfirmBooking(ctx, uuid.New(), &models.ConfirmBookingRequest{UserID: h.staff})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = h.svc.RejectBooking(ctx, placed.Booking.ID, &models.RejectBookingRequest{UserID: h.staff})
	assert.True(t, apperrors.IsValidation(err), "reason is required")
}

func TestRejectBooking_ReleasesHeldSeats(t *testing.T) {
	h := newHarness(t, 1)

	placed, err := h.book(t, 4, models.BookingSourceGuest)
	require.NoError(t, err)
	assert.Equal(t, 0, h.available(t))

	b, err := h.svc.RejectBooking(context.Background(), placed.Booking.ID, &models.RejectBookingRequest{UserID: h.staff, Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, b.Status)
	assert.Equal(t, "duplicate", b.RejectionReason)
	assert.Equal(t, 4, h.available(t))
}

func TestUpdatePayment(t *testing.T) {
	h := newHarness(t, 1, 10)
	ctx := context.Background()

	pay := func(id uuid.UUID, status models.PaymentStatus, reason string) (*models.Booking, error) {
		return h.svc.UpdatePayment(ctx, id, &models.PaymentUpdateRequest{Status: status, UserID: h.staff, Reason: reason})
	}

	paid, err := h.book(t, 1, models.BookingSourceGuest)
	require.NoError(t, err)
	b, err := pay(paid.Booking.ID, models.PaymentStatusPaid, "")
	require.NoError(t, err)
	assert.NotNil(t, b.PaidAt)
	_, err = pay(paid.Booking.ID, models.PaymentStatusWaived, "vip")
	assert.True(t, apperrors.IsInvalidTransition(err))
	b, err = pay(paid.Booking.ID, models.PaymentStatusRefunded, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, b.PaymentStatus)

	waived, err := h.book(t, 1, models.BookingSourceFrontdesk)
	require.NoError(t, err)
	_, err = pay(waived.Booking.ID, models.PaymentStatusWaived, "")
	assert.True(t, apperrors.IsValidation(err), "a waiver needs a reason")
	_, err = pay(waived.Booking.ID, models.PaymentStatusRefunded, "")
	assert.True(t, apperrors.IsInvalidTransition(err), "nothing was paid")
	b, err = pay(waived.Booking.ID, models.PaymentStatusWaived, "loyalty")
	require.NoError(t, err)
	assert.Equal(t, h.staff, *b.WaivedBy)
	assert.Equal(t, "loyalty", b.WaiverReason)
}

func TestSweepExpiredHolds(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	stale, err := h.book(t, 2, models.BookingSourceGuest)
	require.NoError(t, err)
	h.clock.Advance(10 * time.Minute)
	fresh, err := h.book(t, 1, models.BookingSourceGuest)
	require.NoError(t, err)
	h.clock.Advance(6 * time.Minute)

	result, err := h.svc.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, []string{stale.Booking.ID.String()}, result.IDs)

	b, err := h.svc.GetBooking(ctx, stale.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, b.Status)
	assert.Equal(t, HoldExpiredReason, b.RejectionReason)

	leg := h.instance(t, fresh.AssignedSlot.TripInstanceID).Legs[0]
	assert.Equal(t, 1, leg.SeatHeld)

	result, err = h.svc.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Rejected)
}

func TestConfirmBooking_AfterExpiryBeforeSweep(t *testing.T) {
	h := newHarness(t, 1)

	placed, err := h.book(t, 1, models.BookingSourceGuest)
	require.NoError(t, err)
	h.clock.Advance(time.Hour)

	b, err := h.svc.ConfirmBooking(context.Background(), placed.Booking.ID, &models.ConfirmBookingRequest{UserID: h.staff})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)

	expired, err := h.svc.ExpireHold(context.Background(), placed.Booking.ID)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestTripInstanceLifecycle(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()

	placed, err := h.book(t, 2, models.BookingSourceFrontdesk)
	require.NoError(t, err)
	id := placed.AssignedSlot.TripInstanceID

	_, err = h.svc.StartTripInstance(ctx, id)
	assert.True(t, apperrors.IsInvalidTransition(err), "no shuttle yet")

	_, err = h.svc.AssignShuttle(ctx, id, &models.AssignShuttleRequest{ShuttleID: h.shuttle.ID})
	require.NoError(t, err)

	_, err = h.svc.MarkLegCompleted(ctx, id, 0)
	assert.True(t, apperrors.IsInvalidTransition(err), "not started")

	inst, err := h.svc.StartTripInstance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TripInstanceStatusInProgress, inst.Status)
	assert.NotNil(t, inst.ActualStartTime)

	_, err = h.svc.MarkLegCompleted(ctx, id, 1)
	assert.True(t, apperrors.IsInvalidTransition(err), "legs complete in order")

	_, err = h.svc.CompleteTripInstance(ctx, id)
	assert.True(t, apperrors.IsInvalidTransition(err), "legs still open")

	_, err = h.svc.MarkLegCompleted(ctx, id, 0)
	require.NoError(t, err)
	again, err := h.svc.MarkLegCompleted(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, models.TripInstanceStatusInProgress, again.Status)

	_, err = h.svc.MarkLegCompleted(ctx, id, 1)
	require.NoError(t, err)
	inst, err = h.svc.MarkLegCompleted(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, models.TripInstanceStatusCompleted, inst.Status)
	assert.NotNil(t, inst.ActualEndTime)

	_, err = h.svc.CancelTripInstance(ctx, id, &models.CancelTripInstanceRequest{UserID: h.staff, Reason: "weather"})
	assert.True(t, apperrors.IsInvalidTransition(err), "completed is terminal")
}

func TestCancelTripInstance_ReleasesEverything(t *testing.T) {
	h := newHarness(t, 2, 6)
	ctx := context.Background()

	pending, err := h.book(t, 2, models.BookingSourceGuest)
	require.NoError(t, err)
	confirmed, err := h.book(t, 3, models.BookingSourceFrontdesk)
	require.NoError(t, err)
	id := pending.AssignedSlot.TripInstanceID
	require.Equal(t, id, confirmed.AssignedSlot.TripInstanceID)

	inst, err := h.svc.CancelTripInstance(ctx, id, &models.CancelTripInstanceRequest{UserID: h.staff, Reason: "road closed"})
	require.NoError(t, err)
	assert.Equal(t, models.TripInstanceStatusCancelled, inst.Status)
	for _, leg := range inst.Legs {
		assert.Zero(t, leg.Used())
	}

	p, err := h.svc.GetBooking(ctx, pending.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, p.Status)
	assert.Contains(t, p.RejectionReason, "road closed")

	c, err := h.svc.GetBooking(ctx, confirmed.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, c.Status)
	assert.NotNil(t, c.CancelledAt)

	_, err = h.svc.MarkLegCompleted(ctx, id, 0)
	assert.True(t, apperrors.IsInvalidTransition(err), "cancelled is terminal")

	_, err = h.svc.CancelBooking(ctx, confirmed.Booking.ID, &models.CancelBookingRequest{UserID: h.staff})
	require.NoError(t, err, "already cancelled bookings are returned unchanged")

	fresh, err := h.book(t, 6, models.BookingSourceGuest)
	require.NoError(t, err, "the slot is free again")
	assert.NotEqual(t, id, fresh.AssignedSlot.TripInstanceID)
}

func TestDeleteTrip_RefusedWithActiveInstances(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	placed, err := h.book(t, 1, models.BookingSourceGuest)
	require.NoError(t, err)

	err = h.svc.DeleteTrip(ctx, h.trip.ID)
	assert.True(t, apperrors.IsConflict(err))

	_, err = h.svc.CancelTripInstance(ctx, placed.AssignedSlot.TripInstanceID, &models.CancelTripInstanceRequest{UserID: h.staff, Reason: "retired"})
	require.NoError(t, err)
	require.NoError(t, h.svc.DeleteTrip(ctx, h.trip.ID))

	_, err = h.svc.GetTrip(ctx, h.trip.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateTrip_Validation(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	_, err := h.svc.CreateTrip(ctx, &models.CreateTripRequest{HotelID: h.hotel.ID, Name: "Empty", Windows: []models.ScheduleWindow{{Start: "09:00", End: "10:00"}}})
	assert.True(t, apperrors.IsValidation(err), "at least one leg")

	_, err = h.svc.CreateTrip(ctx, &models.CreateTripRequest{
		HotelID: h.hotel.ID,
		Name:    "Backwards",
		Legs:    []models.LegDefinition{{StartLocationID: uuid.New(), EndLocationID: uuid.New()}},
		Windows: []models.ScheduleWindow{{Start: "10:00", End: "09:00"}},
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.svc.CreateBooking(ctx, &models.CreateBookingRequest{TripID: h.trip.ID})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDashboardAndManifest(t *testing.T) {
	h := newHarness(t, 1, 4, 4)
	ctx := context.Background()

	first, err := h.book(t, 4, models.BookingSourceFrontdesk)
	require.NoError(t, err)
	_, err = h.book(t, 1, models.BookingSourceGuest)
	require.NoError(t, err)

	_, err = h.svc.AssignShuttle(ctx, first.AssignedSlot.TripInstanceID, &models.AssignShuttleRequest{ShuttleID: h.shuttle.ID})
	require.NoError(t, err)

	stats, err := h.svc.GetDashboard(ctx, h.hotel.ID, testDate)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.InstancesByStatus[models.TripInstanceStatusScheduled])
	assert.Equal(t, 1, stats.SeatsHeld)
	assert.Equal(t, 4, stats.SeatsOccupied)
	assert.Equal(t, 1, stats.UnassignedInstance)
	assert.Len(t, stats.ActiveTrips, 2)

	manifest, err := h.svc.ListTripInstances(ctx, models.InstanceFilter{ShuttleID: &h.shuttle.ID, Date: testDate})
	require.NoError(t, err)
	require.Len(t, manifest, 1)
	assert.Equal(t, 4, manifest[0].PeakOccupancy)
	assert.Equal(t, 4, manifest[0].Capacity)
	assert.Equal(t, 1, manifest[0].BookingCount)

	_, err = h.svc.ListTripInstances(ctx, models.InstanceFilter{Date: testDate})
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateShuttle_DeactivationKeepsHeldSeats(t *testing.T) {
	h := newHarness(t, 1, 10, 4)
	ctx := context.Background()
	off := false

	placed, err := h.book(t, 8, models.BookingSourceGuest)
	require.NoError(t, err)

	_, err = h.svc.UpdateShuttle(ctx, h.shuttle.ID, &models.UpdateShuttleRequest{Active: &off})
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	stored, err := h.store.GetShuttle(ctx, h.shuttle.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	_, err = h.svc.CancelBooking(ctx, placed.Booking.ID, &models.CancelBookingRequest{UserID: h.staff})
	require.NoError(t, err)

	updated, err := h.svc.UpdateShuttle(ctx, h.shuttle.ID, &models.UpdateShuttleRequest{Active: &off})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}
