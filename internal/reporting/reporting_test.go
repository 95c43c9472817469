package reporting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

func instance(status models.TripInstanceStatus, shuttle *uuid.UUID, legs ...[2]int) *models.TripInstance {
	inst := &models.TripInstance{
		ID:            uuid.New(),
		TripID:        uuid.New(),
		ShuttleID:     shuttle,
		ScheduledDate: "2030-05-02",
		StartTime:     "09:00",
		EndTime:       "10:00",
		Status:        status,
	}
	for i, l := range legs {
		inst.Legs = append(inst.Legs, models.RouteInstance{OrderIndex: i, SeatsOccupied: l[0], SeatHeld: l[1]})
	}
	return inst
}

func TestSnapshot_FullRoutePeak(t *testing.T) {
	inst := instance(models.TripInstanceStatusScheduled, nil, [2]int{1, 1}, [2]int{3, 2}, [2]int{0, 1})
	bookings := []*models.Booking{
		{TripInstanceID: inst.ID, SeatState: models.SeatStateHeld},
		{TripInstanceID: inst.ID, SeatState: models.SeatStateOccupied},
		{TripInstanceID: inst.ID, SeatState: models.SeatStateReleased},
		{TripInstanceID: uuid.New(), SeatState: models.SeatStateOccupied},
	}

	snap := Snapshot(inst, bookings, 8)

	assert.Equal(t, 5, snap.PeakOccupancy)
	assert.Equal(t, 8, snap.Capacity)
	assert.Equal(t, 2, snap.BookingCount)
	require.Len(t, snap.PerLegOccupancy, 3)
	assert.Equal(t, 3, snap.PerLegOccupancy[1].SeatsOccupied)
	assert.Equal(t, 2, snap.PerLegOccupancy[1].SeatHeld)
}

func TestDashboard(t *testing.T) {
	shuttle := uuid.New()
	hotel := uuid.New()
	running := instance(models.TripInstanceStatusInProgress, &shuttle, [2]int{4, 0})
	pending := instance(models.TripInstanceStatusScheduled, nil, [2]int{0, 2}, [2]int{1, 2})
	done := instance(models.TripInstanceStatusCompleted, &shuttle, [2]int{6, 0})
	cancelled := instance(models.TripInstanceStatusCancelled, nil, [2]int{0, 0})

	bookings := []*models.Booking{
		{TripInstanceID: running.ID, Status: models.BookingStatusConfirmed, PaymentStatus: models.PaymentStatusPaid, SeatState: models.SeatStateOccupied},
		{TripInstanceID: pending.ID, Status: models.BookingStatusPending, PaymentStatus: models.PaymentStatusUnpaid, SeatState: models.SeatStateHeld},
		{TripInstanceID: cancelled.ID, Status: models.BookingStatusRejected, PaymentStatus: models.PaymentStatusUnpaid, SeatState: models.SeatStateReleased},
	}

	stats := Dashboard(hotel, "2030-05-02", []*models.TripInstance{running, pending, done, cancelled}, bookings, map[uuid.UUID]int{running.ID: 12})

	assert.Equal(t, 1, stats.InstancesByStatus[models.TripInstanceStatusInProgress])
	assert.Equal(t, 1, stats.InstancesByStatus[models.TripInstanceStatusCancelled])
	assert.Equal(t, 1, stats.BookingsByStatus[models.BookingStatusPending])
	assert.Equal(t, 2, stats.PaymentsByStatus[models.PaymentStatusUnpaid])
	assert.Equal(t, 4, stats.SeatsHeld)
	assert.Equal(t, 4+1+6, stats.SeatsOccupied)
	assert.Equal(t, 4+3+6, stats.PeakOccupancySum)
	assert.Equal(t, 1, stats.UnassignedInstance)
	require.Len(t, stats.ActiveTrips, 2)
	assert.Equal(t, 12, stats.ActiveTrips[0].Capacity)
}
