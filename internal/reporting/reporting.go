// Package reporting builds read-only views over trip instances and bookings.
// Peak occupancy is always the full-route maximum of committed plus held seats.
package reporting

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// Snapshot projects one instance. Only bookings still holding seats are counted.
func Snapshot(inst *models.TripInstance, bookings []*models.Booking, capacity int) models.TripInstanceSnapshot {
	snap := models.TripInstanceSnapshot{
		TripInstanceID:  inst.ID,
		TripID:          inst.TripID,
		ShuttleID:       inst.ShuttleID,
		Slot:            inst.Slot(),
		Status:          inst.Status,
		PerLegOccupancy: make([]models.LegOccupancy, 0, len(inst.Legs)),
		PeakOccupancy:   inst.PeakOccupancy(),
		Capacity:        capacity,
		BookingCount:    activeBookings(inst.ID, bookings),
		Version:         inst.Version,
	}

	legs := append([]models.RouteInstance(nil), inst.Legs...)
	sort.Slice(legs, func(i, j int) bool { return legs[i].OrderIndex < legs[j].OrderIndex })
	for _, leg := range legs {
		snap.PerLegOccupancy = append(snap.PerLegOccupancy, models.LegOccupancy{
			OrderIndex:    leg.OrderIndex,
			SeatsOccupied: leg.SeatsOccupied,
			SeatHeld:      leg.SeatHeld,
			Completed:     leg.Completed,
			ETA:           leg.ETA,
		})
	}
	return snap
}

// Dashboard aggregates one hotel day. capacities maps instance id to its seat ceiling.
func Dashboard(hotelID uuid.UUID, date string, instances []*models.TripInstance, bookings []*models.Booking, capacities map[uuid.UUID]int) *models.DashboardStats {
	stats := &models.DashboardStats{
		HotelID:           hotelID,
		Date:              date,
		InstancesByStatus: make(map[models.TripInstanceStatus]int),
		BookingsByStatus:  make(map[models.BookingStatus]int),
		PaymentsByStatus:  make(map[models.PaymentStatus]int),
		ActiveTrips:       []models.TripInstanceSnapshot{},
	}

	for _, b := range bookings {
		stats.BookingsByStatus[b.Status]++
		stats.PaymentsByStatus[b.PaymentStatus]++
	}

	for _, inst := range instances {
		stats.InstancesByStatus[inst.Status]++
		if inst.Status == models.TripInstanceStatusCancelled {
			continue
		}

		for _, leg := range inst.Legs {
			stats.SeatsHeld += leg.SeatHeld
			stats.SeatsOccupied += leg.SeatsOccupied
		}
		stats.PeakOccupancySum += inst.PeakOccupancy()

		if inst.Status.IsTerminal() {
			continue
		}
		if inst.IsProvisional() {
			stats.UnassignedInstance++
		}
		stats.ActiveTrips = append(stats.ActiveTrips, Snapshot(inst, bookings, capacities[inst.ID]))
	}
	return stats
}

func activeBookings(instanceID uuid.UUID, bookings []*models.Booking) int {
	n := 0
	for _, b := range bookings {
		if b.TripInstanceID == instanceID && b.SeatState != models.SeatStateReleased {
			n++
		}
	}
	return n
}
