package allocator

import (
	"context"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// Catalog is the read side of hotels, trips and shuttles
type Catalog interface {
	GetHotel(ctx context.Context, id uuid.UUID) (*models.Hotel, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	GetShuttle(ctx context.Context, id uuid.UUID) (*models.Shuttle, error)
	ListShuttles(ctx context.Context, hotelID uuid.UUID, activeOnly bool) ([]models.Shuttle, error)
}

// InstanceTx is the view of one trip instance inside a serialized update.
// Changes made to Instance() and saved bookings are committed together or not at all.
type InstanceTx interface {
	Instance() *models.TripInstance
	Booking(id uuid.UUID) (*models.Booking, error)
	Bookings() ([]*models.Booking, error)
	SaveBooking(b *models.Booking) error
}

// Ledger stores trip instances, their route instances and bookings
type Ledger interface {
	// ListWindow returns every non-cancelled instance of the hotel in the slot
	ListWindow(ctx context.Context, hotelID uuid.UUID, slot models.Slot) ([]*models.TripInstance, error)
	GetInstance(ctx context.Context, id uuid.UUID) (*models.TripInstance, error)
	ListInstances(ctx context.Context, filter models.InstanceFilter) ([]*models.TripInstance, error)
	// CreateInstance fails with ConcurrencyConflictError when the slot key is taken
	CreateInstance(ctx context.Context, inst *models.TripInstance) error
	// Mutate runs fn under the per-instance guard and returns the committed instance.
	// Lost races surface as ConcurrencyConflictError.
	Mutate(ctx context.Context, instanceID uuid.UUID, fn func(tx InstanceTx) error) (*models.TripInstance, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	CountActiveInstances(ctx context.Context, tripID uuid.UUID) (int, error)
}
