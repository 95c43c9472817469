package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// BookingService is the core surface used by the guest, frontdesk, driver and admin apps
type BookingService interface {
	CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.CreateBookingResult, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, req *models.ConfirmBookingRequest) (*models.Booking, error)
	RejectBooking(ctx context.Context, bookingID uuid.UUID, req *models.RejectBookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, req *models.CancelBookingRequest) (*models.Booking, error)
	UpdatePayment(ctx context.Context, bookingID uuid.UUID, req *models.PaymentUpdateRequest) (*models.Booking, error)
	ExpireHold(ctx context.Context, bookingID uuid.UUID) (bool, error)
	SweepExpiredHolds(ctx context.Context) (*models.HoldSweepResult, error)

	GetAvailability(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityReport, error)
	GetTripInstanceSnapshot(ctx context.Context, instanceID uuid.UUID) (*models.TripInstanceSnapshot, error)
	ListTripInstances(ctx context.Context, filter models.InstanceFilter) ([]models.TripInstanceSnapshot, error)
	GetDashboard(ctx context.Context, hotelID uuid.UUID, date string) (*models.DashboardStats, error)

	ScheduleTripInstance(ctx context.Context, req *models.ScheduleTripInstanceRequest) (*models.TripInstance, error)
	AssignShuttle(ctx context.Context, instanceID uuid.UUID, req *models.AssignShuttleRequest) (*models.TripInstance, error)
	StartTripInstance(ctx context.Context, instanceID uuid.UUID) (*models.TripInstance, error)
	MarkLegCompleted(ctx context.Context, instanceID uuid.UUID, legIndex int) (*models.TripInstance, error)
	CompleteTripInstance(ctx context.Context, instanceID uuid.UUID) (*models.TripInstance, error)
	CancelTripInstance(ctx context.Context, instanceID uuid.UUID, req *models.CancelTripInstanceRequest) (*models.TripInstance, error)

	CreateHotel(ctx context.Context, req *models.CreateHotelRequest) (*models.Hotel, error)
	CreateTrip(ctx context.Context, req *models.CreateTripRequest) (*models.Trip, error)
	GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
	ListTrips(ctx context.Context, hotelID uuid.UUID) ([]models.Trip, error)
	DeleteTrip(ctx context.Context, tripID uuid.UUID) error
	CreateShuttle(ctx context.Context, req *models.CreateShuttleRequest) (*models.Shuttle, error)
	UpdateShuttle(ctx context.Context, shuttleID uuid.UUID, req *models.UpdateShuttleRequest) (*models.Shuttle, error)
	ListShuttles(ctx context.Context, hotelID uuid.UUID) ([]models.Shuttle, error)
}

// CatalogStore is the writable catalog behind the admin operations
type CatalogStore interface {
	allocator.Catalog
	CreateHotel(ctx context.Context, h *models.Hotel) error
	CreateTrip(ctx context.Context, t *models.Trip) error
	ListTrips(ctx context.Context, hotelID uuid.UUID) ([]models.Trip, error)
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	CreateShuttle(ctx context.Context, sh *models.Shuttle) error
	UpdateShuttle(ctx context.Context, sh *models.Shuttle) error
}

// HoldScheduler arranges for a guest hold to be expired if nobody resolves it
type HoldScheduler interface {
	ScheduleHoldExpiry(ctx context.Context, b *models.Booking) error
	ResolveHold(ctx context.Context, bookingID uuid.UUID, outcome string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

type SnapshotBroadcaster interface {
	BroadcastSnapshot(snapshot models.TripInstanceSnapshot)
}

type Dependencies struct {
	Catalog   CatalogStore
	Ledger    allocator.Ledger
	Allocator *allocator.Allocator
	Holds     HoldScheduler
	Events    EventPublisher
	Snapshots SnapshotBroadcaster
	Clock     func() time.Time
	Log       *logger.Logger
}

// bookingServiceImpl implements BookingService
type bookingServiceImpl struct {
	catalog   CatalogStore
	ledger    allocator.Ledger
	alloc     *allocator.Allocator
	validator *RequestValidator
	holds     HoldScheduler
	events    EventPublisher
	snapshots SnapshotBroadcaster
	clock     func() time.Time
	log       *logger.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(deps Dependencies) BookingService {
	svc := &bookingServiceImpl{
		catalog:   deps.Catalog,
		ledger:    deps.Ledger,
		alloc:     deps.Allocator,
		holds:     deps.Holds,
		events:    deps.Events,
		snapshots: deps.Snapshots,
		clock:     deps.Clock,
		log:       deps.Log,
	}
	if svc.log == nil {
		svc.log = logger.Nop()
	}
	if svc.clock == nil {
		svc.clock = func() time.Time { return time.Now().UTC() }
	}
	if svc.alloc == nil {
		svc.alloc = allocator.New(deps.Catalog, deps.Ledger, svc.log, allocator.Options{})
	}
	if svc.holds == nil {
		svc.holds = noopHolds{}
	}
	if svc.events == nil {
		svc.events = noopEvents{}
	}
	if svc.snapshots == nil {
		svc.snapshots = noopSnapshots{}
	}
	svc.validator = NewRequestValidator(svc.log)
	return svc
}

// errUnchanged aborts a ledger update that would not change anything
var errUnchanged = errors.New("unchanged")

// mutate runs fn under the instance guard, retrying lost races. A fn returning
// errUnchanged rolls back and reports changed=false without an error.
func (s *bookingServiceImpl) mutate(ctx context.Context, instanceID uuid.UUID, fn func(tx allocator.InstanceTx) error) (*models.TripInstance, bool, error) {
	var inst *models.TripInstance
	err := s.alloc.Retry(ctx, func() error {
		var err error
		inst, err = s.ledger.Mutate(ctx, instanceID, fn)
		return err
	})
	if errors.Is(err, errUnchanged) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return inst, true, nil
}

type noopHolds struct{}

func (noopHolds) ScheduleHoldExpiry(context.Context, *models.Booking) error { return nil }
func (noopHolds) ResolveHold(context.Context, uuid.UUID, string) error      { return nil }

type noopEvents struct{}

func (noopEvents) Publish(context.Context, models.Event) error { return nil }

type noopSnapshots struct{}

func (noopSnapshots) BroadcastSnapshot(models.TripInstanceSnapshot) {}
