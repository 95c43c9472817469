package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*models.CreateBookingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreateBookingResult), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, req *models.ConfirmBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) RejectBooking(ctx context.Context, bookingID uuid.UUID, req *models.RejectBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, req *models.CancelBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) UpdatePayment(ctx context.Context, bookingID uuid.UUID, req *models.PaymentUpdateRequest) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) ExpireHold(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	args := m.Called(ctx, bookingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingService) SweepExpiredHolds(ctx context.Context) (*models.HoldSweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HoldSweepResult), args.Error(1)
}

func (m *MockBookingService) GetAvailability(ctx context.Context, q models.AvailabilityQuery) (*models.AvailabilityReport, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilityReport), args.Error(1)
}

func (m *MockBookingService) GetTripInstanceSnapshot(ctx context.Context, instanceID uuid.UUID) (*models.TripInstanceSnapshot, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripInstanceSnapshot), args.Error(1)
}

func (m *MockBookingService) ListTripInstances(ctx context.Context, filter models.InstanceFilter) ([]models.TripInstanceSnapshot, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TripInstanceSnapshot), args.Error(1)
}

func (m *MockBookingService) GetDashboard(ctx context.Context, hotelID uuid.UUID, date string) (*models.DashboardStats, error) {
	args := m.Called(ctx, hotelID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockBookingService) ScheduleTripInstance(ctx context.Context, req *models.ScheduleTripInstanceRequest) (*models.TripInstance, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripInstance), args.Error(1)
}

func (m *MockBookingService) AssignShuttle(ctx context.Context, instanceID uuid.UUID, req *models.AssignShuttleRequest) (*models.TripInstance, error) {
	args := m.Called(ctx, instanceID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripInstance), args.Error(1)
}

func (m *MockBookingService) StartTripInstance(ctx context.Context, instanceID uuid.UUID) (*models.TripInstance, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripInstance), args.Error(1)
}

func (m *MockBookingService) MarkLegCompleted(ctx context.Context, instanceID uuid.UUID, legIndex int) (*models.TripInstance, error) {
	args := m.Called(ctx, instanceID, legIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripInstance), args.Error(1)
}

func (m *MockBookingService) CompleteTripInstance(ctx context.Context, instanceID uuid.UUID) (*models.TripInstance, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripInstance), args.Error(1)
}

func (m *MockBookingService) CancelTripInstance(ctx context.Context, instanceID uuid.UUID, req *models.CancelTripInstanceRequest) (*models.TripInstance, error) {
	args := m.Called(ctx, instanceID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TripInstance), args.Error(1)
}

func (m *MockBookingService) CreateHotel(ctx context.Context, req *models.CreateHotelRequest) (*models.Hotel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Hotel), args.Error(1)
}

func (m *MockBookingService) CreateTrip(ctx context.Context, req *models.CreateTripRequest) (*models.Trip, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *MockBookingService) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *MockBookingService) ListTrips(ctx context.Context, hotelID uuid.UUID) ([]models.Trip, error) {
	args := m.Called(ctx, hotelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Trip), args.Error(1)
}

func (m *MockBookingService) DeleteTrip(ctx context.Context, tripID uuid.UUID) error {
	args := m.Called(ctx, tripID)
	return args.Error(0)
}

func (m *MockBookingService) CreateShuttle(ctx context.Context, req *models.CreateShuttleRequest) (*models.Shuttle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shuttle), args.Error(1)
}

func (m *MockBookingService) UpdateShuttle(ctx context.Context, shuttleID uuid.UUID, req *models.UpdateShuttleRequest) (*models.Shuttle, error) {
	args := m.Called(ctx, shuttleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shuttle), args.Error(1)
}

func (m *MockBookingService) ListShuttles(ctx context.Context, hotelID uuid.UUID) ([]models.Shuttle, error) {
	args := m.Called(ctx, hotelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shuttle), args.Error(1)
}
