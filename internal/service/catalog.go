package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

func (s *bookingServiceImpl) CreateHotel(ctx context.Context, req *models.CreateHotelRequest) (*models.Hotel, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	hotel := &models.Hotel{ID: uuid.New(), Name: req.Name, CreatedAt: s.clock()}
	if err := s.catalog.CreateHotel(ctx, hotel); err != nil {
		return nil, err
	}
	s.log.Info("Hotel created", "hotel_id", hotel.ID, "name", hotel.Name)
	return hotel, nil
}

// CreateTrip materializes one route row per leg with contiguous order indices
func (s *bookingServiceImpl) CreateTrip(ctx context.Context, req *models.CreateTripRequest) (*models.Trip, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := validateWindows(req.Windows); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetHotel(ctx, req.HotelID); err != nil {
		return nil, err
	}

	trip := &models.Trip{
		ID:        uuid.New(),
		HotelID:   req.HotelID,
		Name:      req.Name,
		Windows:   append([]models.ScheduleWindow(nil), req.Windows...),
		CreatedAt: s.clock(),
	}
	for i, leg := range req.Legs {
		trip.Legs = append(trip.Legs, models.Route{
			ID:              uuid.New(),
			TripID:          trip.ID,
			OrderIndex:      i,
			StartLocationID: leg.StartLocationID,
			EndLocationID:   leg.EndLocationID,
		})
	}

	if err := s.catalog.CreateTrip(ctx, trip); err != nil {
		return nil, err
	}
	s.log.Info("Trip created", "trip_id", trip.ID, "hotel_id", trip.HotelID, "legs", len(trip.Legs))
	return trip, nil
}

func (s *bookingServiceImpl) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	return s.catalog.GetTrip(ctx, tripID)
}

func (s *bookingServiceImpl) ListTrips(ctx context.Context, hotelID uuid.UUID) ([]models.Trip, error) {
	if _, err := s.catalog.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	return s.catalog.ListTrips(ctx, hotelID)
}

// DeleteTrip is refused while the trip still has scheduled or running instances
func (s *bookingServiceImpl) DeleteTrip(ctx context.Context, tripID uuid.UUID) error {
	if _, err := s.catalog.GetTrip(ctx, tripID); err != nil {
		return err
	}
	active, err := s.ledger.CountActiveInstances(ctx, tripID)
	if err != nil {
		return fmt.Errorf("failed to count trip instances: %w", err)
	}
	if active > 0 {
		return apperrors.ConflictError{Resource: "trip", Msg: fmt.Sprintf("%d active trip instances still reference it", active)}
	}
	if err := s.catalog.DeleteTrip(ctx, tripID); err != nil {
		return err
	}
	s.log.Info("Trip deleted", "trip_id", tripID)
	return nil
}

func (s *bookingServiceImpl) CreateShuttle(ctx context.Context, req *models.CreateShuttleRequest) (*models.Shuttle, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetHotel(ctx, req.HotelID); err != nil {
		return nil, err
	}

	now := s.clock()
	shuttle := &models.Shuttle{
		ID:            uuid.New(),
		HotelID:       req.HotelID,
		VehicleNumber: req.VehicleNumber,
		TotalSeats:    req.TotalSeats,
		Active:        true,
		DriverID:      req.DriverID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.catalog.CreateShuttle(ctx, shuttle); err != nil {
		return nil, err
	}
	s.log.Info("Shuttle created", "shuttle_id", shuttle.ID, "vehicle_number", shuttle.VehicleNumber, "seats", shuttle.TotalSeats)
	return shuttle, nil
}

// UpdateShuttle toggles the active flag or the assigned driver; seats never change
func (s *bookingServiceImpl) UpdateShuttle(ctx context.Context, shuttleID uuid.UUID, req *models.UpdateShuttleRequest) (*models.Shuttle, error) {
	shuttle, err := s.catalog.GetShuttle(ctx, shuttleID)
	if err != nil {
		return nil, err
	}

	if req.Active != nil {
		if shuttle.Active && !*req.Active {
			if err := s.alloc.CheckRetire(ctx, shuttle.HotelID, shuttle.ID); err != nil {
				return nil, err
			}
		}
		shuttle.Active = *req.Active
	}
	switch {
	case req.ClearDriver:
		shuttle.DriverID = nil
	case req.DriverID != nil:
		driver := *req.DriverID
		shuttle.DriverID = &driver
	}
	shuttle.UpdatedAt = s.clock()

	if err := s.catalog.UpdateShuttle(ctx, shuttle); err != nil {
		return nil, err
	}
	s.log.Info("Shuttle updated", "shuttle_id", shuttle.ID, "active", shuttle.Active)
	return shuttle, nil
}

func (s *bookingServiceImpl) ListShuttles(ctx context.Context, hotelID uuid.UUID) ([]models.Shuttle, error) {
	if _, err := s.catalog.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	return s.catalog.ListShuttles(ctx, hotelID, false)
}

func validateWindows(windows []models.ScheduleWindow) error {
	seen := make(map[models.ScheduleWindow]bool, len(windows))
	for i, w := range windows {
		field := fmt.Sprintf("windows[%d]", i)
		start, err := models.ClockMinutes(w.Start)
		if err != nil {
			return apperrors.ValidationError{Field: field, Msg: err.Error()}
		}
		end, err := models.ClockMinutes(w.End)
		if err != nil {
			return apperrors.ValidationError{Field: field, Msg: err.Error()}
		}
		if end <= start {
			return apperrors.ValidationError{Field: field, Msg: "end must be after start"}
		}
		if seen[w] {
			return apperrors.ValidationError{Field: field, Msg: "duplicate window"}
		}
		seen[w] = true
	}
	return nil
}
