package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// SeedData lists the ids created by Seed
type SeedData struct {
	HotelID      uuid.UUID
	AirportTrip  uuid.UUID
	DowntownLoop uuid.UUID
	ShuttleIDs   []uuid.UUID
}

// Seed loads one sample hotel with two trips and three shuttles
func (s *Store) Seed(ctx context.Context, now time.Time) (*SeedData, error) {
	hotel := &models.Hotel{ID: uuid.New(), Name: "Harbor View Hotel", CreatedAt: now}
	if err := s.CreateHotel(ctx, hotel); err != nil {
		return nil, err
	}

	lobby, airport := uuid.New(), uuid.New()
	museum, station, market := uuid.New(), uuid.New(), uuid.New()

	airportTrip := newSeedTrip(hotel.ID, "Hotel ⇄ Airport", now,
		[][2]uuid.UUID{{lobby, airport}},
		[]models.ScheduleWindow{{Start: "06:00", End: "07:00"}, {Start: "09:00", End: "10:00"}, {Start: "17:30", End: "18:30"}},
	)
	downtown := newSeedTrip(hotel.ID, "Downtown Loop", now,
		[][2]uuid.UUID{{lobby, museum}, {museum, station}, {station, market}, {market, lobby}},
		[]models.ScheduleWindow{{Start: "10:00", End: "11:30"}, {Start: "14:00", End: "15:30"}},
	)
	for _, t := range []*models.Trip{airportTrip, downtown} {
		if err := s.CreateTrip(ctx, t); err != nil {
			return nil, err
		}
	}

	data := &SeedData{HotelID: hotel.ID, AirportTrip: airportTrip.ID, DowntownLoop: downtown.ID}
	for _, v := range []struct {
		number string
		seats  int
	}{
		{"HV-01", 12},
		{"HV-02", 8},
		{"HV-03", 4},
	} {
		sh := &models.Shuttle{
			ID:            uuid.New(),
			HotelID:       hotel.ID,
			VehicleNumber: v.number,
			TotalSeats:    v.seats,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.CreateShuttle(ctx, sh); err != nil {
			return nil, err
		}
		data.ShuttleIDs = append(data.ShuttleIDs, sh.ID)
	}
	return data, nil
}

func newSeedTrip(hotelID uuid.UUID, name string, now time.Time, legs [][2]uuid.UUID, windows []models.ScheduleWindow) *models.Trip {
	t := &models.Trip{ID: uuid.New(), HotelID: hotelID, Name: name, Windows: windows, CreatedAt: now}
	for i, leg := range legs {
		t.Legs = append(t.Legs, models.Route{
			ID:              uuid.New(),
			TripID:          t.ID,
			OrderIndex:      i,
			StartLocationID: leg[0],
			EndLocationID:   leg[1],
		})
	}
	return t
}
