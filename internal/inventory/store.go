package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// Store keeps the catalog and the seat ledger in memory. Every trip instance
// has its own mutex, so unrelated instances never contend.
type Store struct {
	mu        sync.RWMutex
	hotels    map[uuid.UUID]*models.Hotel
	trips     map[uuid.UUID]*models.Trip
	shuttles  map[uuid.UUID]*models.Shuttle
	instances map[uuid.UUID]*models.TripInstance
	bookings  map[uuid.UUID]*models.Booking
	slots     map[string]uuid.UUID

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

var (
	_ allocator.Catalog = (*Store)(nil)
	_ allocator.Ledger  = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		hotels:    make(map[uuid.UUID]*models.Hotel),
		trips:     make(map[uuid.UUID]*models.Trip),
		shuttles:  make(map[uuid.UUID]*models.Shuttle),
		instances: make(map[uuid.UUID]*models.TripInstance),
		bookings:  make(map[uuid.UUID]*models.Booking),
		slots:     make(map[string]uuid.UUID),
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func slotIndexKey(inst *models.TripInstance) string {
	return fmt.Sprintf("%s|%s|%s|%s", inst.SlotKey(), inst.ScheduledDate, inst.StartTime, inst.EndTime)
}

func (s *Store) instanceLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Catalog

func (s *Store) CreateHotel(ctx context.Context, h *models.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *h
	s.hotels[h.ID] = &c
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id uuid.UUID) (*models.Hotel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hotels[id]
	if !ok {
		return nil, apperrors.NotFoundError{Resource: "hotel", ID: id.String()}
	}
	c := *h
	return &c, nil
}

func (s *Store) CreateTrip(ctx context.Context, t *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hotels[t.HotelID]; !ok {
		return apperrors.NotFoundError{Resource: "hotel", ID: t.HotelID.String()}
	}
	s.trips[t.ID] = cloneTrip(t)
	return nil
}

func (s *Store) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trips[id]
	if !ok {
		return nil, apperrors.NotFoundError{Resource: "trip", ID: id.String()}
	}
	return cloneTrip(t), nil
}

func (s *Store) ListTrips(ctx context.Context, hotelID uuid.UUID) ([]models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Trip
	for _, t := range s.trips {
		if t.HotelID == hotelID {
			out = append(out, *cloneTrip(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trips[id]; !ok {
		return apperrors.NotFoundError{Resource: "trip", ID: id.String()}
	}
	delete(s.trips, id)
	return nil
}

func (s *Store) CreateShuttle(ctx context.Context, sh *models.Shuttle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hotels[sh.HotelID]; !ok {
		return apperrors.NotFoundError{Resource: "hotel", ID: sh.HotelID.String()}
	}
	for _, existing := range s.shuttles {
		if existing.HotelID == sh.HotelID && existing.VehicleNumber == sh.VehicleNumber {
			return apperrors.ConflictError{Resource: "shuttle", Msg: fmt.Sprintf("vehicle number %s already registered", sh.VehicleNumber)}
		}
	}
	c := *sh
	s.shuttles[sh.ID] = &c
	return nil
}

func (s *Store) UpdateShuttle(ctx context.Context, sh *models.Shuttle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shuttles[sh.ID]; !ok {
		return apperrors.NotFoundError{Resource: "shuttle", ID: sh.ID.String()}
	}
	c := *sh
	s.shuttles[sh.ID] = &c
	return nil
}

func (s *Store) GetShuttle(ctx context.Context, id uuid.UUID) (*models.Shuttle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shuttles[id]
	if !ok {
		return nil, apperrors.NotFoundError{Resource: "shuttle", ID: id.String()}
	}
	c := *sh
	return &c, nil
}

func (s *Store) ListShuttles(ctx context.Context, hotelID uuid.UUID, activeOnly bool) ([]models.Shuttle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Shuttle
	for _, sh := range s.shuttles {
		if sh.HotelID != hotelID || (activeOnly && !sh.Active) {
			continue
		}
		out = append(out, *sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleNumber < out[j].VehicleNumber })
	return out, nil
}

func cloneTrip(t *models.Trip) *models.Trip {
	c := *t
	c.Legs = append([]models.Route(nil), t.Legs...)
	c.Windows = append([]models.ScheduleWindow(nil), t.Windows...)
	return &c
}
