package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

func (s *Store) CreateInstance(ctx context.Context, inst *models.TripInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotIndexKey(inst)
	if _, taken := s.slots[key]; taken {
		return apperrors.ConcurrencyConflictError{Resource: "trip instance slot " + inst.SlotKey()}
	}
	c := inst.Clone()
	c.Version = 1
	inst.Version = 1
	s.instances[inst.ID] = c
	s.slots[key] = inst.ID
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id uuid.UUID) (*models.TripInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, apperrors.NotFoundError{Resource: "trip instance", ID: id.String()}
	}
	return inst.Clone(), nil
}

func (s *Store) ListWindow(ctx context.Context, hotelID uuid.UUID, slot models.Slot) ([]*models.TripInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TripInstance
	for _, inst := range s.instances {
		if inst.HotelID != hotelID || inst.Slot() != slot || inst.Status == models.TripInstanceStatusCancelled {
			continue
		}
		out = append(out, inst.Clone())
	}
	sortInstances(out)
	return out, nil
}

func (s *Store) ListInstances(ctx context.Context, filter models.InstanceFilter) ([]*models.TripInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TripInstance
	for _, inst := range s.instances {
		if filter.HotelID != nil && inst.HotelID != *filter.HotelID {
			continue
		}
		if filter.TripID != nil && inst.TripID != *filter.TripID {
			continue
		}
		if filter.ShuttleID != nil && (inst.ShuttleID == nil || *inst.ShuttleID != *filter.ShuttleID) {
			continue
		}
		if filter.Date != "" && inst.ScheduledDate != filter.Date {
			continue
		}
		out = append(out, inst.Clone())
	}
	sortInstances(out)
	return out, nil
}

func (s *Store) CountActiveInstances(ctx context.Context, tripID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, inst := range s.instances {
		if inst.TripID == tripID && !inst.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.NotFoundError{Resource: "booking", ID: id.String()}
	}
	return b.Clone(), nil
}

func (s *Store) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Booking
	for _, b := range s.bookings {
		if filter.TripInstanceID != nil && b.TripInstanceID != *filter.TripInstanceID {
			continue
		}
		if filter.HotelID != nil && b.HotelID != *filter.HotelID {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.HeldBefore != nil && (b.SeatState != models.SeatStateHeld || b.HoldExpiresAt == nil || b.HoldExpiresAt.After(*filter.HeldBefore)) {
			continue
		}
		if filter.Date != "" {
			inst, ok := s.instances[b.TripInstanceID]
			if !ok || inst.ScheduledDate != filter.Date {
				continue
			}
		}
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Mutate serializes updates per trip instance. fn works on copies which are
// written back only when it returns nil.
func (s *Store) Mutate(ctx context.Context, instanceID uuid.UUID, fn func(tx allocator.InstanceTx) error) (*models.TripInstance, error) {
	lock := s.instanceLock(instanceID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	current, ok := s.instances[instanceID]
	if !ok {
		s.mu.RUnlock()
		return nil, apperrors.NotFoundError{Resource: "trip instance", ID: instanceID.String()}
	}
	tx := &memTx{store: s, inst: current.Clone(), staged: make(map[uuid.UUID]*models.Booking)}
	oldKey := slotIndexKey(current)
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := tx.inst
	newKey := slotIndexKey(next)
	cancelled := next.Status == models.TripInstanceStatusCancelled
	if newKey != oldKey && !cancelled {
		if owner, taken := s.slots[newKey]; taken && owner != instanceID {
			return nil, apperrors.ConcurrencyConflictError{Resource: "trip instance slot " + next.SlotKey()}
		}
	}
	if s.slots[oldKey] == instanceID {
		delete(s.slots, oldKey)
	}
	if !cancelled {
		s.slots[newKey] = instanceID
	}

	next.Version = current.Version + 1
	s.instances[instanceID] = next.Clone()
	for id, b := range tx.staged {
		s.bookings[id] = b.Clone()
	}
	return next.Clone(), nil
}

type memTx struct {
	store  *Store
	inst   *models.TripInstance
	staged map[uuid.UUID]*models.Booking
}

func (t *memTx) Instance() *models.TripInstance {
	return t.inst
}

func (t *memTx) Booking(id uuid.UUID) (*models.Booking, error) {
	if b, ok := t.staged[id]; ok {
		return b, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	b, ok := t.store.bookings[id]
	if !ok || b.TripInstanceID != t.inst.ID {
		return nil, apperrors.NotFoundError{Resource: "booking", ID: id.String()}
	}
	c := b.Clone()
	t.staged[id] = c
	return c, nil
}

func (t *memTx) Bookings() ([]*models.Booking, error) {
	t.store.mu.RLock()
	var ids []uuid.UUID
	for id, b := range t.store.bookings {
		if b.TripInstanceID == t.inst.ID {
			ids = append(ids, id)
		}
	}
	t.store.mu.RUnlock()

	out := make([]*models.Booking, 0, len(ids))
	for _, id := range ids {
		b, err := t.Booking(id)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) SaveBooking(b *models.Booking) error {
	if b.TripInstanceID != t.inst.ID {
		return apperrors.ValidationError{Field: "tripInstanceId", Msg: "booking belongs to another trip instance"}
	}
	t.staged[b.ID] = b
	return nil
}

func sortInstances(list []*models.TripInstance) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.ScheduledDate != b.ScheduledDate {
			return a.ScheduledDate < b.ScheduledDate
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if (a.ShuttleID == nil) != (b.ShuttleID == nil) {
			return a.ShuttleID != nil
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
