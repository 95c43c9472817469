package allocator

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// window is the hotel-wide picture of one slot: which shuttle runs which
// instance, and which shuttle each provisional instance is charged to
type window struct {
	slot        models.Slot
	shuttles    []models.Shuttle
	instances   []*models.TripInstance
	assigned    map[uuid.UUID]*models.TripInstance
	chargedTo   map[uuid.UUID]models.Shuttle
	chargedBy   map[uuid.UUID]*models.TripInstance
	free        []models.Shuttle
	provisional int
	nextOrdinal int
}

func (a *Allocator) loadWindow(ctx context.Context, hotelID uuid.UUID, slot models.Slot) (*window, error) {
	shuttles, err := a.catalog.ListShuttles(ctx, hotelID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list shuttles: %w", err)
	}
	instances, err := a.ledger.ListWindow(ctx, hotelID, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip instances for %s: %w", slot, err)
	}
	return buildWindow(slot, shuttles, instances), nil
}

func buildWindow(slot models.Slot, shuttles []models.Shuttle, instances []*models.TripInstance) *window {
	sorted := append([]models.Shuttle(nil), shuttles...)
	sortShuttles(sorted)

	w := &window{
		slot:      slot,
		shuttles:  sorted,
		instances: instances,
		assigned:  make(map[uuid.UUID]*models.TripInstance),
		chargedTo: make(map[uuid.UUID]models.Shuttle),
		chargedBy: make(map[uuid.UUID]*models.TripInstance),
	}

	var pending []*models.TripInstance
	for _, inst := range instances {
		if inst.Status == models.TripInstanceStatusCancelled {
			continue
		}
		if inst.ShuttleID != nil {
			w.assigned[*inst.ShuttleID] = inst
			continue
		}
		pending = append(pending, inst)
		if inst.Ordinal >= w.nextOrdinal {
			w.nextOrdinal = inst.Ordinal + 1
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Ordinal < pending[j].Ordinal })

	for _, sh := range sorted {
		if _, busy := w.assigned[sh.ID]; !busy {
			w.free = append(w.free, sh)
		}
	}
	for i, inst := range pending {
		if i >= len(w.free) {
			break
		}
		w.chargedTo[inst.ID] = w.free[i]
		w.chargedBy[w.free[i].ID] = inst
	}
	w.provisional = len(pending)
	return w
}

// sortShuttles orders vehicles by seats desc, then vehicle number
func sortShuttles(shuttles []models.Shuttle) {
	sort.Slice(shuttles, func(i, j int) bool {
		if shuttles[i].TotalSeats != shuttles[j].TotalSeats {
			return shuttles[i].TotalSeats > shuttles[j].TotalSeats
		}
		return shuttles[i].VehicleNumber < shuttles[j].VehicleNumber
	})
}

// ceiling is the seat limit an instance is checked against.
// An uncharged provisional instance has no room at all.
func (w *window) ceiling(inst *models.TripInstance) int {
	if inst.ShuttleID != nil {
		for _, sh := range w.shuttles {
			if sh.ID == *inst.ShuttleID {
				return sh.TotalSeats
			}
		}
		return 0
	}
	if sh, ok := w.chargedTo[inst.ID]; ok {
		return sh.TotalSeats
	}
	return 0
}

// strands returns the first live instance whose seats fit its ceiling in w but
// would not once the slot is rebuilt over shuttles and proposed. skip is
// checked by the caller itself.
func (w *window) strands(shuttles []models.Shuttle, proposed []*models.TripInstance, skip uuid.UUID) *models.TripInstance {
	before := make(map[uuid.UUID]int, len(w.instances))
	for _, inst := range w.instances {
		if inst.Status != models.TripInstanceStatusCancelled {
			before[inst.ID] = w.ceiling(inst)
		}
	}

	after := buildWindow(w.slot, shuttles, proposed)
	for _, inst := range proposed {
		if inst.ID == skip || inst.Status.IsTerminal() {
			continue
		}
		peak := inst.PeakOccupancy()
		if peak > after.ceiling(inst) && peak <= before[inst.ID] {
			return inst
		}
	}
	return nil
}

// with returns the window's instances with inst added or replacing its stored copy
func (w *window) with(inst *models.TripInstance) []*models.TripInstance {
	out := make([]*models.TripInstance, 0, len(w.instances)+1)
	for _, cur := range w.instances {
		if cur.ID != inst.ID {
			out = append(out, cur)
		}
	}
	return append(out, inst)
}

// candidates returns the trip's own instances, assigned first, then provisional by ordinal
func (w *window) candidates(tripID uuid.UUID) []*models.TripInstance {
	var assigned, pending []*models.TripInstance
	for _, inst := range w.instances {
		if inst.TripID != tripID || inst.Status == models.TripInstanceStatusCancelled {
			continue
		}
		if inst.ShuttleID != nil {
			assigned = append(assigned, inst)
		} else {
			pending = append(pending, inst)
		}
	}
	sort.SliceStable(assigned, func(i, j int) bool { return w.ceiling(assigned[i]) > w.ceiling(assigned[j]) })
	sort.Slice(pending, func(i, j int) bool { return pending[i].Ordinal < pending[j].Ordinal })
	return append(assigned, pending...)
}

// nextCharge returns the shuttle a new provisional instance would be charged to
func (w *window) nextCharge() (models.Shuttle, bool) {
	if w.provisional >= len(w.free) {
		return models.Shuttle{}, false
	}
	return w.free[w.provisional], true
}

// shuttleAvailability reports free seats per shuttle for one trip over [from, to]
func (w *window) shuttleAvailability(tripID uuid.UUID, from, to int) []models.ShuttleAvailability {
	out := make([]models.ShuttleAvailability, 0, len(w.shuttles))
	for _, sh := range w.shuttles {
		row := models.ShuttleAvailability{
			ShuttleID:     sh.ID,
			VehicleNumber: sh.VehicleNumber,
			TotalSeats:    sh.TotalSeats,
		}

		inst, ok := w.assigned[sh.ID]
		if !ok {
			inst, ok = w.chargedBy[sh.ID]
		}
		switch {
		case !ok:
			row.UsedSeats = 0
		case inst.TripID != tripID || inst.Status.IsTerminal():
			row.UsedSeats = sh.TotalSeats
		default:
			id := inst.ID
			row.TripInstanceID = &id
			row.UsedSeats = inst.MaxUsed(from, to)
		}

		row.AvailableSeats = sh.TotalSeats - row.UsedSeats
		if row.AvailableSeats < 0 {
			row.AvailableSeats = 0
		}
		out = append(out, row)
	}
	return out
}
