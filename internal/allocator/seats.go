package allocator

import (
	"fmt"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// CheckCapacity fails when any leg in [from, to] cannot take seats more under ceiling
func CheckCapacity(inst *models.TripInstance, from, to, seats, ceiling int) error {
	for i := from; i <= to; i++ {
		leg, ok := inst.Leg(i)
		if !ok {
			return fmt.Errorf("trip instance %s has no leg %d", inst.ID, i)
		}
		if leg.Used()+seats > ceiling {
			available := ceiling - inst.MaxUsed(from, to)
			if available < 0 {
				available = 0
			}
			return apperrors.InsufficientCapacityError{Requested: seats, Available: available}
		}
	}
	return nil
}

// ApplySeats adds the booking's seats to the counter named by its seat state
func ApplySeats(inst *models.TripInstance, b *models.Booking) error {
	switch b.SeatState {
	case models.SeatStateHeld:
		return adjust(inst, b, 0, b.Seats)
	case models.SeatStateOccupied:
		return adjust(inst, b, b.Seats, 0)
	default:
		return fmt.Errorf("booking %s has no seats to apply in state %s", b.ID, b.SeatState)
	}
}

// ConvertHold moves a held booking's seats to occupied on the same legs
func ConvertHold(inst *models.TripInstance, b *models.Booking) error {
	if b.SeatState != models.SeatStateHeld {
		return apperrors.InvalidTransitionError{Entity: "seats", From: string(b.SeatState), To: string(models.SeatStateOccupied)}
	}
	if err := adjust(inst, b, b.Seats, -b.Seats); err != nil {
		return err
	}
	b.SeatState = models.SeatStateOccupied
	return nil
}

// ReleaseSeats gives back whatever the booking currently holds and reports
// whether anything changed. A released booking is left alone.
func ReleaseSeats(inst *models.TripInstance, b *models.Booking) (bool, error) {
	var err error
	switch b.SeatState {
	case models.SeatStateHeld:
		err = adjust(inst, b, 0, -b.Seats)
	case models.SeatStateOccupied:
		err = adjust(inst, b, -b.Seats, 0)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b.SeatState = models.SeatStateReleased
	return true, nil
}

// ResetLegs zeroes every counter of the instance
func ResetLegs(inst *models.TripInstance) {
	for i := range inst.Legs {
		inst.Legs[i].SeatsOccupied = 0
		inst.Legs[i].SeatHeld = 0
	}
}

func adjust(inst *models.TripInstance, b *models.Booking, occupied, held int) error {
	if b.TripInstanceID != inst.ID {
		return fmt.Errorf("booking %s does not belong to trip instance %s", b.ID, inst.ID)
	}
	for i := b.FromLeg; i <= b.ToLeg; i++ {
		if _, ok := inst.Leg(i); !ok {
			return fmt.Errorf("trip instance %s has no leg %d", inst.ID, i)
		}
	}
	for i := b.FromLeg; i <= b.ToLeg; i++ {
		leg, _ := inst.Leg(i)
		leg.SeatsOccupied = max(leg.SeatsOccupied+occupied, 0)
		leg.SeatHeld = max(leg.SeatHeld+held, 0)
	}
	return nil
}
