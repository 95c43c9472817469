package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Hotel owns trips and shuttles
type Hotel struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Route is one materialized leg of a trip
type Route struct {
	ID              uuid.UUID `json:"id"`
	TripID          uuid.UUID `json:"tripId"`
	OrderIndex      int       `json:"orderIndex"`
	StartLocationID uuid.UUID `json:"startLocationId"`
	EndLocationID   uuid.UUID `json:"endLocationId"`
}

// ScheduleWindow is one daily departure window of a trip
type ScheduleWindow struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

// Trip is a recurring service template with an ordered route
type Trip struct {
	ID        uuid.UUID        `json:"id"`
	HotelID   uuid.UUID        `json:"hotelId"`
	Name      string           `json:"name"`
	Legs      []Route          `json:"legs"`
	Windows   []ScheduleWindow `json:"windows"`
	CreatedAt time.Time        `json:"createdAt"`
}

// LastLeg returns the highest leg order index of the trip
func (t *Trip) LastLeg() int {
	return len(t.Legs) - 1
}

// Shuttle is a physical vehicle with a fixed seat ceiling
type Shuttle struct {
	ID            uuid.UUID  `json:"id"`
	HotelID       uuid.UUID  `json:"hotelId"`
	VehicleNumber string     `json:"vehicleNumber"`
	TotalSeats    int        `json:"totalSeats"`
	Active        bool       `json:"active"`
	DriverID      *uuid.UUID `json:"driverId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Slot identifies one scheduled occurrence window on a given date
type Slot struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Date, s.Start, s.End)
}

// Validate checks the date and clock formats of the slot
func (s Slot) Validate() error {
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", s.Date)
	}
	start, err := ClockMinutes(s.Start)
	if err != nil {
		return err
	}
	end, err := ClockMinutes(s.End)
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("window end %s must be after start %s", s.End, s.Start)
	}
	return nil
}

// ClockMinutes converts an HH:MM clock to minutes after midnight
func ClockMinutes(clock string) (int, error) {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return 0, fmt.Errorf("time must be HH:MM, got %q", clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}
