package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHelpers_SeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", ValidationError{Field: "seats", Msg: "must be positive"}, IsValidation},
		{"validation list", ValidationErrors{{Field: "a"}, {Field: "b"}}, IsValidation},
		{"not found", NotFoundError{Resource: "trip", ID: "x"}, IsNotFound},
		{"capacity", InsufficientCapacityError{Requested: 2, Available: 1}, IsInsufficientCapacity},
		{"unavailable", TripInstanceUnavailableError{InstanceID: "x", Status: "CANCELLED"}, IsTripInstanceUnavailable},
		{"concurrency", ConcurrencyConflictError{Resource: "trip instance", Attempts: 3}, IsConcurrencyConflict},
		{"transition", InvalidTransitionError{Entity: "booking", From: "CONFIRMED", To: "CONFIRMED"}, IsInvalidTransition},
		{"conflict", ConflictError{Resource: "shuttle"}, IsConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to do work: %w", tt.err)
			assert.True(t, tt.check(wrapped))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "seats: must be positive", ValidationError{Field: "seats", Msg: "must be positive"}.Error())
	assert.Equal(t, "trip abc not found", NotFoundError{Resource: "trip", ID: "abc"}.Error())
	assert.Equal(t, "insufficient capacity: requested 2 seats, 1 available", InsufficientCapacityError{Requested: 2, Available: 1}.Error())
	assert.Equal(t, "booking cannot move from CONFIRMED to REJECTED", InvalidTransitionError{Entity: "booking", From: "CONFIRMED", To: "REJECTED"}.Error())
	assert.Contains(t, ValidationErrors{{Field: "a", Msg: "x"}, {Field: "b", Msg: "y"}}.Error(), "2 errors")
}
