package apperrors

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field != "" && e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

// ValidationErrors collects several field failures from one request
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	switch len(v) {
	case 0:
		return "validation error"
	case 1:
		return v[0].Error()
	}
	msg := fmt.Sprintf("validation failed: %d errors", len(v))
	for _, e := range v {
		msg += "; " + e.Error()
	}
	return msg
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return "not found"
}

type InsufficientCapacityError struct {
	Requested int
	Available int
}

func (e InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: requested %d seats, %d available", e.Requested, e.Available)
}

type TripInstanceUnavailableError struct {
	InstanceID string
	Status     string
}

func (e TripInstanceUnavailableError) Error() string {
	if e.InstanceID == "" {
		return "no bookable trip instance"
	}
	return fmt.Sprintf("trip instance %s is %s", e.InstanceID, e.Status)
}

type ConcurrencyConflictError struct {
	Resource string
	Attempts int
	Err      error
}

func (e ConcurrencyConflictError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("concurrent update on %s after %d attempts", e.Resource, e.Attempts)
	}
	return fmt.Sprintf("concurrent update on %s", e.Resource)
}

func (e ConcurrencyConflictError) Unwrap() error { return e.Err }

type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
	Msg    string
}

func (e InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var single ValidationError
	var many ValidationErrors
	return errors.As(err, &single) || errors.As(err, &many)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsInsufficientCapacity(err error) bool {
	var target InsufficientCapacityError
	return errors.As(err, &target)
}

func IsTripInstanceUnavailable(err error) bool {
	var target TripInstanceUnavailableError
	return errors.As(err, &target)
}

func IsConcurrencyConflict(err error) bool {
	var target ConcurrencyConflictError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target InvalidTransitionError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}
