package models

import (
	"time"

	"github.com/google/uuid"
)

// Registered workflow and activity names
const (
	WorkflowHoldExpiry = "HoldExpiryWorkflow"
	WorkflowHoldSweep  = "HoldSweepWorkflow"

	ActivityExpireHold = "ExpireHold"
	ActivitySweepHolds = "SweepExpiredHolds"
)

// HoldWorkflowID is the workflow id of a booking's hold expiry
func HoldWorkflowID(bookingID uuid.UUID) string {
	return "hold-" + bookingID.String()
}

// Hold outcomes reported through the hold-resolved signal
const (
	HoldOutcomeConfirmed = "confirmed"
	HoldOutcomeRejected  = "rejected"
	HoldOutcomeCancelled = "cancelled"
	HoldOutcomeExpired   = "expired"
)

// HoldExpiryInput is the input of the hold expiry workflow
type HoldExpiryInput struct {
	BookingID      string    `json:"bookingId"`
	TripInstanceID string    `json:"tripInstanceId"`
	HoldExpiresAt  time.Time `json:"holdExpiresAt"`
}

// HoldExpiryResult is the outcome of the hold expiry workflow
type HoldExpiryResult struct {
	Expired bool   `json:"expired"`
	Outcome string `json:"outcome"`
}

// HoldSweepResult reports one sweep run
type HoldSweepResult struct {
	Rejected int      `json:"rejected"`
	Failed   int      `json:"failed"`
	IDs      []string `json:"ids,omitempty"`
}

// Signals and queries for the hold expiry workflow
const (
	SignalHoldResolved = "hold-resolved"
	QueryHoldState     = "hold-state"
)

// HoldResolvedSignal is sent once a pending booking leaves the hold state
type HoldResolvedSignal struct {
	Outcome string `json:"outcome"`
}

// HoldState is the queryable state of a hold expiry workflow
type HoldState struct {
	BookingID     string    `json:"bookingId"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
	Outcome       string    `json:"outcome,omitempty"`
	Done          bool      `json:"done"`
}
