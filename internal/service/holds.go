package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// TemporalHoldScheduler runs one hold expiry workflow per guest booking
type TemporalHoldScheduler struct {
	client    client.Client
	taskQueue string
	log       *logger.Logger
}

func NewTemporalHoldScheduler(c client.Client, taskQueue string, log *logger.Logger) *TemporalHoldScheduler {
	return &TemporalHoldScheduler{client: c, taskQueue: taskQueue, log: log}
}

func (h *TemporalHoldScheduler) ScheduleHoldExpiry(ctx context.Context, b *models.Booking) error {
	if b.HoldExpiresAt == nil {
		return nil
	}

	input := models.HoldExpiryInput{
		BookingID:      b.ID.String(),
		TripInstanceID: b.TripInstanceID.String(),
		HoldExpiresAt:  *b.HoldExpiresAt,
	}
	workflowOptions := client.StartWorkflowOptions{
		ID:        models.HoldWorkflowID(b.ID),
		TaskQueue: h.taskQueue,
	}

	run, err := h.client.ExecuteWorkflow(ctx, workflowOptions, models.WorkflowHoldExpiry, input)
	if err != nil {
		return fmt.Errorf("failed to start hold expiry workflow: %w", err)
	}
	h.log.Debug("Hold expiry scheduled", "booking_id", b.ID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}

func (h *TemporalHoldScheduler) ResolveHold(ctx context.Context, bookingID uuid.UUID, outcome string) error {
	signal := models.HoldResolvedSignal{Outcome: outcome}
	return h.client.SignalWorkflow(ctx, models.HoldWorkflowID(bookingID), "", models.SignalHoldResolved, signal)
}
