package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

const (
	// ActivityTimeout bounds one storage round trip of a hold activity
	ActivityTimeout = 30 * time.Second
	// SweepTimeout bounds one full sweep over all expired holds
	SweepTimeout = 5 * time.Minute
	// MaxActivityAttempts covers a few lost optimistic races in a row
	MaxActivityAttempts = 5
)

func activityOptions(timeout time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    MaxActivityAttempts,
		},
	}
}

// HoldExpiryWorkflow waits until a guest hold expires and then releases it,
// unless the booking is resolved first and the workflow is signalled.
func HoldExpiryWorkflow(ctx workflow.Context, input models.HoldExpiryInput) (*models.HoldExpiryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Hold expiry workflow started", "bookingId", input.BookingID, "holdExpiresAt", input.HoldExpiresAt)

	state := models.HoldState{
		BookingID:     input.BookingID,
		HoldExpiresAt: input.HoldExpiresAt,
	}
	if err := workflow.SetQueryHandler(ctx, models.QueryHoldState, func() (models.HoldState, error) {
		return state, nil
	}); err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, activityOptions(ActivityTimeout))
	resolvedCh := workflow.GetSignalChannel(ctx, models.SignalHoldResolved)

	timerFired := true
	if wait := input.HoldExpiresAt.Sub(workflow.Now(ctx)); wait > 0 {
		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		timerFired = false

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(resolvedCh, func(c workflow.ReceiveChannel, more bool) {
			var signal models.HoldResolvedSignal
			c.Receive(ctx, &signal)
			logger.Info("Hold resolved", "bookingId", input.BookingID, "outcome", signal.Outcome)
			state.Outcome = signal.Outcome
			cancelTimer()
		})
		selector.AddFuture(workflow.NewTimer(timerCtx, wait), func(f workflow.Future) {
			if f.Get(ctx, nil) == nil {
				timerFired = true
			}
		})
		selector.Select(ctx)
	}

	if !timerFired {
		state.Done = true
		return &models.HoldExpiryResult{Expired: false, Outcome: state.Outcome}, nil
	}

	logger.Info("Hold timer expired", "bookingId", input.BookingID)
	var result models.HoldExpiryResult
	if err := workflow.ExecuteActivity(ctx, models.ActivityExpireHold, input).Get(ctx, &result); err != nil {
		logger.Error("Failed to expire hold", "bookingId", input.BookingID, "error", err)
		return nil, err
	}

	state.Outcome = result.Outcome
	state.Done = true
	return &result, nil
}

// HoldSweepWorkflow rejects every expired hold in one pass. It is started on a
// cron schedule by the worker.
func HoldSweepWorkflow(ctx workflow.Context) (*models.HoldSweepResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, activityOptions(SweepTimeout))

	var result models.HoldSweepResult
	if err := workflow.ExecuteActivity(ctx, models.ActivitySweepHolds).Get(ctx, &result); err != nil {
		logger.Error("Hold sweep failed", "error", err)
		return nil, err
	}

	logger.Info("Hold sweep completed", "rejected", result.Rejected, "failed", result.Failed)
	return &result, nil
}
