package activities

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/service"
)

const (
	errTypeBadInput = "BadInput"
	errTypeNotFound = "NotFound"
)

// Activities runs hold maintenance against the booking service
type Activities struct {
	bookingService service.BookingService
}

func NewActivities(bookingService service.BookingService) *Activities {
	return &Activities{bookingService: bookingService}
}

// ExpireHold rejects the booking if its hold is still open and past expiry.
// A booking resolved in the meantime is reported with Expired false.
func (a *Activities) ExpireHold(ctx context.Context, input models.HoldExpiryInput) (*models.HoldExpiryResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Expiring hold", "bookingID", input.BookingID, "tripInstanceID", input.TripInstanceID)

	bookingID, err := uuid.Parse(input.BookingID)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid booking id %q", input.BookingID), errTypeBadInput, err)
	}

	expired, err := a.bookingService.ExpireHold(ctx, bookingID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeNotFound, err)
		}
		// Conflicts and storage failures are retried by the activity policy
		return nil, err
	}

	result := &models.HoldExpiryResult{Expired: expired}
	if expired {
		result.Outcome = models.HoldOutcomeExpired
		logger.Info("Hold expired", "bookingID", input.BookingID)
	} else {
		logger.Info("Hold already resolved", "bookingID", input.BookingID)
	}
	return result, nil
}

// SweepExpiredHolds rejects every expired hold. It backs up the per-booking
// timers when a workflow was never started or was lost.
func (a *Activities) SweepExpiredHolds(ctx context.Context) (*models.HoldSweepResult, error) {
	logger := activity.GetLogger(ctx)

	result, err := a.bookingService.SweepExpiredHolds(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Hold sweep done", "rejected", result.Rejected, "failed", result.Failed)
	return result, nil
}
