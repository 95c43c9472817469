package workflows

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/activities"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

type HoldWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env   *testsuite.TestWorkflowEnvironment
	start time.Time
}

func (s *HoldWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.start = time.Date(2026, 12, 1, 8, 0, 0, 0, time.UTC)
	s.env.SetStartTime(s.start)

	acts := activities.NewActivities(nil)
	s.env.RegisterActivityWithOptions(acts.ExpireHold, activity.RegisterOptions{Name: models.ActivityExpireHold})
	s.env.RegisterActivityWithOptions(acts.SweepExpiredHolds, activity.RegisterOptions{Name: models.ActivitySweepHolds})
}

func (s *HoldWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func TestHoldWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(HoldWorkflowTestSuite))
}

func (s *HoldWorkflowTestSuite) input(ttl time.Duration) models.HoldExpiryInput {
	return models.HoldExpiryInput{
		BookingID:      uuid.NewString(),
		TripInstanceID: uuid.NewString(),
		HoldExpiresAt:  s.start.Add(ttl),
	}
}

func (s *HoldWorkflowTestSuite) TestHoldExpiry_TimerFires() {
	input := s.input(15 * time.Minute)

	s.env.OnActivity(models.ActivityExpireHold, mock.Anything, mock.Anything).
		Return(&models.HoldExpiryResult{Expired: true, Outcome: models.HoldOutcomeExpired}, nil).Once()

	s.env.ExecuteWorkflow(HoldExpiryWorkflow, input)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result models.HoldExpiryResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.True(result.Expired)
	s.Equal(models.HoldOutcomeExpired, result.Outcome)
}

func (s *HoldWorkflowTestSuite) TestHoldExpiry_ResolvedBeforeExpiry() {
	input := s.input(15 * time.Minute)

	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(models.SignalHoldResolved, models.HoldResolvedSignal{Outcome: models.HoldOutcomeConfirmed})
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(HoldExpiryWorkflow, input)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result models.HoldExpiryResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.False(result.Expired)
	s.Equal(models.HoldOutcomeConfirmed, result.Outcome)
}

func (s *HoldWorkflowTestSuite) TestHoldExpiry_AlreadyExpired() {
	input := s.input(-time.Minute)

	s.env.OnActivity(models.ActivityExpireHold, mock.Anything, mock.Anything).
		Return(&models.HoldExpiryResult{Expired: false}, nil).Once()

	s.env.ExecuteWorkflow(HoldExpiryWorkflow, input)

	s.True(s.env.IsWorkflowCompleted())
	var result models.HoldExpiryResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.False(result.Expired)
}

func (s *HoldWorkflowTestSuite) TestHoldExpiry_QueryWhileWaiting() {
	input := s.input(15 * time.Minute)

	s.env.RegisterDelayedCallback(func() {
		val, err := s.env.QueryWorkflow(models.QueryHoldState)
		s.NoError(err)

		var state models.HoldState
		s.NoError(val.Get(&state))
		s.Equal(input.BookingID, state.BookingID)
		s.True(state.HoldExpiresAt.Equal(input.HoldExpiresAt))
		s.False(state.Done)
	}, time.Minute)

	s.env.OnActivity(models.ActivityExpireHold, mock.Anything, mock.Anything).
		Return(&models.HoldExpiryResult{Expired: true, Outcome: models.HoldOutcomeExpired}, nil)

	s.env.ExecuteWorkflow(HoldExpiryWorkflow, input)

	s.True(s.env.IsWorkflowCompleted())

	val, err := s.env.QueryWorkflow(models.QueryHoldState)
	s.NoError(err)
	var state models.HoldState
	s.NoError(val.Get(&state))
	s.True(state.Done)
	s.Equal(models.HoldOutcomeExpired, state.Outcome)
}

func (s *HoldWorkflowTestSuite) TestHoldExpiry_ActivityFails() {
	input := s.input(time.Minute)

	s.env.OnActivity(models.ActivityExpireHold, mock.Anything, mock.Anything).
		Return(nil, temporal.NewNonRetryableApplicationError("booking not found", "NotFound", errors.New("gone")))

	s.env.ExecuteWorkflow(HoldExpiryWorkflow, input)

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *HoldWorkflowTestSuite) TestHoldSweep() {
	s.env.OnActivity(models.ActivitySweepHolds, mock.Anything).
		Return(&models.HoldSweepResult{Rejected: 2, IDs: []string{"a", "b"}}, nil).Once()

	s.env.ExecuteWorkflow(HoldSweepWorkflow)

	s.True(s.env.IsWorkflowCompleted())
	var result models.HoldSweepResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal(2, result.Rejected)
	s.Len(result.IDs, 2)
}

func (s *HoldWorkflowTestSuite) TestHoldSweep_Fails() {
	s.env.OnActivity(models.ActivitySweepHolds, mock.Anything).
		Return(nil, temporal.NewNonRetryableApplicationError("db down", "Storage", nil))

	s.env.ExecuteWorkflow(HoldSweepWorkflow)

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}
