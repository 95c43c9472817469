package main

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/activities"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/bootstrap"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/config"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/service"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/workflows"
)

const sweepWorkflowID = "hold-sweep"

func main() {
	ctx := context.Background()
	cfg := config.Load("temporal-worker")
	log := cfg.Log

	storage, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open storage", "error", err)
	}
	defer storage.Close()

	publisher, closePublisher, err := bootstrap.EventPublisher(cfg)
	if err != nil {
		log.Fatal("Failed to create event publisher", "error", err)
	}
	defer closePublisher()

	c, err := bootstrap.DialTemporal(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Temporal", "error", err)
	}
	defer c.Close()
	log.Info("Connected to Temporal", "host", cfg.TemporalHost)

	// The worker expires holds, so it never schedules new hold workflows itself
	bookingService := service.NewBookingService(service.Dependencies{
		Catalog:   storage.Catalog,
		Ledger:    storage.Ledger,
		Allocator: bootstrap.NewAllocator(cfg, storage),
		Events:    publisher,
		Log:       log,
	})

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(workflows.HoldExpiryWorkflow, workflow.RegisterOptions{Name: models.WorkflowHoldExpiry})
	w.RegisterWorkflowWithOptions(workflows.HoldSweepWorkflow, workflow.RegisterOptions{Name: models.WorkflowHoldSweep})

	acts := activities.NewActivities(bookingService)
	w.RegisterActivityWithOptions(acts.ExpireHold, activity.RegisterOptions{Name: models.ActivityExpireHold})
	w.RegisterActivityWithOptions(acts.SweepExpiredHolds, activity.RegisterOptions{Name: models.ActivitySweepHolds})

	if err := startSweep(ctx, c, cfg); err != nil {
		log.Error("Failed to start hold sweep", "error", err)
	}

	log.Info("Starting Temporal worker...", "task_queue", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("Worker failed", "error", err)
	}
}

// startSweep starts the cron sweep once. An already running sweep is kept.
func startSweep(ctx context.Context, c client.Client, cfg *config.Config) error {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           sweepWorkflowID,
		TaskQueue:    cfg.TemporalTaskQueue,
		CronSchedule: cfg.SweepCron,
	}, models.WorkflowHoldSweep)
	if err != nil {
		return err
	}
	cfg.Log.Info("Hold sweep scheduled", "workflow_id", run.GetID(), "cron", cfg.SweepCron)
	return nil
}
