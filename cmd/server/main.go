package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/bootstrap"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/config"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/handlers"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/router"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/service"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/websocket"
)

func main() {
	cfg := config.Load("api-server")
	log := cfg.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	var holds service.HoldScheduler
	if cfg.TemporalEnabled {
		temporalClient, err := bootstrap.DialTemporal(cfg)
		if err != nil {
			log.Fatal("Failed to create Temporal client", "error", err)
		}
		defer temporalClient.Close()
		holds = service.NewTemporalHoldScheduler(temporalClient, cfg.TemporalTaskQueue, log)
		log.Info("Connected to Temporal", "host", cfg.TemporalHost, "task_queue", cfg.TemporalTaskQueue)
	} else {
		log.Warn("Temporal disabled, expired holds are only released by the sweep endpoint")
	}

	hub := websocket.GetHub(log)
	go hub.Run(ctx)

	bookingService := service.NewBookingService(service.Dependencies{
		Catalog:   storage.Catalog,
		Ledger:    storage.Ledger,
		Allocator: bootstrap.NewAllocator(cfg, storage),
		Holds:     holds,
		Events:    publisher,
		Snapshots: hub,
		Log:       log,
	})

	h := handlers.NewHandler(bookingService, hub, log)
	r := router.SetupRouter(h, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info("API server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped")
}
