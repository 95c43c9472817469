// Package bootstrap wires storage and clients shared by the API server and the worker.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/catalog"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/config"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/database"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/events"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/inventory"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/service"
)

// Storage is the catalog and ledger selected by STORAGE_BACKEND
type Storage struct {
	Catalog service.CatalogStore
	Ledger  allocator.Ledger
	closers []func()
}

func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStorage connects and migrates the configured backend. The memory
// backend is seeded with one sample hotel.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		store := inventory.NewStore()
		seed, err := store.Seed(ctx, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
		cfg.Log.Info("Memory store seeded",
			"hotel_id", seed.HotelID,
			"airport_trip_id", seed.AirportTrip,
			"downtown_trip_id", seed.DowntownLoop,
			"shuttles", len(seed.ShuttleIDs),
		)
		return &Storage{Catalog: store, Ledger: store}, nil

	case config.StoragePostgres:
		storage := &Storage{}

		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		storage.closers = append(storage.closers, pool.Close)
		if err := database.Migrate(ctx, pool); err != nil {
			storage.Close()
			return nil, err
		}

		gdb, err := catalog.Connect(cfg.CatalogDSN, cfg.Log)
		if err != nil {
			storage.Close()
			return nil, err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			storage.closers = append(storage.closers, func() { _ = sqlDB.Close() })
		}
		if err := catalog.Migrate(gdb); err != nil {
			storage.Close()
			return nil, err
		}

		cfg.Log.Info("Connected to database", "database_url_set", cfg.DatabaseURL != "")
		storage.Catalog = catalog.NewStore(gdb)
		storage.Ledger = database.NewLedger(pool)
		return storage, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// NewAllocator builds the allocator with the configured retry and hold settings
func NewAllocator(cfg *config.Config, storage *Storage) *allocator.Allocator {
	return allocator.New(storage.Catalog, storage.Ledger, cfg.Log, allocator.Options{
		MaxRetries:   cfg.AllocMaxRetries,
		RetryBackoff: cfg.AllocRetryBackoff,
		HoldTTL:      cfg.HoldTTL,
	})
}

// DialTemporal connects to the Temporal frontend with the service logger
func DialTemporal(cfg *config.Config) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    temporallog.NewStructuredLogger(cfg.Log.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal at %s: %w", cfg.TemporalHost, err)
	}
	return c, nil
}

// EventPublisher is the Kafka publisher when brokers are configured and a
// logging stand-in otherwise. The returned close func is never nil.
func EventPublisher(cfg *config.Config) (service.EventPublisher, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(cfg.Log), func() {}, nil
	}

	pub, err := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			cfg.Log.Warn("Failed to close event publisher", "error", err)
		}
	}, nil
}
