package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/config"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/events"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		StorageBackend:  backend,
		AllocMaxRetries: 3,
		Log:             logger.Nop(),
	}
}

func TestOpenStorage_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.StorageMemory)

	storage, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	defer storage.Close()

	instances, err := storage.Ledger.ListInstances(ctx, models.InstanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, instances)

	alloc := NewAllocator(cfg, storage)
	assert.Equal(t, config.DefaultHoldTTL, alloc.HoldTTL())
}

func TestOpenStorage_UnknownBackend(t *testing.T) {
	_, err := OpenStorage(context.Background(), testConfig("redis"))
	assert.Error(t, err)
}

func TestEventPublisher_WithoutBrokers(t *testing.T) {
	pub, closeFn, err := EventPublisher(testConfig(config.StorageMemory))
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	defer closeFn()

	_, ok := pub.(*events.LogPublisher)
	assert.True(t, ok)
}
