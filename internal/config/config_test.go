package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvCatalogDSN, "")
	t.Setenv(EnvKafkaBrokers, "")

	cfg := FromEnv("test")

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageBackend)
	assert.Equal(t, DefaultDatabaseURL, cfg.CatalogDSN)
	assert.Equal(t, DefaultHoldTTL, cfg.HoldTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvStorageBackend, "MEMORY")
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092, kafka-2:9092,")
	t.Setenv(EnvHoldTTL, "90s")
	t.Setenv(EnvAllocMaxRetries, "not-a-number")
	t.Setenv(EnvTemporalEnabled, "false")

	cfg := FromEnv("test")

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.HoldTTL)
	assert.Equal(t, DefaultAllocMaxRetries, cfg.AllocMaxRetries)
	assert.False(t, cfg.TemporalEnabled)
	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := FromEnv("test")
	cfg.Port = "70000"
	cfg.StorageBackend = "cassandra"
	cfg.HoldTTL = 0
	cfg.SweepCron = "every minute"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Port must be between")
	assert.Contains(t, err.Error(), "StorageBackend must be")
	assert.Contains(t, err.Error(), "HoldTTL must be positive")
	assert.Contains(t, err.Error(), "SweepCron must have 5 fields")
}

func TestRedact(t *testing.T) {
	masked := redact("postgres://shuttle:secret@db:5432/x")
	assert.NotContains(t, masked, "secret")
	assert.Contains(t, masked, "shuttle:")
	assert.Contains(t, masked, "@db:5432/x")
	assert.Equal(t, "file:shuttle.db", redact("file:shuttle.db"))
}
