package config

const (
	EnvPort           = "API_PORT"
	EnvStorageBackend = "STORAGE_BACKEND"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvCatalogDSN     = "CATALOG_DSN"

	EnvTemporalEnabled   = "TEMPORAL_ENABLED"
	EnvTemporalHost      = "TEMPORAL_HOST"
	EnvTemporalNamespace = "TEMPORAL_NAMESPACE"
	EnvTemporalTaskQueue = "TEMPORAL_TASK_QUEUE"

	EnvKafkaBrokers = "KAFKA_BROKERS"
	EnvKafkaTopic   = "KAFKA_TOPIC"

	EnvHoldTTL           = "HOLD_TTL"
	EnvSweepCron         = "SWEEP_CRON"
	EnvAllocMaxRetries   = "ALLOC_MAX_RETRIES"
	EnvAllocRetryBackoff = "ALLOC_RETRY_BACKOFF"

	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
