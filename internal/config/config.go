package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
)

type Config struct {
	Port           string
	StorageBackend string
	DatabaseURL    string
	CatalogDSN     string

	TemporalEnabled   bool
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	KafkaBrokers []string
	KafkaTopic   string

	HoldTTL           time.Duration
	SweepCron         string
	AllocMaxRetries   int
	AllocRetryBackoff time.Duration

	LogLevel  string
	LogFormat string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log *logger.Logger
}

// Load reads .env (if present) and the environment, then exits on invalid settings
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := FromEnv(serviceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a configuration from the environment without validating it
func FromEnv(serviceName string) *Config {
	databaseURL := getEnvStr(EnvDatabaseURL, DefaultDatabaseURL)
	cfg := &Config{
		Port:           getEnvStr(EnvPort, DefaultPort),
		StorageBackend: strings.ToLower(getEnvStr(EnvStorageBackend, DefaultStorageBackend)),
		DatabaseURL:    databaseURL,
		CatalogDSN:     getEnvStr(EnvCatalogDSN, databaseURL),

		TemporalEnabled:   getEnvBool(EnvTemporalEnabled, DefaultTemporalEnabled),
		TemporalHost:      getEnvStr(EnvTemporalHost, DefaultTemporalHost),
		TemporalNamespace: getEnvStr(EnvTemporalNamespace, DefaultTemporalNamespace),
		TemporalTaskQueue: getEnvStr(EnvTemporalTaskQueue, DefaultTemporalTaskQueue),

		KafkaBrokers: getEnvList(EnvKafkaBrokers),
		KafkaTopic:   getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),

		HoldTTL:           getEnvDuration(EnvHoldTTL, DefaultHoldTTL),
		SweepCron:         getEnvStr(EnvSweepCron, DefaultSweepCron),
		AllocMaxRetries:   getEnvNum(EnvAllocMaxRetries, DefaultAllocMaxRetries),
		AllocRetryBackoff: getEnvDuration(EnvAllocRetryBackoff, DefaultAllocRetryBackoff),

		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
	}

	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})
	return cfg
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageBackend {
	case StoragePostgres:
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres://") && !strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
			errors = append(errors, fmt.Sprintf("DatabaseURL must start with 'postgres://' or 'postgresql://', got: %s", redact(cfg.DatabaseURL)))
		}
		if cfg.CatalogDSN == "" {
			errors = append(errors, "CatalogDSN cannot be empty")
		}
	case StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be '%s' or '%s', got: %s", StoragePostgres, StorageMemory, cfg.StorageBackend))
	}

	if cfg.TemporalEnabled {
		if cfg.TemporalHost == "" {
			errors = append(errors, "TemporalHost cannot be empty when Temporal is enabled")
		}
		if cfg.TemporalTaskQueue == "" {
			errors = append(errors, "TemporalTaskQueue cannot be empty when Temporal is enabled")
		}
		if len(strings.Fields(cfg.SweepCron)) != 5 {
			errors = append(errors, fmt.Sprintf("SweepCron must have 5 fields, got: %q", cfg.SweepCron))
		}
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		errors = append(errors, "KafkaTopic cannot be empty when KafkaBrokers is set")
	}

	if cfg.HoldTTL <= 0 {
		errors = append(errors, fmt.Sprintf("HoldTTL must be positive, got: %s", cfg.HoldTTL))
	}
	if cfg.AllocMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("AllocMaxRetries must be at least 1, got: %d", cfg.AllocMaxRetries))
	}
	if cfg.AllocRetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("AllocRetryBackoff cannot be negative, got: %s", cfg.AllocRetryBackoff))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		msg := "Configuration validation failed:\n"
		for i, e := range errors {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
		"database_url", redact(cfg.DatabaseURL),
		"catalog_dsn", redact(cfg.CatalogDSN),
		"temporal_enabled", cfg.TemporalEnabled,
		"temporal_host", cfg.TemporalHost,
		"temporal_namespace", cfg.TemporalNamespace,
		"temporal_task_queue", cfg.TemporalTaskQueue,
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"kafka_topic", cfg.KafkaTopic,
		"hold_ttl", cfg.HoldTTL.String(),
		"sweep_cron", cfg.SweepCron,
		"alloc_max_retries", cfg.AllocMaxRetries,
		"alloc_retry_backoff", cfg.AllocRetryBackoff.String(),
		"log_level", cfg.LogLevel,
		"read_timeout", cfg.ReadTimeout.String(),
		"write_timeout", cfg.WriteTimeout.String(),
		"idle_timeout", cfg.IdleTimeout.String(),
		"shutdown_timeout", cfg.ShutdownTimeout.String(),
	)
}

// redact masks the password of a connection URL
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvNum(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if num, err := strconv.Atoi(value); err == nil {
			return num
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
