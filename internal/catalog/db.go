package catalog

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
)

// Connect opens Postgres for postgres:// DSNs and SQLite for anything else
func Connect(dsn string, log *logger.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Info("Connecting catalog to PostgreSQL")
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog database: %w", err)
		}
		return db, nil
	}

	log.Info("Using SQLite catalog", "dsn", dsn)
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	// one connection keeps :memory: databases shared and writes serialized
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access catalog pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the catalog tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&hotelRecord{}, &tripRecord{}, &routeRecord{}, &shuttleRecord{}); err != nil {
		return fmt.Errorf("failed to migrate catalog: %w", err)
	}
	return nil
}
