package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chair-reservation-backend/config"
	"chair-reservation-backend/internal/model"
)

// Init opens the configured database and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Info),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableRangeIndexes && cfg.Driver == "postgres" {
		log.Println("Range indexes enabled, applying PostgreSQL-specific DDL...")
		applyRangeDDL(db)
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Chair{},
		&model.Reservation{},
		&model.OccupancyOpen{},
		&model.OccupancyHistory{},
		&model.Profile{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// applyRangeDDL adds interval checks, the per-chair overlap exclusion and GIST
// range indexes. Each statement is
// tried on its own; ones that already exist just log.
func applyRangeDDL(db *gorm.DB) {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// [start, end) must be non-empty
		"ALTER TABLE reservations " +
			"ADD CONSTRAINT reservations_period_valid CHECK (start_at < end_at);",
		"ALTER TABLE occupancy_histories " +
			"ADD CONSTRAINT occupancy_histories_period_valid CHECK (period_start < period_end);",

		// no two reservations of one chair may overlap, across processes too
		"ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap " +
			"EXCLUDE USING GIST (chair_id WITH =, tstzrange(start_at, end_at, '[)') WITH &&);",
		"CREATE INDEX IF NOT EXISTS idx_occupancy_history_period ON occupancy_histories " +
			"USING GIST (chair_id, tstzrange(period_start, period_end, '[)'));",

		"CREATE INDEX IF NOT EXISTS idx_occupancy_history_chair_end ON occupancy_histories (chair_id, period_end DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			log.Printf("DDL execution warning (query: %q): %v", ddl, err)
		}
	}
}
