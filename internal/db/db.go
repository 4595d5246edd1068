// Package db opens the backend's Postgres database and migrates its tables.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"idlely/internal/config"
	"idlely/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Models lists every table the backend owns.
func Models() []any {
	return []any{
		&models.User{},
		&models.CustomizationRecord{},
		&models.Subscription{},
		&models.ActivationKey{},
	}
}

// Open connects to cfg.URL and applies the pool limits. It does not migrate.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("database URL must not be empty")
	}

	conn, err := gorm.Open(postgres.Open(url), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
		NamingStrategy:         schema.NamingStrategy{},
		NowFunc:                func() time.Time { return time.Now().UTC() },

		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	tunePool(sqlDB, cfg)
	return conn, nil
}

// tunePool applies the positive limits in cfg; zero keeps the driver default.
func tunePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// AutoMigrate creates or updates every table in Models.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database handle is nil")
	}
	return conn.AutoMigrate(Models()...)
}

// Configure opens the database and migrates it. The server calls it at startup.
func Configure(cfg config.DatabaseConfig) (*gorm.DB, error) {
	conn, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(conn); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return conn, nil
}
