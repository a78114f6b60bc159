package database

import (
	"fmt"

	"doflow-backend/internal/config"
	"doflow-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres when a DSN is configured and falls back to a
// local sqlite file otherwise, then migrates the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	target := cfg.DatabaseDSN

	if cfg.DatabaseDSN != "" {
		dialector = postgres.Open(cfg.DatabaseDSN)
		target = "postgres"
	} else {
		dialector = sqlite.Open(cfg.SQLitePath)
		target = cfg.SQLitePath
	}

	db, err := OpenDialector(dialector)
	if err != nil {
		return nil, err
	}

	log.Info().Str("target", target).Msg("database connected and migrated")
	return db, nil
}

// OpenDialector opens and migrates an arbitrary dialector. Tests use it with
// an in-memory sqlite database.
func OpenDialector(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Employee{},
		&models.FinancialRecord{},
		&models.Client{},
		&models.Account{},
		&models.Transaction{},
		&models.Assessment{},
		&models.ChatMessage{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
