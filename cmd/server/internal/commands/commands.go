package commands

import (
	"doflow-backend/internal/config"
	"doflow-backend/internal/database"
	"doflow-backend/internal/logger"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Globals struct {
	Debug   bool
	Version string
}

// bootstrap loads the configuration, installs the process logger and opens
// the database.
func bootstrap(globals *Globals) (*config.Config, *gorm.DB, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	log := logger.Setup(globals.Debug || cfg.IsDev())
	zlog.Logger = log

	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, log, err
	}
	return cfg, db, log, nil
}
