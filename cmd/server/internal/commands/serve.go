package commands

import (
	"context"
	"errors"
	"net"
	"time"

	"doflow-backend/internal/server"
)

type ServeCmd struct {
	Port            string        `help:"HTTP port, overrides HTTP_PORT." env:"DOFLOW_PORT"`
	ShutdownTimeout time.Duration `help:"grace period for in-flight requests" default:"10s"`
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, db, log, err := bootstrap(globals)
	if err != nil {
		return err
	}
	if s.Port != "" {
		cfg.HTTPPort = s.Port
	}

	app := server.NewApp(cfg, db, log)

	errCh := make(chan error, 1)
	go func() {
		addr := net.JoinHostPort("", cfg.HTTPPort)
		log.Info().Str("addr", addr).Str("version", globals.Version).Str("env", cfg.Env).Msg("Starting server")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
