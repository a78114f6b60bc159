package commands

import (
	"context"
	"errors"
	"time"

	"doflow-backend/internal/seed"
)

type SeedCmd struct {
	AdminEmail    string `help:"email of the demo admin" default:"admin@demo.doflow.it"`
	AdminPassword string `help:"password of the demo admin" default:"demo1234" env:"DOFLOW_SEED_PASSWORD"`
	Months        int    `help:"months of history to generate" default:"6"`
}

func (s *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	_, db, log, err := bootstrap(globals)
	if err != nil {
		return err
	}

	res, err := seed.Run(ctx, db, time.Now().UTC(), seed.Options{
		AdminEmail:    s.AdminEmail,
		AdminPassword: s.AdminPassword,
		Months:        s.Months,
	})
	if errors.Is(err, seed.ErrAlreadySeeded) {
		log.Warn().Str("email", s.AdminEmail).Msg("demo data already present, nothing to do")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().
		Uint("company_id", res.CompanyID).
		Int("employees", res.Employees).
		Int("records", res.Records).
		Int("transactions", res.Transactions).
		Int("assessments", res.Assessments).
		Str("email", s.AdminEmail).
		Msg("demo data created")
	return nil
}
