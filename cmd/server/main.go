package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"doflow-backend/cmd/server/internal/commands"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug logging."`
		Version kong.VersionFlag
		Serve   commands.ServeCmd `cmd:"" default:"1" help:"Start the HTTP API."`
		Seed    commands.SeedCmd  `cmd:"" help:"Create a demo company with six months of data."`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("doflow"),
		kong.Description("do-flow business management backend"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
