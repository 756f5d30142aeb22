package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "agentsocial",
		Usage:   "batch interaction passes for simulated discussion agents",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to an optional YAML settings file",
				EnvVars: []string{"AGENTSOCIAL_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "pass",
				Usage:  "run one interaction pass over recent posts",
				Action: runPass,
			},
			{
				Name:   "validate",
				Usage:  "check settings, personality profiles and moderation patterns",
				Action: runValidate,
			},
			{
				Name:   "health",
				Usage:  "print community health from the persisted moderation state",
				Action: runHealth,
			},
			{
				Name:   "memories",
				Usage:  "print an agent's archived memories",
				Action: runMemories,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "agent", Usage: "agent id", Required: true},
					&cli.IntFlag{Name: "limit", Usage: "maximum records", Value: 20},
				},
			},
			{
				Name:   "migrate",
				Usage:  "create tables and register profile agents",
				Action: runMigrate,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("exited with error", "err", err)
		os.Exit(1)
	}
}
