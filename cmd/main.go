package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/syncdeck/syncdeck/internal/services"
	"github.com/syncdeck/syncdeck/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	daemon := services.NewDaemonService(config.Daemon, nil)
	api := services.NewAPIService(config.Daemon.BaseURL, config.Daemon.APIToken, nil)

	runner := NewRunner(RunnerOpts{
		Config: config,
		Daemon: daemon,
		API:    api,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "syncdeck",
		Usage:    "Console for monitoring media-library sync runs",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
