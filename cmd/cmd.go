// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// statusCommand prints a one-shot view of the daemon's sync state
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current sync state",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// watchCommand follows the daemon headlessly, printing progress lines
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow sync progress without the TUI",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "follow-log",
				Usage: "Also tail the daemon's sync log",
			},
			&cli.StringFlag{
				Name:  "serve",
				Usage: "Re-serve status over HTTP at this address (e.g. :3000)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the served status page in a browser",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Disable run history recording",
			},
		},
		Action: r.Watch,
	}
}

// consoleCommand launches the interactive TUI
func consoleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "console",
		Aliases: []string{"tui"},
		Usage:   "Launch the interactive sync console",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Disable run history recording",
			},
			&cli.BoolFlag{
				Name:  "follow-log",
				Usage: "Tail the daemon's sync log in the log view",
				Value: true,
			},
		},
		Action: r.Console,
	}
}

// runsCommand lists and exports recorded run history
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to return",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "Only show failed runs",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "Export runs to a CSV file at this path",
			},
		},
		Action: r.Runs,
	}
}

// bridgeCommand handles direct API calls to the daemon
func bridgeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bridge",
		Usage: "Direct API calls to the sync daemon",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the daemon, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.BridgeGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST to the daemon with a JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON request body",
					},
				},
				Action: r.BridgePost,
			},
		},
	}
}

// ingestCommand replays a captured sync log through the engine
func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Replay a captured sync log and report the outcome",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "file",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Ingest,
	}
}
