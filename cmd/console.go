package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/syncdeck/syncdeck/internal/shared"
	"github.com/syncdeck/syncdeck/internal/tasks"
	"github.com/syncdeck/syncdeck/internal/ui"
)

// Console launches the interactive terminal UI for sync monitoring.
func (r *Runner) Console(ctx context.Context, cmd *cli.Command) error {
	if r.daemon == nil {
		return fmt.Errorf("%w: daemon client not initialized", shared.ErrDaemonUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Console.LogFile
	if logPath == "" {
		logPath = "./tmp/syncdeck-console.log"
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var recorder tasks.RunRecorder
	var lister ui.RunLister
	if !cmd.Bool("no-history") {
		repo, db, err := r.openRepository()
		if err != nil {
			r.logger.Warn("run history disabled", "error", err)
		} else {
			defer db.Close()
			if err := shared.RunMigrations(db); err != nil {
				r.logger.Warn("run history disabled", "error", err)
			} else {
				recorder = repo
				lister = repo
			}
		}
	}

	monitor := tasks.NewSyncMonitor(r.daemon, recorder, r.logger, tasks.MonitorOpts{
		PollInterval: r.config.Daemon.PollInterval(),
		RetryDelay:   r.config.Daemon.RetryDelay(),
		FollowLog:    cmd.Bool("follow-log"),
	})

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Run closes progress once all of its producers have stopped.
	progress := make(chan tasks.ProgressUpdate, 64)
	go func() {
		monitor.Run(monitorCtx, progress)
	}()

	model := ui.NewModel(monitorCtx, monitor, progress, lister)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
