package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/syncdeck/syncdeck/internal/server"
	"github.com/syncdeck/syncdeck/internal/shared"
	"github.com/syncdeck/syncdeck/internal/tasks"
)

// Watch follows the daemon headlessly, printing progress lines and
// optionally re-serving the engine state over HTTP.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if r.daemon == nil {
		return fmt.Errorf("%w: daemon client not initialized", shared.ErrDaemonUnavailable)
	}

	var recorder tasks.RunRecorder
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
			}
		}
	}

	monitor := tasks.NewSyncMonitor(r.daemon, recorder, r.logger, tasks.MonitorOpts{
		PollInterval: r.config.Daemon.PollInterval(),
		RetryDelay:   r.config.Daemon.RetryDelay(),
		FollowLog:    cmd.Bool("follow-log"),
	})

	progress := make(chan tasks.ProgressUpdate, 64)

	var events *server.EventsHandler
	if addr := cmd.String("serve"); addr != "" {
		events = server.NewEventsHandler()
		if err := r.serveBridge(ctx, addr, monitor, events, cmd.Bool("open")); err != nil {
			return err
		}
	}

	go func() {
		lastPercent := -1
		for update := range progress {
			if events != nil {
				events.Publish(update)
			}

			switch update.Phase {
			case tasks.Poll:
				if update.Percent != lastPercent {
					lastPercent = update.Percent
					r.writePlain("%s\n", update.Message)
				}
			case tasks.LogLine:
				// Log lines are noisy; surface them only at debug level.
				r.logger.Debug("log", "line", update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	err := monitor.Run(ctx, progress)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveBridge starts the HTTP status bridge in the background.
func (r *Runner) serveBridge(ctx context.Context, addr string, monitor *tasks.SyncMonitor, events *server.EventsHandler, open bool) error {
	router := server.NewBasicRouter()
	router.Use(server.RecoveryMiddleware(r.logger), server.LoggingMiddleware(r.logger))
	router.Handler(server.NewStatusHandler(monitor))
	router.Handler(events)

	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	go func() {
		r.logger.Info("status bridge listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("status bridge failed", "error", err)
		}
	}()

	if open {
		host := addr
		if strings.HasPrefix(addr, ":") {
			host = "localhost" + addr
		}
		url := fmt.Sprintf("http://%s/status", host)
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return nil
}
