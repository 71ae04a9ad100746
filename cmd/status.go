package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/syncdeck/syncdeck/internal/formatter"
	"github.com/syncdeck/syncdeck/internal/shared"
	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// Status fetches one summary from the daemon and prints the resulting
// engine state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if r.daemon == nil {
		return fmt.Errorf("%w: daemon client not initialized", shared.ErrDaemonUnavailable)
	}

	summary, err := r.daemon.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch summary: %w", err)
	}

	bar := syncbar.New(syncbar.Opts{})
	bar.Reconcile(*summary)

	out, err := formatter.FormatStatus(bar.Snapshot(), cmd.Bool("json"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writePlain("%s\n", out)
	}
	return r.writePlain("%s", out)
}
