package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/syncdeck/syncdeck/internal/formatter"
	"github.com/syncdeck/syncdeck/internal/shared"
)

// Runs lists recorded run history, optionally exporting it to CSV.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if cmd.Bool("failed") {
		criteria["had_error"] = true
	}

	runs, err := repo.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if path := cmd.String("csv"); path != "" {
		written, err := formatter.WriteRunsCSV(runs, path)
		if err != nil {
			return err
		}
		return r.writePlain("Exported %d runs to %s\n", len(runs), written)
	}

	if cmd.Bool("json") {
		out, err := formatter.FormatRunsJSON(runs)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", out)
	}

	return r.writePlain("%s", formatter.FormatRuns(runs))
}
