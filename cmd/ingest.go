package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/syncdeck/syncdeck/internal/formatter"
	"github.com/syncdeck/syncdeck/internal/shared"
	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// Ingest replays a captured sync log through the engine and reports
// the resulting state. Pass "-" to read from stdin.
func (r *Runner) Ingest(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: log file path is required", shared.ErrMissingArgument)
	}

	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	bar := syncbar.New(syncbar.Opts{})
	bar.MarkInit()

	matched := 0
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if bar.IngestLogLine(scanner.Text()) {
			matched++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}

	r.logger.Info("log replay complete", "exit_lines", matched)

	out, err := formatter.FormatStatus(bar.Snapshot(), cmd.Bool("json"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writePlain("%s\n", out)
	}
	return r.writePlain("%s", out)
}
