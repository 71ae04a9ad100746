// package formatter renders engine state and run history for non-TUI output (plain text, JSON, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/syncdeck/syncdeck/internal/models"
	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// FormatStatus renders an engine snapshot as human-readable text or
// indented JSON.
func FormatStatus(snap syncbar.Snapshot, asJSON bool) (string, error) {
	if asJSON {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode status: %w", err)
		}
		return string(data), nil
	}

	var buf bytes.Buffer

	state := "idle"
	switch {
	case snap.Running:
		state = "running"
	case snap.PendingDone:
		state = "confirming"
	case snap.HadError:
		state = "failed"
	case snap.Timeline.Done:
		state = "complete"
	}

	buf.WriteString(fmt.Sprintf("Sync: %s (%d%%)\n", state, snap.Percent))
	buf.WriteString(fmt.Sprintf("Timeline: %s\n", FormatTimeline(snap.Timeline)))

	if snap.RunKey != "" {
		buf.WriteString(fmt.Sprintf("Run: %s\n", snap.RunKey))
	}
	if snap.Snap.Started {
		buf.WriteString(fmt.Sprintf("Snapshot: %d/%d\n", snap.Snap.Done, snap.Snap.Total))
	}
	if snap.Apply.Started {
		buf.WriteString(fmt.Sprintf("Apply: %d/%d\n", snap.Apply.Done, snap.Apply.Total))
	}
	if snap.ExitCode != nil {
		buf.WriteString(fmt.Sprintf("Exit code: %d\n", *snap.ExitCode))
	}

	return buf.String(), nil
}

// FormatTimeline renders the four timeline flags as ordered markers,
// e.g. "start✓ pre✓ post· done·".
func FormatTimeline(t syncbar.Timeline) string {
	mark := func(name string, set bool) string {
		if set {
			return name + "✓"
		}
		return name + "·"
	}

	return strings.Join([]string{
		mark("start", t.Start),
		mark("pre", t.Pre),
		mark("post", t.Post),
		mark("done", t.Done),
	}, " ")
}

// FormatRuns renders run history as aligned text, newest first as
// provided by the repository.
func FormatRuns(runs []*models.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%-5s %-14s %-20s %-10s %-8s %s\n",
		"SEQ", "RUN", "STARTED", "DURATION", "EXIT", "RESULT"))

	for _, run := range runs {
		s := run.Summary()

		exit := "-"
		if s.ExitCode != nil {
			exit = strconv.Itoa(*s.ExitCode)
		}

		result := "ok"
		if s.HadError {
			result = "failed"
		} else if s.FinishedAt.IsZero() {
			result = "running"
		}

		duration := "-"
		if !s.FinishedAt.IsZero() {
			duration = FormatDuration(s.Duration)
		}

		buf.WriteString(fmt.Sprintf("%-5d %-14s %-20s %-10s %-8s %s\n",
			s.Sequence,
			truncate(s.RunKey, 14),
			s.StartedAt.Format("2006-01-02 15:04:05"),
			duration,
			exit,
			result,
		))
	}

	return buf.String()
}

// FormatRunsJSON renders run history as an indented JSON array of summaries.
func FormatRunsJSON(runs []*models.Run) (string, error) {
	summaries := make([]models.RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, run.Summary())
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode runs: %w", err)
	}
	return string(data), nil
}

// ExportRunsCSV converts run history to CSV with one row per run.
func ExportRunsCSV(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "RunKey", "StartedAt", "FinishedAt", "Duration", "ExitCode", "HadError", "SnapDone", "SnapTotal", "ApplyDone", "ApplyTotal"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		s := run.Summary()

		exit := ""
		if s.ExitCode != nil {
			exit = strconv.Itoa(*s.ExitCode)
		}
		finished := ""
		if !s.FinishedAt.IsZero() {
			finished = s.FinishedAt.UTC().Format(time.RFC3339)
		}

		record := []string{
			strconv.Itoa(s.Sequence),
			s.RunKey,
			s.StartedAt.UTC().Format(time.RFC3339),
			finished,
			s.Duration.String(),
			exit,
			strconv.FormatBool(s.HadError),
			strconv.Itoa(s.SnapDone),
			strconv.Itoa(s.SnapTotal),
			strconv.Itoa(s.ApplyDone),
			strconv.Itoa(s.ApplyTotal),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteRunsCSV exports run history to a CSV file.
//
// Defaults to runs_{epoch}.csv as the filename.
func WriteRunsCSV(runs []*models.Run, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("runs_%d.csv", time.Now().Unix())
	}

	csvData, err := ExportRunsCSV(runs)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

// FormatDuration renders a duration in compact human form: "45s",
// "3m02s", "1h04m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
