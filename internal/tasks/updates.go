package tasks

import (
	"fmt"

	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// ProgressUpdate represents a progress event during monitoring.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Monitor phase
	Percent int    // Current bar percentage (0-100)
	Running bool   // Whether a run is in flight
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Monitor phase enumeration
type Phase int

const (
	Running Phase = iota
	Poll
	PollFailed
	RunStarted
	RunFinished
	SnapshotProgress
	ApplyProgress
	Completion
	Finalize
	StreamLost
	LogLine
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Poll:
		return "poll"
	case PollFailed:
		return "poll_failed"
	case RunStarted:
		return "run_started"
	case RunFinished:
		return "run_finished"
	case SnapshotProgress:
		return "snapshot_progress"
	case ApplyProgress:
		return "apply_progress"
	case Completion:
		return "completion"
	case Finalize:
		return "finalize"
	case StreamLost:
		return "stream_lost"
	case LogLine:
		return "log_line"
	default:
		return ""
	}
}

func runningUpdate(running bool) ProgressUpdate {
	msg := "Sync running..."
	if !running {
		msg = "Sync stopped"
	}
	return ProgressUpdate{
		Phase:   Running,
		Running: running,
		Message: msg,
	}
}

func pollUpdate(snap syncbar.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Poll,
		Percent: snap.Percent,
		Running: snap.Running,
		Message: fmt.Sprintf("%d%%", snap.Percent),
		Data:    snap,
	}
}

func pollFailedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PollFailed,
		Message: fmt.Sprintf("Summary poll failed: %v", err),
	}
}

func runStartedUpdate(snap syncbar.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RunStarted,
		Percent: snap.Percent,
		Running: snap.Running,
		Message: fmt.Sprintf("Run started (%s)", snap.RunKey),
		Data:    snap,
	}
}

func runFinishedUpdate(snap syncbar.Snapshot) ProgressUpdate {
	msg := fmt.Sprintf("Run finished (%s)", snap.RunKey)
	if snap.HadError {
		msg = fmt.Sprintf("Run failed (%s)", snap.RunKey)
	}
	return ProgressUpdate{
		Phase:   RunFinished,
		Percent: snap.Percent,
		Running: snap.Running,
		Message: msg,
		Data:    snap,
	}
}

func snapshotUpdate(ev syncbar.SnapEvent, snap syncbar.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SnapshotProgress,
		Percent: snap.Percent,
		Running: snap.Running,
		Message: fmt.Sprintf("Snapshot %s/%s: %d/%d", ev.Dst, ev.Feature, ev.Done, ev.Total),
		Data:    snap,
	}
}

func applyUpdate(feature string, done, total int, snap syncbar.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyProgress,
		Percent: snap.Percent,
		Running: snap.Running,
		Message: fmt.Sprintf("Applying %s: %d/%d", feature, done, total),
		Data:    snap,
	}
}

func completionUpdate(snap syncbar.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completion,
		Percent: snap.Percent,
		Running: snap.Running,
		Message: "Sync reported done, confirming...",
		Data:    snap,
	}
}

func finalizeUpdate(snap syncbar.Snapshot) ProgressUpdate {
	msg := "Sync complete"
	if snap.HadError {
		msg = "Sync failed"
	}
	if snap.ExitCode != nil {
		msg = fmt.Sprintf("%s (exit code: %d)", msg, *snap.ExitCode)
	}
	return ProgressUpdate{
		Phase:   Finalize,
		Percent: snap.Percent,
		Running: snap.Running,
		Message: msg,
		Data:    snap,
	}
}

func streamLostUpdate(err error) ProgressUpdate {
	msg := "Event stream lost, reconnecting..."
	if err != nil {
		msg = fmt.Sprintf("Event stream lost, reconnecting... (%v)", err)
	}
	return ProgressUpdate{
		Phase:   StreamLost,
		Message: msg,
	}
}

func logLineUpdate(line string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LogLine,
		Message: line,
		Data:    line,
	}
}
