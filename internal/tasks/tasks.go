package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/syncdeck/syncdeck/internal/models"
	"github.com/syncdeck/syncdeck/internal/services"
	"github.com/syncdeck/syncdeck/internal/shared"
	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// Monitor defines the long-running daemon watch operation.
type Monitor interface {
	// Run follows the daemon until the context is cancelled, emitting
	// non-blocking progress updates on the provided channel. Run owns the
	// channel: it is closed before Run returns, after every producer has
	// stopped, so consumers may drain it with a plain range.
	Run(ctx context.Context, progress chan<- ProgressUpdate) error

	// Snapshot returns the current progress engine state.
	Snapshot() syncbar.Snapshot
}

// RunRecorder persists run history. Implemented by repositories.RunRepository.
type RunRecorder interface {
	Create(run *models.Run) error
	GetByRunKey(runKey string) (*models.Run, error)
	Update(run *models.Run) error
}

// MonitorOpts contains configuration for a SyncMonitor.
type MonitorOpts struct {
	PollInterval time.Duration // Summary poll cadence (default: 1s)
	RetryDelay   time.Duration // Backoff after a dropped stream (default: 2s)
	FollowLog    bool          // Tail the daemon log for exit-code lines
	Bar          syncbar.Opts  // Engine options, zero value for defaults
}

// SyncMonitor implements Monitor. It owns the progress engine and
// feeds it from the daemon's summary, event, and log endpoints.
type SyncMonitor struct {
	daemon   services.Daemon
	bar      *syncbar.Bar
	recorder RunRecorder
	logger   *log.Logger
	opts     MonitorOpts
}

// NewSyncMonitor creates a monitor for the given daemon. The recorder
// is optional; pass nil to disable run history.
func NewSyncMonitor(daemon services.Daemon, recorder RunRecorder, logger *log.Logger, opts MonitorOpts) *SyncMonitor {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}

	return &SyncMonitor{
		daemon:   daemon,
		bar:      syncbar.New(opts.Bar),
		recorder: recorder,
		logger:   logger,
		opts:     opts,
	}
}

// Snapshot returns the current engine state.
func (m *SyncMonitor) Snapshot() syncbar.Snapshot {
	return m.bar.Snapshot()
}

// Bar exposes the underlying progress engine for direct ingestion,
// used by the ingest command to replay captured logs.
func (m *SyncMonitor) Bar() *syncbar.Bar {
	return m.bar
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so reporting never stalls the monitor loops.
func (m *SyncMonitor) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run follows the daemon until the context is cancelled.
//
// Three loops run concurrently: the poll loop reconciles summaries,
// the event loop applies stream events, and the optional log loop
// feeds lines to the exit-code scanner. All three reconnect with the
// configured retry delay when the daemon drops them.
//
// Run closes progress before returning. It waits for every producer
// goroutine and detaches the engine callbacks first, so nothing can
// send on the channel after the close.
func (m *SyncMonitor) Run(ctx context.Context, progress chan<- ProgressUpdate) error {
	m.bar.OnStart(func() {
		m.sendProgress(progress, runningUpdate(true))
	})
	m.bar.OnStop(func() {
		m.sendProgress(progress, runningUpdate(false))
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.eventLoop(ctx, progress)
	}()
	if m.opts.FollowLog {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.logLoop(ctx, progress)
		}()
	}

	err := m.pollLoop(ctx, progress)

	wg.Wait()
	m.bar.Detach()
	if progress != nil {
		close(progress)
	}
	return err
}

func (m *SyncMonitor) pollLoop(ctx context.Context, progress chan<- ProgressUpdate) error {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		m.pollOnce(ctx, progress)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *SyncMonitor) pollOnce(ctx context.Context, progress chan<- ProgressUpdate) {
	summary, err := m.daemon.Summary(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, shared.ErrDaemonUnavailable) {
			m.logger.Warn("summary poll failed", "error", err)
		}
		m.sendProgress(progress, pollFailedUpdate(err))
		return
	}

	res := m.bar.Reconcile(*summary)
	snap := m.bar.Snapshot()

	if res.JustStarted {
		m.logger.Info("run started", "run_key", snap.RunKey)
		m.recordStart(snap)
		m.sendProgress(progress, runStartedUpdate(snap))
	}
	if res.JustFinished {
		m.logger.Info("run finished", "run_key", snap.RunKey, "percent", snap.Percent)
		m.recordFinish(snap)
		m.sendProgress(progress, runFinishedUpdate(snap))
	}

	m.sendProgress(progress, pollUpdate(snap))
}

func (m *SyncMonitor) eventLoop(ctx context.Context, progress chan<- ProgressUpdate) {
	for {
		stream, err := m.daemon.Events(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.sendProgress(progress, streamLostUpdate(err))
			if !sleepCtx(ctx, m.opts.RetryDelay) {
				return
			}
			continue
		}

	drain:
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-stream.Events:
				if !ok {
					break drain
				}
				m.dispatch(ev, progress)
			}
		}

		if ctx.Err() != nil {
			return
		}
		if err := stream.Err(); err != nil {
			m.logger.Warn("event stream dropped", "error", err)
		}
		m.sendProgress(progress, streamLostUpdate(stream.Err()))
		if !sleepCtx(ctx, m.opts.RetryDelay) {
			return
		}
	}
}

// dispatch decodes one stream event and applies it to the engine.
// Malformed payloads are logged and skipped; the stream stays up.
func (m *SyncMonitor) dispatch(ev services.Event, progress chan<- ProgressUpdate) {
	decode := func(target any) bool {
		if err := json.Unmarshal(ev.Data, target); err != nil {
			m.logger.Warn("malformed event payload", "event", ev.Name, "error", err)
			return false
		}
		return true
	}

	switch ev.Name {
	case "sync_init":
		m.bar.MarkInit()
		m.sendProgress(progress, runningUpdate(true))
	case "snapshot_progress":
		var payload syncbar.SnapEvent
		if decode(&payload) {
			m.bar.Snap(payload)
			m.sendProgress(progress, snapshotUpdate(payload, m.bar.Snapshot()))
		}
	case "apply_start":
		var payload syncbar.ApplyStartEvent
		if decode(&payload) {
			m.bar.ApplyStart(payload)
			m.sendProgress(progress, applyUpdate(payload.Feature, 0, payload.Total, m.bar.Snapshot()))
		}
	case "apply_progress":
		var payload syncbar.ApplyProgEvent
		if decode(&payload) {
			m.bar.ApplyProg(payload)
			m.sendProgress(progress, applyUpdate(payload.Feature, payload.Done, payload.Total, m.bar.Snapshot()))
		}
	case "apply_done":
		var payload syncbar.ApplyDoneEvent
		if decode(&payload) {
			m.bar.ApplyDone(payload)
			m.sendProgress(progress, applyUpdate(payload.Feature, payload.Count, payload.Total, m.bar.Snapshot()))
		}
	case "sync_done":
		m.bar.Done()
		m.sendProgress(progress, completionUpdate(m.bar.Snapshot()))
	case "sync_success":
		m.bar.Success()
		m.sendProgress(progress, finalizeUpdate(m.bar.Snapshot()))
	case "sync_fail":
		var payload struct {
			Code int `json:"code"`
		}
		if decode(&payload) {
			m.bar.Fail(payload.Code)
			m.sendProgress(progress, finalizeUpdate(m.bar.Snapshot()))
		}
	case "sync_error":
		m.bar.Error()
		m.sendProgress(progress, finalizeUpdate(m.bar.Snapshot()))
	case "log_line":
		var payload struct {
			Line string `json:"line"`
		}
		if decode(&payload) {
			m.ingestLine(payload.Line, progress)
		}
	default:
		m.logger.Debug("unknown event", "event", ev.Name)
	}
}

func (m *SyncMonitor) logLoop(ctx context.Context, progress chan<- ProgressUpdate) {
	for {
		stream, err := m.daemon.FollowLog(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.sendProgress(progress, streamLostUpdate(err))
			if !sleepCtx(ctx, m.opts.RetryDelay) {
				return
			}
			continue
		}

	drain:
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-stream.Lines:
				if !ok {
					break drain
				}
				m.ingestLine(line, progress)
			}
		}

		if ctx.Err() != nil {
			return
		}
		if !sleepCtx(ctx, m.opts.RetryDelay) {
			return
		}
	}
}

func (m *SyncMonitor) ingestLine(line string, progress chan<- ProgressUpdate) {
	if m.bar.IngestLogLine(line) {
		m.sendProgress(progress, finalizeUpdate(m.bar.Snapshot()))
	}
	m.sendProgress(progress, logLineUpdate(line))
}

// recordStart persists a new run row. Failures are logged, never returned.
func (m *SyncMonitor) recordStart(snap syncbar.Snapshot) {
	if m.recorder == nil || snap.RunKey == "" {
		return
	}

	if _, err := m.recorder.GetByRunKey(snap.RunKey); err == nil {
		return
	}

	run := models.NewRun(snap.RunKey)
	if err := m.recorder.Create(run); err != nil {
		m.logger.Warn("failed to record run start", "run_key", snap.RunKey, "error", err)
	}
}

// recordFinish folds the final engine state into the run row,
// creating it if the start was never observed.
func (m *SyncMonitor) recordFinish(snap syncbar.Snapshot) {
	if m.recorder == nil || snap.RunKey == "" {
		return
	}

	run, err := m.recorder.GetByRunKey(snap.RunKey)
	created := false
	if err != nil {
		run = models.NewRun(snap.RunKey)
		created = true
	}

	run.SetFinishedAt(time.Now().UTC())
	run.SetHadError(snap.HadError)
	run.SetExitCode(snap.ExitCode)
	run.SetSnapCounts(snap.Snap.Done, snap.Snap.Total)
	run.SetApplyCounts(snap.Apply.Done, snap.Apply.Total)

	if created {
		err = m.recorder.Create(run)
	} else {
		err = m.recorder.Update(run)
	}
	if err != nil {
		m.logger.Warn("failed to record run finish", "run_key", snap.RunKey, "error", err)
	}
}

// sleepCtx waits for d or the context, reporting false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
