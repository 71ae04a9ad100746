package models

import (
	"fmt"
	"time"
)

// Run is one observed sync run: identity, timing, outcome, and final phase
// counts. It implements [Model] with soft delete support.
type Run struct {
	id         string
	sequence   int
	runKey     string
	startedAt  time.Time
	finishedAt time.Time
	exitCode   *int
	hadError   bool
	snapDone   int
	snapTotal  int
	applyDone  int
	applyTotal int
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewRun creates a Run for the given run key, stamping creation time.
func NewRun(runKey string) *Run {
	now := time.Now().UTC()
	return &Run{
		runKey:    runKey,
		createdAt: now,
		updatedAt: now,
	}
}

// RehydrateRun reconstructs a Run from persisted fields. Used by the
// repository layer when scanning rows.
func RehydrateRun(id string, sequence int, runKey string, startedAt, finishedAt time.Time,
	exitCode *int, hadError bool, snapDone, snapTotal, applyDone, applyTotal int,
	createdAt, updatedAt time.Time, deletedAt *time.Time) *Run {
	return &Run{
		id:         id,
		sequence:   sequence,
		runKey:     runKey,
		startedAt:  startedAt,
		finishedAt: finishedAt,
		exitCode:   exitCode,
		hadError:   hadError,
		snapDone:   snapDone,
		snapTotal:  snapTotal,
		applyDone:  applyDone,
		applyTotal: applyTotal,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		deletedAt:  deletedAt,
	}
}

func (r *Run) ID() string            { return r.id }
func (r *Run) Sequence() int         { return r.sequence }
func (r *Run) RunKey() string        { return r.runKey }
func (r *Run) StartedAt() time.Time  { return r.startedAt }
func (r *Run) FinishedAt() time.Time { return r.finishedAt }
func (r *Run) HadError() bool        { return r.hadError }
func (r *Run) SnapDone() int         { return r.snapDone }
func (r *Run) SnapTotal() int        { return r.snapTotal }
func (r *Run) ApplyDone() int        { return r.applyDone }
func (r *Run) ApplyTotal() int       { return r.applyTotal }
func (r *Run) CreatedAt() time.Time  { return r.createdAt }
func (r *Run) UpdatedAt() time.Time  { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time { return r.deletedAt }

// ExitCode returns a copy of the recorded exit code, nil when the run never
// produced one.
func (r *Run) ExitCode() *int {
	if r.exitCode == nil {
		return nil
	}
	c := *r.exitCode
	return &c
}

func (r *Run) SetID(id string)               { r.id = id }
func (r *Run) SetSequence(seq int)           { r.sequence = seq }
func (r *Run) SetStartedAt(t time.Time)      { r.startedAt = t; r.touch() }
func (r *Run) SetFinishedAt(t time.Time)     { r.finishedAt = t; r.touch() }
func (r *Run) SetHadError(v bool)            { r.hadError = v; r.touch() }
func (r *Run) SetSnapCounts(done, total int) { r.snapDone, r.snapTotal = done, total; r.touch() }
func (r *Run) SetApplyCounts(done, total int) {
	r.applyDone, r.applyTotal = done, total
	r.touch()
}

// SetExitCode records the run's exit code; nil clears it.
func (r *Run) SetExitCode(code *int) {
	if code == nil {
		r.exitCode = nil
	} else {
		c := *code
		r.exitCode = &c
	}
	r.touch()
}

func (r *Run) touch() { r.updatedAt = time.Now().UTC() }

// Succeeded reports whether the run finished with exit code 0 and no error.
func (r *Run) Succeeded() bool {
	return !r.hadError && r.exitCode != nil && *r.exitCode == 0
}

// Duration is the elapsed wall time of the run, zero when timing is unknown.
func (r *Run) Duration() time.Duration {
	if r.startedAt.IsZero() || r.finishedAt.IsZero() {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

// Validate checks if the model's data is valid and returns an error if not
func (r *Run) Validate() error {
	if r.id == "" {
		return fmt.Errorf("run id is required")
	}
	if r.runKey == "" {
		return fmt.Errorf("run key is required")
	}
	if r.snapDone < 0 || r.snapTotal < 0 || r.applyDone < 0 || r.applyTotal < 0 {
		return fmt.Errorf("phase counts must be non-negative")
	}
	return nil
}

// RunSummary is the condensed listing view of a run.
type RunSummary struct {
	ID         string        `json:"id"`
	Sequence   int           `json:"sequence"`
	RunKey     string        `json:"run_key"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	ExitCode   *int          `json:"exit_code"`
	HadError   bool          `json:"had_error"`
	SnapDone   int           `json:"snap_done"`
	SnapTotal  int           `json:"snap_total"`
	ApplyDone  int           `json:"apply_done"`
	ApplyTotal int           `json:"apply_total"`
}

// Summary converts a Run into its listing view.
func (r *Run) Summary() RunSummary {
	return RunSummary{
		ID:         r.id,
		Sequence:   r.sequence,
		RunKey:     r.runKey,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
		Duration:   r.Duration(),
		ExitCode:   r.ExitCode(),
		HadError:   r.hadError,
		SnapDone:   r.snapDone,
		SnapTotal:  r.snapTotal,
		ApplyDone:  r.applyDone,
		ApplyTotal: r.applyTotal,
	}
}
