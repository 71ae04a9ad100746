package syncbar

import (
	"math"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Display percentage anchors. Snapshot progress sweeps preStart..preEnd,
// apply progress sweeps preEnd..postEnd, and only a confirmed completion
// reaches 100.
const (
	anchorStart    = 0
	anchorPreStart = 35
	anchorPreEnd   = 57
	anchorPostEnd  = 67
	anchorDone     = 100

	// holdFloor is shown between run start and the first snapshot event so
	// the bar communicates "something is happening" during the initial
	// network round trip.
	holdFloor = 10
)

// exitCodeLine matches the daemon's terminal log line, e.g.
// "[SYNC] exit code: 0". The captured code hard-finalizes the run.
var exitCodeLine = regexp.MustCompile(`(?i)\[SYNC\]\s*exit code:\s*(\d+)`)

// SnapEvent reports snapshot (discovery) progress for one (destination,
// feature) bucket.
type SnapEvent struct {
	Dst     string `json:"dst"`
	Feature string `json:"feature"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Final   bool   `json:"final"`
}

// ApplyStartEvent announces the apply (write) phase for one feature bucket.
type ApplyStartEvent struct {
	Feature string `json:"feature"`
	Total   int    `json:"total"`
}

// ApplyProgEvent reports apply progress for one feature bucket.
type ApplyProgEvent struct {
	Feature string `json:"feature"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
}

// ApplyDoneEvent marks one feature bucket as fully applied. Count carries
// the final item count for daemons that never sent a total.
type ApplyDoneEvent struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
	Total   int    `json:"total"`
}

// Opts configures a [Bar]. The zero value selects the system clock and the
// default debounce timings.
type Opts struct {
	Clock Clock
	Delay time.Duration // quiet period and recheck interval
	Grace time.Duration // minimum age of a soft done before confirmation
}

// Bar is the sync progress engine. One instance tracks one run at a time;
// a differing run key or an explicit [Bar.MarkInit] rolls it over. All state
// is owned by the instance, so independently mounted bars cannot leak into
// each other.
//
// Methods are safe for concurrent use. The OnStart/OnStop callbacks are
// invoked synchronously with engine state settled and panics swallowed;
// they must not call back into the Bar.
type Bar struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	grace time.Duration

	timeline     Timeline
	snapBuckets  map[string]bucket
	applyBuckets map[string]bucket
	snap         PhaseAggregate
	apply        PhaseAggregate

	pctMemo   int
	phaseMemo int
	holdAtTen bool

	state       completionState
	pendingDone bool
	doneAt      time.Time
	lastEvent   time.Time
	timer       Timer

	running     bool
	streamArmed bool
	runKey      string

	hadError    bool
	successSeen bool
	exitCode    *int

	onStart func()
	onStop  func()
}

// New creates an idle [Bar].
func New(opts Opts) *Bar {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	b := &Bar{
		clock: opts.Clock,
		delay: opts.Delay,
		grace: opts.Grace,
	}
	b.resetLocked()
	return b
}

// OnStart registers a callback fired exactly once per transition into an
// active run.
func (b *Bar) OnStart(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStart = fn
}

// OnStop registers a callback fired exactly once per transition out of an
// active run (confirmed or hard-finalized).
func (b *Bar) OnStop(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStop = fn
}

// Detach clears both callbacks and cancels any pending completion check.
// Engine state is preserved. Callers use it when the callback consumer is
// shutting down, so the debounce timer cannot fire into a dead consumer.
func (b *Bar) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStart = nil
	b.onStop = nil
	b.cancelTimerLocked()
}

// Reset clears all run state. Registered callbacks survive.
func (b *Bar) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Bar) resetLocked() {
	b.cancelTimerLocked()
	b.timeline = Timeline{}
	b.snapBuckets = make(map[string]bucket)
	b.applyBuckets = make(map[string]bucket)
	b.snap = PhaseAggregate{}
	b.apply = PhaseAggregate{}
	b.pctMemo = 0
	b.phaseMemo = -1
	b.holdAtTen = false
	b.state = stateIdle
	b.pendingDone = false
	b.doneAt = time.Time{}
	b.lastEvent = time.Time{}
	b.running = false
	b.streamArmed = false
	b.runKey = ""
	b.hadError = false
	b.successSeen = false
	b.exitCode = nil
}

// MarkInit starts tracking a fresh run: full reset, then the start flag, the
// hold-at-ten floor, and an armed event stream.
func (b *Bar) MarkInit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markInitLocked()
}

func (b *Bar) markInitLocked() {
	b.resetLocked()
	b.timeline.Start = true
	b.holdAtTen = true
	b.streamArmed = true
	b.startRunningLocked()
	b.updatePctLocked()
}

// Snap feeds one snapshot progress event.
func (b *Bar) Snap(ev SnapEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.acceptEventLocked() {
		return
	}
	b.holdAtTen = false
	b.snap = updateBucket(b.snapBuckets, snapIdentity(ev.Dst, ev.Feature), ev.Done, ev.Total, ev.Final)
	b.updatePctLocked()
}

// ApplyStart feeds the start of the apply phase for one feature.
func (b *Bar) ApplyStart(ev ApplyStartEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.acceptEventLocked() {
		return
	}
	b.apply = updateBucket(b.applyBuckets, ev.Feature, 0, ev.Total, false)
	b.updatePctLocked()
}

// ApplyProg feeds apply progress for one feature.
func (b *Bar) ApplyProg(ev ApplyProgEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.acceptEventLocked() {
		return
	}
	b.apply = updateBucket(b.applyBuckets, ev.Feature, ev.Done, ev.Total, false)
	b.updatePctLocked()
}

// ApplyDone marks one feature's apply bucket complete. The bucket total is
// raised to the reported count when the daemon never sent a running total.
func (b *Bar) ApplyDone(ev ApplyDoneEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.acceptEventLocked() {
		return
	}
	total := ev.Total
	if ev.Count > total {
		total = ev.Count
	}
	b.apply = updateBucket(b.applyBuckets, ev.Feature, total, total, true)
	b.updatePctLocked()
}

// acceptEventLocked gates the four progress event methods. Stray events from
// an already retired run are dropped; late work while a soft done is still
// pending confirmation reopens the run.
func (b *Bar) acceptEventLocked() bool {
	if !b.streamArmed && !b.pendingDone {
		return false
	}
	b.lastEvent = b.clock.Now()
	b.startRunningLocked()
	if b.timeline.Done && b.state != stateHardFinalized {
		// Late work: the completion was premature. Revert it and re-arm
		// the debounce, keeping the original doneAt.
		b.timeline.Done = false
		b.pendingDone = true
		if b.doneAt.IsZero() {
			b.doneAt = b.lastEvent
		}
		b.streamArmed = true
		b.state = stateSoftDone
		b.scheduleRecheckLocked()
	}
	return true
}

// Done records a soft completion: the daemon says it is done but produced no
// exit code. Confirmation is deferred until the grace and quiet periods
// elapse (see recheck).
func (b *Bar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateHardFinalized {
		return
	}
	b.pendingDone = true
	if b.doneAt.IsZero() {
		b.doneAt = b.clock.Now()
	}
	b.state = stateSoftDone
	b.scheduleRecheckLocked()
}

// Success hard-finalizes the run with exit code 0.
func (b *Bar) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	code := 0
	b.finalizeLocked(&code)
}

// Fail hard-finalizes the run with a non-zero exit code.
func (b *Bar) Fail(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if code == 0 {
		code = 1
	}
	b.finalizeLocked(&code)
}

// Error hard-finalizes the run as failed without an exit code.
func (b *Bar) Error() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hadError = true
	b.finalizeLocked(nil)
}

// IngestLogLine scans one daemon log line for the exit code marker and
// hard-finalizes on a match. Returns true when the line finalized the run.
func (b *Bar) IngestLogLine(line string) bool {
	m := exitCodeLine.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalizeLocked(&code)
	return true
}

// finalizeLocked is the hard finalize path shared by Success, Fail, Error,
// exit-code log lines, and summaries carrying an exit code. It bypasses the
// debounce and is terminal until the next reset: late work cannot reopen a
// hard-finalized run, whether it succeeded or failed.
func (b *Bar) finalizeLocked(code *int) {
	if b.state == stateHardFinalized {
		return
	}
	b.cancelTimerLocked()
	b.pendingDone = false
	if code != nil {
		c := *code
		b.exitCode = &c
		if c == 0 {
			b.successSeen = true
		} else {
			b.hadError = true
		}
	}
	b.timeline = timelineDone
	b.streamArmed = false
	b.state = stateHardFinalized
	b.updatePctLocked()
	b.stopRunningLocked()
}

// startRunningLocked flips the run active, firing OnStart on the transition.
func (b *Bar) startRunningLocked() {
	if b.running {
		return
	}
	b.running = true
	if b.state == stateIdle {
		b.state = stateRunning
	}
	invoke(b.onStart)
}

// stopRunningLocked flips the run inactive, firing OnStop on the transition.
func (b *Bar) stopRunningLocked() {
	if !b.running {
		return
	}
	b.running = false
	invoke(b.onStop)
}

// invoke calls a consumer callback, discarding panics so a buggy handler
// cannot corrupt engine state or block a finalize.
func invoke(fn func()) {
	if fn == nil {
		return
	}
	defer func() { _ = recover() }()
	fn()
}

// updatePctLocked recomputes the display percentage.
//
// Candidate selection, in priority order: a confirmed completion pins 100; a started
// apply phase (with the snapshot phase finished) sweeps preEnd..postEnd; a
// started snapshot phase sweeps preStart..preEnd; otherwise the coarse
// timeline flags pick an anchor. The hold-at-ten floor applies until the
// first snapshot event. A timeline phase regression discards the candidate
// outright, and the memoized value only ever rises within a run.
func (b *Bar) updatePctLocked() {
	idx := b.timeline.PhaseIndex()
	if idx < b.phaseMemo {
		return
	}
	b.phaseMemo = idx

	var candidate float64
	switch {
	case b.state == stateHardFinalized, b.timeline.Done && !b.pendingDone:
		// Confirmed completion, hard or soft, pins the bar at 100.
		candidate = anchorDone
	case b.apply.Started && b.snap.Finished:
		candidate = anchorPreEnd + (anchorPostEnd-anchorPreEnd)*b.apply.Ratio()
	case b.snap.Started:
		candidate = anchorPreStart + (anchorPreEnd-anchorPreStart)*b.snap.Ratio()
	case b.timeline.Done:
		candidate = anchorDone
	case b.timeline.Post:
		candidate = anchorPostEnd
	case b.timeline.Pre:
		candidate = anchorPreStart
	case b.timeline.Start:
		candidate = anchorStart
	}

	if b.holdAtTen && !b.snap.Started && candidate < holdFloor {
		candidate = holdFloor
	}

	if candidate < 0 {
		candidate = 0
	}
	if candidate > 100 {
		candidate = 100
	}
	if p := int(math.Round(candidate)); p > b.pctMemo {
		b.pctMemo = p
	}
}

// Percent returns the memoized display percentage, 0-100 and non-decreasing
// within a run.
func (b *Bar) Percent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pctMemo
}

// Timeline returns the current coarse phase flags.
func (b *Bar) Timeline() Timeline {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeline
}

// IsRunning reports whether a run is currently active.
func (b *Bar) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Snapshot is a point-in-time copy of the engine's observable state.
type Snapshot struct {
	Percent     int            `json:"percent"`
	Timeline    Timeline       `json:"timeline"`
	Running     bool           `json:"running"`
	PendingDone bool           `json:"pending_done"`
	HadError    bool           `json:"had_error"`
	ExitCode    *int           `json:"exit_code"`
	RunKey      string         `json:"run_key,omitempty"`
	Snap        PhaseAggregate `json:"snapshot"`
	Apply       PhaseAggregate `json:"apply"`
	State       string         `json:"state"`
}

// Snapshot copies the observable engine state for rendering or re-serving.
func (b *Bar) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	var code *int
	if b.exitCode != nil {
		c := *b.exitCode
		code = &c
	}
	return Snapshot{
		Percent:     b.pctMemo,
		Timeline:    b.timeline,
		Running:     b.running,
		PendingDone: b.pendingDone,
		HadError:    b.hadError,
		ExitCode:    code,
		RunKey:      b.runKey,
		Snap:        b.snap,
		Apply:       b.apply,
		State:       b.state.String(),
	}
}
