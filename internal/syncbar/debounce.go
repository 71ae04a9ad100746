package syncbar

import "time"

// Completion debouncer timing defaults. Soft-done confirmation waits out
// both the grace period (elapsed since the done signal) and the quiet period
// (elapsed since the last accepted event) before committing.
const (
	// DefaultDelay is the debounce recheck interval and the quiet period.
	DefaultDelay = 900 * time.Millisecond
	// DefaultGrace is the minimum elapsed time since a soft done signal
	// before the completion may be confirmed.
	DefaultGrace = 20 * time.Second
)

// completionState tracks the debouncer's position in its lifecycle.
//
// Idle -> Running -> SoftDone -> Confirmed, or Running -> HardFinalized
// which bypasses the debounce entirely. Both end states hold until the next
// reset: confirmation disarms the stream, so late work can only reopen a
// done timeline while the soft done is still pending.
type completionState int

const (
	stateIdle completionState = iota
	stateRunning
	stateSoftDone
	stateConfirmed
	stateHardFinalized
)

func (s completionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRunning:
		return "running"
	case stateSoftDone:
		return "soft_done"
	case stateConfirmed:
		return "confirmed"
	case stateHardFinalized:
		return "hard_finalized"
	default:
		return "unknown"
	}
}

// Clock abstracts time for the engine so debounce behavior is testable
// without real sleeps. The zero configuration uses the system clock.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules f after d and returns a handle that can cancel
	// the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled call.
type Timer interface {
	// Stop cancels the pending call, reporting whether it was still pending.
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// cancelTimer stops and clears the single-slot timer handle. Every
// reschedule, hard finalize, and reset goes through here first, which is
// what keeps "at most one pending completion check" true.
func (b *Bar) cancelTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// scheduleRecheckLocked arms the single-slot debounce timer.
func (b *Bar) scheduleRecheckLocked() {
	b.cancelTimerLocked()
	b.timer = b.clock.AfterFunc(b.delay, b.recheck)
}

// recheck runs on the timer goroutine and decides whether the soft done can
// be confirmed yet. The grace period guards against a daemon that reports
// done and then keeps working; the quiet period guards against confirming
// mid-burst.
func (b *Bar) recheck() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pendingDone || b.state == stateHardFinalized {
		return
	}

	now := b.clock.Now()
	if now.Sub(b.doneAt) < b.grace || now.Sub(b.lastEvent) < b.delay {
		b.scheduleRecheckLocked()
		return
	}

	b.confirmLocked()
}

// confirmLocked commits a soft done: same observable effects as a hard
// finalize, but without an exit code. Disarming the stream means events
// arriving after this point are dropped, not reopened into the run.
func (b *Bar) confirmLocked() {
	b.cancelTimerLocked()
	b.pendingDone = false
	b.timeline = timelineDone
	b.streamArmed = false
	b.state = stateConfirmed
	b.updatePctLocked()
	b.stopRunningLocked()
}
