package syncbar

import (
	"sync"
	"testing"
	"time"
)

// fakeTimer implements Timer for deterministic debounce tests.
type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock implements Clock with manual advancement. Timers fire in
// deadline order as Advance walks past them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward, firing due timers outside the clock lock
// so callbacks may schedule new timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		c.mu.Unlock()
		next.fn()
	}
}

// pendingTimers counts timers that have not fired or been cancelled.
func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func newTestBar(clock *fakeClock) *Bar {
	return New(Opts{Clock: clock})
}

func TestSnapPhaseMapping(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()

	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 50, Total: 100})
	if got := bar.Percent(); got != 46 {
		t.Errorf("expected 46 at half snapshot, got %d", got)
	}

	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 100, Total: 100, Final: true})
	if got := bar.Percent(); got != 57 {
		t.Errorf("expected 57 at snapshot finish, got %d", got)
	}
}

func TestApplyPhaseMapping(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 100, Total: 100, Final: true})

	bar.ApplyStart(ApplyStartEvent{Feature: "ratings", Total: 10})
	if got := bar.Percent(); got != 57 {
		t.Errorf("expected 57 at apply start, got %d", got)
	}

	bar.ApplyProg(ApplyProgEvent{Feature: "ratings", Done: 10, Total: 10})
	if got := bar.Percent(); got != 67 {
		t.Errorf("expected 67 at apply finish, got %d", got)
	}
}

func TestApplyIgnoredUntilSnapshotFinished(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 50, Total: 100})

	// Apply events landing mid-snapshot must not drive the percentage.
	bar.ApplyStart(ApplyStartEvent{Feature: "ratings", Total: 10})
	bar.ApplyProg(ApplyProgEvent{Feature: "ratings", Done: 10, Total: 10})
	if got := bar.Percent(); got != 46 {
		t.Errorf("expected apply contribution ignored at 46, got %d", got)
	}
}

func TestHoldAtTenFloor(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()
	if got := bar.Percent(); got != 10 {
		t.Errorf("expected hold-at-ten floor after init, got %d", got)
	}

	// First snapshot event clears the floor and real progress takes over.
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 0, Total: 100})
	if got := bar.Percent(); got != 35 {
		t.Errorf("expected 35 after first snapshot event, got %d", got)
	}
}

func TestMonotonicDisplay(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()

	events := []func(){
		func() { bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 80, Total: 100}) },
		func() { bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 40, Total: 100}) },
		func() { bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 100, Total: 100, Final: true}) },
		func() { bar.ApplyStart(ApplyStartEvent{Feature: "ratings", Total: 20}) },
		func() { bar.ApplyProg(ApplyProgEvent{Feature: "ratings", Done: 5, Total: 20}) },
		func() { bar.ApplyProg(ApplyProgEvent{Feature: "ratings", Done: 2, Total: 20}) },
		func() { bar.ApplyDone(ApplyDoneEvent{Feature: "ratings", Count: 20}) },
	}

	last := bar.Percent()
	for i, ev := range events {
		ev()
		got := bar.Percent()
		if got < last {
			t.Fatalf("percentage regressed after event %d: %d -> %d", i, last, got)
		}
		last = got
	}
}

func TestMalformedCountsCoerced(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()

	// A single bucket over-reporting done must not push the phase past its
	// band: done clamps to total per bucket.
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 500, Total: 100, Final: true})
	if got := bar.Percent(); got != 57 {
		t.Errorf("expected clamped snapshot at 57, got %d", got)
	}

	bar2 := newTestBar(newFakeClock())
	bar2.MarkInit()
	bar2.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: -3, Total: -1})
	if got := bar2.Percent(); got != 10 {
		t.Errorf("expected negative counts coerced to empty phase (floor 10), got %d", got)
	}
}

func TestIdempotentFinalize(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()

	stops := 0
	bar.OnStop(func() { stops++ })

	bar.Success()
	first := bar.Snapshot()
	if first.Timeline != timelineDone {
		t.Fatalf("expected all-true timeline after success, got %+v", first.Timeline)
	}
	if first.Running {
		t.Fatal("expected not running after success")
	}

	bar.Success()
	bar.Fail(2)
	second := bar.Snapshot()
	if second.Timeline != first.Timeline || second.Running != first.Running ||
		second.HadError != first.HadError || *second.ExitCode != *first.ExitCode {
		t.Errorf("second finalize changed state: %+v vs %+v", second, first)
	}
	if stops != 1 {
		t.Errorf("expected exactly one stop callback, got %d", stops)
	}
}

func TestHardFinalizeViaLogLine(t *testing.T) {
	t.Run("exit zero", func(t *testing.T) {
		bar := newTestBar(newFakeClock())
		bar.MarkInit()
		if !bar.IngestLogLine("2026-01-15 12:00:01 [SYNC] exit code: 0") {
			t.Fatal("expected exit code line to finalize")
		}
		snap := bar.Snapshot()
		if snap.Timeline != timelineDone || snap.Percent != 100 {
			t.Errorf("expected completed bar, got %+v", snap)
		}
		if snap.HadError {
			t.Error("exit 0 must not flag an error")
		}
	})

	t.Run("exit two", func(t *testing.T) {
		bar := newTestBar(newFakeClock())
		bar.MarkInit()
		bar.IngestLogLine("[sync] Exit Code: 2")
		snap := bar.Snapshot()
		if !snap.HadError || snap.ExitCode == nil || *snap.ExitCode != 2 {
			t.Errorf("expected error with exit code 2, got %+v", snap)
		}
		if snap.Percent != 100 {
			t.Errorf("bar must still visually complete on failure, got %d", snap.Percent)
		}
	})

	t.Run("non-matching lines ignored", func(t *testing.T) {
		bar := newTestBar(newFakeClock())
		bar.MarkInit()
		for _, line := range []string{
			"",
			"[SYNC] starting snapshot",
			"exit code: 3",
			"[SYNC] exit code: abc",
		} {
			if bar.IngestLogLine(line) {
				t.Errorf("line %q must not finalize", line)
			}
		}
		if bar.Snapshot().Timeline.Done {
			t.Error("ignored lines must not complete the timeline")
		}
	})
}

func TestStrayEventsRejected(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()
	bar.Success()

	// The retired run's stream must drop events wholesale.
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 1, Total: 10})
	bar.ApplyStart(ApplyStartEvent{Feature: "ratings", Total: 5})
	bar.ApplyProg(ApplyProgEvent{Feature: "ratings", Done: 1, Total: 5})
	bar.ApplyDone(ApplyDoneEvent{Feature: "ratings", Count: 5})

	snap := bar.Snapshot()
	if snap.Snap.Total != 0 || snap.Apply.Total != 0 {
		t.Errorf("stray events mutated aggregates: %+v", snap)
	}
	if !snap.Timeline.Done {
		t.Error("hard finalize must remain terminal")
	}
}

func TestCallbackPanicsSwallowed(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.OnStart(func() { panic("ui bug") })
	bar.OnStop(func() { panic("ui bug") })

	bar.MarkInit()
	bar.Success()

	snap := bar.Snapshot()
	if snap.Running || !snap.Timeline.Done || snap.Percent != 100 {
		t.Errorf("panicking callbacks corrupted engine state: %+v", snap)
	}
}

func TestStartStopFireOncePerTransition(t *testing.T) {
	bar := newTestBar(newFakeClock())
	starts, stops := 0, 0
	bar.OnStart(func() { starts++ })
	bar.OnStop(func() { stops++ })

	bar.MarkInit()
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 1, Total: 10})
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 2, Total: 10})
	bar.Success()

	if starts != 1 {
		t.Errorf("expected one start, got %d", starts)
	}
	if stops != 1 {
		t.Errorf("expected one stop, got %d", stops)
	}
}

func TestApplyDoneSetsBucketToLargerOfTotalAndCount(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 100, Total: 100, Final: true})

	t.Run("count raises a missing total", func(t *testing.T) {
		bar.ApplyDone(ApplyDoneEvent{Feature: "ratings", Count: 7})
		if got := bar.Snapshot().Apply; got.Done != 7 || got.Total != 7 || !got.Finished {
			t.Errorf("expected 7/7 finished, got %+v", got)
		}
	})

	t.Run("replaces an earlier larger estimate", func(t *testing.T) {
		bar.ApplyStart(ApplyStartEvent{Feature: "collections", Total: 10})
		// The done event's counts are authoritative, even below the
		// running total announced at apply start.
		bar.ApplyDone(ApplyDoneEvent{Feature: "collections", Count: 4})
		if got := bar.Snapshot().Apply; got.Done != 11 || got.Total != 11 || !got.Finished {
			t.Errorf("expected 11/11 finished, got %+v", got)
		}
	})
}

func TestMultipleBucketsAggregate(t *testing.T) {
	bar := newTestBar(newFakeClock())
	bar.MarkInit()

	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "movies", Done: 100, Total: 100, Final: true})
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "shows", Done: 50, Total: 100})
	// Duplicate update replaces, never accumulates.
	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "shows", Done: 75, Total: 100})

	snap := bar.Snapshot()
	if snap.Snap.Done != 175 || snap.Snap.Total != 200 {
		t.Errorf("expected 175/200, got %d/%d", snap.Snap.Done, snap.Snap.Total)
	}
	if snap.Snap.Finished {
		t.Error("snapshot phase must not be finished with an open bucket")
	}

	bar.Snap(SnapEvent{Dst: "PLEX", Feature: "shows", Done: 100, Total: 100, Final: true})
	if got := bar.Snapshot().Snap; !got.Finished {
		t.Errorf("expected finished snapshot phase, got %+v", got)
	}
}
