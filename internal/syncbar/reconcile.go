package syncbar

import (
	"strconv"
	"strings"
	"time"
)

// Summary is the permissive wire form of the daemon's polled full-state
// snapshot. Every field is optional and several carry `any` because the
// daemon has emitted numbers as strings (and vice versa) at various points
// in its history; coercion never fails, it defaults.
type Summary struct {
	RunID        any              `json:"run_id"`
	RunUUID      any              `json:"run_uuid"`
	RawStartedTS any              `json:"raw_started_ts"`
	StartedAt    string           `json:"started_at"`
	Running      any              `json:"running"`
	ExitCode     any              `json:"exit_code"`
	Phase        string           `json:"phase"`
	Timeline     *SummaryTimeline `json:"timeline"`
	Phases       *SummaryPhases   `json:"_phase"`
}

// SummaryPhases is the optional embedded per-phase progress block.
type SummaryPhases struct {
	Snapshot *SummaryPhase `json:"snapshot"`
	Apply    *SummaryPhase `json:"apply"`
}

// SummaryPhase carries coarse done/total counters for one phase.
type SummaryPhase struct {
	Done  any `json:"done"`
	Total any `json:"total"`
}

// ReconcileResult reports the run transitions a summary produced, for caller
// side effects such as a completion toast. The engine itself performs none.
type ReconcileResult struct {
	NewRun       bool
	JustStarted  bool
	JustFinished bool
}

// RunKey derives the identity of the run a summary describes, trying the
// historical identity fields in precedence order. Empty when the summary
// carries no usable identity.
func (s Summary) RunKey() string {
	if k := coerceString(s.RunID); k != "" {
		return k
	}
	if k := coerceString(s.RunUUID); k != "" {
		return k
	}
	if k := coerceString(s.RawStartedTS); k != "" {
		return k
	}
	if s.StartedAt != "" {
		if t, ok := parseStartedAt(s.StartedAt); ok {
			return strconv.FormatInt(t.Unix(), 10)
		}
	}
	return ""
}

// Reconcile merges a polled summary into local state. The live event stream
// stays authoritative: phase counters are only seeded from the summary while
// no live events have arrived, and a summary timeline that would move the
// bar backwards is rejected wholesale.
func (b *Bar) Reconcile(s Summary) ReconcileResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res ReconcileResult
	wasRunning := b.running
	wasInProgress := b.running || b.pendingDone

	// A differing non-empty run key means the daemon moved on to a new run
	// behind our back. Roll the engine over before merging anything.
	if key := s.RunKey(); key != "" && key != b.runKey {
		res.NewRun = b.runKey != "" || b.state != stateIdle
		b.markInitLocked()
		b.runKey = key
	}

	// An explicit exit code outranks everything else in the summary.
	if code, ok := coerceExitCode(s.ExitCode); ok {
		b.finalizeLocked(&code)
		res.JustStarted = !wasRunning && b.running
		res.JustFinished = wasInProgress
		return res
	}

	proposed := phaseNameTimeline(s.Phase)
	if s.Timeline != nil {
		proposed = proposed.merge(s.Timeline.Timeline)
	}
	proposed = proposed.normalized()
	if proposed.PhaseIndex() >= b.phaseMemo && proposed.PhaseIndex() >= b.timeline.PhaseIndex() {
		b.timeline = b.timeline.merge(proposed)
	}

	if s.Phases != nil {
		b.seedPhaseLocked(&b.snap, s.Phases.Snapshot)
		b.seedPhaseLocked(&b.apply, s.Phases.Apply)
	}

	if running, ok := coerceBool(s.Running); ok {
		if running {
			b.startRunningLocked()
		} else if !b.pendingDone && (b.timeline.Done || b.logicallyDoneLocked()) {
			b.timeline = b.timeline.merge(Timeline{Done: true}).normalized()
			b.streamArmed = false
			if b.state != stateHardFinalized {
				b.state = stateConfirmed
			}
			b.stopRunningLocked()
		}
	}

	b.updatePctLocked()

	isNowInProgress := b.running || b.pendingDone
	res.JustStarted = !wasRunning && b.running
	res.JustFinished = wasInProgress && !isNowInProgress &&
		(b.timeline.Done || b.logicallyDoneLocked())
	return res
}

// seedPhaseLocked adopts summary phase counters only while the local
// aggregate is empty. Once a live event has populated a phase, polled
// summaries never overwrite it.
func (b *Bar) seedPhaseLocked(agg *PhaseAggregate, ph *SummaryPhase) {
	if ph == nil || agg.Total != 0 {
		return
	}
	total := coerceCount(ph.Total)
	if total <= 0 {
		return
	}
	done := coerceCount(ph.Done)
	if done < 0 {
		done = 0
	}
	if done > total {
		done = total
	}
	agg.Done = done
	agg.Total = total
	agg.Started = true
	agg.Finished = done >= total
}

// logicallyDoneLocked reports completion inferred from phase aggregates
// alone: snapshot finished and apply either finished or never started.
func (b *Bar) logicallyDoneLocked() bool {
	return b.snap.Finished && (b.apply.Finished || b.apply.Total == 0)
}

// parseStartedAt tries the timestamp layouts the daemon has used.
func parseStartedAt(v string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// coerceCount turns a permissive JSON value into a count, defaulting to 0.
func coerceCount(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return 0
}

// coerceString renders a permissive JSON identity value as a string.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

// coerceBool interprets the boolean dialects seen in summaries.
func coerceBool(v any) (value, ok bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	case float64:
		return b != 0, true
	}
	return false, false
}

// coerceExitCode extracts a numeric exit code when the summary carries one.
func coerceExitCode(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}
