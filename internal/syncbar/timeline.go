package syncbar

import (
	"encoding/json"
	"strings"
)

// Timeline holds the four ordered coarse phase flags of a sync run.
//
// Ordering invariant: start < pre < post < done. Once a later flag is true
// every earlier flag must be true as well. Proposed updates that would move
// the timeline backwards are rejected wholesale (see [Bar.Reconcile]);
// explicit reset and hard finalize are the only exceptions.
type Timeline struct {
	Start bool `json:"start"`
	Pre   bool `json:"pre"`
	Post  bool `json:"post"`
	Done  bool `json:"done"`
}

// PhaseIndex derives the highest active phase: done=3, post=2, pre=1,
// start=0, and -1 when no flag is set.
func (t Timeline) PhaseIndex() int {
	switch {
	case t.Done:
		return 3
	case t.Post:
		return 2
	case t.Pre:
		return 1
	case t.Start:
		return 0
	default:
		return -1
	}
}

// normalized fills in every flag earlier than the highest set flag,
// restoring the ordering invariant on timelines assembled from partial or
// contradictory inputs.
func (t Timeline) normalized() Timeline {
	if t.Done {
		t.Post = true
	}
	if t.Post {
		t.Pre = true
	}
	if t.Pre {
		t.Start = true
	}
	return t
}

// timelineDone is the fully completed timeline set by hard finalize. Pre and
// post are forced true so the bar visually completes even when some phase
// events never arrived.
var timelineDone = Timeline{Start: true, Pre: true, Post: true, Done: true}

// SummaryTimeline is the permissive wire form of a timeline inside a polled
// summary. The daemon's summary shape has drifted over the years, so several
// historical field names map onto each canonical flag:
//
//	start: "start", "started"            (or element 0 of the array form)
//	pre:   "pre", "preparing", "snapshot_started"  (element 1)
//	post:  "post", "applying"            (element 2)
//	done:  "done", "finished", "complete" (element 3)
//
// The array form [start, pre, post, done] predates the object form and is
// still emitted by old daemons. All aliases for one flag are OR'd together.
type SummaryTimeline struct {
	Timeline
}

// summaryTimelineAliases is the canonical alias table. New dialects get a
// row here, never an ad hoc check elsewhere.
var summaryTimelineAliases = map[string][]string{
	"start": {"start", "started"},
	"pre":   {"pre", "preparing", "snapshot_started"},
	"post":  {"post", "applying"},
	"done":  {"done", "finished", "complete"},
}

// UnmarshalJSON accepts both the object dialects and the legacy array form.
// Unknown fields and non-boolean values are ignored rather than rejected;
// old and new daemon shapes must coexist.
func (st *SummaryTimeline) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var flags []bool
		if err := json.Unmarshal(data, &flags); err != nil {
			return nil
		}
		for i, v := range flags {
			switch i {
			case 0:
				st.Start = st.Start || v
			case 1:
				st.Pre = st.Pre || v
			case 2:
				st.Post = st.Post || v
			case 3:
				st.Done = st.Done || v
			}
		}
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	flag := func(canonical string) bool {
		for _, alias := range summaryTimelineAliases[canonical] {
			if v, ok := fields[alias].(bool); ok && v {
				return true
			}
		}
		return false
	}

	st.Start = st.Start || flag("start")
	st.Pre = st.Pre || flag("pre")
	st.Post = st.Post || flag("post")
	st.Done = st.Done || flag("done")
	return nil
}

// phaseNameTimeline maps the coarse summary "phase" string onto timeline
// flags: an active snapshot implies pre, an active apply implies post.
func phaseNameTimeline(phase string) Timeline {
	switch strings.ToLower(strings.TrimSpace(phase)) {
	case "snapshot":
		return Timeline{Start: true, Pre: true}
	case "apply", "sync", "syncing":
		return Timeline{Start: true, Pre: true, Post: true}
	default:
		return Timeline{}
	}
}

// merge ORs two timelines flag by flag.
func (t Timeline) merge(other Timeline) Timeline {
	return Timeline{
		Start: t.Start || other.Start,
		Pre:   t.Pre || other.Pre,
		Post:  t.Post || other.Post,
		Done:  t.Done || other.Done,
	}
}
