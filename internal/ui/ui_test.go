package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/syncdeck/syncdeck/internal/models"
	"github.com/syncdeck/syncdeck/internal/syncbar"
	"github.com/syncdeck/syncdeck/internal/tasks"
)

type staticSource struct {
	snap syncbar.Snapshot
}

func (s staticSource) Snapshot() syncbar.Snapshot { return s.snap }

type staticLister struct {
	runs []*models.Run
	err  error
}

func (s staticLister) List(criteria map[string]any) ([]*models.Run, error) {
	return s.runs, s.err
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestApplyProgress(t *testing.T) {
	m := NewModel(context.Background(), staticSource{}, nil, nil)

	snap := syncbar.Snapshot{Percent: 45, Running: true}
	m.applyProgress(tasks.ProgressUpdate{Phase: tasks.Poll, Percent: 45, Data: snap})

	if m.snap.Percent != 45 || !m.snap.Running {
		t.Errorf("expected snapshot adopted, got %+v", m.snap)
	}

	m.applyProgress(tasks.ProgressUpdate{Phase: tasks.LogLine, Message: "[SYNC] hello"})
	if len(m.logLines) != 1 || m.logLines[0] != "[SYNC] hello" {
		t.Errorf("expected log line captured, got %v", m.logLines)
	}
}

func TestLogTailBounded(t *testing.T) {
	m := NewModel(context.Background(), staticSource{}, nil, nil)

	for i := 0; i < maxLogLines+50; i++ {
		m.applyProgress(tasks.ProgressUpdate{Phase: tasks.LogLine, Message: "line"})
	}

	if len(m.logLines) != maxLogLines {
		t.Errorf("expected tail bounded at %d, got %d", maxLogLines, len(m.logLines))
	}
}

func TestViewTransitions(t *testing.T) {
	lister := staticLister{runs: []*models.Run{models.NewRun("1")}}
	m := NewModel(context.Background(), staticSource{}, nil, lister)

	next, _ := m.Update(keyPress('l'))
	m = next.(*Model)
	if m.view != LogView {
		t.Errorf("expected log view, got %d", m.view)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(*Model)
	if m.view != DashboardView {
		t.Errorf("expected dashboard view, got %d", m.view)
	}

	next, cmd := m.Update(keyPress('r'))
	m = next.(*Model)
	if m.view != RunsView {
		t.Errorf("expected runs view, got %d", m.view)
	}
	if cmd == nil {
		t.Fatal("expected a load command")
	}

	// Deliver the load result the runtime would produce.
	next, _ = m.Update(cmd())
	m = next.(*Model)
	if !m.listInit {
		t.Error("expected run list initialized")
	}
}

func TestRunsViewDisabledWithoutLister(t *testing.T) {
	m := NewModel(context.Background(), staticSource{}, nil, nil)

	next, _ := m.Update(keyPress('r'))
	m = next.(*Model)
	if m.view != DashboardView {
		t.Errorf("expected to stay on dashboard, got %d", m.view)
	}
	if m.status == "" {
		t.Error("expected a status message explaining the disabled view")
	}
}

func TestDashboardRendering(t *testing.T) {
	code := 0
	source := staticSource{snap: syncbar.Snapshot{
		Percent:  100,
		Timeline: syncbar.Timeline{Start: true, Pre: true, Post: true, Done: true},
		ExitCode: &code,
	}}
	m := NewModel(context.Background(), source, nil, nil)
	m.snap = source.snap

	view := m.View()
	if !strings.Contains(view, "complete") {
		t.Errorf("expected complete state in view:\n%s", view)
	}
	if !strings.Contains(view, "Exit code: 0") {
		t.Errorf("expected exit code in view:\n%s", view)
	}
}

func TestProgressPumpStopsOnClosedChannel(t *testing.T) {
	ch := make(chan tasks.ProgressUpdate)
	close(ch)

	m := NewModel(context.Background(), staticSource{}, ch, nil)

	msg := m.waitForProgress()()
	union, ok := msg.(Msg)
	if !ok || union.kind != MsgProgress {
		t.Fatalf("expected progress msg, got %T", msg)
	}

	data := union.data.(struct {
		update tasks.ProgressUpdate
		closed bool
	})
	if !data.closed {
		t.Error("expected closed marker from drained channel")
	}
}
