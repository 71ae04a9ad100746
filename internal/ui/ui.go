package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/syncdeck/syncdeck/internal/formatter"
	"github.com/syncdeck/syncdeck/internal/models"
	"github.com/syncdeck/syncdeck/internal/syncbar"
	"github.com/syncdeck/syncdeck/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DashboardView ViewState = iota
	LogView
	RunsView
)

// maxLogLines bounds the in-memory log tail.
const maxLogLines = 500

const refreshInterval = 250 * time.Millisecond

// StateSource yields the current engine snapshot, implemented by
// tasks.SyncMonitor.
type StateSource interface {
	Snapshot() syncbar.Snapshot
}

// RunLister loads run history, implemented by repositories.RunRepository.
type RunLister interface {
	List(criteria map[string]any) ([]*models.Run, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	source       StateSource
	lister       RunLister
	progressChan <-chan tasks.ProgressUpdate

	width  int
	height int

	snap     syncbar.Snapshot
	latest   tasks.ProgressUpdate
	logLines []string

	bar      progress.Model
	runList  list.Model
	runs     []*models.Run
	listInit bool

	status string
	err    error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
// The lister is optional; pass nil to disable the runs view.
func NewModel(ctx context.Context, source StateSource, progressChan <-chan tasks.ProgressUpdate, lister RunLister) *Model {
	return &Model{
		ctx:          ctx,
		view:         DashboardView,
		source:       source,
		lister:       lister,
		progressChan: progressChan,
		bar:          progress.New(progress.WithDefaultGradient()),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init starts the progress pump and the periodic refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForProgress(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		if m.listInit {
			m.runList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case DashboardView:
			return m.handleDashboardKeys(msg)
		case LogView:
			return m.handleLogKeys(msg)
		case RunsView:
			return m.handleRunsKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgress:
		data := msg.data.(struct {
			update tasks.ProgressUpdate
			closed bool
		})
		if data.closed {
			return m, nil
		}
		m.applyProgress(data.update)
		return m, m.waitForProgress()

	case MsgRunsLoaded:
		data := msg.data.(struct {
			runs []*models.Run
			err  error
		})
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Failed to load runs: %v", data.err))
			return m, nil
		}
		m.runs = data.runs
		items := make([]list.Item, len(data.runs))
		for i, run := range data.runs {
			items[i] = runItem{run: run}
		}
		m.runList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.runList.Title = "Run History"
		m.runList.SetSize(m.width-4, m.height-8)
		m.listInit = true
		return m, nil

	case MsgTick:
		m.snap = m.source.Snapshot()
		return m, m.tick()

	case MsgExported:
		data := msg.data.(struct {
			path string
			err  error
		})
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Export failed: %v", data.err))
		} else {
			m.status = styles.ok.Render(fmt.Sprintf("Exported to %s", data.path))
		}
		return m, nil
	}

	return m, nil
}

// applyProgress folds one monitor update into the model.
func (m *Model) applyProgress(update tasks.ProgressUpdate) {
	m.latest = update
	if snap, ok := update.Data.(syncbar.Snapshot); ok {
		m.snap = snap
	}
	if update.Phase == tasks.LogLine {
		m.logLines = append(m.logLines, update.Message)
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case DashboardView:
		return m.renderDashboard()
	case LogView:
		return m.renderLog()
	case RunsView:
		return m.renderRuns()
	default:
		return ""
	}
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "l":
		m.view = LogView
		return m, nil
	case "r":
		if m.lister == nil {
			m.status = styles.warn.Render("Run history is disabled")
			return m, nil
		}
		m.view = RunsView
		return m, m.loadRuns()
	}
	return m, nil
}

func (m *Model) handleLogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = DashboardView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleRunsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = DashboardView
		return m, nil
	case "e":
		return m, m.exportRuns()
	}

	var cmd tea.Cmd
	m.runList, cmd = m.runList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view == RunsView && m.listInit {
		var cmd tea.Cmd
		m.runList, cmd = m.runList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return progressMsg(tasks.ProgressUpdate{}, true)
		}

		select {
		case <-m.ctx.Done():
			return tea.Quit()
		case update, ok := <-m.progressChan:
			if !ok {
				return progressMsg(tasks.ProgressUpdate{}, true)
			}
			return progressMsg(update, false)
		}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(at time.Time) tea.Msg {
		return tickMsg(at)
	})
}

func (m *Model) loadRuns() tea.Cmd {
	return func() tea.Msg {
		runs, err := m.lister.List(map[string]any{"limit": 100})
		return runsLoadedMsg(runs, err)
	}
}

func (m *Model) exportRuns() tea.Cmd {
	runs := m.runs
	return func() tea.Msg {
		path, err := formatter.WriteRunsCSV(runs, "")
		return exportedMsg(path, err)
	}
}

func (m *Model) renderDashboard() string {
	title := styles.title.Render("Sync Console")

	state := "idle"
	stateStyle := styles.help
	switch {
	case m.snap.Running:
		state = "running"
		stateStyle = styles.ok
	case m.snap.PendingDone:
		state = "confirming"
		stateStyle = styles.warn
	case m.snap.HadError:
		state = "failed"
		stateStyle = styles.err
	case m.snap.Timeline.Done:
		state = "complete"
		stateStyle = styles.ok
	}

	barView := m.bar.ViewAs(float64(m.snap.Percent) / 100)

	var info strings.Builder
	info.WriteString(fmt.Sprintf("State: %s  %d%%\n", stateStyle.Render(state), m.snap.Percent))
	info.WriteString(fmt.Sprintf("Timeline: %s\n", formatter.FormatTimeline(m.snap.Timeline)))
	if m.snap.RunKey != "" {
		info.WriteString(fmt.Sprintf("Run: %s\n", m.snap.RunKey))
	}
	if m.snap.Snap.Started {
		info.WriteString(fmt.Sprintf("Snapshot: %d/%d\n", m.snap.Snap.Done, m.snap.Snap.Total))
	}
	if m.snap.Apply.Started {
		info.WriteString(fmt.Sprintf("Apply: %d/%d\n", m.snap.Apply.Done, m.snap.Apply.Total))
	}
	if m.snap.ExitCode != nil {
		info.WriteString(fmt.Sprintf("Exit code: %d\n", *m.snap.ExitCode))
	}
	if m.latest.Message != "" {
		info.WriteString(fmt.Sprintf("\n%s\n", styles.help.Render(m.latest.Message)))
	}
	if m.status != "" {
		info.WriteString(fmt.Sprintf("%s\n", m.status))
	}

	helpKeys := []key.Binding{m.keys.logs, m.keys.runs, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s\n%s", title, barView, info.String(), helpView)
}

func (m *Model) renderLog() string {
	title := styles.title.Render("Sync Log")

	visible := m.height - 6
	if visible < 1 {
		visible = 20
	}

	lines := m.logLines
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}

	body := strings.Join(lines, "\n")
	if body == "" {
		body = styles.help.Render("No log lines yet.")
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderRuns() string {
	if !m.listInit {
		return styles.help.Render("Loading runs...")
	}

	var status string
	if m.status != "" {
		status = fmt.Sprintf("\n%s", m.status)
	}

	helpKeys := []key.Binding{m.keys.export, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s\n\n%s", m.runList.View(), status, helpView)
}
