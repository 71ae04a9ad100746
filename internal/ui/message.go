package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/syncdeck/syncdeck/internal/models"
	"github.com/syncdeck/syncdeck/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgress MsgKind = iota
	MsgRunsLoaded
	MsgTick
	MsgExported
)

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate, closed bool) Msg {
	return Msg{
		kind: MsgProgress,
		data: struct {
			update tasks.ProgressUpdate
			closed bool
		}{update, closed},
	}
}

// runsLoadedMsg is the constructor for [MsgRunsLoaded]
func runsLoadedMsg(runs []*models.Run, err error) Msg {
	return Msg{
		kind: MsgRunsLoaded,
		data: struct {
			runs []*models.Run
			err  error
		}{runs, err},
	}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(at time.Time) Msg {
	return Msg{kind: MsgTick, data: at}
}

// exportedMsg is the constructor for [MsgExported]
func exportedMsg(path string, err error) Msg {
	return Msg{
		kind: MsgExported,
		data: struct {
			path string
			err  error
		}{path, err},
	}
}
