package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	logs   key.Binding
	runs   key.Binding
	back   key.Binding
	export key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		logs:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logs")),
		runs:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "runs")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dashboard")),
		export: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export csv")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.logs, k.runs, k.back},
		{k.export, k.quit},
	}
}
