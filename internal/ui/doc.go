// Package ui implements the interactive console using bubbletea's Elm architecture.
//
// The TUI provides a multi-view dashboard for sync monitoring:
//  1. [DashboardView] : Progress bar, timeline lights, and phase counters
//  2. [LogView] : Tail of the daemon's sync log
//  3. [RunsView] : Browse recorded run history
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the SyncMonitor, providing non-blocking status reporting while the daemon works.
//
// Keyboard navigation uses vim-style bindings (j/k, l, r, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
