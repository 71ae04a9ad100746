// Package web implements an HTMX-based web console mirroring the TUI functionality.
//
// # HTMX Web Console Implementation Plan
//
// # Architecture
//
// The web console replicates the three-view TUI workflow using server-side
// rendering with HTMX for dynamic updates, backed by the bridge endpoints the
// watch command already exposes. Each view corresponds to a template and handler:
//
//  1. Dashboard: Server-rendered progress bar with SSE-driven updates
//  2. Log Tail: HTMX partial appending streamed log lines
//  3. Run History: Server-rendered table with hx-get pagination
//
// Core Components
//
//   - HTTP Server: the existing server.BasicRouter with status and events handlers
//   - Monitor Integration: Uses the same tasks.Monitor and server.EventsHandler as the TUI
//   - SSE Consumer: Browser EventSource attached to /events
//
// Routes
//
//	GET  /            → Dashboard view
//	GET  /log         → HTMX partial: recent log lines
//	GET  /runs        → Run history table
//	GET  /runs/export → CSV download via formatter.ExportRunsCSV
//	GET  /events      → SSE progress stream (already served by the bridge)
//	GET  /status      → JSON snapshot (already served by the bridge)
//
// Templates
//
//   - base.html: Layout with connection status indicator
//   - dashboard.html: Progress bar, timeline markers, phase counters
//   - log.html: Partial template for the bounded log tail
//   - runs.html: History table with exit code and duration columns
//
// # State Management
//
// Unlike the TUI's in-memory model, the web console keeps no per-client state:
//   - Snapshots: fetched from /status on page load
//   - Live updates: /events SSE stream, one subscription per open page
//   - Run history: read from the runs table on each request
//
// # Progress Streaming
//
// Dashboard updates use Server-Sent Events:
//  1. Page load renders the current syncbar.Snapshot
//  2. Client opens an EventSource on /events
//  3. Each tasks.ProgressUpdate swaps the progress bar partial
//  4. A run_finished event triggers a history table refresh
//
// Dependencies
//
//   - html/template: Server-side rendering
//   - net/http: handlers registered on the existing router
//
// Implementation Tasks
//
//  1. Template structure with HTMX integration
//  2. Dashboard handler reading from server.StateSource
//  3. Log partial handler backed by the monitor's log tail
//  4. Run history handler over repositories.RunRepository
//  5. CSV export handler wrapping formatter.ExportRunsCSV
//  6. Error handling and empty-state views
//
// # Testing Strategy
//
// Use httptest:
//   - Static StateSource for snapshot rendering
//   - Scripted EventsHandler.Publish calls for SSE formatting
//   - Temp database for history table assertions
package web
