// Package tasks orchestrates sync monitoring against the daemon with real-time progress reporting.
//
// # Core Operation
//
// The [Monitor] interface defines the long-running watch operation:
//
//	[Monitor.Run] : Follow one daemon until the context is cancelled
//	  - Polls the summary endpoint and reconciles it into the progress engine
//	  - Consumes the server-sent event stream for fine-grained bucket updates
//	  - Optionally tails the sync log for hard-finalize exit-code lines
//	  - Records started and finished runs to the local history database
//
// # Progress Reporting
//
// All loops emit non-blocking [ProgressUpdate] values on the channel
// passed to Run. Updates use select with default so a slow or absent
// consumer never stalls monitoring.
//
// # Run History
//
// The optional [RunRecorder] interface enables automatic run
// persistence. Runs are recorded silently (errors logged, never
// propagated) so a broken database does not disrupt monitoring.
//
// # Implementation
//
// [SyncMonitor] implements [Monitor] with dependencies on:
//   - [services.Daemon] : HTTP client for the sync daemon
//   - [syncbar.Bar] : progress aggregation and completion detection
//   - [RunRecorder] : optional persistence layer (repositories.RunRepository)
package tasks
