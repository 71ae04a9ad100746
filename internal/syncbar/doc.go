// package syncbar implements the progress aggregation and completion
// detection engine for a media-library sync daemon.
//
// The daemon emits an unreliable, out-of-order, partially duplicated stream
// of phase events (snapshot discovery progress, apply progress, log lines)
// alongside periodic full-state summaries fetched by polling. [Bar] merges
// both inputs into a monotonically non-decreasing display percentage and a
// trustworthy "actually finished" signal.
//
// Four cooperating pieces, all owned by one [Bar] instance:
//
//   - the bucket aggregator merges duplicate and partial phase events into
//     per-phase totals keyed by bucket identity
//   - the percent mapper converts phase ratios and coarse timeline flags
//     into a 0-100 value anchored at fixed points
//   - the completion debouncer arbitrates when a soft "done" signal becomes
//     a confirmed completion, with grace and quiet period checks
//   - the reconciler folds polled summaries into local state without
//     clobbering live event data
//
// The engine performs no I/O. Feeding it events, log lines, and summaries is
// the caller's responsibility (see tasks.Monitor).
package syncbar
