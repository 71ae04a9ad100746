// Package server provides HTTP routing, middleware, and status handlers for headless deployments.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Status Bridge
//
// When the console runs on a box nobody is logged into, the watch
// command can re-serve the engine state over HTTP instead of (or in
// addition to) drawing a terminal UI:
//
//   - GET /status  : current percent, timeline, and run state as JSON
//   - GET /events  : server-sent event re-broadcast of progress updates
//   - GET /healthz : liveness probe
//
// [StatusHandler] serves the JSON endpoints from any [StateSource];
// [EventsHandler] fans progress updates out to any number of SSE
// subscribers, dropping updates for slow clients rather than blocking
// the monitor.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
