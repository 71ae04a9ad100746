package server

import (
	"encoding/json"
	"net/http"

	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// StateSource yields the current engine state. Implemented by
// tasks.SyncMonitor and by the engine itself.
type StateSource interface {
	Snapshot() syncbar.Snapshot
}

// StatusHandler serves the engine state as JSON.
// Implements the Handler interface for registration with a Router.
type StatusHandler struct {
	source StateSource
}

// NewStatusHandler creates a status handler backed by the given source.
func NewStatusHandler(source StateSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// Routes returns the HTTP routes this handler serves.
func (h *StatusHandler) Routes() []string {
	return []string{"/status", "/healthz"}
}

// ServeHTTP answers /healthz with a bare ok and /status with the full
// engine snapshot.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path == "/healthz" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
		return
	}

	snap := h.source.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}
