package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/syncdeck/syncdeck/internal/tasks"
)

// EventsHandler re-broadcasts monitor progress updates to SSE
// subscribers. Implements the Handler interface for registration with
// a Router.
//
// Each subscriber gets a buffered channel; a subscriber that cannot
// keep up loses updates rather than stalling the publisher.
type EventsHandler struct {
	mu   sync.Mutex
	subs map[chan tasks.ProgressUpdate]struct{}
}

// NewEventsHandler creates an SSE fan-out handler.
func NewEventsHandler() *EventsHandler {
	return &EventsHandler{subs: make(map[chan tasks.ProgressUpdate]struct{})}
}

// Routes returns the HTTP routes this handler serves.
func (h *EventsHandler) Routes() []string {
	return []string{"/events"}
}

// Publish fans one update out to every subscriber without blocking.
func (h *EventsHandler) Publish(update tasks.ProgressUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub <- update:
		default:
		}
	}
}

func (h *EventsHandler) subscribe() chan tasks.ProgressUpdate {
	sub := make(chan tasks.ProgressUpdate, 64)
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *EventsHandler) unsubscribe(sub chan tasks.ProgressUpdate) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// ServeHTTP streams progress updates as server-sent events until the
// client disconnects.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	sub := h.subscribe()
	defer h.unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case update := <-sub:
			payload, err := json.Marshal(update)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.Phase, payload)
			flusher.Flush()
		}
	}
}
