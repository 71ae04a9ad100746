// package services defines interface Daemon for talking to the sync daemon's HTTP API
//
// Summary polling, server-sent events, log following
package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// Daemon is the client surface against the sync daemon's HTTP API.
type Daemon interface {
	// Summary fetches the daemon's current run summary.
	Summary(ctx context.Context) (*syncbar.Summary, error)

	// Events opens the daemon's server-sent event stream.
	// The stream stays open until the context is cancelled or the
	// daemon closes the connection.
	Events(ctx context.Context) (*EventStream, error)

	// FollowLog tails the daemon's sync log.
	FollowLog(ctx context.Context) (*LineStream, error)

	// Name returns a human-readable name for the daemon endpoint.
	Name() string
}

// Event is a single server-sent event from the daemon.
//
// Name carries the SSE event field; Data is the raw JSON payload,
// left undecoded so the consumer can pick the shape per event name.
type Event struct {
	Name string
	Data json.RawMessage
}

// EventStream delivers daemon events until the connection drops.
//
// After Events is closed, Err reports why the stream ended. A nil
// error means the daemon closed the stream cleanly.
type EventStream struct {
	Events <-chan Event

	mu  sync.Mutex
	err error
}

// Err returns the terminal stream error, if any. Only meaningful
// after the Events channel has been closed.
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *EventStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// LineStream delivers log lines until the connection drops.
type LineStream struct {
	Lines <-chan string

	mu  sync.Mutex
	err error
}

// Err returns the terminal stream error, if any. Only meaningful
// after the Lines channel has been closed.
func (s *LineStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *LineStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
