package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/syncdeck/syncdeck/internal/shared"
)

func newTestDaemon(t *testing.T, handler http.Handler) (*DaemonService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := shared.DaemonConfig{
		BaseURL:        server.URL,
		APIToken:       "test-token",
		PollIntervalMS: 10,
	}

	return NewDaemonService(cfg, server.Client()), server
}

func TestDaemonSummary(t *testing.T) {
	t.Run("decodes summary payload", func(t *testing.T) {
		svc, _ := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/sync/summary" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("expected bearer token header, got %q", got)
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"run_id": 42, "running": true, "phase": "snapshot"}`)
		}))

		summary, err := svc.Summary(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if summary.RunKey() != "42" {
			t.Errorf("expected run key 42, got %q", summary.RunKey())
		}
		if summary.Phase != "snapshot" {
			t.Errorf("expected phase snapshot, got %q", summary.Phase)
		}
	})

	t.Run("non-2xx maps to request failure", func(t *testing.T) {
		svc, _ := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := svc.Summary(context.Background())
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected ErrRequestFailed, got %v", err)
		}
	})

	t.Run("unreachable daemon maps to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		cfg := shared.DaemonConfig{BaseURL: server.URL, PollIntervalMS: 10}
		svc := NewDaemonService(cfg, nil)

		_, err := svc.Summary(context.Background())
		if !errors.Is(err, shared.ErrDaemonUnavailable) {
			t.Errorf("expected ErrDaemonUnavailable, got %v", err)
		}
	})
}

func TestDaemonEvents(t *testing.T) {
	t.Run("decodes event stream", func(t *testing.T) {
		svc, _ := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Accept"); got != "text/event-stream" {
				t.Errorf("expected SSE accept header, got %q", got)
			}

			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, ": keep-alive\n\n")
			fmt.Fprint(w, "event: snapshot_progress\n")
			fmt.Fprint(w, `data: {"dst": "shelf", "feature": "covers", "done": 3, "total": 9}`+"\n\n")
			fmt.Fprint(w, "event: sync_done\ndata: {}\n\n")
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stream, err := svc.Events(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got []Event
		for ev := range stream.Events {
			got = append(got, ev)
		}

		if err := stream.Err(); err != nil {
			t.Fatalf("expected clean close, got %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Name != "snapshot_progress" {
			t.Errorf("expected snapshot_progress, got %q", got[0].Name)
		}

		var payload struct {
			Done  int `json:"done"`
			Total int `json:"total"`
		}
		if err := json.Unmarshal(got[0].Data, &payload); err != nil {
			t.Fatalf("failed to decode event data: %v", err)
		}
		if payload.Done != 3 || payload.Total != 9 {
			t.Errorf("expected 3/9, got %d/%d", payload.Done, payload.Total)
		}
		if got[1].Name != "sync_done" {
			t.Errorf("expected sync_done, got %q", got[1].Name)
		}
	})

	t.Run("cancellation stops the reader", func(t *testing.T) {
		release := make(chan struct{})
		svc, _ := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "event: sync_init\ndata: {}\n\n")
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			<-release
		}))
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		stream, err := svc.Events(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if ev := <-stream.Events; ev.Name != "sync_init" {
			t.Fatalf("expected sync_init, got %q", ev.Name)
		}

		cancel()

		select {
		case _, open := <-stream.Events:
			if open {
				t.Error("expected channel to close after cancel")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("stream did not close after cancel")
		}
	})

	t.Run("non-2xx maps to request failure", func(t *testing.T) {
		svc, _ := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))

		_, err := svc.Events(context.Background())
		if !errors.Is(err, shared.ErrRequestFailed) {
			t.Errorf("expected ErrRequestFailed, got %v", err)
		}
	})
}

func TestDaemonFollowLog(t *testing.T) {
	svc, _ := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sync/log" || r.URL.Query().Get("follow") != "1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}

		fmt.Fprint(w, "[SYNC] starting run\n")
		fmt.Fprint(w, "[SYNC] exit code: 0\n")
	}))

	stream, err := svc.FollowLog(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var lines []string
	for line := range stream.Lines {
		lines = append(lines, line)
	}

	if err := stream.Err(); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1] != "[SYNC] exit code: 0" {
		t.Errorf("unexpected line %q", lines[1])
	}
}

func TestDaemonWaitReady(t *testing.T) {
	t.Run("returns once the daemon answers", func(t *testing.T) {
		svc, _ := newTestDaemon(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"running": false}`)
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.WaitReady(ctx, 10*time.Millisecond); err != nil {
			t.Errorf("expected ready, got %v", err)
		}
	})

	t.Run("times out against a dead daemon", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		cfg := shared.DaemonConfig{BaseURL: server.URL, PollIntervalMS: 10}
		svc := NewDaemonService(cfg, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := svc.WaitReady(ctx, 20*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}
