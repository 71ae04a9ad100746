package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/syncdeck/syncdeck/internal/shared"
	"github.com/syncdeck/syncdeck/internal/syncbar"
	"github.com/syncdeck/syncdeck/internal/tasks"
)

type staticSource struct {
	snap syncbar.Snapshot
}

func (s staticSource) Snapshot() syncbar.Snapshot { return s.snap }

func TestStatusHandler(t *testing.T) {
	source := staticSource{snap: syncbar.Snapshot{
		Percent: 62,
		Running: true,
		RunKey:  "42",
	}}
	handler := NewStatusHandler(source)

	t.Run("serves engine snapshot as JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var snap syncbar.Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if snap.Percent != 62 || !snap.Running || snap.RunKey != "42" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("healthz answers plain ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != "ok" {
			t.Errorf("expected ok, got %q", got)
		}
	})

	t.Run("rejects non-GET methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/status", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestEventsHandler(t *testing.T) {
	handler := NewEventsHandler()

	router := NewBasicRouter()
	router.Handler(handler)

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", got)
	}

	// The subscriber registers before ServeHTTP blocks on the channel,
	// but give the round trip a moment to settle.
	deadline := time.Now().Add(2 * time.Second)
	for {
		handler.mu.Lock()
		n := len(handler.subs)
		handler.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	handler.Publish(tasks.ProgressUpdate{Phase: tasks.Poll, Percent: 35, Message: "35%"})

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read event line: %v", err)
	}
	if strings.TrimSpace(line) != "event: poll" {
		t.Errorf("unexpected event line %q", line)
	}

	line, err = reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read data line: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") || !strings.Contains(line, `"Percent":35`) {
		t.Errorf("unexpected data line %q", line)
	}
}

func TestBasicRouterMethodFiltering(t *testing.T) {
	router := NewBasicRouter()
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("expected pong, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected HEAD to pass where GET is registered, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/ping", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodGet {
		t.Errorf("expected Allow header, got %q", rec.Header().Get("Allow"))
	}
}

func TestMiddlewareOrderAndRecovery(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewBasicRouter()
	router.Use(tag("first"), tag("second"), RecoveryMiddleware(logger))
	router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 from recovered panic, got %d", rec.Code)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("unexpected middleware order %v", order)
	}
}
