package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIService(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		t.Run("returns JSON responses decoded", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/sync/summary" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("expected bearer token header, got %q", got)
				}

				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"running": true}`)
			}))
			defer server.Close()

			svc := NewAPIService(server.URL, "secret", server.Client())

			resp, err := svc.Get(context.Background(), "/api/sync/summary")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be recognized as JSON")
			}

			data, ok := resp.JSONData.(map[string]any)
			if !ok {
				t.Fatalf("expected JSON object, got %T", resp.JSONData)
			}
			if data["running"] != true {
				t.Errorf("expected running true, got %v", data["running"])
			}
		})

		t.Run("passes through non-JSON bodies", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "[SYNC] exit code: 0")
			}))
			defer server.Close()

			svc := NewAPIService(server.URL, "", server.Client())

			resp, err := svc.Get(context.Background(), "/api/sync/log")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if resp.IsJSON {
				t.Error("expected plain text response")
			}
			if string(resp.Body) != "[SYNC] exit code: 0" {
				t.Errorf("unexpected body %q", resp.Body)
			}
		})

		t.Run("preserves error status codes", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"detail": "no such run"}`)
			}))
			defer server.Close()

			svc := NewAPIService(server.URL, "", server.Client())

			resp, err := svc.Get(context.Background(), "/api/runs/999")
			if err != nil {
				t.Fatalf("expected no transport error, got %v", err)
			}
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("expected 404, got %d", resp.StatusCode)
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("sends JSON body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if got := r.Header.Get("Content-Type"); got != "application/json" {
					t.Errorf("expected JSON content type, got %q", got)
				}

				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"action": "restart"}` {
					t.Errorf("unexpected body %q", body)
				}

				w.WriteHeader(http.StatusAccepted)
				fmt.Fprint(w, `{"ok": true}`)
			}))
			defer server.Close()

			svc := NewAPIService(server.URL, "", server.Client())

			resp, err := svc.Post(context.Background(), "/api/sync/control", []byte(`{"action": "restart"}`))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusAccepted {
				t.Errorf("expected 202, got %d", resp.StatusCode)
			}
		})
	})
}
