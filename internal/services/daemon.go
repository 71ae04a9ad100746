// Sync daemon [Daemon] implementation
//
// Talks to the local sync daemon over HTTP: JSON summary endpoint,
// server-sent events, and a line-oriented log follow endpoint.
package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/syncdeck/syncdeck/internal/shared"
	"github.com/syncdeck/syncdeck/internal/syncbar"
)

const defaultDaemonBaseURL string = "http://127.0.0.1:8787"

// DaemonService implements the Daemon interface against the sync
// daemon's HTTP API.
type DaemonService struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewDaemonService creates a new daemon client.
//
// The limiter paces Summary calls so that restart loops and eager
// pollers cannot hammer the daemon; it defaults to the configured
// poll interval with a burst of one.
func NewDaemonService(cfg shared.DaemonConfig, client *http.Client) *DaemonService {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultDaemonBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &DaemonService{
		baseURL:    baseURL,
		apiToken:   cfg.APIToken,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Every(cfg.PollInterval()), 1),
	}
}

// Name returns the daemon endpoint.
func (d *DaemonService) Name() string {
	return d.baseURL
}

func (d *DaemonService) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if d.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiToken)
	}

	return req, nil
}

// Summary fetches and decodes the daemon's run summary.
//
// Calls are paced by the service's rate limiter; a blocked Wait is
// released when the context is cancelled.
func (d *DaemonService) Summary(ctx context.Context) (*syncbar.Summary, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := d.newRequest(ctx, "/api/sync/summary")
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: summary returned %s", shared.ErrRequestFailed, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var summary syncbar.Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}

	return &summary, nil
}

// Events opens the daemon's SSE endpoint and decodes events onto the
// returned stream. The reader goroutine exits when the context is
// cancelled or the daemon drops the connection.
func (d *DaemonService) Events(ctx context.Context) (*EventStream, error) {
	req, err := d.newRequest(ctx, "/api/sync/events")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDaemonUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: events returned %s", shared.ErrRequestFailed, resp.Status)
	}

	events := make(chan Event)
	stream := &EventStream{Events: events}

	go func() {
		defer close(events)
		defer resp.Body.Close()

		err := readEvents(ctx, resp.Body, events)
		if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
			stream.setErr(fmt.Errorf("%w: %v", shared.ErrStreamClosed, err))
		}
	}()

	return stream, nil
}

// readEvents parses the SSE wire format: "event:" and "data:" fields
// accumulated until a blank line flushes the event. Multi-line data
// fields are joined with newlines per the SSE spec.
func readEvents(ctx context.Context, r io.Reader, events chan<- Event) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data []string

	flush := func() bool {
		if name == "" && len(data) == 0 {
			return true
		}

		ev := Event{Name: name}
		if len(data) > 0 {
			ev.Data = json.RawMessage(strings.Join(data, "\n"))
		}
		name = ""
		data = nil

		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if !flush() {
				return ctx.Err()
			}
		case strings.HasPrefix(line, ":"):
			// Comment line, used by servers as a keep-alive.
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	flush()
	return scanner.Err()
}

// FollowLog tails the daemon's sync log, one line per channel send.
func (d *DaemonService) FollowLog(ctx context.Context) (*LineStream, error) {
	req, err := d.newRequest(ctx, "/api/sync/log?follow=1")
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDaemonUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: log returned %s", shared.ErrRequestFailed, resp.Status)
	}

	lines := make(chan string)
	stream := &LineStream{Lines: lines}

	go func() {
		defer close(lines)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			stream.setErr(fmt.Errorf("%w: %v", shared.ErrStreamClosed, err))
		}
	}()

	return stream, nil
}

// WaitReady polls the daemon until the summary endpoint answers or
// the context expires. Used by commands that start before the daemon
// finishes booting.
func (d *DaemonService) WaitReady(ctx context.Context, retryDelay time.Duration) error {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	for {
		_, err := d.Summary(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: daemon not reachable at %s", shared.ErrTimeout, d.baseURL)
		}
		if !errors.Is(err, shared.ErrDaemonUnavailable) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: daemon not reachable at %s", shared.ErrTimeout, d.baseURL)
		case <-time.After(retryDelay):
		}
	}
}
