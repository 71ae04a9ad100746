// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/syncdeck/syncdeck/internal/services"
	"github.com/syncdeck/syncdeck/internal/syncbar"
)

// MockDaemon is a test double for [services.Daemon]
//
// Summaries are served in order, with the last one repeating. EventCh
// and LineCh, when set, back the corresponding streams; nil streams
// return an error.
type MockDaemon struct {
	Summaries []syncbar.Summary
	EventCh   chan services.Event
	LineCh    chan string
	Err       error

	idx int
}

func (m *MockDaemon) Summary(ctx context.Context) (*syncbar.Summary, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Summaries) == 0 {
		return &syncbar.Summary{}, nil
	}

	s := m.Summaries[m.idx]
	if m.idx < len(m.Summaries)-1 {
		m.idx++
	}
	return &s, nil
}

func (m *MockDaemon) Events(ctx context.Context) (*services.EventStream, error) {
	if m.EventCh == nil {
		return nil, errors.New("no event stream configured")
	}
	return &services.EventStream{Events: m.EventCh}, nil
}

func (m *MockDaemon) FollowLog(ctx context.Context) (*services.LineStream, error) {
	if m.LineCh == nil {
		return nil, errors.New("no log stream configured")
	}
	return &services.LineStream{Lines: m.LineCh}, nil
}

func (m *MockDaemon) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
