package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"freestuff/pkg/config"
	"freestuff/pkg/logging"
)

// testConfig writes a config pointing all paths into a temp dir and
// letting the OS pick a free port.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
server:
    address: "localhost:0"
db:
    path: %q
log:
    server:
        path: %q
        level: "debug"
    requests:
        path: %q
        level: "info"
viewport:
    debounce_delay: 50ms
`,
		filepath.Join(dir, "test.db"),
		filepath.Join(dir, "logs", "server.log"),
		filepath.Join(dir, "logs", "requests.log"),
	)

	path := filepath.Join(dir, "freestuff.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	// A context that cancels quickly verifies the startup and shutdown
	// sequence without serving real traffic.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := run(ctx, testConfig(t)); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
}

func TestRunServerLifecycleQuit(t *testing.T) {
	initTestLogging(t)

	srv := &http.Server{Addr: "localhost:0", Handler: http.NewServeMux()}
	quit := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() {
		done <- runServerLifecycle(context.Background(), srv, quit)
	}()

	time.Sleep(50 * time.Millisecond)
	quit <- os.Interrupt

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServerLifecycle() failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runServerLifecycle() did not return after quit signal")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	initTestLogging(t)

	var called bool
	h := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pins", nil))

	if !called {
		t.Fatal("middleware did not call the wrapped handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

// initTestLogging points the request logger at a temp dir so middleware
// and lifecycle helpers can log during tests.
func initTestLogging(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	cleanup, err := logging.Init(&config.LogConfig{
		Server:   config.LogSettings{Path: filepath.Join(dir, "server.log"), Level: "info"},
		Requests: config.LogSettings{Path: filepath.Join(dir, "requests.log"), Level: "info"},
	})
	if err != nil {
		t.Fatalf("Failed to init logging: %v", err)
	}
	t.Cleanup(cleanup)
}
