package api

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"freestuff/internal/ui"
	"freestuff/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, pins *PinsHandler, filters *FiltersHandler, blocked *BlockedHandler, stats *StatsHandler, cache *CacheHandler, vp *ViewportHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Postings Query Endpoint (synchronous, one-shot)
	mux.HandleFunc("GET /api/pins", pins.HandleQuery)

	// 4. Filter Settings Endpoints
	mux.HandleFunc("GET /api/filters", filters.HandleGet)
	mux.HandleFunc("PUT /api/filters", filters.HandlePut)

	// 5. Blocklist Endpoints
	mux.HandleFunc("GET /api/blocked", blocked.HandleList)
	mux.HandleFunc("POST /api/blocked", blocked.HandleBlock)
	mux.HandleFunc("DELETE /api/blocked/{id}", blocked.HandleUnblock)

	// 6. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 7. Cache Inspection Endpoint
	mux.Handle("GET /api/cache", cache)

	// 8. Logs Endpoint
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 9. Live Viewport Channel (WebSocket)
	mux.HandleFunc("GET /api/viewport", vp.HandleConnect)

	// 10. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 11. Static Frontend Serving (SPA)
	distFS, err := fs.Sub(ui.DistFS, "dist")
	if err != nil {
		panic(fmt.Sprintf("Failed to subtree dist from embedded assets: %v", err))
	}

	spaFS := &spaFileSystem{root: http.FS(distFS)}
	mux.Handle("/", http.FileServer(spaFS))

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
