package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"freestuff/internal/api"
	"freestuff/pkg/areacache"
	"freestuff/pkg/backend"
	"freestuff/pkg/blocklist"
	"freestuff/pkg/config"
	"freestuff/pkg/db"
	"freestuff/pkg/logging"
	"freestuff/pkg/settings"
	"freestuff/pkg/tracker"
	"freestuff/pkg/version"
	"freestuff/pkg/viewport"
)

const configPath = "configs/freestuff.yaml"

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: " + configPath)
		return
	}

	if err := run(context.Background(), configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Optional .env for local overrides (backend URL, listen address).
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("FreeStuff Started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()

	blockStore, err := blocklist.NewStore(ctx, dbConn)
	if err != nil {
		return fmt.Errorf("failed to initialize blocklist: %w", err)
	}
	settingsStore, err := settings.NewStore(ctx, dbConn)
	if err != nil {
		return fmt.Errorf("failed to initialize settings: %w", err)
	}

	tr := tracker.New()
	cache := areacache.New(time.Duration(appCfg.Cache.TTL), appCfg.Cache.MaxEntries)
	client := backend.NewClient(backend.Config{
		BaseURL:    appCfg.Backend.BaseURL,
		Timeout:    time.Duration(appCfg.Backend.Timeout),
		Retries:    appCfg.Backend.Retries,
		BaseDelay:  time.Duration(appCfg.Backend.Backoff.BaseDelay),
		MaxDelay:   time.Duration(appCfg.Backend.Backoff.MaxDelay),
		MaxResults: appCfg.Backend.MaxResults,
	})

	return runServer(ctx, appCfg, cache, client, blockStore, settingsStore, tr)
}

func runServer(ctx context.Context, cfg *config.Config, cache *areacache.Cache, client *backend.Client, bl *blocklist.Store, st *settings.Store, tr *tracker.Tracker) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	vpCfg := viewport.Config{
		DebounceDelay:       time.Duration(cfg.Viewport.DebounceDelay),
		TruncationThreshold: cfg.Viewport.TruncationThreshold,
		MaxAreaDegrees:      cfg.Viewport.MaxAreaDegrees,
		PrefetchFactor:      cfg.Viewport.PrefetchFactor,
	}

	pinsH := api.NewPinsHandler(vpCfg, time.Duration(cfg.Session.TTL), cache, client, bl, st, tr)
	go sessionJanitor(ctx, pinsH)

	srv := api.NewServer(cfg.Server.Address,
		pinsH,
		api.NewFiltersHandler(st),
		api.NewBlockedHandler(bl),
		api.NewStatsHandler(tr, cache, bl, pinsH),
		api.NewCacheHandler(cache),
		api.NewViewportHandler(vpCfg, cache, client, bl, st, tr),
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

// sessionJanitor evicts idle HTTP query sessions.
func sessionJanitor(ctx context.Context, pins *api.PinsHandler) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pins.Cleanup()
		}
	}
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
