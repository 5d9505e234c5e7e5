package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/quizhook/api"
	"github.com/use-agent/quizhook/config"
	"github.com/use-agent/quizhook/fetch"
	"github.com/use-agent/quizhook/preview"
	"github.com/use-agent/quizhook/render"
	"github.com/use-agent/quizhook/resolve"
	"github.com/use-agent/quizhook/submit"
	"github.com/use-agent/quizhook/visit"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("quizhook starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"backends", cfg.Browser.Backends,
		"maxSessions", cfg.Browser.MaxSessions,
	)
	if cfg.Quiz.Secret == "" {
		slog.Warn("QUIZHOOK_SECRET is empty: every webhook call will be rejected")
	}

	// ── 3. Document fetcher ─────────────────────────────────────────
	fetcher, err := fetch.New(fetch.Options{
		Timeout:   cfg.Timeouts.Download,
		MaxBody:   cfg.Fetch.MaxBodyBytes,
		UserAgent: cfg.Fetch.UserAgent,
		Proxy:     cfg.Browser.Proxy,
	})
	if err != nil {
		slog.Error("failed to initialise fetcher", "error", err)
		os.Exit(1)
	}

	// ── 4. Render backends (launches the browser) ───────────────────
	renderer, err := render.New(cfg, fetcher)
	if err != nil {
		slog.Error("failed to initialise renderer", "error", err)
		os.Exit(1)
	}
	defer renderer.Close()
	slog.Info("renderer ready", "chain", renderer.Name())

	// ── 5. Visitor, submitter, preview ──────────────────────────────
	visitor := visit.New(renderer, resolve.New(fetcher), cfg.Timeouts.Quiescence)

	submitTransport, err := fetch.NewTransport(cfg.Browser.Proxy)
	if err != nil {
		slog.Error("failed to initialise submit transport", "error", err)
		os.Exit(1)
	}
	submitter := submit.New(submitTransport, cfg.Timeouts.Submit)

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(visitor, submitter, renderer, preview.NewRenderer(), cfg, time.Now())

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight quiz visits may hold a browser page; give them time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("quizhook stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
