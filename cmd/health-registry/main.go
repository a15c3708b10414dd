// main is the entry point of the Health Registry service.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open (and set up) the SQLite database
//  4. Build the registry service and the route table
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close the database
//
// RUNNING THE SERVER:
//
//	go run ./cmd/health-registry --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/health-registry
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aanand-mishra/health-registry/internal/config"
	"github.com/aanand-mishra/health-registry/internal/http/router"
	"github.com/aanand-mishra/health-registry/internal/metrics"
	"github.com/aanand-mishra/health-registry/internal/registry"
	"github.com/aanand-mishra/health-registry/internal/storage/sqlite"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting health-registry",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o755); err != nil {
		log.Error("failed to create storage directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	storage, err := sqlite.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	log.Info("storage initialised",
		slog.String("path", cfg.StoragePath))

	m := metrics.New()
	svc := registry.New(storage, registry.WithMetrics(m))

	handler, err := router.New(svc, m, log)
	if err != nil {
		log.Error("failed to build router", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ListenAndServe blocks, so it runs in its own goroutine and main
	// waits for a signal instead.
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		log.Info("shutdown signal received, stopping server...")
	case err := <-serverErr:
		log.Error("server encountered an error", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// dev:     human-readable text at DEBUG
// staging: JSON at DEBUG
// prod:    JSON at INFO
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
