package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"eventbooking/internal/api"
	"eventbooking/internal/config"
	"eventbooking/internal/logger"
	"eventbooking/internal/observability"
	"eventbooking/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "validate" {
		runValidate(ctx, os.Args[2:])
		return
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to set up tracing", "error", err)
	}

	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to start API", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return server.Sweeper().Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	server.Cleanup()
	slog.Info("Server stopped")
}

func runValidate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	baseURL := fs.String("url", envOr("VALIDATE_BASE_URL", "http://localhost:8081"), "API base URL")
	email := fs.String("email", os.Getenv("VALIDATE_EMAIL"), "user email for Basic auth")
	password := fs.String("password", os.Getenv("VALIDATE_PASSWORD"), "user password for Basic auth")
	_ = fs.Parse(args)

	logger.Init("info", "text")

	if err := validation.RunValidation(ctx, *baseURL, *email, *password); err != nil {
		logger.Fatal("Validation failed", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
