package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"despesas/internal/cache"
	"despesas/internal/config"
	apphttp "despesas/internal/http"
	"despesas/internal/remote"
	"despesas/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting despesas")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.NewStore(cfg.CacheDBPath)
	if err != nil {
		logger.Error("Failed to initialize local cache", "error", err, "path", cfg.CacheDBPath)
		os.Exit(1)
	}
	defer store.Close()

	client := remote.NewClient(cfg.RemoteURL, cfg.RemoteTimeout)

	// Cache hydration is synchronous; the remote reconciliation inside
	// Start is one-shot and never fatal.
	orch := services.NewOrchestrator(ctx, store, client)
	orch.Start(ctx)

	monitor := services.NewConnectivityMonitor(client, orch, cfg.ProbeInterval)
	if err := monitor.Start(ctx); err != nil {
		logger.Error("Failed to start connectivity monitor", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, orch)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting despesas server", "port", cfg.Port, "remote", cfg.RemoteURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := monitor.Stop(shutdownCtx); err != nil {
			logger.Error("Connectivity monitor shutdown error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
