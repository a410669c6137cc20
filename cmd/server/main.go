package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xfeed/internal/app"
	"xfeed/internal/config"
	"xfeed/internal/logger"

	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", map[string]any{"error": err.Error()})
	}
	logger.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := app.New(sigCtx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{"error": err.Error()})
	}

	logger.Info("xfeed started", map[string]any{
		"port":       cfg.AppPort,
		"env":        cfg.AppEnv,
		"session":    cfg.SessionBackend,
		"strategies": cfg.AuthStrategies,
	})

	// Serve until a signal arrives or the listener fails, then drain.
	group, ctx := errgroup.WithContext(sigCtx)
	group.Go(server.Run)
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", nil)

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(drainCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("xfeed exited with error", map[string]any{"error": err.Error()})
	}
	logger.Info("xfeed stopped cleanly", nil)
}
