// lottowatch runs a long-lived lotto client session: it keeps ticket and
// stats state synchronized over REST and the push channel and logs activity.
// Usage: go run ./cmd/lottowatch --config configs/client.local.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minelotto/lotto-client/internal/config"
	"github.com/minelotto/lotto-client/internal/session"
	"github.com/minelotto/lotto-client/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/client.local.yaml", "path to config file")
	statusEvery := flag.Duration("status", time.Minute, "interval between status log lines")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting lottowatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"rest_url", cfg.API.RestURL,
		"ws_url", cfg.API.WSURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	sess, err := session.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	if err := sess.Start(ctx); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(*statusEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := sess.Stop(shutdownCtx); err != nil {
				logger.Error("shutdown error", "error", err)
			}
			logger.Info("lottowatch stopped")
			return
		case <-ticker.C:
			logStatus(logger, sess)
		}
	}
}

func logStatus(logger *slog.Logger, sess *session.Session) {
	tickets := sess.Tickets()

	active := 0
	var attempts int64
	for i := range tickets {
		if tickets[i].IsActive() {
			active++
		}
		attempts += tickets[i].TotalAttempts
	}

	attrs := []any{
		"connected", sess.IsConnected(),
		"tickets", len(tickets),
		"active_tickets", active,
		"total_attempts", attempts,
	}
	if stats, ok := sess.Stats(); ok {
		attrs = append(attrs,
			"system_attempts", stats.TotalAttempts,
			"system_blocks", stats.TotalBlocksMined,
		)
	}
	logger.Info("status", attrs...)
}
