// entropytest issues a single entropy request against a live server and
// prints the result.
// Usage:
//
//	go run ./cmd/entropytest --config configs/client.local.yaml --ticket TICKET_ID
//	go run ./cmd/entropytest --config configs/client.local.yaml --low --address 1ABC...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minelotto/lotto-client/internal/config"
	"github.com/minelotto/lotto-client/internal/session"
)

func main() {
	configPath := flag.String("config", "configs/client.local.yaml", "path to config file")
	ticketID := flag.String("ticket", "", "ticket id for a high-effort request")
	address := flag.String("address", "", "payout address for a low-effort request")
	low := flag.Bool("low", false, "issue a synchronous low-effort request")
	stars := flag.Int("stars", 0, "difficulty override (0 = server default)")
	seed := flag.String("seed", "", "seed for a high-effort request (8 hex chars, generated if empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupted")
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
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		sess.Stop(shutdownCtx)
	}()

	var out any
	switch {
	case *low:
		if *address == "" {
			logger.Error("--low requires --address")
			os.Exit(2)
		}
		resp, err := sess.RequestLowEntropy(ctx, *address, *stars)
		if err != nil {
			logger.Error("low entropy request failed", "error", err)
			os.Exit(1)
		}
		out = resp

	case *ticketID != "":
		logger.Info("submitting high entropy request",
			"ticket_id", *ticketID,
			"stars", *stars,
		)
		result, err := sess.RequestHighEntropy(ctx, *ticketID, *stars, *seed)
		if err != nil {
			logger.Error("high entropy request failed", "error", err)
			os.Exit(1)
		}
		out = result

	default:
		logger.Error("nothing to do: pass --ticket or --low --address")
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}
