package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"walletd/go-backend/internal/composition/walletserver"
	"walletd/go-backend/internal/config"
	"walletd/go-backend/internal/platform/privacylog"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to walletd.yaml (optional)")
	addr := flag.String("addr", "", "Listen address, host:port or multiaddr (overrides WALLETD_ADDR)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("walletd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	if *addr != "" {
		_ = os.Setenv("WALLETD_ADDR", *addr)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("walletd configuration invalid: %v", err)
	}
	logger := privacylog.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := walletserver.New(cfg, logger)
	if err != nil {
		log.Fatalf("walletd failed to initialize: %v", err)
	}

	logger.Info("walletd starting", "component", "main", "operation", "start", "version", version)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("walletd failed: %v", err)
	}
	logger.Info("walletd stopped", "component", "main", "operation", "stop")
}
