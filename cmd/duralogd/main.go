package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	httpserver "duralog/internal/http"
	"duralog/pkg/kvstate"
	"duralog/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := initConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	collector := metrics.NewPrometheusCollector()

	builder := kvstate.NewBuilder().
		UseJournalBuffer(cfg.Durability.BufferedJournal).
		Metrics(collector)
	if cfg.Durability.AutoCompaction {
		builder.MaxJournalFileLength(cfg.Durability.MaxJournalFileLength)
	} else {
		builder.NoAutoCompaction()
	}

	st, err := builder.Open(cfg.Durability.DataDir)
	if err != nil {
		slog.Error("failed to open durable store", "dir", cfg.Durability.DataDir, "error", err)
		os.Exit(1)
	}
	svc := kvstate.NewService(st)

	server := httpserver.NewServer(svc, collector.Registry(), strconv.Itoa(cfg.Server.Port))
	if err := server.Start(); err != nil {
		slog.Error("failed to start HTTP server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		slog.Warn("failed to stop HTTP server", "error", err)
	}
	if err := svc.Close(); err != nil {
		slog.Warn("failed to close durable store", "error", err)
	}

	slog.Info("duralogd stopped")
}
