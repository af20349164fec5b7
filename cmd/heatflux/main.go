package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flare-heat-flux/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flare-heat-flux/internal/adapter/kafka"
	"github.com/couchcryptid/flare-heat-flux/internal/calculator"
	"github.com/couchcryptid/flare-heat-flux/internal/config"
	"github.com/couchcryptid/flare-heat-flux/internal/observability"
	"github.com/couchcryptid/flare-heat-flux/internal/session"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Report publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var (
		writer    *kafkaadapter.Writer
		publisher calculator.Publisher
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("report publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaReportTopic)
	} else {
		logger.Info("report publishing disabled")
	}

	calc := calculator.New(publisher, logger, metrics)
	store := session.NewStore(session.StoreConfig{
		Capacity: cfg.SessionCapacity,
		TTL:      cfg.SessionTTL,
	}, calc, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, calc, store, cfg.WSAllowedOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Fail readiness first so the load balancer drains us.
	store.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
