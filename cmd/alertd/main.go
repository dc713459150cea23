package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/muhafiz-app/alert-service/internal/adapter/http"
	kafkaadapter "github.com/muhafiz-app/alert-service/internal/adapter/kafka"
	"github.com/muhafiz-app/alert-service/internal/adapter/openmeteo"
	"github.com/muhafiz-app/alert-service/internal/adapter/usgs"
	"github.com/muhafiz-app/alert-service/internal/alertstore"
	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/feeds"
	"github.com/muhafiz-app/alert-service/internal/notify"
	"github.com/muhafiz-app/alert-service/internal/observability"
	"github.com/muhafiz-app/alert-service/internal/orchestrator"
	"github.com/muhafiz-app/alert-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistent KV; fall back to in-memory if the database cannot be opened
	// so monitoring still runs (without surviving restarts).
	var kv storage.KV
	sqliteKV, err := storage.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		logger.Error("sqlite open failed, falling back to in-memory storage", "path", cfg.DatabasePath, "error", err)
		kv = storage.NewMemoryKV()
	} else {
		kv = sqliteKV
		logger.Info("sqlite storage opened", "path", cfg.DatabasePath)
	}

	ledger := storage.NewHashSet(kv, "alerts:processed", logger)
	shown := storage.NewHashSet(kv, "notifications:shown", logger)
	store := alertstore.New(kv, ledger, cfg.Policy.DuplicateRadiusKm, cfg.Policy.DuplicateWindow, logger)

	weather := openmeteo.NewClient(cfg.FetchTimeout, logger)
	seismic := usgs.NewClient(cfg.FetchTimeout, logger)
	sources := []feeds.Source{
		feeds.NewWeatherSource(weather, cfg.Policy, logger),
		feeds.NewSeismicSource(seismic, cfg.Policy, logger),
		feeds.NewFloodSource(weather, cfg.Policy, logger),
	}

	// Push delivery with local fallback: if FCM cannot initialize, the local
	// backend carries notifications for the rest of the process lifetime.
	var backend notify.Backend
	if cfg.FCMEnabled {
		fcm, err := notify.NewFCMBackend(ctx, cfg.FCMCredentialsFile, cfg.FCMDeviceToken, logger)
		if err != nil {
			logger.Warn("fcm unavailable, using local delivery", "error", err)
			backend = notify.NewLocalBackend(logger)
		} else {
			backend = fcm
			logger.Info("fcm push delivery enabled")
		}
	} else {
		backend = notify.NewLocalBackend(logger)
		logger.Info("push delivery disabled, using local delivery")
	}

	var exporter notify.Exporter
	var kafkaWriter *kafkaadapter.Writer
	if cfg.ExportEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		exporter = kafkaWriter
		logger.Info("notification export enabled", "topic", cfg.KafkaSinkTopic)
	}

	notifier := notify.New(kv, shown, backend, exporter, cfg.Policy.MaxNotifications, metrics, logger)
	notifier.Initialize(ctx, nil)

	monitor := orchestrator.New(cfg, sources, store, ledger, notifier, kv, clockwork.NewRealClock(), metrics, logger)
	monitor.Initialize(ctx)

	srv := httpadapter.NewServer(cfg.HTTPAddr, monitor, store, notifier, cfg.Policy.RankBands, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := monitor.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if sqliteKV != nil {
		if err := sqliteKV.Close(); err != nil {
			logger.Error("sqlite close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
