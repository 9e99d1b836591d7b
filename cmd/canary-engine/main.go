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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/canarystack/canary-engine/internal/api"
	"github.com/canarystack/canary-engine/internal/audit"
	"github.com/canarystack/canary-engine/internal/config"
	"github.com/canarystack/canary-engine/internal/engine"
	"github.com/canarystack/canary-engine/internal/metrics"
	"github.com/canarystack/canary-engine/internal/settings"
	"github.com/canarystack/canary-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting canary-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		logger.Error("failed to open settings store", slog.String("path", cfg.Settings.Path), slog.Any("error", err))
		os.Exit(1)
	}

	timings := engine.Timings{
		TickInterval:            cfg.Engine.TickInterval,
		ShadowTestDuration:      cfg.Engine.ShadowTestDuration,
		DecisionTimeout:         cfg.Engine.DecisionTimeout,
		AdvisoryAlertOffset:     cfg.Engine.AdvisoryAlertOffset,
		AdvisoryDetailOffset:    cfg.Engine.AdvisoryDetailOffset,
		AdvisoryRecommendOffset: cfg.Engine.AdvisoryRecommendOffset,
	}

	session := engine.NewSession(
		logger,
		engine.NewScheduler(),
		engine.NewMetricSampler(cfg.Engine.SamplerSeed),
		audit.NewLog(),
		store,
		timings,
	)
	defer session.Close()

	hub := api.NewHub(logger)
	session.SetPublisher(hub.Publish)

	server := api.NewServer(cfg.Server, logger, session, hub)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("api server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("canary-engine stopped")
}
