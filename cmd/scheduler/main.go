package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/config"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/pipeline"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/predictor"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/scheduler"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.Log)

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("scheduler stopped")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	registry := predictor.NewRegistry(map[predictor.Stage]string{
		predictor.StageStatus:      cfg.Models.StatusPath,
		predictor.StageTemperature: cfg.Models.TemperaturePath,
		predictor.StageFanSpeed:    cfg.Models.FanSpeedPath,
		predictor.StageMode:        cfg.Models.ModePath,
	}, logger)

	// Models must load before the loop starts, also when they are reloaded per cycle.
	loaded, err := registry.Load()
	if err != nil {
		return fmt.Errorf("model load failed: %w", err)
	}
	source := pipeline.Static(loaded)
	if cfg.Scheduler.ReloadModels {
		source = pipeline.Reloading(registry)
	}
	pipe := pipeline.New(source, cfg.Scheduler.Location, logger)

	results := store.NewCSVStore(cfg.Store.ResultsCSV)

	var sinks []scheduler.Sink

	cache, err := services.NewCacheService(cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, rows will not be published")
	}
	defer cache.Close()
	if cache.Available() {
		sinks = append(sinks, services.NewRowPublisher(cache, cfg.Redis.Channel))
	}

	if cfg.MQTT.Enabled() {
		publisher, err := services.NewMQTTPublisher(cfg.MQTT, logger)
		if err != nil {
			logger.WithError(err).Warn("mqtt unavailable, rows will not be sent to controllers")
		} else {
			defer publisher.Close()
			sinks = append(sinks, publisher)
		}
	}

	if cfg.Database.Enabled() {
		mirror, err := store.NewPGMirror(ctx, cfg.Database.DSN, cfg.Scheduler.Location)
		if err != nil {
			logger.WithError(err).Warn("postgres unavailable, rows will not be mirrored")
		} else {
			defer mirror.Close()
			sinks = append(sinks, mirror)
		}
	}

	go serveHTTP(cfg.Scheduler.MetricsAddr, logger)

	sched := scheduler.New(pipe, results, scheduler.RealClock{}, scheduler.Options{
		Cabins:        cfg.Scheduler.Cabins,
		Step:          cfg.Scheduler.Step(),
		AppendRetries: cfg.Scheduler.AppendRetries,
		AppendBackoff: cfg.Scheduler.AppendBackoff(),
	}, logger, sinks...)

	logger.WithFields(logrus.Fields{
		"cabins":   cfg.Scheduler.Cabins,
		"timezone": cfg.Scheduler.TimeZone,
		"step":     cfg.Scheduler.Step(),
		"results":  cfg.Store.ResultsCSV,
		"reload":   cfg.Scheduler.ReloadModels,
		"sinks":    len(sinks),
	}).Info("scheduler running")

	err = sched.Run(ctx)
	if pending := sched.Pending(); pending > 0 {
		logger.WithField("pending", pending).Warn("rows were not written to the result table")
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("scheduler shutting down")
		return nil
	}
	return err
}

func serveHTTP(addr string, logger logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("metrics server stopped")
	}
}
