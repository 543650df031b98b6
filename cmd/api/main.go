package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/config"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/handlers"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/models"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"
	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/store"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.Log)

	// Optional history database
	var db *gorm.DB
	if cfg.Database.Enabled() {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
	}

	cache, err := services.NewCacheService(cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, running without cache and live stream")
	}
	defer cache.Close()

	var auth *services.AuthService
	if cfg.JWT.Enabled() {
		auth = services.NewAuthService(cfg.JWT)
	} else {
		logger.Warn("JWT_SECRET not set, POST /data/ is unauthenticated")
	}

	router := handlers.NewRouter(handlers.Deps{
		Config: cfg,
		Store:  store.NewCSVStore(cfg.Store.ResultsCSV),
		Cache:  cache,
		DB:     db,
		Auth:   auth,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"results": cfg.Store.ResultsCSV,
			"db":      db != nil,
			"redis":   cache.Available(),
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := db.AutoMigrate(&models.CabinPrediction{}); err != nil {
		return nil, fmt.Errorf("migrate cabin_predictions: %w", err)
	}
	return db, nil
}
