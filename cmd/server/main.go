package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentstats/server/config"
	"rentstats/server/internal/aggregation"
	"rentstats/server/internal/api"
	"rentstats/server/internal/database"
	"rentstats/server/internal/geocoding"
	"rentstats/server/internal/listings"
	"rentstats/server/internal/processor"
	"rentstats/server/internal/queue"
	"rentstats/server/internal/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, logCloser := newLogger(cfg)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("path", cfg.Database.Path).Info("Using database")
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	regions, err := config.LoadRegions(cfg.Regions.File)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load regions")
	}
	logger.WithField("regions", config.GetRegionNames(regions)).Info("Loaded regions")

	registry := listings.NewRegistry(db, logger)
	service := aggregation.NewService(registry, logger)

	geocoder := geocoding.NewGeocoder(logger, geocoding.Options{
		BaseURL:     cfg.Geocoding.BaseURL,
		CacheDir:    cfg.Geocoding.CacheDir,
		UserAgent:   cfg.Geocoding.UserAgent,
		Timeout:     time.Duration(cfg.Geocoding.Timeout) * time.Second,
		MinInterval: time.Second,
	})

	refresher := scheduler.NewScheduler(
		registry,
		service,
		db,
		regions,
		time.Duration(cfg.Regions.RefreshInterval)*time.Minute,
		cfg.Regions.HistorySize,
		logger,
	)

	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.GetDB(), listingQueue, cfg, logger)
	batchProcessor.OnCommitted(func(int) {
		refresher.RequestRefresh(scheduler.JobTypeIngest)
	})

	refresher.Start()
	batchProcessor.Start()

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(cfg.Server.CORSOrigins)
	api.SetupRoutes(
		router,
		api.NewHandler(service, geocoder, listingQueue, registry, cfg.BatchProcessing.MaxBatchSize, logger),
		api.NewRegionHandler(db, regions, logger),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	// Stop retries first so Close does not wait out retry delays.
	batchProcessor.Stop()
	listingQueue.Close()
	refresher.Stop()
}
