package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stockfolio/internal/brokers"
	"github.com/aristath/stockfolio/internal/clients/yahoo"
	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/corporate"
	"github.com/aristath/stockfolio/internal/holdings"
	"github.com/aristath/stockfolio/internal/importer"
	"github.com/aristath/stockfolio/internal/jobs"
	"github.com/aristath/stockfolio/internal/prices"
	"github.com/aristath/stockfolio/internal/scheduler"
	"github.com/aristath/stockfolio/internal/server"
	"github.com/aristath/stockfolio/internal/storage"
	"github.com/aristath/stockfolio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting stockfolio")

	store, err := storage.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open document store")
	}
	defer store.Close()

	// Wire the pipeline: registry -> normalizer -> corporate actions ->
	// aggregator -> importer.
	registry := brokers.NewRegistry()
	normalizer := brokers.NewNormalizer(registry, log)
	actions := corporate.NewEngine(corporate.DefaultConfig(), log)
	aggregator := holdings.NewAggregator(actions, cfg.IgnoreTitles, log)
	importSvc := importer.NewService(registry, normalizer, aggregator, store, log)

	yahooClient := yahoo.NewClient(log)
	priceSvc := prices.NewService(yahooClient, log)

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	refresh := jobs.NewRefresh(importSvc, priceSvc, store, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refresh); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}

	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		Store:    store,
		Importer: importSvc,
		Prices:   priceSvc,
		History:  yahooClient,
		DevMode:  cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
