package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneta/internal/cache"
	"moneta/internal/config"
	"moneta/internal/insights"
	"moneta/internal/log"
	"moneta/internal/notify"
	"moneta/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentScheduler})
	log.SetDefault(logger)

	logger.Info("Starting insight-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var dispatcher notify.Dispatcher
	amqpDispatcher, err := notify.NewAMQPDispatcher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, notifications will be logged only", log.FieldError, err)
		dispatcher = notify.NewLogDispatcher(logger)
	} else {
		defer amqpDispatcher.Close()
		dispatcher = amqpDispatcher
	}

	engine := insights.NewEngine(repo, dispatcher, logger, cfg.DispatchTimeout, cfg.InsightConcurrency)

	cacheManager := cache.NewManager()
	cacheManager.Register(engine.ConfigCache())
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	scheduler := insights.NewScheduler(engine, logger,
		cfg.BriefCheckInterval, cfg.BudgetAlertInterval, cfg.DuesCheckInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	scheduler.Stop()
	logger.Info("Worker shutdown complete")
}
