package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/amqp"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/config"
	applog "github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/log"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/services"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New("projection-worker")
	applog.SetDefault(logger)

	logger.Info("Starting projection-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Snapshots go out over AMQP; without a broker the worker still
	// recomputes projections but has nowhere to publish them.
	var publisher services.SnapshotPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, snapshots will not be published", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - snapshots will not be published")
	}

	projector := services.NewProjectionService(repo, publisher, cfg.ProjectionDaysAhead, cfg.ProjectionConcurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := func() {
		runCtx, runCancel := context.WithTimeout(ctx, 10*time.Minute)
		defer runCancel()

		published, err := projector.ProcessAll(runCtx, time.Now().UTC())
		if err != nil {
			logger.Error("Projection run failed", "error", err)
			return
		}
		logger.Info("Projection run complete", "snapshots_published", published)
	}

	logger.Info("Projection schedule configured",
		"cron", cfg.ProjectionCron,
		"days_ahead", cfg.ProjectionDaysAhead,
		"concurrency", cfg.ProjectionConcurrency)

	// Run once at startup so a fresh deployment is never waiting a full
	// cron period for its first projection.
	run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ProjectionCron, run); err != nil {
		logger.Error("Invalid projection cron expression", "cron", cfg.ProjectionCron, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	stopCtx := scheduler.Stop()
	cancel()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for running jobs to finish")
	}

	logger.Info("projection-worker stopped gracefully")
}
