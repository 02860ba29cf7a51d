package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/amqp"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/config"
	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/export/google"
	applog "github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New("report-worker")
	applog.SetDefault(logger)

	logger.Info("Starting report-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireSheets(); err != nil {
		logger.Error("Report export configuration missing", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, err := google.NewReportWriter(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets writer", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets writer initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Consuming projection snapshots", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeSnapshots(ctx, func(msg *amqp.ProjectionSnapshotMessage) error {
		return writer.AppendSnapshot(ctx, msg)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Snapshot consumer failed", "error", err)
		os.Exit(1)
	}

	logger.Info("report-worker stopped gracefully")
}
