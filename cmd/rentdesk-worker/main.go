package main

import (
	"context"
	"errors"
	"os"
	"time"

	"rentdesk/internal/backend"
	"rentdesk/internal/cli"
	"rentdesk/internal/config"
	"rentdesk/internal/log"
	"rentdesk/internal/services"
	"rentdesk/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker, (*config.Config).Validate)
	logger.Info("Starting rentdesk-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	svc := services.New(repo, nil)
	defer svc.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)

	// Without a spreadsheet the mirror lives in memory, which keeps the
	// outbox draining in development.
	mirror, err := factory.CreateMirror(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create record mirror", log.FieldError, err)
		os.Exit(1)
	}

	processor := services.NewSyncProcessor(repo, svc, mirror, services.SyncProcessorConfig{
		PollInterval:    cfg.SyncInterval,
		BatchSize:       cfg.SyncBatchSize,
		MaxRetries:      cfg.SyncMaxRetries,
		CleanupInterval: time.Hour,
		CleanupAge:      24 * time.Hour,
	})
	syncWorker := worker.NewSyncWorker(processor)

	amqpClient := factory.CreateConsumer(bcfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Sync processor stop failed", log.FieldError, err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRecordEvents(ctx, syncWorker.HandleRecordEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Record event consumption stopped", log.FieldError, err)
			}
		}()
		logger.Info("Consuming record events", "queue", cfg.AMQPQueue)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
