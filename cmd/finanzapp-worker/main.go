package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzapp/internal/cli"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
	"finanzapp/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	// reportQuiet is how long the queue must be idle before its state is logged.
	reportQuiet = 5 * time.Second
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentWorker)
	logger.Info("Starting finanzapp-worker", "export_backend", cfg.ExportBackend)

	formatter := cli.InitFormatter(logger, cfg)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	rows := cli.InitRowWriter(context.Background(), logger, cfg)
	exporter := worker.NewExportWorker(repo, rows, formatter, logger)

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	// The sweeper runs alongside the consumer and catches expenses whose
	// events were lost or never published.
	processor := services.NewExportProcessor(repo, exporter, services.ExportProcessorConfig{
		PollInterval: cfg.ExportInterval,
		BatchSize:    cfg.ExportBatchSize,
	}, logger)
	reporter := worker.NewQueueReporter(repo, reportQuiet, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		_ = processor.Stop(ctx)
		reporter.Stop()
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close database", log.FieldError, err.Error())
		}
	})

	// On startup, export whatever was left pending by a previous run.
	if exported, failed := processor.ProcessBatch(ctx); exported+failed > 0 {
		logger.Info("Startup export check done", "exported", exported, "failed", failed)
	}
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start export processor", log.FieldError, err.Error())
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeExpenseEvents(gctx, reporter.Wrap(exporter.HandleEvent))
		})
	} else {
		logger.Info("AMQP not configured, running the export sweeper only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
