package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzapp/internal/cache"
	"finanzapp/internal/cli"
	apphttp "finanzapp/internal/http"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
	"finanzapp/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentApp)
	logger.Info("Starting finanzapp", "locale", cfg.Locale, "port", cfg.Port)

	formatter := cli.InitFormatter(logger, cfg)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	caches := cache.NewManager(logger)
	summaries := cli.InitSummaryCache(context.Background(), logger, cfg, caches)
	caches.StartCleanup(time.Minute)

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		// Storage stays authoritative; the export sweeper below picks up
		// everything that was not announced.
		logger.Warn("AMQP unavailable, exporting in-process", log.FieldError, err.Error())
	}

	var publisher services.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	expenses := services.NewExpenseService(repo, publisher, summaries, logger)

	// Without a broker there is no separate worker: export from here.
	var (
		processor *services.ExportProcessor
		running   interface{ IsRunning() bool }
	)
	if amqpClient == nil {
		rows := cli.InitRowWriter(context.Background(), logger, cfg)
		exporter := worker.NewExportWorker(repo, rows, formatter, logger)
		processor = services.NewExportProcessor(repo, exporter, services.ExportProcessorConfig{
			PollInterval: cfg.ExportInterval,
			BatchSize:    cfg.ExportBatchSize,
		}, logger)
		running = processor
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:            expenses,
		Comments:            services.NewCommentService(repo, repo, logger),
		Formatter:           formatter,
		Logger:              logger,
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
		WriteLimitPerMinute: cfg.WriteLimitPerMinute,
		Ready:               cli.ReadinessCheck(repo.Ping, running),
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if processor != nil {
			_ = processor.Stop(ctx)
		}
		caches.Stop()
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close database", log.FieldError, err.Error())
		}
	})

	if processor != nil {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start export processor", log.FieldError, err.Error())
			os.Exit(1)
		}
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
