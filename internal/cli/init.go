// Package cli provides common initialization for the finanzapp commands.
// Init functions that cannot recover log the failure and exit the process.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finanzapp/internal/amqp"
	"finanzapp/internal/cache"
	"finanzapp/internal/config"
	"finanzapp/internal/core"
	"finanzapp/internal/format"
	"finanzapp/internal/log"
	"finanzapp/internal/sheets"
	gsheet "finanzapp/internal/sheets/google"
	"finanzapp/internal/sheets/memory"
	"finanzapp/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the configured level and
// format and makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
		Output:    os.Stdout,
		JSON:      cfg.LogFormat == "json",
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads .env and the environment, validates the result and sets
// up logging. The process exits when the configuration is invalid.
func LoadConfig(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg, logger
}

// InitFormatter resolves the locale profile of cfg.
func InitFormatter(logger *log.Logger, cfg *config.Config) *format.Formatter {
	profile, err := cfg.Profile()
	if err != nil {
		logger.Error("Failed to resolve locale", log.FieldError, err.Error(), log.FieldLocale, cfg.Locale)
		os.Exit(1)
	}
	return format.New(profile)
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitSummaryCache returns the month summary cache. An unreachable Redis
// falls back to the in-process cache. Memory caches are registered with
// manager for periodic cleanup.
func InitSummaryCache(ctx context.Context, logger *log.Logger, cfg *config.Config, manager *cache.Manager) cache.Cache[core.MonthOverview] {
	if cfg.CacheBackend == config.CacheRedis {
		rcfg := cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}
		client, err := cache.NewRedisClient(ctx, rcfg)
		if err == nil {
			logger.Info("Summary cache on Redis", "addr", cfg.RedisAddr)
			return cache.NewRedis[core.MonthOverview](client, rcfg, logger)
		}
		logger.Warn("Redis unavailable, using in-process summary cache", log.FieldError, err.Error())
	}

	mem := cache.NewMemory[core.MonthOverview](cfg.CacheSize, cfg.CacheTTL)
	if manager != nil {
		manager.Register(mem)
	}
	return mem
}

// InitRowWriter returns the export sink selected by cfg.
func InitRowWriter(ctx context.Context, logger *log.Logger, cfg *config.Config) sheets.RowWriter {
	if cfg.ExportBackend != config.ExportSheets {
		logger.Info("Exporting to in-memory rows", "backend", cfg.ExportBackend)
		return memory.New()
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}
	return client
}

// InitAMQP connects to the broker. It returns nil, nil when AMQP is not
// configured.
func InitAMQP(logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured")
		return nil, nil
	}
	return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
}

// ReadinessCheck combines the database ping with the state of the
// in-process export processor, which may be nil when a separate worker
// consumes the queue.
func ReadinessCheck(ping func(context.Context) error, processor interface{ IsRunning() bool }) func(context.Context) error {
	return func(ctx context.Context) error {
		if processor != nil && !processor.IsRunning() {
			return errors.New("export processor is not running")
		}
		return ping(ctx)
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// On SIGINT or SIGTERM cleanup runs with a context bounded by timeout, then
// the returned context is cancelled. done is closed once cleanup returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
