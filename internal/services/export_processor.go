package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finanzapp/internal/log"
	"finanzapp/internal/storage"
)

// ExportProcessorConfig holds configuration for the export sweeper
type ExportProcessorConfig struct {
	// PollInterval is how often to check for pending exports (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of expenses exported per poll (default: 10)
	BatchSize int

	// MaxRetries is the number of failed attempts before an expense is
	// parked in the error state (default: 3)
	MaxRetries int

	// RetryInterval is how often parked expenses go back to pending (default: 1h)
	RetryInterval time.Duration
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval:  30 * time.Second,
		BatchSize:     10,
		MaxRetries:    3,
		RetryInterval: time.Hour,
	}
}

// ExportStore is the slice of storage the sweeper needs.
type ExportStore interface {
	GetPendingExports(ctx context.Context, limit int) ([]storage.PendingExport, error)
	MarkExportError(ctx context.Context, id string) error
	RetryFailedExports(ctx context.Context) (int64, error)
}

// Exporter writes one stored expense to the export sink and marks it exported.
type Exporter interface {
	ExportExpense(ctx context.Context, id string) error
}

// ExportProcessor periodically exports expenses still pending in storage.
// It covers events that were never published or were lost, and is the only
// export path when no broker is configured.
type ExportProcessor struct {
	store    ExportStore
	exporter Exporter
	config   ExportProcessorConfig
	logger   *log.Logger

	attempts map[string]int // failures per expense id, reset on success

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(store ExportStore, exporter Exporter, config ExportProcessorConfig, logger *log.Logger) *ExportProcessor {
	def := DefaultExportProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = def.RetryInterval
	}
	return &ExportProcessor{
		store:    store,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		attempts: make(map[string]int),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for the current batch to finish.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	retryTicker := time.NewTicker(p.config.RetryInterval)
	defer retryTicker.Stop()

	// Process immediately on startup
	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-retryTicker.C:
			p.retryFailed(ctx)
		}
	}
}

// ProcessBatch exports one batch of pending expenses and reports how many
// succeeded and failed.
func (p *ExportProcessor) ProcessBatch(ctx context.Context) (exported, failed int) {
	items, err := p.store.GetPendingExports(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to get pending exports", log.FieldError, err)
		return 0, 0
	}
	if len(items) == 0 {
		return 0, 0
	}

	p.logger.DebugContext(ctx, "Processing export batch", "count", len(items))

	for _, item := range items {
		if p.stopping(ctx) {
			break
		}
		if err := p.exporter.ExportExpense(ctx, item.ID); err != nil {
			p.handleFailure(ctx, item, err)
			failed++
			continue
		}
		p.mu.Lock()
		delete(p.attempts, item.ID)
		p.mu.Unlock()
		exported++
	}

	p.logger.InfoContext(ctx, "Export batch processed",
		log.FieldOperation, log.OpExport,
		"exported", exported,
		"failed", failed)
	return exported, failed
}

func (p *ExportProcessor) stopping(ctx context.Context) bool {
	p.mu.Lock()
	stopCh := p.stopCh
	p.mu.Unlock()
	if ctx.Err() != nil {
		return true
	}
	if stopCh == nil {
		return false
	}
	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

func (p *ExportProcessor) handleFailure(ctx context.Context, item storage.PendingExport, exportErr error) {
	p.mu.Lock()
	p.attempts[item.ID]++
	attempt := p.attempts[item.ID]
	if attempt >= p.config.MaxRetries {
		delete(p.attempts, item.ID)
	}
	p.mu.Unlock()

	p.logger.WarnContext(ctx, "Export failed",
		log.FieldExpenseID, item.ID,
		"attempt", attempt,
		log.FieldError, exportErr)

	if attempt < p.config.MaxRetries {
		return
	}
	if err := p.store.MarkExportError(ctx, item.ID); err != nil {
		p.logger.ErrorContext(ctx, "Failed to mark export error",
			log.FieldExpenseID, item.ID, log.FieldError, err)
		return
	}
	p.logger.ErrorContext(ctx, "Export parked after max retries",
		log.FieldExpenseID, item.ID,
		"attempts", attempt)
}

func (p *ExportProcessor) retryFailed(ctx context.Context) {
	n, err := p.store.RetryFailedExports(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to retry parked exports", log.FieldError, err)
		return
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "Parked exports moved back to pending", "count", n)
	}
}
