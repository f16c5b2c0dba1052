package worker

import (
	"context"
	"time"

	"finanzapp/internal/amqp"
	"finanzapp/internal/debounce"
	"finanzapp/internal/log"
)

// StatsSource reports expense counts per export status.
type StatsSource interface {
	ExportStats(ctx context.Context) (map[string]int, error)
}

// QueueReporter logs the export queue once a burst of events has settled,
// instead of once per event.
type QueueReporter struct {
	stats    StatsSource
	logger   *log.Logger
	debounce *debounce.Debouncer[string]
}

func NewQueueReporter(stats StatsSource, quiet time.Duration, logger *log.Logger) *QueueReporter {
	r := &QueueReporter{stats: stats, logger: logger.WithComponent(log.ComponentWorker)}
	r.debounce = debounce.New(quiet, r.report)
	return r
}

// Observe records that the event for id was handled.
func (r *QueueReporter) Observe(id string) {
	r.debounce.Call(id)
}

// Wrap returns h followed by Observe for every successfully handled event.
func (r *QueueReporter) Wrap(h amqp.Handler) amqp.Handler {
	return func(ctx context.Context, ev *amqp.ExpenseEvent) error {
		if err := h(ctx, ev); err != nil {
			return err
		}
		r.Observe(ev.ID)
		return nil
	}
}

// Stop drops a pending report.
func (r *QueueReporter) Stop() {
	r.debounce.Stop()
}

func (r *QueueReporter) report(lastID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := r.stats.ExportStats(ctx)
	if err != nil {
		r.logger.Warn("Failed to read export queue", log.FieldError, err.Error())
		return
	}
	r.logger.Info("Export queue settled", "last_expense_id", lastID, "stats", stats)
}
