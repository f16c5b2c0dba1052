package worker

import (
	"context"
	"errors"
	"fmt"

	"finanzapp/internal/amqp"
	"finanzapp/internal/core"
	"finanzapp/internal/format"
	"finanzapp/internal/log"
	"finanzapp/internal/sheets"
)

// Store is the storage the worker reads expenses from and records exports in.
type Store interface {
	Get(ctx context.Context, id string) (core.Expense, error)
	MarkExported(ctx context.Context, id string) error
}

// ExportWorker copies stored expenses into an export sink as formatted rows.
type ExportWorker struct {
	store     Store
	rows      sheets.RowWriter
	formatter *format.Formatter
	logger    *log.Logger
}

func NewExportWorker(store Store, rows sheets.RowWriter, formatter *format.Formatter, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		store:     store,
		rows:      rows,
		formatter: formatter,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies one expense event to the sink. It is the AMQP
// consumer handler: a returned error requeues the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldEventType, ev.Type,
		log.FieldExpenseID, ev.ID,
		"version", ev.Version)

	if ev.Type == amqp.ExpenseDeleted {
		if err := w.rows.DeleteRow(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete exported row: %w", err)
		}
		return nil
	}

	err := w.ExportExpense(ctx, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before we got to it; the delete event cleans the sink.
		w.logger.WarnContext(ctx, "Expense no longer exists, skipping export", log.FieldExpenseID, ev.ID)
		return nil
	}
	return err
}

// ExportExpense writes the current state of expense id to the sink and
// marks it exported.
func (w *ExportWorker) ExportExpense(ctx context.Context, id string) error {
	e, err := w.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.rows.UpsertRow(ctx, w.RowFor(e))
	if err != nil {
		return fmt.Errorf("export expense %s: %w", id, err)
	}

	if err := w.store.MarkExported(ctx, id); err != nil {
		// The row is written; a later sweep rewrites the same row.
		w.logger.WarnContext(ctx, "Failed to mark expense as exported",
			log.FieldExpenseID, id, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Exported expense",
		log.NewFields().WithOperation(log.OpExport).
			WithExpense(e.ID, e.ProjectID, e.Category, e.Amount.Cents).ToSlice()...,
	)
	w.logger.DebugContext(ctx, "Export row reference", log.FieldExpenseID, id, "ref", ref)
	return nil
}

// RowFor formats e for the sink: API date and locale currency.
func (w *ExportWorker) RowFor(e core.Expense) sheets.Row {
	return sheets.Row{
		ID:            e.ID,
		Date:          w.formatter.FormatDate(e.Date.Time, format.API),
		Name:          e.Name,
		Category:      e.Category,
		Merchant:      e.Merchant,
		Amount:        w.formatter.FormatCurrency(e.Amount.Amount()),
		PaymentMethod: string(e.PaymentMethod),
		RFC:           e.RFC,
		ProjectID:     e.ProjectID,
	}
}
