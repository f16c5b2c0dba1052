package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"finanzapp/internal/amqp"
	"finanzapp/internal/cache"
	"finanzapp/internal/core"
	"finanzapp/internal/log"
)

// Repository is the persistence port used by ExpenseService.
type Repository interface {
	Create(ctx context.Context, e core.Expense) (core.Expense, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	Update(ctx context.Context, e core.Expense) (core.Expense, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f core.Filter) ([]core.Expense, error)
	Count(ctx context.Context, f core.Filter) (int, error)
	CategoryTotals(ctx context.Context, projectID string, year, month int) ([]core.CategoryAmount, error)
}

// Publisher announces expense writes to other processes.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// MonthSummary compares a month with the one before it.
type MonthSummary struct {
	Current  core.MonthOverview
	Previous core.MonthOverview
	// Change is the difference Current.Total - Previous.Total.
	Change core.Money
}

// Page is one slice of a filtered listing plus the unpaged total.
type Page struct {
	Items  []core.Expense
	Total  int
	Limit  int
	Offset int
}

// ExpenseService orchestrates expense operations across storage, events
// and the summary cache. Storage is authoritative: publish and cache
// failures are logged and never fail a write.
type ExpenseService struct {
	repo      Repository
	publisher Publisher
	summaries cache.Cache[core.MonthOverview]
	logger    *log.Logger
}

// NewExpenseService wires the service. publisher and summaries may be nil.
func NewExpenseService(repo Repository, publisher Publisher, summaries cache.Cache[core.MonthOverview], logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		repo:      repo,
		publisher: publisher,
		summaries: summaries,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

// CreateExpense normalizes, validates and stores e.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().WithOperation(log.OpCreate).
			WithExpense(created.ID, created.ProjectID, created.Category, created.Amount.Cents).ToSlice()...)

	s.invalidate(ctx, created.ProjectID)
	s.publish(ctx, amqp.ExpenseCreated, created.ID, 1)
	return created, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return s.repo.Get(ctx, id)
}

// UpdateExpense replaces the stored expense with e. The creation time is
// kept from storage.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	existing, err := s.repo.Get(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}

	e.CreatedAt = existing.CreatedAt
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.NewFields().WithOperation(log.OpUpdate).
			WithExpense(updated.ID, updated.ProjectID, updated.Category, updated.Amount.Cents).ToSlice()...)

	// Moving an expense between projects stales both summaries.
	s.invalidate(ctx, existing.ProjectID)
	if updated.ProjectID != existing.ProjectID {
		s.invalidate(ctx, updated.ProjectID)
	}
	s.publish(ctx, amqp.ExpenseUpdated, updated.ID, 0)
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, id,
		log.FieldProjectID, existing.ProjectID)

	s.invalidate(ctx, existing.ProjectID)
	s.publish(ctx, amqp.ExpenseDeleted, id, 0)
	return nil
}

// ListExpenses returns one page of f together with the total match count.
func (s *ExpenseService) ListExpenses(ctx context.Context, f core.Filter) (Page, error) {
	f = f.Normalized()
	page := Page{Limit: f.Limit, Offset: f.Offset}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.repo.List(gctx, f)
		page.Items = items
		return err
	})
	g.Go(func() error {
		n, err := s.repo.Count(gctx, f)
		page.Total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return Page{}, fmt.Errorf("list expenses: %w", err)
	}
	return page, nil
}

var ErrInvalidPeriod = errors.New("invalid period")

// MonthSummary returns the overview of year/month and the month before it.
// Overviews are served from the cache when present.
func (s *ExpenseService) MonthSummary(ctx context.Context, projectID string, year, month int) (MonthSummary, error) {
	if projectID == "" {
		return MonthSummary{}, core.ErrEmptyProject
	}
	if month < 1 || month > 12 || year < 1 {
		return MonthSummary{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidPeriod, year, month)
	}
	prevYear, prevMonth := year, month-1
	if prevMonth == 0 {
		prevYear, prevMonth = year-1, 12
	}

	var sum MonthSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ov, err := s.overview(gctx, projectID, year, month)
		sum.Current = ov
		return err
	})
	g.Go(func() error {
		ov, err := s.overview(gctx, projectID, prevYear, prevMonth)
		sum.Previous = ov
		return err
	})
	if err := g.Wait(); err != nil {
		return MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	sum.Change = core.Money{Cents: sum.Current.Total.Cents - sum.Previous.Total.Cents}
	return sum, nil
}

func (s *ExpenseService) overview(ctx context.Context, projectID string, year, month int) (core.MonthOverview, error) {
	key := summaryKey(projectID, year, month)
	if s.summaries != nil {
		if ov, ok := s.summaries.Get(ctx, key); ok {
			return ov, nil
		}
	}

	cats, err := s.repo.CategoryTotals(ctx, projectID, year, month)
	if err != nil {
		return core.MonthOverview{}, err
	}
	ov := core.NewMonthOverview(year, month, cats)
	if s.summaries != nil {
		s.summaries.Set(ctx, key, ov)
	}
	return ov, nil
}

func summaryKey(projectID string, year, month int) string {
	return fmt.Sprintf("%s%04d-%02d", summaryPrefix(projectID), year, month)
}

func summaryPrefix(projectID string) string {
	return "summary:" + projectID + ":"
}

func (s *ExpenseService) invalidate(ctx context.Context, projectID string) {
	if s.summaries == nil {
		return
	}
	n := s.summaries.DeletePrefix(ctx, summaryPrefix(projectID))
	s.logger.DebugContext(ctx, "Invalidated month summaries",
		log.FieldProjectID, projectID, "entries", n)
}

func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, id string, version int64) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping", log.FieldEventType, t)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, id, version)); err != nil {
		// Don't fail the request - the expense is stored and the export
		// sweeper picks it up.
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldEventType, t,
			log.FieldExpenseID, id,
			log.FieldError, err)
	}
}
