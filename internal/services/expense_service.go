package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pranit27-debug/Expense-Tracker/internal/amqp"
	"github.com/pranit27-debug/Expense-Tracker/internal/cache"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	"github.com/pranit27-debug/Expense-Tracker/internal/storage"
)

// EventPublisher receives an event after every committed mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService validates input, persists expenses and answers queries.
type ExpenseService struct {
	repo      storage.Repository
	publisher EventPublisher
	summaries *cache.SummaryCache
	logger    *applog.Logger

	now   func() time.Time
	newID func() string

	clockMu     sync.Mutex
	lastCreated time.Time
}

type Option func(*ExpenseService)

func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithSummaryCache(c *cache.SummaryCache) Option {
	return func(s *ExpenseService) { s.summaries = c }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *ExpenseService) { s.logger = l.WithComponent(applog.ComponentExpense) }
}

func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *ExpenseService) { s.newID = gen }
}

func NewExpenseService(repo storage.Repository, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		repo:   repo,
		logger: applog.Discard(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new expense. When in.ClientID matches an
// existing record that record is returned with created == false.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, bool, error) {
	e, err := in.Validate()
	if err != nil {
		return core.Expense{}, false, err
	}

	if e.ClientID != "" {
		if existing, err := s.repo.GetByClientID(ctx, e.ClientID); err == nil {
			return existing, false, nil
		} else if !errors.Is(err, core.ErrNotFound) {
			return core.Expense{}, false, fmt.Errorf("lookup client id: %w", err)
		}
	}

	e.ID = s.newID()
	e.CreatedAt = s.nextCreatedAt()

	stored, created, err := s.repo.InsertOrGet(ctx, e)
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("save expense: %w", err)
	}
	if !created {
		return stored, false, nil
	}

	s.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().WithExpense(stored.ID, stored.Category, stored.Date.String(), stored.Amount.Minor).ToSlice()...)
	s.afterMutation(ctx, amqp.EventCreated, stored)
	return stored, true, nil
}

// Update replaces amount, category, description and date of an existing expense.
// The idempotency key of the input is ignored.
func (s *ExpenseService) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	e, err := in.Validate()
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	e.ClientID = ""

	updated, err := s.repo.Update(ctx, e)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated", applog.FieldExpenseID, id)
	s.afterMutation(ctx, amqp.EventUpdated, updated)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	// snapshot for the event; absence is reported by the delete itself
	prev, _ := s.repo.Get(ctx, id)

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	if prev.ID == "" {
		prev.ID = id
	}

	s.logger.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, id)
	s.afterMutation(ctx, amqp.EventDeleted, prev)
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.repo.Get(ctx, id)
}

// List returns a bare listing, or one page plus totals when q.Paginate is set.
func (s *ExpenseService) List(ctx context.Context, q core.ListQuery) (core.ListResult, error) {
	q = q.Normalize()

	items, err := s.repo.List(ctx, q)
	if err != nil {
		return core.ListResult{}, fmt.Errorf("list expenses: %w", err)
	}
	if !q.Paginate {
		return core.ListResult{Items: items}, nil
	}

	total, err := s.repo.Count(ctx, q.Category)
	if err != nil {
		return core.ListResult{}, fmt.Errorf("count expenses: %w", err)
	}
	return core.ListResult{
		Items:      items,
		Paginated:  true,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: core.TotalPages(total, q.PerPage),
	}, nil
}

// Summary aggregates the full filtered set by category, ignoring pagination.
func (s *ExpenseService) Summary(ctx context.Context, category string) (core.Summary, error) {
	load := func(ctx context.Context) (core.Summary, error) {
		totals, err := s.repo.SumByCategory(ctx, category)
		if err != nil {
			return core.Summary{}, fmt.Errorf("sum by category: %w", err)
		}
		return core.NewSummary(totals), nil
	}
	if s.summaries == nil {
		return load(ctx)
	}
	return s.summaries.Get(ctx, category, load)
}

// Ready reports whether the backing store answers.
func (s *ExpenseService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *ExpenseService) afterMutation(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.summaries != nil {
		s.summaries.Invalidate()
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewExpenseEvent(t, e)); err != nil {
		// the mutation is committed; the mirror catches up on the next event
		s.logger.LogError(ctx, "Failed to publish expense event", err, applog.OpPublish,
			applog.FieldEventType, t, applog.FieldExpenseID, e.ID)
	}
}

// nextCreatedAt returns a creation instant strictly after the previous one.
func (s *ExpenseService) nextCreatedAt() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	t := s.now().UTC()
	if !t.After(s.lastCreated) {
		t = s.lastCreated.Add(time.Nanosecond)
	}
	s.lastCreated = t
	return t
}

// Close closes storage
func (s *ExpenseService) Close() error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
