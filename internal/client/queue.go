package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pranit27-debug/Expense-Tracker/internal/api"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
)

// Creator performs the idempotent create call. *Client implements it.
type Creator interface {
	Create(ctx context.Context, req api.ExpenseRequest) (core.Expense, bool, error)
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	Expense core.Expense
	Created bool
}

// Rejection is a pending entry the server refused permanently.
type Rejection struct {
	ClientID string
	Reason   string
}

// FlushReport summarises one replay of the queue.
type FlushReport struct {
	Sent      []string
	Rejected  []Rejection
	Failed    int
	Remaining int
}

// Queue records every create before it is sent so that it survives a crash
// or an unreachable server, and replays what is left on Flush.
type Queue struct {
	store   PendingStore
	creator Creator
	newKey  func() string
	logger  *applog.Logger

	mu      sync.Mutex // guards store read-modify-write
	flushMu sync.Mutex
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

func WithKeyGenerator(gen func() string) QueueOption {
	return func(q *Queue) { q.newKey = gen }
}

func WithQueueLogger(l *applog.Logger) QueueOption {
	return func(q *Queue) { q.logger = l.WithComponent(applog.ComponentQueue) }
}

func NewQueue(store PendingStore, creator Creator, opts ...QueueOption) *Queue {
	q := &Queue{
		store:   store,
		creator: creator,
		newKey:  uuid.NewString,
		logger:  applog.Discard(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit validates in, persists it under a fresh idempotency key and sends it.
// On a transient failure the entry stays queued and the returned error
// matches ErrTransient. Invalid input is never queued.
func (q *Queue) Submit(ctx context.Context, in core.ExpenseInput) (SubmitResult, error) {
	e, err := in.Validate()
	if err != nil {
		return SubmitResult{}, err
	}
	e.ClientID = q.newKey()
	entry := PendingSubmission{ClientID: e.ClientID, Body: api.NewExpenseRequest(e)}

	if err := q.push(ctx, entry); err != nil {
		return SubmitResult{}, err
	}

	saved, created, err := q.creator.Create(ctx, entry.Body)
	switch {
	case err == nil:
		if rmErr := q.remove(ctx, entry.ClientID); rmErr != nil {
			q.logger.WarnContext(ctx, "Failed to drop acknowledged submission", applog.FieldClientID, entry.ClientID, applog.FieldError, rmErr)
		}
		return SubmitResult{Expense: saved, Created: created}, nil
	case IsPermanent(err):
		if rmErr := q.remove(ctx, entry.ClientID); rmErr != nil {
			q.logger.WarnContext(ctx, "Failed to drop rejected submission", applog.FieldClientID, entry.ClientID, applog.FieldError, rmErr)
		}
		return SubmitResult{}, err
	default:
		q.logger.InfoContext(ctx, "Submission kept for retry", applog.FieldClientID, entry.ClientID, applog.FieldError, err)
		if errors.Is(err, ErrTransient) {
			return SubmitResult{}, err
		}
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrTransient, err)
	}
}

// Flush replays every pending entry in insertion order. Each entry is sent
// independently; successes and permanent rejections are removed, everything
// else stays for the next flush. A cancelled ctx stops the replay early.
func (q *Queue) Flush(ctx context.Context) (FlushReport, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	pending, err := q.load(ctx)
	if err != nil {
		return FlushReport{}, err
	}

	var report FlushReport
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			break
		}
		_, _, err := q.creator.Create(ctx, p.Body)
		switch {
		case err == nil:
			report.Sent = append(report.Sent, p.ClientID)
		case IsPermanent(err):
			report.Rejected = append(report.Rejected, Rejection{ClientID: p.ClientID, Reason: err.Error()})
			q.logger.WarnContext(ctx, "Pending submission rejected", applog.FieldClientID, p.ClientID, applog.FieldError, err)
		default:
			report.Failed++
			q.logger.WarnContext(ctx, "Pending send failed", applog.FieldClientID, p.ClientID, applog.FieldError, err)
			continue
		}
		if err := q.remove(ctx, p.ClientID); err != nil {
			return report, err
		}
	}

	remaining, err := q.load(ctx)
	if err != nil {
		return report, err
	}
	report.Remaining = len(remaining)
	q.logger.InfoContext(ctx, "Flushed pending submissions",
		applog.FieldOperation, applog.OpFlush,
		"sent", len(report.Sent),
		"rejected", len(report.Rejected),
		"failed", report.Failed,
		applog.FieldPending, report.Remaining)
	return report, ctx.Err()
}

// Pending returns the queued entries in insertion order.
func (q *Queue) Pending(ctx context.Context) ([]PendingSubmission, error) {
	return q.load(ctx)
}

func (q *Queue) load(ctx context.Context) ([]PendingSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.get(ctx)
}

// get reads the store. A corrupt store is treated as empty; the next write replaces it.
func (q *Queue) get(ctx context.Context) ([]PendingSubmission, error) {
	pending, err := q.store.Get(ctx)
	if errors.Is(err, ErrCorruptStore) {
		q.logger.WarnContext(ctx, "Discarding unreadable pending queue", applog.FieldError, err)
		return nil, nil
	}
	return pending, err
}

func (q *Queue) push(ctx context.Context, entry PendingSubmission) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending, err := q.get(ctx)
	if err != nil {
		return fmt.Errorf("load pending: %w", err)
	}
	if err := q.store.Set(ctx, append(pending, entry)); err != nil {
		return fmt.Errorf("save pending: %w", err)
	}
	return nil
}

func (q *Queue) remove(ctx context.Context, clientID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending, err := q.get(ctx)
	if err != nil {
		return fmt.Errorf("load pending: %w", err)
	}
	kept := pending[:0]
	for _, p := range pending {
		if p.ClientID != clientID {
			kept = append(kept, p)
		}
	}
	if err := q.store.Set(ctx, kept); err != nil {
		return fmt.Errorf("save pending: %w", err)
	}
	return nil
}
