package storage

import (
	"context"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

// Repository persists expense records.
//
// InsertOrGet is the only way records are created. When the expense carries a
// client id that is already stored, the existing record is returned with
// created == false and nothing is written.
type Repository interface {
	InsertOrGet(ctx context.Context, e core.Expense) (core.Expense, bool, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	GetByClientID(ctx context.Context, clientID string) (core.Expense, error)
	List(ctx context.Context, q core.ListQuery) ([]core.Expense, error)
	Count(ctx context.Context, category string) (int64, error)
	Update(ctx context.Context, e core.Expense) (core.Expense, error)
	Delete(ctx context.Context, id string) error
	SumByCategory(ctx context.Context, category string) ([]core.CategoryTotal, error)
	Ping(ctx context.Context) error
	Close() error
}
