package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/amqp"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
)

// AuditHeader names the columns of an audit row.
var AuditHeader = []string{"timestamp", "event", "id", "date", "category", "description", "amount"}

// RowWriter appends one row to the audit sheet.
type RowWriter interface {
	AppendRow(ctx context.Context, row []any) (string, error)
}

// SyncWorker mirrors expense events into a spreadsheet, one row per event.
type SyncWorker struct {
	sheet  RowWriter
	logger *applog.Logger

	processed int64
	failed    int64
}

// Stats are the worker counters since start.
type Stats struct {
	Processed int64
	Failed    int64
}

func NewSyncWorker(sheet RowWriter, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{sheet: sheet, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleEvent appends the audit row for ev. It satisfies amqp.Handler, so an
// error makes the broker redeliver the event.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	ref, err := w.sheet.AppendRow(ctx, AuditRow(ev))
	if err != nil {
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("append audit row for %s %s: %w", ev.Type, ev.ID, err)
	}
	atomic.AddInt64(&w.processed, 1)

	w.logger.InfoContext(ctx, "Mirrored expense event",
		applog.FieldEventType, ev.Type,
		applog.FieldExpenseID, ev.ID,
		"sheets_ref", ref)
	return nil
}

func (w *SyncWorker) Stats() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&w.processed),
		Failed:    atomic.LoadInt64(&w.failed),
	}
}

// AuditRow renders ev in AuditHeader order. A delete event without a
// snapshot leaves the record columns empty.
func AuditRow(ev *amqp.ExpenseEvent) []any {
	row := []any{ev.Timestamp.UTC().Format(time.RFC3339), string(ev.Type), ev.ID, "", "", "", ""}
	if s := ev.Expense; s != nil {
		row[3] = s.Date
		row[4] = s.Category
		row[5] = s.Description
		row[6] = core.ToMajorUnits(s.AmountPaise).StringFixed(2)
	}
	return row
}
