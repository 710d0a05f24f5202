package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/amqp"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

type fakeWriter struct {
	rows [][]any
	err  error
}

func (f *fakeWriter) AppendRow(_ context.Context, row []any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, row)
	return "Audit!A2:G2", nil
}

func TestHandleEvent(t *testing.T) {
	e := core.Expense{
		ID:          "id-1",
		Amount:      core.Money{Minor: 15050},
		Category:    "Food",
		Description: "Lunch",
		Date:        core.NewDate(2024, 1, 15),
	}
	ev := amqp.NewExpenseEvent(amqp.EventCreated, e)
	ev.Timestamp = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	w := &fakeWriter{}
	sw := NewSyncWorker(w, nil)
	if err := sw.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	want := []any{"2024-01-15T10:00:00Z", "created", "id-1", "2024-01-15", "Food", "Lunch", "150.50"}
	if len(w.rows) != 1 || len(w.rows[0]) != len(want) {
		t.Fatalf("rows = %v", w.rows)
	}
	for i := range want {
		if w.rows[0][i] != want[i] {
			t.Errorf("column %s = %v, want %v", AuditHeader[i], w.rows[0][i], want[i])
		}
	}
	if s := sw.Stats(); s.Processed != 1 || s.Failed != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestHandleEventWriterFailure(t *testing.T) {
	sw := NewSyncWorker(&fakeWriter{err: errors.New("quota exceeded")}, nil)
	ev := &amqp.ExpenseEvent{Type: amqp.EventDeleted, ID: "id-2", Timestamp: time.Now()}

	if err := sw.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("expected error so the event is redelivered")
	}
	if s := sw.Stats(); s.Failed != 1 || s.Processed != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestAuditRowWithoutSnapshot(t *testing.T) {
	row := AuditRow(&amqp.ExpenseEvent{Type: amqp.EventDeleted, ID: "gone", Timestamp: time.Unix(0, 0)})
	if row[1] != "deleted" || row[2] != "gone" {
		t.Fatalf("row = %v", row)
	}
	for i := 3; i < len(row); i++ {
		if row[i] != "" {
			t.Errorf("column %s = %v, want empty", AuditHeader[i], row[i])
		}
	}
}
