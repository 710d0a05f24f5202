package view

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	"github.com/pranit27-debug/Expense-Tracker/internal/services"
	"github.com/pranit27-debug/Expense-Tracker/internal/storage/memory"
)

func seededService(t *testing.T, inputs ...core.ExpenseInput) *services.ExpenseService {
	t.Helper()
	svc := services.NewExpenseService(memory.New())
	for _, in := range inputs {
		if _, _, err := svc.Create(context.Background(), in); err != nil {
			t.Fatalf("seed %+v: %v", in, err)
		}
	}
	return svc
}

func expense(amount, category, date string) core.ExpenseInput {
	return core.ExpenseInput{Amount: amount, Category: category, Date: date}
}

func TestLoadBuildsModel(t *testing.T) {
	svc := seededService(t,
		expense("100", "Food", "2024-01-01"),
		expense("50.25", "Travel", "2024-01-02"),
		expense("20", "Food", "2024-01-03"),
	)
	v := NewListView(svc, WithPerPage(2))

	m, err := v.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Rows) != 2 || m.Rows[0].Date != "2024-01-03" || m.Rows[1].Amount != "₹50.25" {
		t.Fatalf("rows %+v", m.Rows)
	}
	if m.RunningTotal != "₹70.25" {
		t.Fatalf("running total %q", m.RunningTotal)
	}
	if m.SummaryTotal != "₹170.25" {
		t.Fatalf("summary total %q", m.SummaryTotal)
	}
	if fmt.Sprint(m.Categories) != "[Food Travel]" {
		t.Fatalf("categories %v", m.Categories)
	}
	p := m.Pagination
	if p.Page != 1 || p.TotalPages != 2 || p.Total != 3 || p.HasPrev || !p.HasNext {
		t.Fatalf("pagination %+v", p)
	}

	v.NextPage()
	m, _ = v.Load(context.Background())
	if len(m.Rows) != 1 || !m.Pagination.HasPrev || m.Pagination.HasNext {
		t.Fatalf("second page %+v", m.Pagination)
	}
}

func TestFilterAndSortResetPage(t *testing.T) {
	svc := seededService(t,
		expense("1", "Food", "2024-01-01"),
		expense("2", "Food", "2024-01-02"),
		expense("3", "Travel", "2024-01-03"),
	)
	v := NewListView(svc, WithPerPage(1))
	v.SetPage(3)
	v.SetCategory("Food")
	if v.State().Page != 1 {
		t.Fatalf("category change should reset page, got %d", v.State().Page)
	}

	m, err := v.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Pagination.Total != 2 || m.SummaryTotal != "₹3.00" {
		t.Fatalf("filtered model %+v", m)
	}
	if fmt.Sprint(m.Categories) != "[Food Travel]" {
		t.Fatalf("filter options should list every category, got %v", m.Categories)
	}

	v.SetPage(2)
	v.SetSort(core.SortAmountDesc)
	if s := v.State(); s.Page != 1 || s.Sort != core.SortAmountDesc {
		t.Fatalf("sort change state %+v", s)
	}
	v.SetSort("bogus")
	if v.State().Sort != core.DefaultSort {
		t.Fatalf("unknown sort should fall back, got %q", v.State().Sort)
	}
}

func TestTopNWithOverflow(t *testing.T) {
	var inputs []core.ExpenseInput
	for i, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		inputs = append(inputs, expense(fmt.Sprint(10*(i+1)), c, "2024-01-01"))
	}
	v := NewListView(seededService(t, inputs...))
	m, err := v.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Top) != DefaultTopN || m.Top[0].Category != "G" || len(m.Overflow) != 2 || m.Overflow[1].Category != "A" {
		t.Fatalf("top=%v overflow=%v", m.Top, m.Overflow)
	}

	v = NewListView(seededService(t, inputs...), WithTopN(10))
	m, _ = v.Load(context.Background())
	if len(m.Top) != 7 || m.Overflow != nil {
		t.Fatalf("top=%d overflow=%v", len(m.Top), m.Overflow)
	}
}

// gatedLoader blocks List calls until released, to interleave loads.
type gatedLoader struct {
	*services.ExpenseService
	gates map[string]chan struct{}
}

func (g gatedLoader) List(ctx context.Context, q core.ListQuery) (core.ListResult, error) {
	if ch, ok := g.gates[q.Category]; ok {
		<-ch
	}
	return g.ExpenseService.List(ctx, q)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	svc := seededService(t, expense("1", "Food", "2024-01-01"), expense("2", "Travel", "2024-01-02"))
	slow := make(chan struct{})
	v := NewListView(gatedLoader{ExpenseService: svc, gates: map[string]chan struct{}{"Food": slow}})

	v.SetCategory("Food")
	done := make(chan error, 1)
	go func() {
		_, err := v.Load(context.Background())
		done <- err
	}()

	// Wait until the first load has taken its token.
	for {
		v.mu.Lock()
		issued := v.issued
		v.mu.Unlock()
		if issued == 1 {
			break
		}
	}

	v.SetCategory("Travel")
	m, err := v.Load(context.Background())
	if err != nil || m.Category != "Travel" {
		t.Fatalf("second load %+v err=%v", m, err)
	}

	close(slow)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("first load should be stale, got %v", err)
	}
	if v.Model().Category != "Travel" {
		t.Fatalf("stale load overwrote model: %+v", v.Model())
	}
}

func TestBeginEditFetchesLiveRecord(t *testing.T) {
	svc := seededService(t)
	e, _, _ := svc.Create(context.Background(), expense("10", "Food", "2024-01-01"))
	v := NewListView(svc)
	if _, err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Changed behind the rendered model's back.
	if _, err := svc.Update(context.Background(), e.ID, expense("12.5", "Groceries", "2024-01-02")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	form, err := v.BeginEdit(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if form.Amount != "12.50" || form.Category != "Groceries" || form.Date != "2024-01-02" {
		t.Fatalf("form %+v", form)
	}

	form.Amount = "15"
	saved, err := v.SaveEdit(context.Background(), form)
	if err != nil || saved.Amount.Minor != 1500 {
		t.Fatalf("SaveEdit %+v err=%v", saved, err)
	}

	if _, err := v.BeginEdit(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	svc := seededService(t)
	e, _, _ := svc.Create(context.Background(), expense("10", "Food", "2024-01-01"))
	v := NewListView(svc)

	deleted, err := v.Delete(context.Background(), e.ID, ConfirmFunc(func(context.Context, core.Expense) bool { return false }))
	if err != nil || deleted {
		t.Fatalf("declined delete: deleted=%v err=%v", deleted, err)
	}
	if _, err := svc.Get(context.Background(), e.ID); err != nil {
		t.Fatalf("record should survive a declined delete: %v", err)
	}

	var seen core.Expense
	deleted, err = v.Delete(context.Background(), e.ID, ConfirmFunc(func(_ context.Context, x core.Expense) bool {
		seen = x
		return true
	}))
	if err != nil || !deleted || seen.ID != e.ID {
		t.Fatalf("confirmed delete: deleted=%v err=%v seen=%+v", deleted, err, seen)
	}
	if _, err := svc.Get(context.Background(), e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
}
