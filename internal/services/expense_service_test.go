package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/amqp"
	"github.com/pranit27-debug/Expense-Tracker/internal/cache"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	"github.com/pranit27-debug/Expense-Tracker/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newService(opts ...Option) (*ExpenseService, *memory.Store) {
	store := memory.New()
	return NewExpenseService(store, opts...), store
}

func input(amount, category, date string) core.ExpenseInput {
	return core.ExpenseInput{Amount: amount, Category: category, Date: date}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, store := newService()
	_, _, err := svc.Create(context.Background(), input("-5", "Food", "2024-01-01"))
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Reason != "Amount must be greater than 0" {
		t.Fatalf("expected amount validation error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("rejected input should not be stored")
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	in := input("150.50", "Food", "2024-03-01")
	in.ClientID = "abc"

	first, created, err := svc.Create(ctx, in)
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}
	if first.Amount.Minor != 15050 {
		t.Fatalf("expected 15050 paise, got %d", first.Amount.Minor)
	}

	in.Amount = "999"
	second, created, err := svc.Create(ctx, in)
	if err != nil || created {
		t.Fatalf("second create: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Amount.Minor != 15050 {
		t.Fatalf("expected the original record, got %+v", second)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one stored record, got %d", store.Len())
	}
}

func TestCreateConcurrentSameKey(t *testing.T) {
	svc, store := newService()
	var wg sync.WaitGroup
	ids := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := input("10", "Food", "2024-01-01")
			in.ClientID = "same"
			e, _, err := svc.Create(context.Background(), in)
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids <- e.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("concurrent creates returned different ids %s and %s", first, id)
		}
	}
	if store.Len() != 1 {
		t.Fatalf("expected one stored record, got %d", store.Len())
	}
}

func TestUpdateAndDeleteUnknownID(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	e, _, _ := svc.Create(ctx, input("10", "Food", "2024-01-01"))

	if _, err := svc.Update(ctx, "missing", input("20", "Food", "2024-01-01")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("table changed: %d rows", store.Len())
	}
	got, _ := svc.Get(ctx, e.ID)
	if got.Amount.Minor != 1000 {
		t.Fatalf("record changed: %+v", got)
	}
}

func TestUpdateValidatesAndKeepsIdentity(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	in := input("10", "Food", "2024-01-01")
	in.ClientID = "k"
	e, _, _ := svc.Create(ctx, in)

	if _, err := svc.Update(ctx, e.ID, input("10", "", "2024-01-01")); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	upd := input("200", "Travel", "2024-02-01")
	upd.ClientID = "other"
	got, err := svc.Update(ctx, e.ID, upd)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != e.ID || got.ClientID != "k" || !got.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("identity fields changed: %+v", got)
	}
	if got.Amount.Minor != 20000 || got.Category != "Travel" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestListPaginationCoversAllRecords(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	for i := 0; i < 13; i++ {
		if _, _, err := svc.Create(ctx, input(fmt.Sprint(i+1), "Food", "2024-01-01")); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.List(ctx, core.ListQuery{Paginate: true, Page: 1, PerPage: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 13 || res.TotalPages != 3 || !res.Paginated {
		t.Fatalf("unexpected envelope %+v", res)
	}

	seen := 0
	for p := 1; p <= res.TotalPages; p++ {
		page, _ := svc.List(ctx, core.ListQuery{Paginate: true, Page: p, PerPage: 5})
		seen += len(page.Items)
	}
	if seen != 13 {
		t.Fatalf("pages cover %d records, want 13", seen)
	}

	empty, _ := svc.List(ctx, core.ListQuery{Paginate: true, Page: 1, PerPage: 5, Category: "None"})
	if empty.TotalPages != 1 || len(empty.Items) != 0 {
		t.Fatalf("empty result should have one page, got %+v", empty)
	}

	bare, _ := svc.List(ctx, core.ListQuery{})
	if bare.Paginated || len(bare.Items) != 13 {
		t.Fatalf("unpaginated list should return everything, got %d", len(bare.Items))
	}
}

func TestAmountDescNewestCreatedFirst(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newService(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		e, _, err := svc.Create(ctx, input("50", "Food", "2024-01-01"))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
	}

	res, _ := svc.List(ctx, core.ListQuery{Sort: core.SortAmountDesc})
	for i, e := range res.Items {
		if want := ids[len(ids)-1-i]; e.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, e.ID)
		}
	}
}

func TestSummaryIsCachedAndInvalidated(t *testing.T) {
	svc, _ := newService(WithSummaryCache(cache.NewSummaryCache(8, time.Minute)))
	ctx := context.Background()
	_, _, _ = svc.Create(ctx, input("10", "Food", "2024-01-01"))
	_, _, _ = svc.Create(ctx, input("5.50", "Bills", "2024-01-02"))

	s, err := svc.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if s.Total.Minor != 1550 || len(s.Categories) != 2 || s.Categories[0].Category != "Bills" {
		t.Fatalf("unexpected summary %+v", s)
	}

	_, _, _ = svc.Create(ctx, input("1", "Food", "2024-01-03"))
	s, _ = svc.Summary(ctx, "")
	if s.Total.Minor != 1650 {
		t.Fatalf("summary not refreshed after create: %d", s.Total.Minor)
	}

	food, _ := svc.Summary(ctx, "Food")
	if food.Total.Minor != 1100 || len(food.Categories) != 1 {
		t.Fatalf("unexpected filtered summary %+v", food)
	}
}

func TestEventsPublishedAndFailuresTolerated(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newService(WithPublisher(pub))
	ctx := context.Background()

	e, _, err := svc.Create(ctx, input("10", "Food", "2024-01-01"))
	if err != nil {
		t.Fatalf("publish failure must not fail create: %v", err)
	}
	if _, err := svc.Update(ctx, e.ID, input("12", "Food", "2024-01-01")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	_ = svc.Delete(ctx, e.ID) // not found, no event

	got := pub.types()
	want := []amqp.EventType{amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if pub.events[2].Expense == nil || pub.events[2].Expense.AmountPaise != 1200 {
		t.Fatalf("delete event should carry the last snapshot: %+v", pub.events[2].Expense)
	}
}

func TestExpenseService_Close(t *testing.T) {
	service := &ExpenseService{}
	if err := service.Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}
