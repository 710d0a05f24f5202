package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/client"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	apphttp "github.com/pranit27-debug/Expense-Tracker/internal/http"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	"github.com/pranit27-debug/Expense-Tracker/internal/services"
	"github.com/pranit27-debug/Expense-Tracker/internal/storage/memory"
)

type harness struct {
	app     *app
	svc     *services.ExpenseService
	store   *client.MemoryStore
	out     *bytes.Buffer
	offline atomic.Bool
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	svc := services.NewExpenseService(memory.New())
	server, err := apphttp.NewServer(apphttp.Config{RateLimitPerMinute: 1000}, svc, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	h := &harness{svc: svc}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.offline.Load() {
			http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		server.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		ts.Close()
		server.Shutdown(context.Background())
	})

	apiClient, err := client.New(ts.URL, client.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	store := client.NewMemoryStore()
	out := &bytes.Buffer{}
	h.store = store
	h.out = out
	h.app = &app{
		api:    apiClient,
		queue:  client.NewQueue(store, apiClient),
		in:     bufio.NewReader(strings.NewReader(stdin)),
		out:    out,
		errOut: &bytes.Buffer{},
		topN:   5,
		logger: applog.Discard(),
		today:  func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) },
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) string {
	t.Helper()
	h.out.Reset()
	if err := h.app.run(context.Background(), args); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return h.out.String()
}

func (h *harness) only(t *testing.T) core.Expense {
	t.Helper()
	res, err := h.svc.List(context.Background(), core.ListQuery{Sort: core.DefaultSort})
	if err != nil || len(res.Items) != 1 {
		t.Fatalf("expected exactly one stored expense, got %d (%v)", len(res.Items), err)
	}
	return res.Items[0]
}

func TestAddListShow(t *testing.T) {
	h := newHarness(t, "")

	out := h.run(t, "add", "-amount", "150.50", "-category", "Food", "-description", "Lunch")
	if !strings.HasPrefix(out, "Saved ") {
		t.Fatalf("add output %q", out)
	}
	e := h.only(t)
	if e.Amount.Minor != 15050 || e.Date.String() != "2024-03-01" || e.ClientID == "" {
		t.Fatalf("stored %+v", e)
	}

	out = h.run(t, "list")
	for _, want := range []string{"Lunch", "₹150.50", "Page 1 of 1 (1 expenses)", "Food: ₹150.50", "Total: ₹150.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out = h.run(t, "show", e.ID)
	if !strings.Contains(out, e.ID) || !strings.Contains(out, "Food") {
		t.Errorf("show output %q", out)
	}
}

func TestAddValidation(t *testing.T) {
	h := newHarness(t, "")
	err := h.app.run(context.Background(), []string{"add", "-amount", "10"})
	var verr *core.ValidationError
	if !errors.As(err, &verr) || verr.Reason != "Missing category" {
		t.Fatalf("expected Missing category, got %v", err)
	}
	if pending, _ := h.store.Get(context.Background()); len(pending) != 0 {
		t.Fatalf("invalid input was queued: %+v", pending)
	}
}

func TestAddOfflineThenListFlushes(t *testing.T) {
	h := newHarness(t, "")
	h.offline.Store(true)

	out := h.run(t, "add", "-amount", "20", "-category", "Travel")
	if !strings.Contains(out, "saved locally") {
		t.Fatalf("offline add output %q", out)
	}
	if pending, _ := h.store.Get(context.Background()); len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	h.offline.Store(false)

	out = h.run(t, "list")
	if !strings.Contains(out, "Travel") {
		t.Fatalf("list after reconnect missing flushed expense:\n%s", out)
	}
	if pending, _ := h.store.Get(context.Background()); len(pending) != 0 {
		t.Fatalf("pending after flush = %d", len(pending))
	}
	h.only(t)
}

func TestEditKeepsUnsetFields(t *testing.T) {
	h := newHarness(t, "")
	h.run(t, "add", "-amount", "99", "-category", "Books", "-description", "Novel", "-date", "2024-02-10")
	id := h.only(t).ID

	out := h.run(t, "edit", id, "-amount", "120,25")
	if !strings.Contains(out, "Updated "+id) {
		t.Fatalf("edit output %q", out)
	}
	e := h.only(t)
	if e.Amount.Minor != 12025 || e.Description != "Novel" || e.Date.String() != "2024-02-10" || e.Category != "Books" {
		t.Fatalf("after edit %+v", e)
	}
}

func TestDeleteConfirmation(t *testing.T) {
	h := newHarness(t, "n\ny\n")
	h.run(t, "add", "-amount", "5", "-category", "Snacks")
	id := h.only(t).ID

	if out := h.run(t, "delete", id); !strings.Contains(out, "Cancelled") {
		t.Fatalf("declined delete output %q", out)
	}
	h.only(t)

	if out := h.run(t, "delete", id); !strings.Contains(out, "Deleted "+id) {
		t.Fatalf("confirmed delete output %q", out)
	}
	if err := h.app.run(context.Background(), []string{"delete", id, "-yes"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleting again: %v", err)
	}
}

func TestUsage(t *testing.T) {
	h := newHarness(t, "")
	for _, args := range [][]string{nil, {"bogus"}, {"show"}, {"edit"}, {"delete", "-yes"}} {
		if err := h.app.run(context.Background(), args); !errors.Is(err, errUsage) {
			t.Errorf("run %v = %v, want usage error", args, err)
		}
	}
	if out := h.run(t, "flush"); !strings.Contains(out, "Sent 0, rejected 0, still pending 0") {
		t.Errorf("empty flush output %q", out)
	}
}
