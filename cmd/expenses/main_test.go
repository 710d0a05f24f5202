package main

import (
	"context"
	"net"
	"testing"
	"time"

	apphttp "github.com/pranit27-debug/Expense-Tracker/internal/http"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	"github.com/pranit27-debug/Expense-Tracker/internal/services"
	"github.com/pranit27-debug/Expense-Tracker/internal/storage/memory"
)

func newServer(t *testing.T, addr string) *apphttp.Server {
	t.Helper()
	srv, err := apphttp.NewServer(apphttp.Config{Addr: addr}, services.NewExpenseService(memory.New()), nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestServeReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv := newServer(t, ln.Addr().String())
	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), applog.Discard(), srv, time.Second) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("serve on a busy port returned nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the listener failed")
	}
}

func TestServeStopsCleanlyOnCancel(t *testing.T) {
	srv := newServer(t, "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, applog.Discard(), srv, time.Second) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve after cancel = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
