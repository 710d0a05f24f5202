package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

func TestLRUEvictionAndTTL(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3) // evicts b, the least recently used
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}

	now = now.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("expected 2 expired entries, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUSetAtRejectsStaleGeneration(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	gen := c.Generation()
	c.Purge()
	if c.SetAt(gen, "k", "old") {
		t.Fatal("write from previous generation should be rejected")
	}
	if !c.SetAt(c.Generation(), "k", "new") {
		t.Fatal("write from current generation should succeed")
	}
	if v, _ := c.Get("k"); v != "new" {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestSummaryCacheCollapsesLoads(t *testing.T) {
	sc := NewSummaryCache(8, time.Minute)
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (core.Summary, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return core.Summary{Total: core.Money{Minor: 42}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := sc.Get(context.Background(), "Food", load)
			if err != nil || s.Total.Minor != 42 {
				t.Errorf("unexpected result %+v %v", s, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got < 1 || got > 5 {
		t.Fatalf("unexpected load count %d", got)
	}
	before := atomic.LoadInt32(&calls)
	if _, err := sc.Get(context.Background(), "Food", load); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != before {
		t.Fatal("cached summary should not reload")
	}

	sc.Invalidate()
	if sc.Size() != 0 {
		t.Fatal("invalidate should empty the cache")
	}
	if _, err := sc.Get(context.Background(), "Food", load); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != before+1 {
		t.Fatal("invalidate should force a reload")
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	idle := NewManager(nil)
	idle.Stop()
}
