package cache

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

// SummaryCache memoises per-category summaries. Concurrent misses for the
// same category share one load.
type SummaryCache struct {
	lru   *LRUCache[core.Summary]
	group singleflight.Group
}

func NewSummaryCache(maxSize int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{lru: NewLRUCache[core.Summary](maxSize, ttl)}
}

// Get returns the cached summary for category or loads it.
func (s *SummaryCache) Get(ctx context.Context, category string, load func(context.Context) (core.Summary, error)) (core.Summary, error) {
	key := "summary:" + category
	if v, ok := s.lru.Get(key); ok {
		return v, nil
	}

	// callers after a purge must not join a load from the previous generation
	gen := s.lru.Generation()
	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10)+":"+key, func() (any, error) {
		sum, err := load(ctx)
		if err != nil {
			return core.Summary{}, err
		}
		s.lru.SetAt(gen, key, sum)
		return sum, nil
	})
	if err != nil {
		return core.Summary{}, err
	}
	return v.(core.Summary), nil
}

// Invalidate drops every cached summary. Called after each mutation.
func (s *SummaryCache) Invalidate() {
	s.lru.Purge()
}

func (s *SummaryCache) CleanExpired() int { return s.lru.CleanExpired() }

func (s *SummaryCache) Size() int { return s.lru.Size() }
