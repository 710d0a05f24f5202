// Package memory is an in-process expense store with the same semantics as
// the SQLite repository. It backs DATA_BACKEND=memory and the tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

type Store struct {
	mu       sync.RWMutex
	byID     map[string]core.Expense
	byClient map[string]string // client id -> expense id
}

func New() *Store {
	return &Store{
		byID:     make(map[string]core.Expense),
		byClient: make(map[string]string),
	}
}

func (s *Store) InsertOrGet(_ context.Context, e core.Expense) (core.Expense, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ClientID != "" {
		if id, ok := s.byClient[e.ClientID]; ok {
			return s.byID[id], false, nil
		}
		s.byClient[e.ClientID] = e.ID
	}
	s.byID[e.ID] = e
	return e, true, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) GetByClientID(_ context.Context, clientID string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byClient[clientID]
	if !ok || clientID == "" {
		return core.Expense{}, core.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Store) List(_ context.Context, q core.ListQuery) ([]core.Expense, error) {
	q = q.Normalize()
	items := s.filtered(q.Category)
	sort.Slice(items, func(i, j int) bool { return core.Compare(q.Sort, items[i], items[j]) < 0 })

	if !q.Paginate {
		return items, nil
	}
	start := q.Offset()
	if start >= len(items) {
		return []core.Expense{}, nil
	}
	end := start + q.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (s *Store) Count(_ context.Context, category string) (int64, error) {
	return int64(len(s.filtered(category))), nil
}

func (s *Store) Update(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[e.ID]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	cur.Amount = e.Amount
	cur.Category = e.Category
	cur.Description = e.Description
	cur.Date = e.Date
	s.byID[e.ID] = cur
	return cur, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.byID, id)
	if e.ClientID != "" {
		delete(s.byClient, e.ClientID)
	}
	return nil
}

func (s *Store) SumByCategory(_ context.Context, category string) ([]core.CategoryTotal, error) {
	return core.Summarize(s.filtered(category)).Categories, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) filtered(category string) []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0, len(s.byID))
	for _, e := range s.byID {
		if category == "" || e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
