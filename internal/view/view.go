// Package view holds the state behind the expense list screen: filter, sort
// and page selection, and the model rendered from the last committed load.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

// DefaultTopN is how many categories the summary shows before folding the rest.
const DefaultTopN = 5

// ErrStale is returned by Load when a newer load was issued before it completed.
var ErrStale = errors.New("stale load discarded")

// Loader is the data source behind a ListView. Both the HTTP client and the
// expense service implement it.
type Loader interface {
	List(ctx context.Context, q core.ListQuery) (core.ListResult, error)
	Summary(ctx context.Context, category string) (core.Summary, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id string) error
}

// Row is one rendered expense.
type Row struct {
	ID          string
	Date        string
	Category    string
	Description string
	Amount      string
	AmountPaise int64
}

// Pagination describes the current page.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Model is everything the list screen renders.
type Model struct {
	Category     string
	Sort         core.SortKey
	Rows         []Row
	Categories   []string
	RunningTotal string
	Top          []core.CategoryTotal
	Overflow     []core.CategoryTotal
	SummaryTotal string
	Pagination   Pagination
}

// Empty reports whether the current page has no rows.
func (m Model) Empty() bool { return len(m.Rows) == 0 }

// State is the user's current selection.
type State struct {
	Category string
	Sort     core.SortKey
	Page     int
	PerPage  int
}

// ListView coordinates loads for one screen. Safe for concurrent use.
type ListView struct {
	loader Loader
	topN   int

	mu     sync.Mutex
	state  State
	issued uint64
	model  Model
}

// Option configures a ListView.
type Option func(*ListView)

// WithTopN sets how many summary categories are shown before the overflow.
func WithTopN(n int) Option {
	return func(v *ListView) {
		if n > 0 {
			v.topN = n
		}
	}
}

// WithPerPage sets the page size.
func WithPerPage(n int) Option {
	return func(v *ListView) { v.state.PerPage = n }
}

// WithState starts the view from an existing selection, e.g. one decoded from a URL.
func WithState(s State) Option {
	return func(v *ListView) { v.state = s }
}

func NewListView(loader Loader, opts ...Option) *ListView {
	v := &ListView{
		loader: loader,
		topN:   DefaultTopN,
		state:  State{Sort: core.DefaultSort, Page: 1, PerPage: core.DefaultPerPage},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.state = v.state.normalize()
	return v
}

func (s State) normalize() State {
	if s.PerPage <= 0 {
		s.PerPage = core.DefaultPerPage
	}
	q := core.ListQuery{Category: s.Category, Sort: s.Sort, Paginate: true, Page: s.Page, PerPage: s.PerPage}.Normalize()
	return State{Category: q.Category, Sort: q.Sort, Page: q.Page, PerPage: q.PerPage}
}

// State returns the current selection.
func (v *ListView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SetCategory changes the filter and goes back to the first page.
func (v *ListView) SetCategory(category string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Category = category
	v.state.Page = 1
}

// SetSort changes the ordering and goes back to the first page.
func (v *ListView) SetSort(key core.SortKey) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Sort = core.ParseSortKey(string(key))
	v.state.Page = 1
}

// SetPage selects a page; values below 1 select the first.
func (v *ListView) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if page < 1 {
		page = 1
	}
	v.state.Page = page
}

// NextPage and PrevPage move relative to the last committed model.
func (v *ListView) NextPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.model.Pagination.HasNext {
		v.state.Page = v.model.Pagination.Page + 1
	}
}

func (v *ListView) PrevPage() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.model.Pagination.HasPrev {
		v.state.Page = v.model.Pagination.Page - 1
	}
}

// Model returns the last committed model.
func (v *ListView) Model() Model {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.model
}

// Load fetches the page and summaries for the current selection. Each call
// takes a new token; its result is committed only if no later Load was
// issued meanwhile, otherwise ErrStale is returned.
func (v *ListView) Load(ctx context.Context) (Model, error) {
	v.mu.Lock()
	v.issued++
	token := v.issued
	state := v.state
	v.mu.Unlock()

	m, err := v.fetch(ctx, state)

	v.mu.Lock()
	defer v.mu.Unlock()
	if token != v.issued {
		return Model{}, ErrStale
	}
	if err != nil {
		return Model{}, err
	}
	v.model = m
	return m, nil
}

func (v *ListView) fetch(ctx context.Context, s State) (Model, error) {
	res, err := v.loader.List(ctx, core.ListQuery{
		Category: s.Category,
		Sort:     s.Sort,
		Paginate: true,
		Page:     s.Page,
		PerPage:  s.PerPage,
	})
	if err != nil {
		return Model{}, err
	}

	// Filter options come from every category, not just the filtered ones.
	all, err := v.loader.Summary(ctx, "")
	if err != nil {
		return Model{}, err
	}
	filtered := all
	if s.Category != "" {
		if filtered, err = v.loader.Summary(ctx, s.Category); err != nil {
			return Model{}, err
		}
	}

	m := Model{
		Category:     s.Category,
		Sort:         s.Sort,
		Rows:         make([]Row, 0, len(res.Items)),
		Categories:   all.CategoryNames(),
		RunningTotal: core.RunningTotal(res.Items).String(),
		SummaryTotal: filtered.Total.String(),
		Pagination: Pagination{
			Page:       res.Page,
			PerPage:    res.PerPage,
			Total:      res.Total,
			TotalPages: res.TotalPages,
			HasPrev:    res.HasPrev(),
			HasNext:    res.HasNext(),
		},
	}
	for _, e := range res.Items {
		m.Rows = append(m.Rows, Row{
			ID:          e.ID,
			Date:        e.Date.String(),
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount.String(),
			AmountPaise: e.Amount.Minor,
		})
	}
	m.Top, m.Overflow = filtered.Top(v.topN)
	return m, nil
}
