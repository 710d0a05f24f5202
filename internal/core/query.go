package core

import (
	"strings"
)

// SortKey selects the primary ordering of a listing.
type SortKey string

const (
	SortDateAsc      SortKey = "date_asc"
	SortDateDesc     SortKey = "date_desc"
	SortAmountAsc    SortKey = "amount_asc"
	SortAmountDesc   SortKey = "amount_desc"
	SortCategoryAsc  SortKey = "category_asc"
	SortCategoryDesc SortKey = "category_desc"

	DefaultSort = SortDateDesc
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// SortKeys lists every supported key in display order.
var SortKeys = []SortKey{
	SortDateDesc, SortDateAsc,
	SortAmountDesc, SortAmountAsc,
	SortCategoryAsc, SortCategoryDesc,
}

func (k SortKey) Valid() bool {
	for _, s := range SortKeys {
		if s == k {
			return true
		}
	}
	return false
}

// ParseSortKey maps unknown or empty keys to DefaultSort.
func ParseSortKey(s string) SortKey {
	k := SortKey(strings.TrimSpace(s))
	if !k.Valid() {
		return DefaultSort
	}
	return k
}

// ListQuery describes a filtered, ordered and optionally paginated listing.
// Category matches exactly; an empty category means no filter.
type ListQuery struct {
	Category string
	Sort     SortKey
	Paginate bool
	Page     int
	PerPage  int
}

// Normalize clamps pagination and resolves the sort key.
func (q ListQuery) Normalize() ListQuery {
	q.Sort = ParseSortKey(string(q.Sort))
	if !q.Paginate {
		q.Page, q.PerPage = 0, 0
		return q
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 1
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

// Offset is the number of rows skipped before the current page.
func (q ListQuery) Offset() int {
	if !q.Paginate || q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// ListResult is either a bare list or a page of a larger result.
type ListResult struct {
	Items      []Expense
	Paginated  bool
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// TotalPages returns max(1, ceil(total/perPage)).
func TotalPages(total int64, perPage int) int {
	if perPage < 1 || total <= 0 {
		return 1
	}
	n := int((total + int64(perPage) - 1) / int64(perPage))
	if n < 1 {
		return 1
	}
	return n
}

func (r ListResult) HasPrev() bool { return r.Paginated && r.Page > 1 }

func (r ListResult) HasNext() bool { return r.Paginated && r.Page < r.TotalPages }

// Compare orders a before b (negative), after b (positive) under key.
// Ties on the primary key fall back to newest created first, then id descending.
func Compare(key SortKey, a, b Expense) int {
	if c := comparePrimary(key, a, b); c != 0 {
		return c
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return -strings.Compare(a.ID, b.ID)
}

func comparePrimary(key SortKey, a, b Expense) int {
	switch key {
	case SortDateAsc:
		return strings.Compare(a.Date.String(), b.Date.String())
	case SortAmountAsc:
		return cmpInt64(a.Amount.Minor, b.Amount.Minor)
	case SortAmountDesc:
		return -cmpInt64(a.Amount.Minor, b.Amount.Minor)
	case SortCategoryAsc:
		return strings.Compare(foldASCII(a.Category), foldASCII(b.Category))
	case SortCategoryDesc:
		return -strings.Compare(foldASCII(a.Category), foldASCII(b.Category))
	default:
		return -strings.Compare(a.Date.String(), b.Date.String())
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// foldASCII lowercases ASCII letters only, matching SQLite's NOCASE collation.
func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
