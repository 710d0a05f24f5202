package core

import (
	"sort"
	"testing"
	"time"
)

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"":              SortDateDesc,
		"date_asc":      SortDateAsc,
		"amount_desc":   SortAmountDesc,
		"category_desc": SortCategoryDesc,
		"price":         SortDateDesc,
	}
	for in, want := range cases {
		if got := ParseSortKey(in); got != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Paginate: true, Page: 0, PerPage: 500}.Normalize()
	if q.Page != 1 || q.PerPage != MaxPerPage || q.Sort != DefaultSort {
		t.Fatalf("unexpected normalized query %+v", q)
	}
	q = ListQuery{Paginate: true, Page: 3, PerPage: 0}.Normalize()
	if q.PerPage != 1 || q.Offset() != 2 {
		t.Fatalf("unexpected normalized query %+v offset=%d", q, q.Offset())
	}
	q = ListQuery{Page: 4, PerPage: 10}.Normalize()
	if q.Offset() != 0 || q.Page != 0 {
		t.Fatalf("unpaginated query should ignore page, got %+v", q)
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{100, 1, 100},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.perPage); got != tc.want {
			t.Fatalf("TotalPages(%d,%d) = %d, want %d", tc.total, tc.perPage, got, tc.want)
		}
	}
}

func TestCompareAmountDescTieBreak(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []Expense{
		{ID: "a", Amount: Money{Minor: 500}, CreatedAt: base},
		{ID: "b", Amount: Money{Minor: 900}, CreatedAt: base.Add(time.Second)},
		{ID: "c", Amount: Money{Minor: 500}, CreatedAt: base.Add(2 * time.Second)},
		{ID: "d", Amount: Money{Minor: 500}, CreatedAt: base.Add(time.Second)},
	}
	sort.Slice(items, func(i, j int) bool { return Compare(SortAmountDesc, items[i], items[j]) < 0 })
	got := ""
	for _, e := range items {
		got += e.ID
	}
	if got != "bcda" {
		t.Fatalf("expected order bcda, got %s", got)
	}
}

func TestCompareCategoryIgnoresCase(t *testing.T) {
	a := Expense{ID: "1", Category: "apple"}
	b := Expense{ID: "2", Category: "Banana"}
	if Compare(SortCategoryAsc, a, b) >= 0 {
		t.Fatalf("apple should sort before Banana")
	}
	if Compare(SortCategoryDesc, a, b) <= 0 {
		t.Fatalf("Banana should sort before apple descending")
	}
}

func TestSummaryAndTop(t *testing.T) {
	items := []Expense{
		{Category: "Travel", Amount: Money{Minor: 300}},
		{Category: "Food", Amount: Money{Minor: 100}},
		{Category: "Food", Amount: Money{Minor: 250}},
		{Category: "Bills", Amount: Money{Minor: 50}},
	}
	s := Summarize(items)
	if s.Total.Minor != 700 {
		t.Fatalf("expected total 700, got %d", s.Total.Minor)
	}
	names := s.CategoryNames()
	if len(names) != 3 || names[0] != "Bills" || names[1] != "Food" || names[2] != "Travel" {
		t.Fatalf("unexpected category order %v", names)
	}
	if RunningTotal(items).Minor != 700 {
		t.Fatalf("running total mismatch")
	}

	top, rest := s.Top(2)
	if len(top) != 2 || top[0].Category != "Food" || top[1].Category != "Travel" {
		t.Fatalf("unexpected top %v", top)
	}
	if len(rest) != 1 || rest[0].Category != "Bills" {
		t.Fatalf("unexpected overflow %v", rest)
	}
	if top, rest = s.Top(0); len(top) != 3 || rest != nil {
		t.Fatalf("n<=0 should return everything in top")
	}
}
