package core

import (
	"sort"
)

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Amount   Money
}

// Summary is the per-category breakdown of a set of expenses.
// Categories are ordered by name; Total is the sum over all of them.
type Summary struct {
	Categories []CategoryTotal
	Total      Money
}

// NewSummary orders totals by category and computes the grand total.
func NewSummary(totals []CategoryTotal) Summary {
	out := make([]CategoryTotal, len(totals))
	copy(out, totals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })

	var total Money
	for _, ct := range out {
		total = total.Add(ct.Amount)
	}
	return Summary{Categories: out, Total: total}
}

// Summarize groups expenses by category.
func Summarize(items []Expense) Summary {
	idx := make(map[string]int)
	var totals []CategoryTotal
	for _, e := range items {
		i, ok := idx[e.Category]
		if !ok {
			i = len(totals)
			idx[e.Category] = i
			totals = append(totals, CategoryTotal{Category: e.Category})
		}
		totals[i].Amount = totals[i].Amount.Add(e.Amount)
	}
	return NewSummary(totals)
}

// RunningTotal sums the amounts of items in minor units.
func RunningTotal(items []Expense) Money {
	var total Money
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total
}

// CategoryNames returns the category names in summary order.
func (s Summary) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for _, ct := range s.Categories {
		names = append(names, ct.Category)
	}
	return names
}

// Top splits the breakdown into the n largest categories and the rest.
// Both halves are ordered by amount descending, then by name.
// n <= 0 puts everything in top.
func (s Summary) Top(n int) (top, overflow []CategoryTotal) {
	ranked := make([]CategoryTotal, len(s.Categories))
	copy(ranked, s.Categories)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Amount.Minor != ranked[j].Amount.Minor {
			return ranked[i].Amount.Minor > ranked[j].Amount.Minor
		}
		return ranked[i].Category < ranked[j].Category
	})
	if n <= 0 || n >= len(ranked) {
		return ranked, nil
	}
	return ranked[:n], ranked[n:]
}
