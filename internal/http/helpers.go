package http

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	"github.com/pranit27-debug/Expense-Tracker/internal/view"
)

// sanitizeInput removes control characters except tab, newline and carriage return, and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// indexURL renders a link to the list page for the given selection.
func indexURL(s view.State) string {
	q := url.Values{}
	if s.Category != "" {
		q.Set("category", s.Category)
	}
	if s.Sort != "" && s.Sort != core.DefaultSort {
		q.Set("sort", string(s.Sort))
	}
	if s.Page > 1 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	if s.PerPage > 0 && s.PerPage != core.DefaultPerPage {
		q.Set("per_page", strconv.Itoa(s.PerPage))
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// stateFromQuery decodes the list page selection. Bad numbers fall back to defaults.
func stateFromQuery(query url.Values) view.State {
	s := view.State{
		Category: query.Get("category"),
		Sort:     core.ParseSortKey(query.Get("sort")),
		Page:     1,
		PerPage:  core.DefaultPerPage,
	}
	if n, err := strconv.Atoi(query.Get("page")); err == nil {
		s.Page = n
	}
	if n, err := strconv.Atoi(query.Get("per_page")); err == nil {
		s.PerPage = n
	}
	return s
}
