// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// list query parameters, JSON bodies and form posts from the rendered pages.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pranit27-debug/Expense-Tracker/internal/api"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

const (
	maxBodyBytes   = 64 << 10
	msgInvalidBody = "Invalid JSON body"
)

var errInvalidBody = errors.New("invalid JSON body")

// ParseListQuery reads category, sort, page and per_page. Unknown sort keys
// fall back to the default; pagination applies only when per_page is given.
// Non-numeric page values are rejected.
func ParseListQuery(query url.Values) (core.ListQuery, error) {
	q := core.ListQuery{
		Category: query.Get("category"),
		Sort:     core.ParseSortKey(query.Get("sort")),
	}

	page, err := optionalInt(query, "page")
	if err != nil {
		return core.ListQuery{}, err
	}
	perPage, err := optionalInt(query, "per_page")
	if err != nil {
		return core.ListQuery{}, err
	}
	if query.Has("per_page") && strings.TrimSpace(query.Get("per_page")) != "" {
		q.Paginate = true
		q.Page = page
		q.PerPage = perPage
		if q.Page == 0 {
			q.Page = 1
		}
	}
	return q.Normalize(), nil
}

func optionalInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ValidationError{Field: key, Reason: fmt.Sprintf("Invalid %s", key)}
	}
	return n, nil
}

// DecodeExpenseRequest reads a JSON expense body. Text fields are sanitised.
func DecodeExpenseRequest(w http.ResponseWriter, r *http.Request) (api.ExpenseRequest, error) {
	var req api.ExpenseRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return api.ExpenseRequest{}, errInvalidBody
	}
	if _, err := dec.Token(); err != io.EOF {
		return api.ExpenseRequest{}, errInvalidBody
	}
	req.Category = sanitizeInput(req.Category)
	req.Description = sanitizeInput(req.Description)
	req.Date = sanitizeInput(req.Date)
	req.ClientID = sanitizeInput(req.ClientID)
	return req, nil
}

// ParseExpenseForm reads an expense from a form post of the rendered pages.
// Typed amounts may use a comma decimal separator.
func ParseExpenseForm(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return core.ExpenseInput{}, err
	}
	return core.ExpenseInput{
		Amount:      core.NormalizeAmount(sanitizeInput(r.PostForm.Get("amount"))),
		Category:    sanitizeInput(r.PostForm.Get("category")),
		Description: sanitizeInput(r.PostForm.Get("description")),
		Date:        sanitizeInput(r.PostForm.Get("date")),
		ClientID:    sanitizeInput(r.PostForm.Get("client_id")),
	}, nil
}
