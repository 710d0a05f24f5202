// Package api holds the JSON shapes exchanged between the HTTP server and its clients.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

// Expense is the record representation returned by every endpoint.
type Expense struct {
	ID          string      `json:"id"`
	Amount      json.Number `json:"amount"`
	AmountPaise int64       `json:"amount_paise"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	CreatedAt   string      `json:"created_at"`
	ClientID    *string     `json:"client_id"`
}

// Page is the envelope returned when the list request asks for a page size.
type Page struct {
	Items      []Expense `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

// CategoryTotal is one summary line.
type CategoryTotal struct {
	Category    string      `json:"category"`
	Amount      json.Number `json:"amount"`
	AmountPaise int64       `json:"amount_paise"`
}

// Summary is the body of GET /expenses/summary.
type Summary struct {
	Total      json.Number     `json:"total"`
	TotalPaise int64           `json:"total_paise"`
	Categories []CategoryTotal `json:"categories"`
}

// Error is the body of every non-2xx JSON response.
type Error struct {
	Error string `json:"error"`
}

// ExpenseRequest is the body of POST /expenses and PUT /expenses/{id}.
// Amount is kept raw so that both 12.5 and "12.5" are accepted.
type ExpenseRequest struct {
	Amount      json.RawMessage `json:"amount,omitempty"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	ClientID    string          `json:"client_id,omitempty"`
}

// MajorAmount renders minor units as a JSON number with two decimals.
func MajorAmount(m core.Money) json.Number {
	return json.Number(core.ToMajorUnits(m.Minor).StringFixed(2))
}

// FromExpense converts a domain record to its wire form.
func FromExpense(e core.Expense) Expense {
	out := Expense{
		ID:          e.ID,
		Amount:      MajorAmount(e.Amount),
		AmountPaise: e.Amount.Minor,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
		CreatedAt:   core.FormatTimestamp(e.CreatedAt),
	}
	if e.ClientID != "" {
		id := e.ClientID
		out.ClientID = &id
	}
	return out
}

// FromExpenses converts a slice, never returning nil so it encodes as [].
func FromExpenses(items []core.Expense) []Expense {
	out := make([]Expense, 0, len(items))
	for _, e := range items {
		out = append(out, FromExpense(e))
	}
	return out
}

// ToExpense converts a wire record back. amount_paise is authoritative.
func (e Expense) ToExpense() (core.Expense, error) {
	date, err := core.ParseDate(e.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("record %s: %w", e.ID, err)
	}
	created, err := core.ParseTimestamp(e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("record %s: created_at: %w", e.ID, err)
	}
	out := core.Expense{
		ID:          e.ID,
		Amount:      core.Money{Minor: e.AmountPaise},
		Category:    e.Category,
		Description: e.Description,
		Date:        date,
		CreatedAt:   created,
	}
	if e.ClientID != nil {
		out.ClientID = *e.ClientID
	}
	return out, nil
}

// ToExpenses converts a slice of wire records.
func ToExpenses(items []Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(items))
	for _, it := range items {
		e, err := it.ToExpense()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FromListResult builds the paginated envelope.
func FromListResult(r core.ListResult) Page {
	return Page{
		Items:      FromExpenses(r.Items),
		Total:      r.Total,
		Page:       r.Page,
		PerPage:    r.PerPage,
		TotalPages: r.TotalPages,
	}
}

// ToListResult converts an envelope back to the domain result.
func (p Page) ToListResult() (core.ListResult, error) {
	items, err := ToExpenses(p.Items)
	if err != nil {
		return core.ListResult{}, err
	}
	return core.ListResult{
		Items:      items,
		Paginated:  true,
		Total:      p.Total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages,
	}, nil
}

// FromSummary converts a domain summary.
func FromSummary(s core.Summary) Summary {
	out := Summary{
		Total:      MajorAmount(s.Total),
		TotalPaise: s.Total.Minor,
		Categories: make([]CategoryTotal, 0, len(s.Categories)),
	}
	for _, c := range s.Categories {
		out.Categories = append(out.Categories, CategoryTotal{
			Category:    c.Category,
			Amount:      MajorAmount(c.Amount),
			AmountPaise: c.Amount.Minor,
		})
	}
	return out
}

// ToSummary converts a wire summary back to the domain type.
func (s Summary) ToSummary() core.Summary {
	totals := make([]core.CategoryTotal, 0, len(s.Categories))
	for _, c := range s.Categories {
		totals = append(totals, core.CategoryTotal{Category: c.Category, Amount: core.Money{Minor: c.AmountPaise}})
	}
	return core.NewSummary(totals)
}

// Input converts the request into service input. A JSON string amount is
// unquoted, a number is taken literally, anything else is passed through and
// fails amount parsing.
func (r ExpenseRequest) Input() core.ExpenseInput {
	return core.ExpenseInput{
		Amount:      rawAmount(r.Amount),
		Category:    r.Category,
		Description: r.Description,
		Date:        r.Date,
		ClientID:    r.ClientID,
	}
}

func rawAmount(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// NewExpenseRequest builds a request body from validated input. Amounts are
// sent as numbers with two decimals.
func NewExpenseRequest(e core.Expense) ExpenseRequest {
	return ExpenseRequest{
		Amount:      json.RawMessage(MajorAmount(e.Amount)),
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
		ClientID:    e.ClientID,
	}
}
