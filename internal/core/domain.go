package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format accepted and returned for expenses.
	DateLayout = "2006-01-02"
	// TimestampLayout is fixed width so that stored creation timestamps sort lexicographically.
	TimestampLayout = "2006-01-02T15:04:05.000000000Z"
)

type (
	Date struct {
		time.Time
	}

	// Money is an amount in minor currency units (paise).
	Money struct {
		Minor int64
	}

	Expense struct {
		ID          string
		Amount      Money
		Category    string
		Description string
		Date        Date
		CreatedAt   time.Time
		ClientID    string // idempotency key, empty when absent
	}

	// ExpenseInput is a create or update request as received from a client.
	// Amount holds the major-unit amount in its textual form.
	ExpenseInput struct {
		Amount      string
		Category    string
		Description string
		Date        string
		ClientID    string
	}
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("expense not found")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// ValidationError reports the first field of an input that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// FormatTimestamp renders a creation instant in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp. RFC 3339 values are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func (m Money) Validate() error {
	if m.Minor <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the input in a fixed order and returns an Expense carrying
// the normalized amount, category, description and date. The order is
// amount, amount sign, category, date presence, date format.
func (in ExpenseInput) Validate() (Expense, error) {
	major, err := ParseMajorAmount(in.Amount)
	if err != nil {
		return Expense{}, invalid("amount", "Invalid amount")
	}
	if !major.IsPositive() {
		return Expense{}, invalid("amount", "Amount must be greater than 0")
	}
	minor, err := ToMinorUnits(major)
	if err != nil {
		return Expense{}, invalid("amount", "Amount must be greater than 0")
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return Expense{}, invalid("category", "Missing category")
	}

	if strings.TrimSpace(in.Date) == "" {
		return Expense{}, invalid("date", "Missing date")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Expense{}, invalid("date", "Invalid date")
	}

	return Expense{
		Amount:      Money{Minor: minor},
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		Date:        date,
		ClientID:    strings.TrimSpace(in.ClientID),
	}, nil
}
