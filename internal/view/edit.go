package view

import (
	"context"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
)

// EditForm is the editable copy of a record.
type EditForm struct {
	ID          string
	Amount      string
	Category    string
	Description string
	Date        string
}

// Input converts the form back to service input.
func (f EditForm) Input() core.ExpenseInput {
	return core.ExpenseInput{
		Amount:      f.Amount,
		Category:    f.Category,
		Description: f.Description,
		Date:        f.Date,
	}
}

// Confirmer approves destructive actions.
type Confirmer interface {
	Confirm(ctx context.Context, e core.Expense) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, e core.Expense) bool

func (f ConfirmFunc) Confirm(ctx context.Context, e core.Expense) bool { return f(ctx, e) }

// BeginEdit fetches the live record rather than trusting the rendered row,
// which may be out of date.
func (v *ListView) BeginEdit(ctx context.Context, id string) (EditForm, error) {
	e, err := v.loader.Get(ctx, id)
	if err != nil {
		return EditForm{}, err
	}
	return EditForm{
		ID:          e.ID,
		Amount:      core.ToMajorUnits(e.Amount.Minor).StringFixed(2),
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
	}, nil
}

// SaveEdit sends the edited form. The caller decides when to Load again.
func (v *ListView) SaveEdit(ctx context.Context, form EditForm) (core.Expense, error) {
	return v.loader.Update(ctx, form.ID, form.Input())
}

// Delete removes id after c approves. It reports whether a delete was issued.
// The live record is fetched first so the confirmer sees current values.
func (v *ListView) Delete(ctx context.Context, id string, c Confirmer) (bool, error) {
	e, err := v.loader.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if c == nil || !c.Confirm(ctx, e) {
		return false, nil
	}
	if err := v.loader.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
