package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/client"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	"github.com/pranit27-debug/Expense-Tracker/internal/view"
)

const usage = `usage: expenses-cli <command> [flags]

commands:
  add     -amount 12.50 -category Food [-description text] [-date YYYY-MM-DD]
  list    [-category name] [-sort date_desc] [-page 1] [-per-page 10]
  show    <id>
  edit    <id> [-amount] [-category] [-description] [-date]
  delete  <id> [-yes]
  flush
`

var errUsage = errors.New("invalid usage")

type app struct {
	api    *client.Client
	queue  *client.Queue
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	topN   int
	logger *applog.Logger
	today  func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return a.add(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "show":
		return a.show(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.remove(ctx, rest)
	case "flush":
		return a.flush(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.errOut, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	in := core.ExpenseInput{}
	fs.StringVar(&in.Amount, "amount", "", "amount in rupees")
	fs.StringVar(&in.Category, "category", "", "category")
	fs.StringVar(&in.Description, "description", "", "description")
	fs.StringVar(&in.Date, "date", a.today().Format(core.DateLayout), "date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	in.Amount = core.NormalizeAmount(in.Amount)

	res, err := a.queue.Submit(ctx, in)
	switch {
	case errors.Is(err, client.ErrTransient):
		fmt.Fprintln(a.out, "Server unreachable; expense saved locally and will be sent on the next flush.")
		return nil
	case err != nil:
		return err
	}
	if res.Created {
		fmt.Fprintf(a.out, "Saved %s\n", res.Expense.ID)
	} else {
		fmt.Fprintf(a.out, "Already saved as %s\n", res.Expense.ID)
	}
	return nil
}

// list replays pending submissions first so the table includes them.
func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	category := fs.String("category", "", "only this category")
	sortKey := fs.String("sort", string(core.DefaultSort), "sort order: "+sortKeyList())
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", core.DefaultPerPage, "rows per page")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if _, err := a.flushQuietly(ctx); err != nil {
		return err
	}

	v := view.NewListView(a.api,
		view.WithTopN(a.topN),
		view.WithState(view.State{
			Category: *category,
			Sort:     core.ParseSortKey(*sortKey),
			Page:     *page,
			PerPage:  *perPage,
		}))
	m, err := v.Load(ctx)
	if err != nil {
		return err
	}
	a.printModel(m)
	return nil
}

func (a *app) printModel(m view.Model) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tDESCRIPTION\tAMOUNT")
	for _, r := range m.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.Category, r.Description, r.Amount)
	}
	if m.Empty() {
		fmt.Fprintln(tw, "\t\tNo expenses\t\t")
	}
	fmt.Fprintf(tw, "\t\t\tTotal on this page\t%s\n", m.RunningTotal)
	tw.Flush()

	p := m.Pagination
	fmt.Fprintf(a.out, "\nPage %d of %d (%d expenses)\n", p.Page, p.TotalPages, p.Total)

	fmt.Fprintln(a.out, "\nBy category:")
	for _, ct := range m.Top {
		fmt.Fprintf(a.out, "  %s: %s\n", ct.Category, ct.Amount)
	}
	if n := len(m.Overflow); n > 0 {
		fmt.Fprintf(a.out, "  %d more\n", n)
	}
	fmt.Fprintf(a.out, "Total: %s\n", m.SummaryTotal)
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	e, err := a.api.Get(ctx, args[0])
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", e.ID)
	fmt.Fprintf(tw, "Date\t%s\n", e.Date)
	fmt.Fprintf(tw, "Category\t%s\n", e.Category)
	fmt.Fprintf(tw, "Description\t%s\n", e.Description)
	fmt.Fprintf(tw, "Amount\t%s\n", e.Amount)
	fmt.Fprintf(tw, "Created\t%s\n", core.FormatTimestamp(e.CreatedAt))
	return tw.Flush()
}

// edit starts from the stored record and applies only the flags given.
func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return errUsage
	}
	id := args[0]

	v := view.NewListView(a.api)
	form, err := v.BeginEdit(ctx, id)
	if err != nil {
		return err
	}

	fs := a.flags("edit")
	fs.StringVar(&form.Amount, "amount", form.Amount, "amount in rupees")
	fs.StringVar(&form.Category, "category", form.Category, "category")
	fs.StringVar(&form.Description, "description", form.Description, "description")
	fs.StringVar(&form.Date, "date", form.Date, "date (YYYY-MM-DD)")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	form.Amount = core.NormalizeAmount(form.Amount)

	e, err := v.SaveEdit(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s: %s %s %s\n", e.ID, e.Date, e.Category, e.Amount)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return errUsage
	}
	id := args[0]
	fs := a.flags("delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}

	confirm := view.ConfirmFunc(func(_ context.Context, e core.Expense) bool {
		if *yes {
			return true
		}
		fmt.Fprintf(a.out, "Delete %s %s %s (%s)? [y/N] ", e.Date, e.Category, e.Amount, e.Description)
		line, _ := a.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})

	deleted, err := view.NewListView(a.api).Delete(ctx, id, confirm)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Fprintf(a.out, "Deleted %s\n", id)
	} else {
		fmt.Fprintln(a.out, "Cancelled")
	}
	return nil
}

func (a *app) flush(ctx context.Context) error {
	report, err := a.flushQuietly(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sent %d, rejected %d, still pending %d\n", len(report.Sent), len(report.Rejected), report.Remaining)
	for _, r := range report.Rejected {
		fmt.Fprintf(a.out, "  rejected %s: %s\n", r.ClientID, r.Reason)
	}
	return nil
}

func (a *app) flushQuietly(ctx context.Context) (client.FlushReport, error) {
	report, err := a.queue.Flush(ctx)
	if err != nil {
		return report, err
	}
	if report.Remaining > 0 {
		a.logger.WarnContext(ctx, "Some submissions are still pending",
			applog.FieldPending, report.Remaining,
			applog.FieldOperation, applog.OpFlush)
	}
	for _, r := range report.Rejected {
		fmt.Fprintf(a.errOut, "Server rejected queued expense %s: %s\n", r.ClientID, r.Reason)
	}
	return report, nil
}

func sortKeyList() string {
	keys := make([]string, len(core.SortKeys))
	for i, k := range core.SortKeys {
		keys[i] = string(k)
	}
	return strings.Join(keys, ", ")
}
