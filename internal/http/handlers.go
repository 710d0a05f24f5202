package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	"github.com/pranit27-debug/Expense-Tracker/internal/view"
)

var notices = map[string]string{
	"created":   "Expense saved.",
	"duplicate": "This expense was already saved.",
	"updated":   "Expense updated.",
	"deleted":   "Expense deleted.",
}

type sortOption struct {
	Key      core.SortKey
	Label    string
	Selected bool
}

var sortLabels = map[core.SortKey]string{
	core.SortDateDesc:     "Newest first",
	core.SortDateAsc:      "Oldest first",
	core.SortAmountDesc:   "Amount: high to low",
	core.SortAmountAsc:    "Amount: low to high",
	core.SortCategoryAsc:  "Category: A to Z",
	core.SortCategoryDesc: "Category: Z to A",
}

// expenseForm is the create form state; ClientID makes resubmission idempotent.
type expenseForm struct {
	Amount      string
	Category    string
	Description string
	Date        string
	ClientID    string
}

func newExpenseForm() expenseForm {
	return expenseForm{
		Date:     time.Now().Format(core.DateLayout),
		ClientID: uuid.NewString(),
	}
}

type indexPage struct {
	Model   view.Model
	State   view.State
	Sorts   []sortOption
	Form    expenseForm
	Notice  string
	Error   string
	PrevURL string
	NextURL string
}

type editPage struct {
	Form  view.EditForm
	Error string
}

type deletePage struct {
	Expense view.Row
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the store is reachable
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.svc.Ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		NewJSONResponse().Status(http.StatusServiceUnavailable).Body(map[string]string{
			"status": "not_ready",
			"store":  err.Error(),
		}).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready", "store": "ok"}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	var b strings.Builder
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Requests answered with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_ms", "gauge", "Average response time in milliseconds",
		fmt.Sprintf("%.3f", float64(traceMetrics.AverageResponseTime.Microseconds())/1000))
	metric("expenses_created_total", "counter", "Expenses created", atomic.LoadInt64(&s.metrics.created))
	metric("expenses_replayed_total", "counter", "Creates answered with an existing record", atomic.LoadInt64(&s.metrics.replayed))
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", limitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.metrics.startedAt).Seconds()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{Form: newExpenseForm(), Notice: notices[r.URL.Query().Get("notice")]}
	s.renderIndex(w, r, http.StatusOK, stateFromQuery(r.URL.Query()), page)
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, state view.State, page indexPage) {
	v := view.NewListView(s.svc, view.WithState(state), view.WithTopN(s.topN))
	m, err := v.Load(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Failed to load list view", err, applog.OpRender)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	page.Model = m
	page.State = v.State()
	for _, k := range core.SortKeys {
		page.Sorts = append(page.Sorts, sortOption{Key: k, Label: sortLabels[k], Selected: k == page.State.Sort})
	}
	if m.Pagination.HasPrev {
		prev := page.State
		prev.Page = m.Pagination.Page - 1
		page.PrevURL = indexURL(prev)
	}
	if m.Pagination.HasNext {
		next := page.State
		next.Page = m.Pagination.Page + 1
		page.NextURL = indexURL(next)
	}
	s.render(w, r, status, "index.html", page)
}

// handleFormCreate creates from the page form and redirects back to the list.
// On a validation error the form is shown again with the same client_id.
func (s *Server) handleFormCreate(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseForm(w, r)
	if err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if in.ClientID == "" {
		in.ClientID = uuid.NewString()
	}

	_, created, err := s.svc.Create(r.Context(), in)
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		page := indexPage{Error: verr.Reason, Form: expenseForm(in)}
		s.renderIndex(w, r, http.StatusBadRequest, view.State{}, page)
		return
	case err != nil:
		applog.FromContext(r.Context()).LogError(r.Context(), "Form create failed", err, applog.OpCreate)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	s.recordCreate(created)

	notice := "created"
	if !created {
		notice = "duplicate"
	}
	http.Redirect(w, r, "/?notice="+notice, http.StatusSeeOther)
}

// handleEditPage renders the edit form from a fresh read of the record.
func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	form, err := view.NewListView(s.svc).BeginEdit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.pageError(w, r, err, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "edit.html", editPage{Form: form})
}

func (s *Server) handleFormUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseForm(w, r)
	if err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := view.EditForm{
		ID:          mux.Vars(r)["id"],
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
	}

	_, err = view.NewListView(s.svc).SaveEdit(r.Context(), form)
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		s.render(w, r, http.StatusBadRequest, "edit.html", editPage{Form: form, Error: verr.Reason})
		return
	}
	if err != nil {
		s.pageError(w, r, err, applog.OpUpdate)
		return
	}
	http.Redirect(w, r, "/?notice=updated", http.StatusSeeOther)
}

// handleDeletePage asks for confirmation before anything is removed.
func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.pageError(w, r, err, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "delete.html", deletePage{Expense: view.Row{
		ID:          e.ID,
		Date:        e.Date.String(),
		Category:    e.Category,
		Description: e.Description,
		Amount:      e.Amount.String(),
	}})
}

func (s *Server) handleFormDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	confirmed := view.ConfirmFunc(func(context.Context, core.Expense) bool {
		return r.PostForm.Get("confirm") == "yes"
	})

	deleted, err := view.NewListView(s.svc).Delete(r.Context(), mux.Vars(r)["id"], confirmed)
	if err != nil {
		s.pageError(w, r, err, applog.OpDelete)
		return
	}
	if !deleted {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/?notice=deleted", http.StatusSeeOther)
}

func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if errors.Is(err, core.ErrNotFound) {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}
	applog.FromContext(r.Context()).LogError(r.Context(), "Page request failed", err, operation)
	http.Error(w, msgInternalError, http.StatusInternalServerError)
}

// render executes into a buffer so a template error never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).LogError(r.Context(), "Template execution failed", err, applog.OpRender, "template", name)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
