package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pranit27-debug/Expense-Tracker/internal/api"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
)

// handleCreateExpense answers 201 for a new record and 200 with the existing
// record when client_id was already used.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeExpenseRequest(w, r)
	if err != nil {
		BadRequestError(msgInvalidBody).Write(w)
		return
	}

	e, created, err := s.svc.Create(r.Context(), req.Input())
	if err != nil {
		ServiceError(r, err, applog.OpCreate).Write(w)
		return
	}
	s.recordCreate(created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	NewJSONResponse().Status(status).Body(api.FromExpense(e)).Write(w)
}

// handleListExpenses returns a bare array, or the page envelope when per_page is given.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q, err := ParseListQuery(r.URL.Query())
	if err != nil {
		ServiceError(r, err, applog.OpList).Write(w)
		return
	}

	res, err := s.svc.List(r.Context(), q)
	if err != nil {
		ServiceError(r, err, applog.OpList).Write(w)
		return
	}
	if !res.Paginated {
		NewJSONResponse().Body(api.FromExpenses(res.Items)).Write(w)
		return
	}
	NewJSONResponse().Body(api.FromListResult(res)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		ServiceError(r, err, applog.OpSummary).Write(w)
		return
	}
	NewJSONResponse().Body(api.FromSummary(sum)).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		ServiceError(r, err, applog.OpRead).Write(w)
		return
	}
	NewJSONResponse().Body(api.FromExpense(e)).Write(w)
}

// handleUpdateExpense replaces the record's fields; client_id in the body is ignored.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeExpenseRequest(w, r)
	if err != nil {
		BadRequestError(msgInvalidBody).Write(w)
		return
	}

	e, err := s.svc.Update(r.Context(), mux.Vars(r)["id"], req.Input())
	if err != nil {
		ServiceError(r, err, applog.OpUpdate).Write(w)
		return
	}
	NewJSONResponse().Body(api.FromExpense(e)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		ServiceError(r, err, applog.OpDelete).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
