package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"

	"finanzapp/internal/form"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	page, err := s.expenses.ListExpenses(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpList)
		return
	}

	items := make([]expenseResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, s.toExpenseResponse(e))
	}
	NewResponse().Data(map[string]any{
		"items":  items,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.GetExpense(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead)
		return
	}
	NewResponse().Data(s.toExpenseResponse(e)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	values, ok := s.parseExpenseBody(w, r)
	if !ok {
		return
	}

	loc := s.formatter.Profile().Location()
	f := services.NewExpenseForm(values[services.FieldProjectID], s.now(), loc)
	applyValues(f, values)

	e, err := services.ExpenseFromForm(f, loc)
	if errors.Is(err, services.ErrInvalidForm) {
		ValidationError(f.Errors()).Write(w)
		return
	}

	created, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate)
		return
	}
	atomic.AddInt64(&s.metrics.created, 1)

	NewResponse().
		Status(http.StatusCreated).
		Message("Expense created").
		Header("Location", "/api/expenses/"+created.ID).
		Data(s.toExpenseResponse(created)).
		Write(w)
}

// handleUpdateExpense applies the sent fields on top of the stored expense.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpUpdate)
		return
	}

	values, ok := s.parseExpenseBody(w, r)
	if !ok {
		return
	}

	loc := s.formatter.Profile().Location()
	f := services.FormFromExpense(existing, loc)
	applyValues(f, values)

	e, err := services.ExpenseFromForm(f, loc)
	if errors.Is(err, services.ErrInvalidForm) {
		ValidationError(f.Errors()).Write(w)
		return
	}
	e.ID = id

	updated, err := s.expenses.UpdateExpense(r.Context(), e)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpUpdate)
		return
	}
	atomic.AddInt64(&s.metrics.updated, 1)

	NewResponse().Message("Expense updated").Data(s.toExpenseResponse(updated)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteExpense(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err, log.OpDelete)
		return
	}
	atomic.AddInt64(&s.metrics.deleted, 1)
	NewResponse().Message("Expense deleted").Write(w)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	projectID := sanitizeInput(query.Get("project_id"))
	period := ParseMonthParams(query, s.now().In(s.formatter.Profile().Location()))

	sum, err := s.expenses.MonthSummary(r.Context(), projectID, period.Year, period.Month)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpSummary)
		return
	}
	NewResponse().Data(s.toSummaryResponse(projectID, sum)).Write(w)
}

// parseExpenseBody reads the expense fields that were sent. On failure the
// error response has been written.
func (s *Server) parseExpenseBody(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	p, ok := parseBody(w, r)
	if !ok {
		return nil, false
	}
	return p.Values(services.ExpenseFields), true
}

// parseBody reads the request body, answering 413 or 400 itself on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large").Write(w)
		} else {
			BadRequestError("Invalid request body").Write(w)
		}
		return nil, false
	}
	return p, true
}

func applyValues(f *form.Form, values map[string]string) {
	for field, v := range values {
		f.HandleChange(field, v)
	}
}

var _ ExpenseService = (*services.ExpenseService)(nil)
