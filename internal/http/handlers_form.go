package http

import (
	"net/http"
	"slices"
	"strings"

	"finanzapp/internal/format"
	"finanzapp/internal/services"
	"finanzapp/internal/validate"
)

// handleExpenseBlur validates fields as the user leaves them. The body
// carries the current form values, the field just blurred, and optionally
// a comma-separated list of fields blurred earlier so their errors are
// reported too.
func (s *Server) handleExpenseBlur(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	field := p.Get("field")
	if !slices.Contains(services.ExpenseFields, field) {
		BadRequestError("Unknown field").Write(w)
		return
	}

	blurred := []string{field}
	for _, t := range strings.Split(p.Get("touched"), ",") {
		t = strings.TrimSpace(t)
		if t != field && slices.Contains(services.ExpenseFields, t) {
			blurred = append(blurred, t)
		}
	}

	values := p.Values(services.ExpenseFields)
	loc := s.formatter.Profile().Location()
	f := services.NewExpenseForm(values[services.FieldProjectID], s.now(), loc)
	applyValues(f, values)
	for _, b := range blurred {
		f.HandleBlur(b)
	}

	NewResponse().Data(map[string]any{
		"field":   field,
		"error":   f.Error(field),
		"valid":   f.Error(field) == "",
		"errors":  f.Errors(),
		"touched": f.Touched(),
	}).Write(w)
}

// handleFormatCurrency parses amount the way form input is parsed and
// renders it in the configured locale.
func (s *Server) handleFormatCurrency(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount")
	if strings.TrimSpace(raw) == "" {
		ValidationError(map[string]string{"amount": validate.MsgRequired}).Write(w)
		return
	}

	amount := format.ParseCurrency(sanitizeInput(raw))
	profile := s.formatter.Profile()
	NewResponse().Data(map[string]any{
		"input":     raw,
		"amount":    amount,
		"formatted": s.formatter.FormatCurrency(amount),
		"currency":  profile.CurrencyCode,
		"locale":    profile.Tag,
	}).Write(w)
}
