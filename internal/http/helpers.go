package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finanzapp/internal/core"
	"finanzapp/internal/format"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
)

type expenseResponse struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	Merchant        string    `json:"merchant,omitempty"`
	Amount          string    `json:"amount"`
	AmountCents     int64     `json:"amount_cents"`
	AmountFormatted string    `json:"amount_formatted"`
	Date            string    `json:"date"`
	DateDisplay     string    `json:"date_display"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	RFC             string    `json:"rfc,omitempty"`
	TaxAmount       string    `json:"tax_amount,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	CreatedAgo      string    `json:"created_ago,omitempty"`
}

func (s *Server) toExpenseResponse(e core.Expense) expenseResponse {
	resp := expenseResponse{
		ID:              e.ID,
		ProjectID:       e.ProjectID,
		Name:            e.Name,
		Description:     e.Description,
		Category:        e.Category,
		Merchant:        e.Merchant,
		Amount:          e.Amount.String(),
		AmountCents:     e.Amount.Cents,
		AmountFormatted: s.formatter.FormatCurrency(e.Amount.Amount()),
		Date:            e.Date.String(),
		DateDisplay:     s.formatter.FormatDate(e.Date.Time, format.Display),
		PaymentMethod:   string(e.PaymentMethod),
		RFC:             e.RFC,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
		CreatedAgo:      format.FormatRelative(e.CreatedAt, s.now()),
	}
	if e.TaxAmount.Cents > 0 {
		resp.TaxAmount = e.TaxAmount.String()
	}
	return resp
}

type categoryResponse struct {
	Name            string `json:"name"`
	Amount          string `json:"amount"`
	AmountFormatted string `json:"amount_formatted"`
	Count           int    `json:"count"`
	Share           string `json:"share"`
}

type overviewResponse struct {
	Year           int                `json:"year"`
	Month          int                `json:"month"`
	MonthName      string             `json:"month_name"`
	Total          string             `json:"total"`
	TotalFormatted string             `json:"total_formatted"`
	Count          int                `json:"count"`
	Categories     []categoryResponse `json:"categories"`
}

func (s *Server) toOverviewResponse(ov core.MonthOverview) overviewResponse {
	resp := overviewResponse{
		Year:           ov.Year,
		Month:          ov.Month,
		MonthName:      s.formatter.Profile().MonthName(time.Month(ov.Month)),
		Total:          ov.Total.String(),
		TotalFormatted: s.formatter.FormatCurrency(ov.Total.Amount()),
		Count:          ov.Count,
		Categories:     make([]categoryResponse, 0, len(ov.ByCategory)),
	}
	for _, c := range ov.ByCategory {
		resp.Categories = append(resp.Categories, categoryResponse{
			Name:            c.Name,
			Amount:          c.Amount.String(),
			AmountFormatted: s.formatter.FormatCurrency(c.Amount.Amount()),
			Count:           c.Count,
			Share:           c.Share.StringFixed(1),
		})
	}
	return resp
}

type summaryResponse struct {
	ProjectID       string           `json:"project_id"`
	Current         overviewResponse `json:"current"`
	Previous        overviewResponse `json:"previous"`
	Change          string           `json:"change"`
	ChangeFormatted string           `json:"change_formatted"`
	// ChangePercent is relative to the previous month, "0.0" when it was empty.
	ChangePercent string `json:"change_percent"`
}

func (s *Server) toSummaryResponse(projectID string, sum services.MonthSummary) summaryResponse {
	return summaryResponse{
		ProjectID:       projectID,
		Current:         s.toOverviewResponse(sum.Current),
		Previous:        s.toOverviewResponse(sum.Previous),
		Change:          sum.Change.String(),
		ChangeFormatted: s.formatter.FormatCurrency(sum.Change.Amount()),
		ChangePercent:   format.CalculatePercentage(sum.Change.Amount(), sum.Previous.Total.Amount()).StringFixed(1),
	}
}

// writeServiceError maps service errors onto API responses. Unknown errors
// are logged and reported as 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Expense not found").Write(w)
		return
	case errors.Is(err, core.ErrCommentNotFound):
		NotFoundError("Comment not found").Write(w)
		return
	case errors.Is(err, services.ErrInvalidPeriod):
		BadRequestError(err.Error()).Write(w)
		return
	}
	if fields := services.FieldErrors(err); fields != nil {
		ValidationError(fields).Write(w)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "Expense operation failed", err, log.ComponentHTTP, operation,
			log.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
				WithErrorType(errorType(err)))
	InternalServerError("Internal server error").Write(w)
}

// errorType classifies an unexpected error for the log.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "internal"
}
