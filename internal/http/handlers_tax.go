package http

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"finanzapp/internal/core"
	"finanzapp/internal/services"
	"finanzapp/internal/validate"
)

type taxResponse struct {
	Subtotal          string `json:"subtotal"`
	IVA               string `json:"iva"`
	Total             string `json:"total"`
	SubtotalFormatted string `json:"subtotal_formatted"`
	IVAFormatted      string `json:"iva_formatted"`
	TotalFormatted    string `json:"total_formatted"`
	Rate              string `json:"rate"`
}

type rfcResponse struct {
	RFC   string `json:"rfc"`
	Valid bool   `json:"valid"`
	Type  string `json:"type,omitempty"`
}

type deductibleResponse struct {
	Deductible      bool     `json:"deductible"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
}

// handleValidateRFC reports whether rfc is well formed and, when it is,
// whether it belongs to an individual (13 characters) or a company (12).
func (s *Server) handleValidateRFC(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	rfc := strings.ToUpper(strings.TrimSpace(p.Get("rfc")))
	if rfc == "" {
		ValidationError(map[string]string{"rfc": validate.MsgRequired}).Write(w)
		return
	}

	resp := rfcResponse{RFC: rfc, Valid: validate.IsValidRFC(rfc)}
	switch {
	case !resp.Valid:
	case utf8.RuneCountInString(rfc) == 13:
		resp.Type = "individual"
	default:
		resp.Type = "company"
	}
	NewResponse().Data(resp).Write(w)
}

// handleCalculateTax splits an amount into subtotal and IVA. With included
// set the amount is taken as a total that already carries IVA.
func (s *Server) handleCalculateTax(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	amount, msg := services.ParseAmount(p.Get("amount"))
	if msg != "" {
		ValidationError(map[string]string{"amount": msg}).Write(w)
		return
	}

	b := core.CalculateIVA(amount)
	if flag(p.Get("included")) {
		b = core.ExtractIVA(amount)
	}
	NewResponse().Data(taxResponse{
		Subtotal:          b.Subtotal.String(),
		IVA:               b.IVA.String(),
		Total:             b.Total.String(),
		SubtotalFormatted: s.formatter.FormatCurrency(b.Subtotal.Amount()),
		IVAFormatted:      s.formatter.FormatCurrency(b.IVA.Amount()),
		TotalFormatted:    s.formatter.FormatCurrency(b.Total.Amount()),
		Rate:              core.IVARate.String(),
	}).Write(w)
}

// handleCheckDeductible applies the basic SAT rules to a category. The RFC
// counts only when it is valid.
func (s *Server) handleCheckDeductible(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	category := strings.TrimSpace(p.Get("category"))
	if category == "" {
		ValidationError(map[string]string{"category": validate.MsgRequired}).Write(w)
		return
	}

	d := core.CheckDeductible(category, validate.IsValidRFC(p.Get("rfc")), flag(p.Get("invoice")))
	resp := deductibleResponse{
		Deductible:      d.Deductible,
		Reasons:         d.Reasons,
		Recommendations: d.Recommendations,
	}
	if resp.Reasons == nil {
		resp.Reasons = []string{}
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []string{}
	}
	NewResponse().Data(resp).Write(w)
}

// flag reads a boolean body value; anything unparseable is false.
func flag(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}
