package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzapp/internal/core"
	"finanzapp/internal/form"
	"finanzapp/internal/format"
	"finanzapp/internal/validate"
)

// Expense form field names.
const (
	FieldProjectID     = "project_id"
	FieldName          = "name"
	FieldAmount        = "amount"
	FieldDate          = "date"
	FieldCategory      = "category"
	FieldMerchant      = "merchant"
	FieldDescription   = "description"
	FieldPaymentMethod = "payment_method"
	FieldRFC           = "rfc"
	FieldTaxAmount     = "tax_amount"

	// FieldCommentText is the body field of an expense comment.
	FieldCommentText = "text"
)

const (
	MsgAmountPositive = "Amount must be greater than 0"
	MsgInvalidDate    = "Enter a valid date"
	MsgPaymentMethod  = "Choose cash, card, transfer or other"
	MsgTaxAmount      = "Tax cannot be negative"
	MsgAmountFormat   = "Use one decimal separator and no thousands separator"
	MsgAmountDecimals = "Use at most 2 decimals"
)

// ErrInvalidForm is returned when converting a form that has errors.
var ErrInvalidForm = errors.New("expense form has errors")

// ExpenseFields lists the expense form fields in display order.
var ExpenseFields = []string{
	FieldProjectID, FieldName, FieldAmount, FieldDate, FieldCategory,
	FieldMerchant, FieldDescription, FieldPaymentMethod, FieldRFC, FieldTaxAmount,
}

// ExpenseValidators returns the per-field rules of the expense form.
// Dates are read in loc.
func ExpenseValidators(loc *time.Location) map[string]form.Validator {
	return map[string]form.Validator{
		FieldProjectID:     validate.Required,
		FieldName:          validate.Compose(validate.Required, validate.MaxLength(core.MaxNameLength)),
		FieldAmount:        validate.Compose(validate.Required, currencyAmount),
		FieldDate:          validate.Compose(validate.Required, dateIn(loc)),
		FieldDescription:   validate.MaxLength(core.MaxDescriptionLength),
		FieldPaymentMethod: paymentMethod,
		FieldRFC:           validate.RFC,
		FieldTaxAmount:     taxAmount,
	}
}

// NewExpenseForm builds a Form for entering an expense in projectID,
// dated today in loc.
func NewExpenseForm(projectID string, now time.Time, loc *time.Location) *form.Form {
	if loc == nil {
		loc = time.UTC
	}
	initial := map[string]any{
		FieldProjectID:     projectID,
		FieldName:          "",
		FieldAmount:        "",
		FieldDate:          core.DateOf(now.In(loc)).String(),
		FieldCategory:      "",
		FieldMerchant:      "",
		FieldDescription:   "",
		FieldPaymentMethod: string(core.PaymentCard),
		FieldRFC:           "",
		FieldTaxAmount:     "",
	}
	return form.New(initial, ExpenseValidators(loc))
}

// FormFromExpense seeds a form with an existing expense, for editing.
func FormFromExpense(e core.Expense, loc *time.Location) *form.Form {
	initial := map[string]any{
		FieldProjectID:     e.ProjectID,
		FieldName:          e.Name,
		FieldAmount:        e.Amount.String(),
		FieldDate:          e.Date.String(),
		FieldCategory:      e.Category,
		FieldMerchant:      e.Merchant,
		FieldDescription:   e.Description,
		FieldPaymentMethod: string(e.PaymentMethod),
		FieldRFC:           e.RFC,
		FieldTaxAmount:     "",
	}
	if e.TaxAmount.Cents > 0 {
		initial[FieldTaxAmount] = e.TaxAmount.String()
	}
	return form.New(initial, ExpenseValidators(loc))
}

// ExpenseFromForm validates f and converts its values. On failure the
// form's error map is populated and ErrInvalidForm is returned.
func ExpenseFromForm(f *form.Form, loc *time.Location) (core.Expense, error) {
	if !f.Validate() {
		return core.Expense{}, ErrInvalidForm
	}

	date, _ := format.ParseDate(f.Value(FieldDate), loc)
	e := core.Expense{
		ProjectID:     text(f.Value(FieldProjectID)),
		Name:          text(f.Value(FieldName)),
		Amount:        core.MoneyFromFloat(format.ParseCurrency(f.Value(FieldAmount))),
		Date:          core.DateOf(date),
		Category:      text(f.Value(FieldCategory)),
		Merchant:      text(f.Value(FieldMerchant)),
		Description:   text(f.Value(FieldDescription)),
		PaymentMethod: core.PaymentMethod(strings.ToLower(text(f.Value(FieldPaymentMethod)))),
		RFC:           text(f.Value(FieldRFC)),
		TaxAmount:     core.MoneyFromFloat(format.ParseCurrency(f.Value(FieldTaxAmount))),
	}
	e.Normalize()
	return e, nil
}

// FieldErrors maps core validation errors back onto form fields, so API
// callers that skip the form still get a field-keyed error map.
func FieldErrors(err error) map[string]string {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return map[string]string{FieldName: validate.MsgRequired}
	case errors.Is(err, core.ErrNameTooLong):
		return map[string]string{FieldName: fmt.Sprintf("Maximum %d characters", core.MaxNameLength)}
	case errors.Is(err, core.ErrDescriptionLength):
		return map[string]string{FieldDescription: fmt.Sprintf("Maximum %d characters", core.MaxDescriptionLength)}
	case errors.Is(err, core.ErrInvalidAmount):
		return map[string]string{FieldAmount: MsgAmountPositive}
	case errors.Is(err, core.ErrEmptyProject):
		return map[string]string{FieldProjectID: validate.MsgRequired}
	case errors.Is(err, core.ErrInvalidTax):
		return map[string]string{FieldTaxAmount: "Tax cannot exceed the amount"}
	case errors.Is(err, core.ErrInvalidPayment):
		return map[string]string{FieldPaymentMethod: MsgPaymentMethod}
	case errors.Is(err, core.ErrInvalidRFC):
		return map[string]string{FieldRFC: validate.MsgRFC}
	case errors.Is(err, core.ErrInvalidDay), errors.Is(err, core.ErrInvalidMonth):
		return map[string]string{FieldDate: MsgInvalidDate}
	case errors.Is(err, core.ErrEmptyComment):
		return map[string]string{FieldCommentText: validate.MsgRequired}
	case errors.Is(err, core.ErrCommentTooLong):
		return map[string]string{FieldCommentText: fmt.Sprintf("Maximum %d characters", core.MaxCommentLength)}
	}
	return nil
}

// ParseAmount reads a positive amount with the expense form's rules. On
// rejection it returns the field message instead.
func ParseAmount(s string) (core.Money, string) {
	if msg := validate.Compose(validate.Required, currencyAmount)(s); msg != "" {
		return core.Money{}, msg
	}
	n, _ := moneyInput(s, MsgAmountPositive)
	return core.MoneyFromFloat(n), ""
}

func currencyAmount(value any) string {
	n, msg := moneyInput(value, MsgAmountPositive)
	if msg != "" {
		return msg
	}
	if n <= 0 {
		return MsgAmountPositive
	}
	return ""
}

func taxAmount(value any) string {
	_, msg := moneyInput(value, MsgTaxAmount)
	return msg
}

// moneyInput parses a money field with format.ParseCurrency after checking
// that the cleanup keeps the typed meaning: ParseCurrency drops the sign,
// reads "1,234.56" as 1.234 and would round a third decimal. negative is
// the message reported for a signed value.
func moneyInput(value any, negative string) (float64, string) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return moneyText(text(value), negative)
	}
	if n < 0 {
		return 0, negative
	}
	if decimal.NewFromFloat(n).Exponent() < -2 {
		return 0, MsgAmountDecimals
	}
	return n, ""
}

func moneyText(s, negative string) (float64, string) {
	digits, separators, decimals := false, 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
			if separators > 0 {
				decimals++
			}
		case r == '-' && !digits:
			return 0, negative
		case r == '.' || r == ',':
			separators++
		}
	}
	switch {
	case separators > 1:
		return 0, MsgAmountFormat
	case decimals > 2:
		return 0, MsgAmountDecimals
	}
	return format.ParseCurrency(s), ""
}

func dateIn(loc *time.Location) validate.Rule {
	return func(value any) string {
		if _, ok := format.ParseDate(value, loc); !ok {
			return MsgInvalidDate
		}
		return ""
	}
}

func paymentMethod(value any) string {
	m := core.PaymentMethod(strings.ToLower(text(value)))
	if m.Validate() != nil {
		return MsgPaymentMethod
	}
	return ""
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
