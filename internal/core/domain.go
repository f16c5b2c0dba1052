package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"finanzapp/internal/validate"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	PaymentMethod string

	Expense struct {
		ID            string
		ProjectID     string
		Category      string
		Name          string
		Description   string
		Amount        Money
		Date          Date
		Merchant      string
		PaymentMethod PaymentMethod
		RFC           string
		TaxAmount     Money // IVA included in Amount, zero when unknown
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentOther    PaymentMethod = "other"
)

var (
	ErrNotFound          = errors.New("expense not found")
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = fmt.Errorf("name too long (max %d characters)", MaxNameLength)
	ErrDescriptionLength = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrEmptyProject      = errors.New("empty project")
	ErrInvalidTax        = errors.New("tax amount exceeds total")
	ErrInvalidPayment    = errors.New("invalid payment method")
	ErrInvalidRFC        = errors.New("invalid RFC")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p PaymentMethod) Validate() error {
	switch p {
	case "", PaymentCash, PaymentCard, PaymentTransfer, PaymentOther:
		return nil
	}
	return ErrInvalidPayment
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(e.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		return ErrDescriptionLength
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.ProjectID) == "" {
		return ErrEmptyProject
	}
	if e.TaxAmount.Cents < 0 || e.TaxAmount.Cents > e.Amount.Cents {
		return ErrInvalidTax
	}
	if err := e.PaymentMethod.Validate(); err != nil {
		return err
	}
	if e.RFC != "" && !validate.IsValidRFC(e.RFC) {
		return ErrInvalidRFC
	}
	return nil
}

// Normalize trims text fields, upper-cases the RFC and fills an empty
// category from the merchant name.
func (e *Expense) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	e.Description = strings.TrimSpace(e.Description)
	e.Merchant = strings.TrimSpace(e.Merchant)
	e.Category = strings.TrimSpace(e.Category)
	e.RFC = strings.ToUpper(strings.TrimSpace(e.RFC))
	if e.Category == "" && e.Merchant != "" {
		e.Category = SuggestCategory(e.Merchant)
	}
}
