package core

import (
	"slices"

	"github.com/shopspring/decimal"
)

// IVARate is the general Mexican value added tax rate.
var IVARate = decimal.RequireFromString("0.16")

// TaxBreakdown splits an amount into subtotal and IVA.
type TaxBreakdown struct {
	Subtotal Money
	IVA      Money
	Total    Money
}

// CalculateIVA adds IVA on top of subtotal.
func CalculateIVA(subtotal Money) TaxBreakdown {
	iva := MoneyFromDecimal(subtotal.Decimal().Mul(IVARate))
	return TaxBreakdown{Subtotal: subtotal, IVA: iva, Total: subtotal.Add(iva)}
}

// ExtractIVA splits a total that already includes IVA. Subtotal and IVA
// always add up to the total.
func ExtractIVA(total Money) TaxBreakdown {
	sub := MoneyFromDecimal(total.Decimal().Div(decimal.NewFromInt(1).Add(IVARate)))
	return TaxBreakdown{Subtotal: sub, IVA: Money{Cents: total.Cents - sub.Cents}, Total: total}
}

var (
	deductibleCategories    = []string{"Comida", "Transporte", "Salud", "Educación", "Servicios"}
	nonDeductibleCategories = []string{"Entretenimiento", "Personal"}
)

// Deductibility is the outcome of CheckDeductible.
type Deductibility struct {
	Deductible      bool
	Reasons         []string
	Recommendations []string
}

// CheckDeductible applies the basic SAT rules: a valid RFC, an invoice and
// a category that is not excluded.
func CheckDeductible(category string, hasRFC, hasInvoice bool) Deductibility {
	res := Deductibility{Deductible: true}
	if !hasRFC {
		res.Deductible = false
		res.Reasons = append(res.Reasons, "missing valid RFC")
	}
	if !hasInvoice {
		res.Deductible = false
		res.Reasons = append(res.Reasons, "missing invoice (CFDI)")
	}
	switch {
	case slices.Contains(nonDeductibleCategories, category):
		res.Deductible = false
		res.Reasons = append(res.Reasons, "category "+category+" is not deductible")
	case !slices.Contains(deductibleCategories, category):
		res.Reasons = append(res.Reasons, "category "+category+" needs review")
	}
	switch category {
	case "Comida":
		res.Recommendations = append(res.Recommendations,
			"at most 8.5% of accumulable income",
			"must relate to business activity")
	case "Transporte":
		res.Recommendations = append(res.Recommendations, "work related transport only")
	}
	if len(res.Reasons) == 0 {
		res.Reasons = []string{"meets basic requirements"}
	}
	return res
}
