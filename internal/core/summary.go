package core

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
	Count  int
	Share  decimal.Decimal // percent of the month total, one decimal
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}

// NewMonthOverview totals the categories, fills their shares and orders
// them by amount, largest first.
func NewMonthOverview(year, month int, categories []CategoryAmount) MonthOverview {
	ov := MonthOverview{Year: year, Month: month, ByCategory: slices.Clone(categories)}
	for _, c := range ov.ByCategory {
		ov.Total = ov.Total.Add(c.Amount)
		ov.Count += c.Count
	}
	for i := range ov.ByCategory {
		ov.ByCategory[i].Share = share(ov.ByCategory[i].Amount, ov.Total)
	}
	slices.SortStableFunc(ov.ByCategory, func(a, b CategoryAmount) int {
		if a.Amount.Cents != b.Amount.Cents {
			if a.Amount.Cents > b.Amount.Cents {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return ov
}

func share(part, total Money) decimal.Decimal {
	if total.Cents == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Cents).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total.Cents)).
		Round(1)
}
