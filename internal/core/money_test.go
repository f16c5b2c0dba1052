package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyDecimalConversions(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.345", 1235},
		{"12.344", 1234},
		{"0.005", 1},
		{"100", 10000},
	}
	for _, tc := range cases {
		if got := MoneyFromDecimal(decimal.RequireFromString(tc.in)); got.Cents != tc.want {
			t.Errorf("MoneyFromDecimal(%s) = %d, want %d", tc.in, got.Cents, tc.want)
		}
	}

	if got := MoneyFromFloat(1234.56); got.Cents != 123456 {
		t.Errorf("MoneyFromFloat = %d", got.Cents)
	}
	m := Money{Cents: 1230}
	if m.String() != "12.30" || m.Amount() != 12.3 {
		t.Errorf("String/Amount = %s / %v", m.String(), m.Amount())
	}
}
