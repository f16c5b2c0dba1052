package core

import "strings"

// merchantCategories maps merchant name fragments to a suggested category.
// Order matters: the first fragment contained in the name wins.
var merchantCategories = []struct {
	fragment string
	category string
}{
	{"OXXO", "Comida"},
	{"SEVEN ELEVEN", "Comida"},
	{"STARBUCKS", "Comida"},
	{"MCDONALD", "Comida"},
	{"BURGER KING", "Comida"},
	{"DOMINOS", "Comida"},
	{"SUBWAY", "Comida"},
	{"WALMART", "Compras"},
	{"SORIANA", "Compras"},
	{"CHEDRAUI", "Compras"},
	{"COSTCO", "Compras"},
	{"SAMS CLUB", "Compras"},
	{"UBER", "Transporte"},
	{"DIDI", "Transporte"},
	{"CABIFY", "Transporte"},
	{"NETFLIX", "Entretenimiento"},
	{"SPOTIFY", "Entretenimiento"},
	{"CINEPOLIS", "Entretenimiento"},
	{"CINEMEX", "Entretenimiento"},
	{"LIVERPOOL", "Compras"},
	{"PALACIO DE HIERRO", "Compras"},
	{"SUBURBIA", "Compras"},
	{"AMAZON", "Compras"},
	{"MERCADO LIBRE", "Compras"},
}

// SuggestCategory guesses a category from a merchant name, or returns "".
func SuggestCategory(merchant string) string {
	upper := strings.ToUpper(merchant)
	if strings.TrimSpace(upper) == "" {
		return ""
	}
	for _, m := range merchantCategories {
		if strings.Contains(upper, m.fragment) {
			return m.category
		}
	}
	return ""
}
