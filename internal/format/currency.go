// Package format renders domain values (amounts, dates, percentages, sizes)
// as display strings and parses user input back into values.
//
// Every function degrades to a safe default ("" or 0) on missing or malformed
// input instead of returning an error: callers sit on rendering paths that
// must always produce text.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"finanzapp/internal/locale"
)

// CurrencyOptions controls FormatCurrencyWith.
type CurrencyOptions struct {
	ShowSymbol   bool
	ShowDecimals bool
	// Locale overrides the digit grouping and decimal separators.
	// The currency itself is always the configured one.
	Locale string
}

// DefaultCurrencyOptions returns symbol and two decimals in the configured locale.
func DefaultCurrencyOptions() CurrencyOptions {
	return CurrencyOptions{ShowSymbol: true, ShowDecimals: true}
}

// Formatter renders values according to one locale profile.
// It holds no mutable state and is safe for concurrent use.
type Formatter struct {
	profile locale.Profile
}

// New returns a Formatter bound to p.
func New(p locale.Profile) *Formatter {
	return &Formatter{profile: p}
}

// Profile returns the locale profile the formatter was built with.
func (f *Formatter) Profile() locale.Profile {
	return f.profile
}

// FormatCurrency renders amount with symbol and two decimals.
func (f *Formatter) FormatCurrency(amount float64) string {
	return f.FormatCurrencyWith(amount, DefaultCurrencyOptions())
}

// FormatCurrencyWith renders amount as a localized currency string.
func (f *Formatter) FormatCurrencyWith(amount float64, opts CurrencyOptions) string {
	decimals := 0
	if opts.ShowDecimals {
		decimals = 2
	}

	tag := f.profile.Language()
	if opts.Locale != "" {
		if t, err := language.Parse(opts.Locale); err == nil {
			tag = t
		}
	}

	neg, digits := formatDecimal(tag, amount, decimals)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if opts.ShowSymbol {
		b.WriteString(f.symbol())
	}
	b.WriteString(digits)
	return b.String()
}

// FormatNumber renders v with locale grouping and exactly decimals fraction digits.
func (f *Formatter) FormatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	neg, digits := formatDecimal(f.profile.Language(), v, decimals)
	if neg {
		return "-" + digits
	}
	return digits
}

// FormatPercentage renders v followed by a percent sign.
func (f *Formatter) FormatPercentage(v float64, decimals int) string {
	return f.FormatNumber(v, decimals) + "%"
}

func (f *Formatter) symbol() string {
	if f.profile.CurrencySymbol != "" {
		return f.profile.CurrencySymbol
	}
	return f.profile.CurrencyCode + " "
}

// formatDecimal formats |v| with the locale's separators and reports whether
// the rounded value is negative. Non-finite input renders as zero.
func formatDecimal(tag language.Tag, v float64, decimals int) (bool, string) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	abs := math.Abs(v)
	scale := math.Pow10(decimals)
	neg := v < 0 && math.Round(abs*scale) != 0

	p := message.NewPrinter(tag)
	return neg, p.Sprint(number.Decimal(abs, number.Scale(decimals)))
}

// ParseCurrency converts user input into an amount.
//
// Numbers are returned unchanged. Strings keep only digits, dots and commas,
// the first comma becomes a dot, and the longest leading decimal number is
// parsed. Anything else yields 0.
func ParseCurrency(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case string:
		return parseCurrencyString(v)
	case []byte:
		return parseCurrencyString(string(v))
	default:
		return 0
	}
}

func parseCurrencyString(s string) float64 {
	if s == "" {
		return 0
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, s)
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	prefix := leadingDecimal(cleaned)
	if prefix == "" || prefix == "." {
		return 0
	}
	n, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// leadingDecimal returns the longest prefix of s shaped like digits[.digits].
func leadingDecimal(s string) string {
	seenDot := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !seenDot:
			seenDot = true
		default:
			return s[:i]
		}
	}
	return s
}
