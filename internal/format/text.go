package format

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DefaultTruncateLength is the cut-off used by list rows and cards.
const DefaultTruncateLength = 50

const ellipsis = "..."

// Truncate shortens text to maxLength characters followed by "...".
// Text within the limit is returned unchanged.
func Truncate(text string, maxLength int) string {
	if text == "" {
		return ""
	}
	if maxLength < 0 {
		maxLength = 0
	}
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLength]) + ellipsis
}

// Initials returns the upper-cased first letters of the first and last
// words of name, or "?" when name is blank.
func Initials(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return "?"
	case 1:
		return firstUpper(words[0])
	default:
		return firstUpper(words[0]) + firstUpper(words[len(words)-1])
	}
}

func firstUpper(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with binary (1024) units and at most
// two decimals, e.g. "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := 0
	v := float64(bytes)
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// CalculatePercentage returns value as a share of total, in percent,
// rounded to one decimal. A zero total yields zero. Use StringFixed(1) for
// the display text; it parses back to the same value.
func CalculatePercentage(value, total float64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	ratio := value / total * 100
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(ratio).Round(1)
}
