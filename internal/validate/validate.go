// Package validate provides field rules for form input.
//
// A Rule maps a field value to an error message; the empty string means the
// value is acceptable. Rules other than Required accept empty values so they
// can be combined with Required through Compose.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Rule checks one field value.
type Rule = func(value any) string

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-()]+$`)
	urlPattern   = regexp.MustCompile(`^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)
	rfcPattern   = regexp.MustCompile(`^[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}$`)
)

// Messages returned by the built-in rules.
const (
	MsgRequired       = "This field is required"
	MsgEmail          = "Enter a valid email address"
	MsgPhone          = "Enter a valid phone number (10 digits)"
	MsgNumber         = "Enter a valid number"
	MsgPositiveNumber = "Value must be greater than 0"
	MsgURL            = "Enter a valid URL"
	MsgRFC            = "Enter a valid RFC"
)

// IsValidEmail reports whether s looks like local@domain.tld. It is a
// permissive single-@ check, not an RFC 5322 parser.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidRFC reports whether s is a Mexican taxpayer id: 12 characters for
// companies, 13 for individuals.
func IsValidRFC(s string) bool {
	return rfcPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// Required rejects nil, blank strings, zero numbers and false.
func Required(value any) string {
	if isEmpty(value) {
		return MsgRequired
	}
	return ""
}

// Email validates non-empty values with IsValidEmail.
func Email(value any) string {
	s := text(value)
	if s == "" {
		return ""
	}
	if !IsValidEmail(s) {
		return MsgEmail
	}
	return ""
}

// Phone accepts digits, spaces, dashes and parentheses with at least ten digits.
func Phone(value any) string {
	s := text(value)
	if s == "" {
		return ""
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if !phonePattern.MatchString(s) || digits < 10 {
		return MsgPhone
	}
	return ""
}

// URL validates non-empty values as http(s) URLs or bare host names.
func URL(value any) string {
	s := text(value)
	if s == "" {
		return ""
	}
	if !urlPattern.MatchString(s) {
		return MsgURL
	}
	return ""
}

// RFC validates non-empty values with IsValidRFC.
func RFC(value any) string {
	s := text(value)
	if s == "" {
		return ""
	}
	if !IsValidRFC(s) {
		return MsgRFC
	}
	return ""
}

// MinLength rejects strings shorter than min characters.
func MinLength(min int) Rule {
	return func(value any) string {
		s := text(value)
		if s == "" {
			return ""
		}
		if len([]rune(s)) < min {
			return fmt.Sprintf("Minimum %d characters", min)
		}
		return ""
	}
}

// MaxLength rejects strings longer than max characters.
func MaxLength(max int) Rule {
	return func(value any) string {
		s := text(value)
		if s == "" {
			return ""
		}
		if len([]rune(s)) > max {
			return fmt.Sprintf("Maximum %d characters", max)
		}
		return ""
	}
}

// MinValue rejects numbers below min. Non-numeric input is reported as such.
func MinValue(min float64) Rule {
	return func(value any) string {
		n, ok := toNumber(value)
		if !ok {
			return MsgNumber
		}
		if n < min {
			return "Minimum value is " + strconv.FormatFloat(min, 'f', -1, 64)
		}
		return ""
	}
}

// MaxValue rejects numbers above max. Non-numeric input is reported as such.
func MaxValue(max float64) Rule {
	return func(value any) string {
		n, ok := toNumber(value)
		if !ok {
			return MsgNumber
		}
		if n > max {
			return "Maximum value is " + strconv.FormatFloat(max, 'f', -1, 64)
		}
		return ""
	}
}

// Number rejects non-empty values that do not start with a number.
func Number(value any) string {
	if isEmpty(value) {
		return ""
	}
	if _, ok := toNumber(value); !ok {
		return MsgNumber
	}
	return ""
}

// PositiveNumber rejects non-empty values that are not greater than zero.
func PositiveNumber(value any) string {
	if isEmpty(value) {
		return ""
	}
	n, ok := toNumber(value)
	if !ok {
		return MsgNumber
	}
	if n <= 0 {
		return MsgPositiveNumber
	}
	return ""
}

// Password requires eight characters with upper, lower and digit.
func Password(value any) string {
	s := text(value)
	if s == "" {
		return ""
	}
	if len([]rune(s)) < 8 {
		return "Password must be at least 8 characters"
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "Password must include an uppercase letter"
	case !lower:
		return "Password must include a lowercase letter"
	case !digit:
		return "Password must include a number"
	}
	return ""
}

// Match rejects values different from other, naming the field in the message.
func Match(fieldName string, other any) Rule {
	return func(value any) string {
		if fmt.Sprint(value) != fmt.Sprint(other) {
			return fieldName + " does not match"
		}
		return ""
	}
}

// Compose runs rules in order and returns the first failure.
func Compose(rules ...Rule) Rule {
	return func(value any) string {
		for _, rule := range rules {
			if msg := rule(value); msg != "" {
				return msg
			}
		}
		return ""
	}
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case float32:
		return v == 0
	default:
		return false
	}
}

// toNumber mirrors a lenient float parse: the leading numeric part of a
// string counts, so "12abc" is 12.
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	s := strings.TrimSpace(text(value))
	end := 0
	seenDot, seenDigit := false, false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			end = i + 1
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
	}
	if !seenDigit {
		return 0, false
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
