// Package locale holds the locale and currency configuration consumed by the
// formatting layer.
//
// Profiles are loaded from an embedded YAML table and resolved once at startup
// from configuration, then passed explicitly to the formatters. Nothing in this
// package reads the process environment.
package locale

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

var (
	ErrUnknownLocale   = errors.New("unknown locale")
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// Profile describes how numbers, amounts and dates are rendered for one locale.
type Profile struct {
	Tag            string   `yaml:"tag"`
	CurrencyCode   string   `yaml:"currency_code"`
	CurrencySymbol string   `yaml:"currency_symbol"`
	Timezone       string   `yaml:"timezone"`
	ShortDate      string   `yaml:"short_date"`
	LongDate       string   `yaml:"long_date"`
	TimeLayout     string   `yaml:"time"`
	Months         []string `yaml:"months"`

	language language.Tag
	location *time.Location
}

// Language returns the parsed BCP 47 tag of the profile.
func (p Profile) Language() language.Tag {
	return p.language
}

// Location returns the time zone used for date-only values.
// A profile that was never resolved falls back to UTC.
func (p Profile) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

// MonthName returns the localized name of month m (1-12).
func (p Profile) MonthName(m time.Month) string {
	if m < time.January || m > time.December || len(p.Months) != 12 {
		return m.String()
	}
	return p.Months[m-1]
}

func (p *Profile) resolve() error {
	tag, err := language.Parse(p.Tag)
	if err != nil {
		return fmt.Errorf("parse tag %q: %w", p.Tag, err)
	}
	p.language = tag

	if _, err := currency.ParseISO(p.CurrencyCode); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidCurrency, p.CurrencyCode, err)
	}

	loc := time.UTC
	if p.Timezone != "" {
		loc, err = time.LoadLocation(p.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", p.Timezone, err)
		}
	}
	p.location = loc

	if p.ShortDate == "" {
		p.ShortDate = "02/01/2006"
	}
	if p.LongDate == "" {
		p.LongDate = "%[1]d %[2]s %[3]d"
	}
	if p.TimeLayout == "" {
		p.TimeLayout = "15:04"
	}
	return nil
}

// Registry indexes profiles by tag (case-insensitive).
type Registry struct {
	defaultTag string
	profiles   map[string]Profile
	order      []string
}

type registryFile struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

// Parse builds a registry from a YAML document shaped like profiles.yaml.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode locale profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, errors.New("no locale profiles defined")
	}

	r := &Registry{profiles: make(map[string]Profile, len(file.Profiles))}
	for _, p := range file.Profiles {
		if err := p.resolve(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Tag, err)
		}
		key := strings.ToLower(p.Tag)
		if _, dup := r.profiles[key]; !dup {
			r.order = append(r.order, p.Tag)
		}
		r.profiles[key] = p
	}

	r.defaultTag = file.Default
	if r.defaultTag == "" {
		r.defaultTag = r.order[0]
	}
	if _, ok := r.profiles[strings.ToLower(r.defaultTag)]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownLocale, r.defaultTag)
	}
	return r, nil
}

var (
	builtinOnce sync.Once
	builtin     *Registry
	builtinErr  error
)

// Builtin returns the registry compiled into the binary.
func Builtin() (*Registry, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Parse(profilesYAML)
	})
	return builtin, builtinErr
}

// Lookup returns the profile registered for tag.
func (r *Registry) Lookup(tag string) (Profile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(tag))]
	return p, ok
}

// Default returns the registry's default profile.
func (r *Registry) Default() Profile {
	p, _ := r.Lookup(r.defaultTag)
	return p
}

// Tags lists the registered tags in file order.
func (r *Registry) Tags() []string {
	return append([]string(nil), r.order...)
}

// Resolve picks the profile for tag and applies optional currency and
// timezone overrides. Empty arguments keep the profile values; an empty tag
// selects the default profile.
func (r *Registry) Resolve(tag, currencyCode, timezone string) (Profile, error) {
	p := r.Default()
	if strings.TrimSpace(tag) != "" {
		var ok bool
		p, ok = r.Lookup(tag)
		if !ok {
			return Profile{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLocale, tag, strings.Join(r.order, ", "))
		}
	}

	if code := strings.ToUpper(strings.TrimSpace(currencyCode)); code != "" && code != p.CurrencyCode {
		unit, err := currency.ParseISO(code)
		if err != nil {
			return Profile{}, fmt.Errorf("%w %q: %v", ErrInvalidCurrency, code, err)
		}
		p.CurrencyCode = unit.String()
		p.CurrencySymbol = fmt.Sprint(currency.NarrowSymbol(unit))
	}

	if tz := strings.TrimSpace(timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Profile{}, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		p.Timezone = tz
		p.location = loc
	}
	return p, nil
}
