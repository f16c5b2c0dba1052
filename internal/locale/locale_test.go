package locale

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinProfiles(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}

	if diff := cmp.Diff([]string{"es-MX", "en-US", "it-IT"}, r.Tags()); diff != "" {
		t.Errorf("Tags() mismatch (-want +got):\n%s", diff)
	}

	def := r.Default()
	if def.Tag != "es-MX" || def.CurrencyCode != "MXN" || def.CurrencySymbol != "$" {
		t.Errorf("unexpected default profile: %+v", def)
	}
	if def.Location().String() != "America/Mexico_City" {
		t.Errorf("Location() = %s", def.Location())
	}
	if got := def.MonthName(time.March); got != "marzo" {
		t.Errorf("MonthName(March) = %q, want marzo", got)
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}
	p, ok := r.Lookup(" EN-us ")
	if !ok || p.Tag != "en-US" {
		t.Fatalf("Lookup() = %+v, %v", p, ok)
	}
}

func TestResolve(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		tag      string
		currency string
		timezone string
		wantTag  string
		wantCode string
		wantTZ   string
		wantErr  error
	}{
		{name: "defaults", wantTag: "es-MX", wantCode: "MXN", wantTZ: "America/Mexico_City"},
		{name: "explicit tag", tag: "it-IT", wantTag: "it-IT", wantCode: "EUR", wantTZ: "Europe/Rome"},
		{name: "currency override", tag: "en-US", currency: "mxn", wantTag: "en-US", wantCode: "MXN", wantTZ: "America/New_York"},
		{name: "timezone override", timezone: "UTC", wantTag: "es-MX", wantCode: "MXN", wantTZ: "UTC"},
		{name: "unknown tag", tag: "xx-YY", wantErr: ErrUnknownLocale},
		{name: "bad currency", currency: "ZZZZ", wantErr: ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve(tt.tag, tt.currency, tt.timezone)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if p.Tag != tt.wantTag || p.CurrencyCode != tt.wantCode || p.Location().String() != tt.wantTZ {
				t.Errorf("Resolve() = %s/%s/%s, want %s/%s/%s",
					p.Tag, p.CurrencyCode, p.Location(), tt.wantTag, tt.wantCode, tt.wantTZ)
			}
		})
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":           "profiles: []",
		"bad yaml":        "profiles: [",
		"unknown default": "default: fr-FR\nprofiles:\n  - tag: en-US\n    currency_code: USD\n",
		"bad currency":    "profiles:\n  - tag: en-US\n    currency_code: DOLLARS\n",
		"bad tz":          "profiles:\n  - tag: en-US\n    currency_code: USD\n    timezone: Mars/Olympus\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestUnresolvedProfileFallsBackToUTC(t *testing.T) {
	var p Profile
	if p.Location() != time.UTC {
		t.Errorf("zero Profile location = %v", p.Location())
	}
	if got := p.MonthName(time.May); got != "May" {
		t.Errorf("MonthName without table = %q", got)
	}
}
