package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"finanzapp/internal/validate"
)

func requiredAmount(v any) string {
	switch n := v.(type) {
	case nil:
		return "required"
	case int:
		if n == 0 {
			return "required"
		}
	}
	return ""
}

func TestResetRestoresInitialValues(t *testing.T) {
	f := New(map[string]any{"amount": 0}, map[string]Validator{"amount": requiredAmount})

	f.HandleChange("amount", 50)
	f.HandleBlur("amount")
	f.SetFieldError("amount", "boom")
	f.Reset()

	if got := f.Value("amount"); got != 0 {
		t.Errorf("amount after Reset = %v, want 0", got)
	}
	if len(f.Errors()) != 0 || len(f.Touched()) != 0 {
		t.Errorf("Reset left errors=%v touched=%v", f.Errors(), f.Touched())
	}
}

func TestValidateThenChangeClearsError(t *testing.T) {
	f := New(map[string]any{"amount": 0}, map[string]Validator{"amount": requiredAmount})

	if f.Validate() {
		t.Fatal("Validate() = true, want false")
	}
	if got := f.Error("amount"); got != "required" {
		t.Fatalf("errors[amount] = %q, want required", got)
	}

	calls := 0
	f.validators["amount"] = func(v any) string { calls++; return requiredAmount(v) }
	f.HandleChange("amount", 10)
	if got := f.Error("amount"); got != "" {
		t.Errorf("error not cleared by HandleChange: %q", got)
	}
	if calls != 0 {
		t.Errorf("HandleChange ran the validator %d times", calls)
	}
	if !f.IsValid() {
		t.Error("IsValid() = false after clearing")
	}
}

func TestHandleBlurOnlySetsErrors(t *testing.T) {
	f := New(
		map[string]any{"name": "", "note": ""},
		map[string]Validator{"name": validate.Required},
	)

	f.HandleBlur("name")
	if !f.IsTouched("name") {
		t.Error("name not touched after blur")
	}
	if got := f.Error("name"); got != validate.MsgRequired {
		t.Errorf("errors[name] = %q", got)
	}

	// A passing validator does not clear the recorded error.
	f.SetFieldValue("name", "Comida")
	f.HandleBlur("name")
	if got := f.Error("name"); got != validate.MsgRequired {
		t.Errorf("blur cleared error: %q", got)
	}

	// Fields without a validator are only marked touched.
	f.HandleBlur("note")
	if !f.IsTouched("note") || f.Error("note") != "" {
		t.Errorf("note touched=%v error=%q", f.IsTouched("note"), f.Error("note"))
	}
	if f.IsTouched("missing") {
		t.Error("untouched field reported as touched")
	}
}

func TestValidateReplacesErrors(t *testing.T) {
	f := New(
		map[string]any{"name": "", "email": "bad", "amount": "12"},
		map[string]Validator{
			"name":   validate.Required,
			"email":  validate.Email,
			"amount": validate.Compose(validate.Required, validate.PositiveNumber),
		},
	)
	f.SetFieldError("other", "stale")

	if f.Validate() {
		t.Fatal("Validate() = true")
	}
	want := map[string]string{"name": validate.MsgRequired, "email": validate.MsgEmail}
	if diff := cmp.Diff(want, f.Errors()); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	f.HandleChange("name", "Renta")
	f.HandleChange("email", "a@b.com")
	if !f.Validate() {
		t.Errorf("Validate() = false, errors %v", f.Errors())
	}
}

func TestInitialSnapshotIsIsolated(t *testing.T) {
	initial := map[string]any{"category": "food"}
	f := New(initial, nil)

	initial["category"] = "changed"
	f.HandleChange("category", "travel")
	f.HandleChange("extra", 1)

	values := f.Values()
	values["category"] = "mutated"
	if got := f.Value("category"); got != "travel" {
		t.Errorf("Values() returned a live map: %v", got)
	}

	f.Reset()
	want := map[string]any{"category": "food"}
	if diff := cmp.Diff(want, f.Values()); diff != "" {
		t.Errorf("values after Reset (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"category"}, f.Fields()); diff != "" {
		t.Errorf("Fields (-want +got):\n%s", diff)
	}
}

func TestSetFieldErrorEmptyRemoves(t *testing.T) {
	f := New(nil, nil)
	f.SetFieldError("x", "bad")
	if f.IsValid() {
		t.Fatal("IsValid() with an error")
	}
	f.SetFieldError("x", "")
	if !f.IsValid() {
		t.Errorf("errors = %v", f.Errors())
	}
	if f.Value("nope") != nil {
		t.Error("unknown field should read as nil")
	}
}
