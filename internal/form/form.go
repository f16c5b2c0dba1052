// Package form tracks the state of one form session: field values, field
// errors and which fields have been touched.
//
// Every mutation goes through the Form methods. Validation rules are
// supplied per field at construction and are only run on blur and on an
// explicit Validate call.
package form

import (
	"maps"
	"slices"
)

// Validator checks a field value and returns an error message, or "" when
// the value is acceptable.
type Validator func(value any) string

// Form holds values, errors and touched flags for a set of fields.
// A Form belongs to a single caller and is not safe for concurrent use.
type Form struct {
	initial    map[string]any
	validators map[string]Validator

	values  map[string]any
	errors  map[string]string
	touched map[string]bool
}

// New creates a Form seeded with initial. The map is copied, so later
// changes by the caller do not affect Reset.
func New(initial map[string]any, validators map[string]Validator) *Form {
	f := &Form{
		initial:    maps.Clone(initial),
		validators: maps.Clone(validators),
	}
	if f.initial == nil {
		f.initial = map[string]any{}
	}
	if f.validators == nil {
		f.validators = map[string]Validator{}
	}
	f.Reset()
	return f
}

// HandleChange stores value for field and drops any error on it. The
// validator is not run.
func (f *Form) HandleChange(field string, value any) {
	f.values[field] = value
	delete(f.errors, field)
}

// HandleBlur marks field as touched and runs its validator. A failing
// validator records its message; a passing one leaves existing errors alone.
func (f *Form) HandleBlur(field string) {
	f.touched[field] = true

	validator, ok := f.validators[field]
	if !ok || validator == nil {
		return
	}
	if msg := validator(f.values[field]); msg != "" {
		f.errors[field] = msg
	}
}

// Validate runs every validator against the current values, replaces the
// error map with the result and reports whether no field failed.
func (f *Form) Validate() bool {
	errs := make(map[string]string)
	for _, field := range slices.Sorted(maps.Keys(f.validators)) {
		validator := f.validators[field]
		if validator == nil {
			continue
		}
		if msg := validator(f.values[field]); msg != "" {
			errs[field] = msg
		}
	}
	f.errors = errs
	return len(errs) == 0
}

// Reset restores the initial values and clears errors and touched flags.
func (f *Form) Reset() {
	f.values = maps.Clone(f.initial)
	f.errors = make(map[string]string)
	f.touched = make(map[string]bool)
}

// SetFieldValue stores value without touching the error map.
func (f *Form) SetFieldValue(field string, value any) {
	f.values[field] = value
}

// SetFieldError records msg for field; an empty msg removes the error.
func (f *Form) SetFieldError(field, msg string) {
	if msg == "" {
		delete(f.errors, field)
		return
	}
	f.errors[field] = msg
}

// Values returns a copy of the current values.
func (f *Form) Values() map[string]any { return maps.Clone(f.values) }

// Errors returns a copy of the current errors.
func (f *Form) Errors() map[string]string { return maps.Clone(f.errors) }

// Touched returns a copy of the touched flags.
func (f *Form) Touched() map[string]bool { return maps.Clone(f.touched) }

// Value returns the current value of field, or nil.
func (f *Form) Value(field string) any { return f.values[field] }

// Error returns the error message for field, or "".
func (f *Form) Error(field string) string { return f.errors[field] }

// IsTouched reports whether field has been blurred since the last Reset.
func (f *Form) IsTouched(field string) bool { return f.touched[field] }

// IsValid reports whether the error map is currently empty. It does not run
// any validator.
func (f *Form) IsValid() bool { return len(f.errors) == 0 }

// Fields returns the names of all fields with a value, sorted.
func (f *Form) Fields() []string {
	return slices.Sorted(maps.Keys(f.values))
}
