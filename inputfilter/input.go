package inputfilter

import (
	"context"
)

const (
	// FailureIsEmpty is the message key for a required input without a value.
	FailureIsEmpty = "isEmpty"
	// FailureInvalidData is the message key for data a schema cannot accept at all.
	FailureInvalidData = "invalidData"
)

const messageIsEmpty = "Value is required and can't be empty"

// Filter transforms an input value before it is validated.
type Filter interface {
	Filter(value interface{}) interface{}
}

type FilterFunc func(value interface{}) interface{}

func (f FilterFunc) Filter(value interface{}) interface{} {
	return f(value)
}

// Validator checks a (filtered) input value.
// A nil error is valid. A Failure error controls the message key;
// any other error is keyed by the validator name.
type Validator interface {
	Name() string
	Validate(ctx context.Context, value interface{}) error
}

// Failure is a validation failure with a message key.
type Failure struct {
	Key     string
	Message string
}

func (f Failure) Error() string {
	return f.Message
}

type validatorFunc struct {
	name string
	fn   func(context.Context, interface{}) error
}

func (v validatorFunc) Name() string {
	return v.name
}

func (v validatorFunc) Validate(ctx context.Context, value interface{}) error {
	return v.fn(ctx, value)
}

// NewValidator returns a Validator running fn.
func NewValidator(name string, fn func(ctx context.Context, value interface{}) error) Validator {
	return validatorFunc{name: name, fn: fn}
}

// Input is a single declared field.
// Inputs are required by default.
type Input struct {
	Name       string
	Required   bool
	AllowEmpty bool
	Filters    []Filter
	Validators []Validator
}

func NewInput(name string) *Input {
	return &Input{Name: name, Required: true}
}

func (in *Input) WithRequired(required bool) *Input {
	in.Required = required
	return in
}

func (in *Input) WithAllowEmpty(allow bool) *Input {
	in.AllowEmpty = allow
	return in
}

func (in *Input) WithFilters(filters ...Filter) *Input {
	in.Filters = append(in.Filters, filters...)
	return in
}

func (in *Input) WithValidators(validators ...Validator) *Input {
	in.Validators = append(in.Validators, validators...)
	return in
}

// FilterValue runs the filter chain over a submitted value.
// Values that were not submitted stay nil.
func (in *Input) FilterValue(raw interface{}, present bool) interface{} {
	if !present {
		return nil
	}
	value := raw
	for _, f := range in.Filters {
		value = f.Filter(value)
	}
	return value
}

// Validate filters and validates a value, returning the filtered value
// and failures keyed by message key (nil if valid).
// Empty values of optional inputs skip validators.
func (in *Input) Validate(ctx context.Context, raw interface{}, present bool) (interface{}, map[string]string) {
	value := in.FilterValue(raw, present)
	if isEmptyValue(value) {
		if in.Required && !in.AllowEmpty {
			return value, map[string]string{FailureIsEmpty: messageIsEmpty}
		}
		return value, nil
	}
	var failures map[string]string
	for _, v := range in.Validators {
		err := v.Validate(ctx, value)
		if err == nil {
			continue
		}
		if failures == nil {
			failures = make(map[string]string, 1)
		}
		if f, ok := err.(Failure); ok {
			failures[f.Key] = f.Message
		} else {
			failures[v.Name()] = err.Error()
		}
	}
	return value, failures
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}
