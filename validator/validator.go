package validator

import (
	"strings"

	"github.com/rgalanakis/validator"
)

// Errors is every rule a value failed, in rule order.
type Errors []error

func (err Errors) Error() string {
	errs := make([]string, 0, len(err))
	for _, e := range err {
		errs = append(errs, e.Error())
	}
	return strings.Join(errs, ", ")
}

// Registry holds the rules a rule string can name.
// Most callers use the package-level Valid;
// a Registry of your own keeps custom rules from leaking into other callers.
type Registry struct {
	validator *validator.Validator
}

func NewRegistry() *Registry {
	v := validator.NewValidator()
	v.SetValidationFunc("intid", validateIntID)
	v.SetValidationFunc("uuid4", validateUUID4)
	v.SetValidationFunc("url", validateURL)
	v.SetValidationFunc("enum", validateCaseInsensitiveEnum)
	v.SetValidationFunc("cenum", validateCaseSensitiveEnum)
	v.SetValidationFunc("digits", validateDigits)
	v.SetValidationFunc("notblank", validateNotBlank)
	return &Registry{validator: v}
}

// SetValidationFunc registers a custom rule under name.
func (r *Registry) SetValidationFunc(name string, fn validator.ValidationFunc) error {
	return r.validator.SetValidationFunc(name, fn)
}

// Valid validates a single value against a rule string, like "min=3,max=10".
// Failures are returned as Errors.
func (r *Registry) Valid(v interface{}, rules string) error {
	err := r.validator.Valid(v, rules)
	if arr, ok := err.(validator.ErrorArray); ok {
		result := make(Errors, 0, len(arr))
		for _, e := range arr {
			result = append(result, e)
		}
		return result
	}
	return err
}

var defaultRegistry = NewRegistry()

// Valid validates v against rules using the default registry.
func Valid(v interface{}, rules string) error {
	return defaultRegistry.Valid(v, rules)
}
