package validator

import (
	"errors"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rgalanakis/validator"
)

func newError(s string) validator.TextErr {
	return validator.TextErr{Err: errors.New(s)}
}

var (
	// ErrInvalidIntID is the error returned when a string is not a valid integer ID.
	ErrInvalidIntID = newError("not an integer string")
	// ErrInvalidURL is the error returned when a string cannot be parsed as a request URI.
	ErrInvalidURL = newError("not a valid url")
	// ErrInvalidUUID4 is the error returned when a string cannot be parsed as a UUID4.
	ErrInvalidUUID4 = newError("not a uuid4 string")
	// ErrNotDigits is the error returned when a value contains anything but digits.
	ErrNotDigits = newError("must contain only digits")
	// ErrBlank is the error returned when a string is empty or whitespace.
	ErrBlank = newError("blank string")
)

const optional = "opt"

// Split the param string on |,
// and return a type of (other args, if param ends in |opt, error in the case of empty args).
// Examples:
//
//	"a|b" -> (["a", "b"], false, nil)
//	"a|opt" -> (["a"], true, nil)
//	"|opt" -> ([], false, <error>)
func splitOptionalVal(param string) ([]string, bool, error) {
	params := strings.Split(param, "|")
	if len(params) == 0 {
		return nil, false, validator.ErrBadParameter
	}
	optional := params[len(params)-1] == optional
	if optional {
		params = params[:len(params)-1]
	}
	if len(params) == 0 {
		return nil, false, validator.ErrBadParameter
	}
	return params, optional, nil
}

func validateCaseInsensitiveEnum(v interface{}, param string) error {
	return validateEnumImpl(v, param, strings.ToLower)
}

func validateCaseSensitiveEnum(v interface{}, param string) error {
	return validateEnumImpl(v, param, nil)
}

func validateEnumImpl(v interface{}, param string, mapper func(string) string) error {
	choices, optional, err := splitOptionalVal(param)
	if err != nil {
		return err
	}
	if mapper != nil {
		choices = mapString(choices, mapper)
	}

	if s, ok := v.(string); ok {
		if mapper != nil {
			s = mapper(s)
		}
		return validateEnumImplStr(s, choices, optional)
	}
	if ss, ok := asStrings(v); ok {
		if optional {
			return validator.ErrBadParameter
		}
		if mapper != nil {
			ss = mapString(ss, mapper)
		}
		return validateEnumImplSlice(ss, choices)
	}

	return validator.ErrUnsupported
}

// asStrings handles both typed string slices and decoded JSON lists of strings.
func asStrings(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		result := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			result = append(result, s)
		}
		return result, true
	}
	return nil, false
}

func validateEnumImplStr(s string, choices []string, optional bool) error {
	if s == "" {
		if optional {
			return nil
		}
		return newError("empty string")
	}
	for _, choice := range choices {
		if choice == s {
			return nil
		}
	}
	return newError("is not one of " + strings.Join(choices, "|"))
}

func validateEnumImplSlice(ss []string, choices []string) error {
	for _, s := range ss {
		if !containsString(choices, s) {
			return newError("element not one of " + strings.Join(choices, "|"))
		}
	}
	return nil
}

func makeStringValidator(malformed error, validate func(string) bool) validator.ValidationFunc {
	return func(v interface{}, param string) error {
		s, ok := v.(string)
		if !ok {
			return validator.ErrUnsupported
		}
		if s == "" {
			if param == optional {
				return nil
			}
			return malformed
		}
		if !validate(s) {
			return malformed
		}
		return nil
	}
}

// Don't allow a leading 0 which is ambiguous (can indicate hex/octal value when parsing)
var intIDRegexp = regexp.MustCompile("^[1-9][0-9]*$")

var validateIntID = makeStringValidator(ErrInvalidIntID, func(s string) bool {
	if s == "0" {
		return true
	}
	return intIDRegexp.MatchString(s)
})

var validateUUID4 = makeStringValidator(ErrInvalidUUID4, func(s string) bool {
	if len(s) != 32 && len(s) != 36 {
		return false
	}
	u, err := uuid.Parse(s)
	return err == nil && u.Version() == 4
})

var validateURL = makeStringValidator(ErrInvalidURL, func(s string) bool {
	// using url.Parse is worthless, it treats almost anything as valid
	_, err := url.ParseRequestURI(s)
	return err == nil
})

var digitsRegexp = regexp.MustCompile("^[0-9]+$")

var validateDigitsString = makeStringValidator(ErrNotDigits, digitsRegexp.MatchString)

func validateDigits(v interface{}, param string) error {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return ErrNotDigits
		}
		return nil
	case int64:
		if n < 0 {
			return ErrNotDigits
		}
		return nil
	case float64:
		if n < 0 || n != math.Trunc(n) {
			return ErrNotDigits
		}
		return nil
	}
	return validateDigitsString(v, param)
}

func validateNotBlank(v interface{}, _ string) error {
	s, ok := v.(string)
	if !ok {
		return validator.ErrUnsupported
	}
	if strings.TrimSpace(s) == "" {
		return ErrBlank
	}
	return nil
}

func mapString(in []string, f func(string) string) []string {
	res := make([]string, 0, len(in))
	for _, s := range in {
		res = append(res, f(s))
	}
	return res
}

func containsString(in []string, element string) bool {
	for _, a := range in {
		if a == element {
			return true
		}
	}
	return false
}
