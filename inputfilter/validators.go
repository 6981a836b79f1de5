package inputfilter

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/lithictech/go-contentvalidation/validator"
)

// NotEmpty fails for nil, blank strings, false, and empty lists and objects.
func NotEmpty() Validator {
	return NewValidator("not_empty", func(_ context.Context, v interface{}) error {
		empty := isEmptyValue(v)
		switch t := v.(type) {
		case string:
			empty = strings.TrimSpace(t) == ""
		case bool:
			empty = !t
		}
		if empty {
			return Failure{Key: FailureIsEmpty, Message: messageIsEmpty}
		}
		return nil
	})
}

// Digits requires a string of digits or a non-negative integral number.
func Digits() Validator {
	return NewValidator("digits", func(_ context.Context, v interface{}) error {
		if err := validator.Valid(v, "digits"); err != nil {
			return Failure{Key: "notDigits", Message: "The input must contain only digits"}
		}
		return nil
	})
}

// Regex requires string or numeric values to match pattern.
// The pattern may be written with delimiters and flags, like "/^[a-z]+/i".
func Regex(pattern string) (Validator, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return NewValidator("regex", func(_ context.Context, v interface{}) error {
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case int, int64, float64:
			s = fmt.Sprint(t)
		default:
			return Failure{Key: "regexInvalid", Message: "Invalid type given. String, integer or float expected"}
		}
		if !re.MatchString(s) {
			return Failure{Key: "regexNotMatch", Message: fmt.Sprintf("The input does not match against pattern '%s'", pattern)}
		}
		return nil
	}), nil
}

var patternFlags = map[rune]string{'i': "i", 'm': "m", 's': "s", 'U': "U"}

// compilePattern compiles plain Go patterns and delimited patterns like "#^a+$#i".
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) < 2 {
		return regexp.Compile(pattern)
	}
	delim, _ := utf8.DecodeRuneInString(pattern)
	end := strings.LastIndex(pattern, string(delim))
	if isAlnum(delim) || delim == '\\' || delim == '^' || delim == '(' || delim == '[' || end <= 0 {
		return regexp.Compile(pattern)
	}
	body := pattern[utf8.RuneLen(delim):end]
	flags := ""
	for _, r := range pattern[end+1:] {
		if r == 'u' {
			continue
		}
		f, ok := patternFlags[r]
		if !ok {
			return nil, fmt.Errorf("unsupported pattern flag %q in %s", r, pattern)
		}
		flags += f
	}
	if flags != "" {
		body = "(?" + flags + ")" + body
	}
	return regexp.Compile(body)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// StringLength bounds the rune length of strings. A max of 0 is unbounded.
func StringLength(min, max int) Validator {
	return NewValidator("string_length", func(_ context.Context, v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return Failure{Key: "stringLengthInvalid", Message: "Invalid type given. String expected"}
		}
		n := utf8.RuneCountInString(s)
		if n < min {
			return Failure{Key: "stringLengthTooShort", Message: fmt.Sprintf("The input is less than %d characters long", min)}
		}
		if max > 0 && n > max {
			return Failure{Key: "stringLengthTooLong", Message: fmt.Sprintf("The input is more than %d characters long", max)}
		}
		return nil
	})
}

// InArray requires the value to be loosely equal (same printed form) to an element of haystack.
func InArray(haystack []interface{}) Validator {
	return NewValidator("in_array", func(_ context.Context, v interface{}) error {
		needle := fmt.Sprint(v)
		for _, h := range haystack {
			if reflect.DeepEqual(h, v) || fmt.Sprint(h) == needle {
				return nil
			}
		}
		return Failure{Key: "notInArray", Message: "The input was not found in the haystack"}
	})
}

// Rules validates against a rule string of the validator package, like "min=3,max=10" or "uuid4".
func Rules(rules string) Validator {
	return RulesWith(nil, rules)
}

// RulesWith is Rules using a specific registry, or the global one if nil.
func RulesWith(registry *validator.Registry, rules string) Validator {
	valid := validator.Valid
	if registry != nil {
		valid = registry.Valid
	}
	return NewValidator("rules", func(_ context.Context, v interface{}) error {
		return valid(v, rules)
	})
}

var (
	tagValidate     *govalidator.Validate
	tagValidateOnce sync.Once
)

// Tag validates against a go-playground validator tag, like "email" or "gte=1,lte=10".
// Unknown tags are an error here, rather than a panic at validation time.
func Tag(tag string) (v Validator, err error) {
	tagValidateOnce.Do(func() {
		tagValidate = govalidator.New(govalidator.WithRequiredStructEnabled())
	})
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("invalid validation tag %q: %v", tag, r)
		}
	}()
	_ = tagValidate.Var("", tag)
	return NewValidator("tag", func(_ context.Context, value interface{}) error {
		err := tagValidate.Var(value, tag)
		if err == nil {
			return nil
		}
		var verrs govalidator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg := fmt.Sprintf("The input failed the '%s' rule", fe.Tag())
			if fe.Param() != "" {
				msg = fmt.Sprintf("The input failed the '%s=%s' rule", fe.Tag(), fe.Param())
			}
			return Failure{Key: fe.Tag(), Message: msg}
		}
		return err
	}), nil
}

type ValidatorFactory func(options Options) (Validator, error)

// ValidatorRegistry builds validators by name.
type ValidatorRegistry struct {
	mu        sync.RWMutex
	factories map[string]ValidatorFactory
}

// NewValidatorRegistry returns a registry with the builtin validators:
//
//   - not_empty
//   - digits
//   - regex (option pattern)
//   - string_length (options min, max)
//   - in_array (option haystack)
//   - rules (option rules)
//   - tag (option tag)
func NewValidatorRegistry() *ValidatorRegistry {
	r := &ValidatorRegistry{factories: map[string]ValidatorFactory{}}
	r.Register("not_empty", func(Options) (Validator, error) { return NotEmpty(), nil })
	r.Register("digits", func(Options) (Validator, error) { return Digits(), nil })
	r.Register("regex", func(o Options) (Validator, error) {
		pattern, err := o.String("pattern", "")
		if err != nil {
			return nil, err
		}
		if pattern == "" {
			return nil, errors.New("missing option \"pattern\"")
		}
		return Regex(pattern)
	})
	r.Register("string_length", func(o Options) (Validator, error) {
		min, _, err := o.Int("min")
		if err != nil {
			return nil, err
		}
		max, _, err := o.Int("max")
		if err != nil {
			return nil, err
		}
		return StringLength(min, max), nil
	})
	r.Register("in_array", func(o Options) (Validator, error) {
		haystack, err := o.List("haystack")
		if err != nil {
			return nil, err
		}
		return InArray(haystack), nil
	})
	r.Register("rules", func(o Options) (Validator, error) {
		rules, err := o.String("rules", "")
		if err != nil {
			return nil, err
		}
		return Rules(rules), nil
	})
	r.Register("tag", func(o Options) (Validator, error) {
		tag, err := o.String("tag", "")
		if err != nil {
			return nil, err
		}
		return Tag(tag)
	})
	return r
}

func (r *ValidatorRegistry) Register(name string, factory ValidatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *ValidatorRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

func (r *ValidatorRegistry) Build(name string, options Options) (Validator, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlugin, "validator %q", name)
	}
	v, err := factory(options)
	if err != nil {
		return nil, errors.Wrapf(err, "validator %q", name)
	}
	return v, nil
}
