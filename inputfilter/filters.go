package inputfilter

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/pkg/errors"
)

// ErrUnknownPlugin is returned when building a filter or validator that is not registered.
var ErrUnknownPlugin = errors.New("unknown plugin")

// StringTrim trims chars from both ends of string values,
// or whitespace if chars is empty.
func StringTrim(chars string) Filter {
	return FilterFunc(func(v interface{}) interface{} {
		s, ok := v.(string)
		if !ok {
			return v
		}
		if chars == "" {
			return strings.TrimSpace(s)
		}
		return strings.Trim(s, chars)
	})
}

func StringToLower() Filter {
	return mapString(strings.ToLower)
}

func StringToUpper() Filter {
	return mapString(strings.ToUpper)
}

func mapString(fn func(string) string) Filter {
	return FilterFunc(func(v interface{}) interface{} {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	})
}

// ToInt converts numeric strings, floats, and bools to int.
// Other values are not changed.
func ToInt() Filter {
	return FilterFunc(func(v interface{}) interface{} {
		switch t := v.(type) {
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return i
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return int(math.Trunc(f))
			}
		case float64:
			return int(math.Trunc(t))
		case bool:
			if t {
				return 1
			}
			return 0
		}
		return v
	})
}

// ToNull converts empty strings, lists, and objects to nil.
func ToNull() Filter {
	return FilterFunc(func(v interface{}) interface{} {
		if isEmptyValue(v) {
			return nil
		}
		return v
	})
}

// DigitsOnly removes every non-digit rune from strings.
func DigitsOnly() Filter {
	return mapString(func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, s)
	})
}

type FilterFactory func(options Options) (Filter, error)

// FilterRegistry builds filters by name.
type FilterRegistry struct {
	mu        sync.RWMutex
	factories map[string]FilterFactory
}

// NewFilterRegistry returns a registry with the builtin filters:
// string_trim (option charlist), string_to_lower, string_to_upper, to_int, to_null, and digits.
func NewFilterRegistry() *FilterRegistry {
	r := &FilterRegistry{factories: map[string]FilterFactory{}}
	r.Register("string_trim", func(o Options) (Filter, error) {
		chars, err := o.String("charlist", "")
		if err != nil {
			return nil, err
		}
		return StringTrim(chars), nil
	})
	r.Register("string_to_lower", constFilter(StringToLower()))
	r.Register("string_to_upper", constFilter(StringToUpper()))
	r.Register("to_int", constFilter(ToInt()))
	r.Register("to_null", constFilter(ToNull()))
	r.Register("digits", constFilter(DigitsOnly()))
	return r
}

func constFilter(f Filter) FilterFactory {
	return func(Options) (Filter, error) { return f, nil }
}

func (r *FilterRegistry) Register(name string, factory FilterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *FilterRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

func (r *FilterRegistry) Build(name string, options Options) (Filter, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlugin, "filter %q", name)
	}
	f, err := factory(options)
	if err != nil {
		return nil, errors.Wrapf(err, "filter %q", name)
	}
	return f, nil
}
