package inputfilter

import (
	"fmt"
	"strconv"
)

// Options configure a filter or validator built from a Spec.
type Options map[string]interface{}

func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q must be a string, got %T", key, v)
	}
	return s, nil
}

// Int returns an integer option, and whether it was set.
// Integral floats and numeric strings are accepted.
func (o Options) Int(key string) (int, bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n == float64(int(n)) {
			return int(n), true, nil
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true, nil
		}
	}
	return 0, false, fmt.Errorf("option %q must be an integer, got %v", key, v)
}

func (o Options) List(key string) ([]interface{}, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch l := v.(type) {
	case []interface{}:
		return l, nil
	case []string:
		result := make([]interface{}, len(l))
		for i, s := range l {
			result[i] = s
		}
		return result, nil
	}
	return nil, fmt.Errorf("option %q must be a list, got %T", key, v)
}
