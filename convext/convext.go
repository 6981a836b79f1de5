// Package convext (convert extensions) are helpers for working with
// decoded, JSON-shaped data: map[string]interface{} objects,
// []interface{} lists, and scalars.
package convext

import (
	"sort"
	"strconv"
)

// AsObject returns v as an object, and whether it was one.
func AsObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// AsList returns v as a list, and whether it was one.
func AsList(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

// IsNested is true if v is an object or a list.
func IsNested(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return true
	}
	return false
}

// IsHashTable is true if v is a non-empty object whose keys are not
// the sequential indices "0" through "n-1".
// Lists, and objects keyed like lists (as form-encoded lists decode), are not hash tables.
func IsHashTable(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) == 0 {
		return false
	}
	return !IsIndexed(m)
}

// IsIndexed is true if the keys of m are exactly "0" through "len(m)-1".
func IsIndexed(m map[string]interface{}) bool {
	for i := 0; i < len(m); i++ {
		if _, ok := m[strconv.Itoa(i)]; !ok {
			return false
		}
	}
	return true
}

// Len returns the number of elements in an object or list, or 0.
func Len(v interface{}) int {
	switch t := v.(type) {
	case map[string]interface{}:
		return len(t)
	case []interface{}:
		return len(t)
	}
	return 0
}

// ListToObject converts a list into an object keyed by the string index.
func ListToObject(l []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(l))
	for i, v := range l {
		m[strconv.Itoa(i)] = v
	}
	return m
}

// SortedObjectKeys returns the keys of o in lexical order.
func SortedObjectKeys(o map[string]interface{}) []string {
	result := make([]string, 0, len(o))
	for k := range o {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// SortedIndexKeys sorts keys that are usually list indices.
// Integer keys sort numerically and before any non-integer keys,
// which sort lexically.
func SortedIndexKeys(keys []string) []string {
	result := make([]string, len(keys))
	copy(result, keys)
	sort.SliceStable(result, func(i, j int) bool {
		a, aerr := strconv.Atoi(result[i])
		b, berr := strconv.Atoi(result[j])
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		}
		return result[i] < result[j]
	})
	return result
}

// DeepCopy copies objects and lists recursively. Scalars are returned as-is.
func DeepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = DeepCopy(val)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, val := range t {
			l[i] = DeepCopy(val)
		}
		return l
	}
	return v
}

// DeepCopyObject is DeepCopy for an object.
func DeepCopyObject(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	return DeepCopy(m).(map[string]interface{})
}
