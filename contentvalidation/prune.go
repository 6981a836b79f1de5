package contentvalidation

import (
	"strconv"

	"github.com/lithictech/go-contentvalidation/convext"
)

// RemoveEmptyData prunes empty values from data, recursively.
//
// original is the data as submitted, and preserves intentional values:
// a nil is kept when its key was submitted (only if original is not empty),
// and a boolean is kept when it is true or its key is not loosely equal to a value in original.
// Other empty scalars ("", "0", 0, false) are dropped.
// Nested objects and lists are pruned against the matching part of original,
// and dropped when nothing is left.
//
// Objects and lists keep their shape. data is never modified.
func RemoveEmptyData(data, original interface{}) interface{} {
	switch t := data.(type) {
	case map[string]interface{}:
		return pruneObject(t, asObject(original))
	case []interface{}:
		pruned := pruneObject(convext.ListToObject(t), asObject(original))
		out := make([]interface{}, 0, len(pruned))
		for i := range t {
			if v, ok := pruned[strconv.Itoa(i)]; ok {
				out = append(out, v)
			}
		}
		return out
	}
	return data
}

func pruneObject(data, original map[string]interface{}) map[string]interface{} {
	if len(data) == 0 {
		return data
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if v == nil {
			if len(original) > 0 {
				if _, submitted := original[k]; submitted {
					out[k] = nil
				}
			}
			continue
		}
		if !convext.IsNested(v) {
			if _, isBool := v.(bool); !isEmpty(v) || (isBool && !inValues(k, original)) {
				out[k] = v
			}
			continue
		}
		pruned := RemoveEmptyData(v, original[k])
		if convext.Len(pruned) == 0 {
			continue
		}
		out[k] = pruned
	}
	return out
}

// isEmpty is true for nil, "", "0", zero numbers, false, and empty objects and lists.
func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == "0"
	case bool:
		return !t
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case map[string]interface{}:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	}
	return false
}

// inValues is true if key loosely equals any value of m.
// Strings compare exactly, booleans compare against the truthiness of the key,
// numbers compare numerically against numeric keys, and nil matches the empty key.
func inValues(key string, m map[string]interface{}) bool {
	for _, v := range m {
		if looseEqualsKey(key, v) {
			return true
		}
	}
	return false
}

func looseEqualsKey(key string, v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return key == ""
	case string:
		return key == t
	case bool:
		return t == (key != "" && key != "0")
	case int:
		return numericKeyEquals(key, float64(t))
	case int64:
		return numericKeyEquals(key, float64(t))
	case float64:
		return numericKeyEquals(key, t)
	}
	return false
}

func numericKeyEquals(key string, n float64) bool {
	f, err := strconv.ParseFloat(key, 64)
	return err == nil && f == n
}
