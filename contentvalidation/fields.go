package contentvalidation

import (
	"fmt"
	"strings"

	"github.com/lithictech/go-contentvalidation/convext"
	"github.com/lithictech/go-contentvalidation/inputfilter"
)

// ValidationGroupFor restricts validation to the submitted fields.
// For an entity, that is the keys of data.
// For a collection, it is the keys of each record, by record key.
func ValidationGroupFor(data interface{}, collection bool) inputfilter.ValidationGroup {
	if !collection {
		return inputfilter.ValidationGroup{Fields: keysOf(data)}
	}
	records := map[string][]string{}
	for k, rec := range asObject(data) {
		records[k] = keysOf(rec)
	}
	return inputfilter.ValidationGroup{Records: records}
}

func keysOf(v interface{}) []string {
	o := asObject(v)
	if len(o) == 0 {
		return nil
	}
	return convext.SortedIndexKeys(convext.SortedObjectKeys(o))
}

// asObject returns objects as-is, lists as index-keyed objects, and nil for anything else.
func asObject(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case []interface{}:
		return convext.ListToObject(t)
	}
	return nil
}

// UnknownFieldsDetail describes unknown fields for a strict-policy rejection.
// For an entity, unknown maps field to value, and the result is like "Unrecognized fields: a, b".
// For a collection, unknown maps record key to that record's unknown fields,
// and the result is like "Unrecognized fields: [1: a, b], [3: c]".
// Fields are listed in submission order if order knows it, and sorted otherwise.
func UnknownFieldsDetail(unknown map[string]interface{}, collection bool, order FieldOrderer) string {
	var fields string
	if collection {
		parts := make([]string, 0, len(unknown))
		for _, key := range convext.SortedIndexKeys(convext.SortedObjectKeys(unknown)) {
			names := orderedKeys(asObject(unknown[key]), fieldOrder(order, key))
			parts = append(parts, fmt.Sprintf("[%s: %s]", key, strings.Join(names, ", ")))
		}
		fields = strings.Join(parts, ", ")
	} else {
		fields = strings.Join(orderedKeys(unknown, fieldOrder(order)), ", ")
	}
	return "Unrecognized fields: " + fields
}

func fieldOrder(order FieldOrderer, path ...string) []string {
	if order == nil {
		return nil
	}
	return order.FieldOrder(path...)
}

// orderedKeys returns the keys of m in the order given by order,
// followed by any keys order does not mention, sorted.
func orderedKeys(m map[string]interface{}, order []string) []string {
	result := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !seen[k] {
			result = append(result, k)
			seen[k] = true
		}
	}
	for _, k := range convext.SortedObjectKeys(m) {
		if !seen[k] {
			result = append(result, k)
		}
	}
	return result
}

// mergeUnknown adds unknown fields on top of filtered values.
// For collections, each record's unknown fields are merged into that record.
func mergeUnknown(values interface{}, unknown map[string]interface{}, collection bool) interface{} {
	if !collection {
		out := make(map[string]interface{}, convext.Len(values)+len(unknown))
		for k, v := range asObject(values) {
			out[k] = v
		}
		for k, v := range unknown {
			out[k] = v
		}
		return out
	}
	mergeRecord := func(rec interface{}, extra interface{}) interface{} {
		if extra == nil {
			return rec
		}
		return mergeUnknown(rec, asObject(extra), false)
	}
	switch t := values.(type) {
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, rec := range t {
			out[i] = mergeRecord(rec, unknown[fmt.Sprint(i)])
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, rec := range t {
			out[k] = mergeRecord(rec, unknown[k])
		}
		return out
	}
	return values
}
