package contentvalidation

import (
	"github.com/lithictech/go-contentvalidation/convext"
)

// MergeFiles merges uploaded file metadata into entity data.
// Objects merge recursively, list elements at the same index merge when both are objects,
// and extra file elements are appended. Otherwise the file value wins.
// A list payload is merged as an index-keyed object.
func MergeFiles(data interface{}, files map[string]interface{}) interface{} {
	if len(files) == 0 {
		return data
	}
	if l, ok := data.([]interface{}); ok {
		data = convext.ListToObject(l)
	}
	return mergePreservingKeys(data, files)
}

// mergePreservingKeys merges b over a without modifying either.
// Keys (and list indices) of b replace those of a unless both values are nested,
// in which case they are merged recursively.
func mergePreservingKeys(a, b interface{}) interface{} {
	switch bt := b.(type) {
	case map[string]interface{}:
		at, ok := a.(map[string]interface{})
		if !ok {
			return convext.DeepCopy(b)
		}
		out := make(map[string]interface{}, len(at)+len(bt))
		for k, v := range at {
			out[k] = v
		}
		for k, v := range bt {
			if existing, ok := out[k]; ok && bothNested(existing, v) {
				out[k] = mergePreservingKeys(existing, v)
			} else {
				out[k] = convext.DeepCopy(v)
			}
		}
		return out
	case []interface{}:
		at, ok := a.([]interface{})
		if !ok {
			return convext.DeepCopy(b)
		}
		out := make([]interface{}, len(at), max(len(at), len(bt)))
		copy(out, at)
		for i, v := range bt {
			switch {
			case i >= len(out):
				out = append(out, convext.DeepCopy(v))
			case bothNested(out[i], v):
				out[i] = mergePreservingKeys(out[i], v)
			default:
				out[i] = convext.DeepCopy(v)
			}
		}
		return out
	}
	return b
}

func bothNested(a, b interface{}) bool {
	_, am := a.(map[string]interface{})
	_, bm := b.(map[string]interface{})
	_, al := a.([]interface{})
	_, bl := b.([]interface{})
	return (am && bm) || (al && bl)
}
