/*
Package paramdata holds the parameters of an echo request in the shape
content validation works with: query params and body params as generic
maps and lists, uploaded files as file info maps, and the order fields
appeared in a JSON body.

Install Middleware before the validation middleware:

	e.Use(paramdata.Middleware())
	e.Use(validation.Middleware(validationConfig))

Handlers read validated data with paramdata.Get(c).BodyParams().

Query and form keys use bracket syntax for nesting,
so "address[city]=x&tags[]=a&tags[]=b" becomes
{"address": {"city": "x"}, "tags": ["a", "b"]}.
*/
package paramdata

import (
	"strings"
	"sync"
)

// Container is the request's parameter data.
// It satisfies contentvalidation.DataContainer and contentvalidation.FieldOrderer.
type Container struct {
	mu    sync.RWMutex
	query map[string]interface{}
	body  interface{}
	files map[string]interface{}
	order *fieldOrder
	temp  []string
}

// New returns a container for already-decoded params.
func New(query map[string]interface{}, body interface{}) *Container {
	if query == nil {
		query = map[string]interface{}{}
	}
	return &Container{query: query, body: body, files: map[string]interface{}{}}
}

func (c *Container) QueryParams() map[string]interface{} {
	return c.query
}

func (c *Container) BodyParams() interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.body
}

func (c *Container) SetBodyParams(data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body = data
}

// Files are the uploaded files, keyed like form fields.
// Each file is a map with name, type, size, tmp_name and error keys.
func (c *Container) Files() map[string]interface{} {
	return c.files
}

// FieldOrder returns the keys of the object at path in the order they were sent,
// or nil if the body was not JSON or there is no object at path.
// Path elements for list items are their indices, like "0".
func (c *Container) FieldOrder(path ...string) []string {
	n := c.order
	for _, p := range path {
		if n == nil {
			return nil
		}
		n = n.children[p]
	}
	if n == nil || n.list {
		return nil
	}
	return n.keys
}

// fieldOrder is the key order of a JSON object or list, and of its nested values.
type fieldOrder struct {
	list     bool
	keys     []string
	children map[string]*fieldOrder
}

func (o *fieldOrder) add(key string, child *fieldOrder) {
	if o.children == nil {
		o.children = map[string]*fieldOrder{}
	}
	if _, seen := o.children[key]; !seen {
		o.keys = append(o.keys, key)
	}
	o.children[key] = child
}

// splitKey splits bracketed form keys: "a[b][]" is ["a", "b", ""].
// Keys that are not well formed are used as-is.
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	parts := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	return parts
}

// setPath sets value at path in m, creating nested maps and lists.
// An empty path element appends to a list; later values for the same key win.
func setPath(m map[string]interface{}, path []string, value interface{}) {
	key := path[0]
	if len(path) == 1 {
		m[key] = value
		return
	}
	if path[1] == "" {
		l, _ := m[key].([]interface{})
		if len(path) == 2 {
			m[key] = append(l, value)
			return
		}
		child := map[string]interface{}{}
		setPath(child, path[2:], value)
		m[key] = append(l, child)
		return
	}
	child, ok := m[key].(map[string]interface{})
	if !ok {
		child = map[string]interface{}{}
		m[key] = child
	}
	setPath(child, path[1:], value)
}

func fileInfo(name, contentType string, size int64, tmpName string) map[string]interface{} {
	return map[string]interface{}{
		"name":     name,
		"type":     contentType,
		"size":     size,
		"tmp_name": tmpName,
		"error":    0,
	}
}
