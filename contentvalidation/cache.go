package contentvalidation

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lithictech/go-contentvalidation/inputfilter"
)

// schemaCache holds resolved schemas by name.
// Concurrent resolution of the same name may resolve twice; the first stored schema wins.
type schemaCache struct {
	mu      sync.RWMutex
	schemas map[string]inputfilter.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{schemas: map[string]inputfilter.Schema{}}
}

// resolve returns the schema for name and whether it exists.
// Registry faults other than not-found are returned as errors.
func (c *schemaCache) resolve(registry SchemaRegistry, name string) (inputfilter.Schema, bool, error) {
	c.mu.RLock()
	s, ok := c.schemas[name]
	c.mu.RUnlock()
	if ok {
		return s, true, nil
	}
	if registry == nil || !registry.Has(name) {
		return nil, false, nil
	}
	s, err := registry.Get(name)
	if errors.Is(err, inputfilter.ErrSchemaNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.schemas[name]; ok {
		return existing, true, nil
	}
	c.schemas[name] = s
	return s, true, nil
}
