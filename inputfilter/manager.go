package inputfilter

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrSchemaNotFound is returned by Manager.Get for unregistered names.
var ErrSchemaNotFound = errors.New("schema not found")

// Factory creates a Schema.
type Factory func() (Schema, error)

// Manager resolves schemas by name, from registered factories
// or from specs built on demand.
type Manager struct {
	mu        sync.RWMutex
	builder   *Builder
	factories map[string]Factory
	specs     map[string]Spec
}

// NewManager returns a Manager building specs with b, or NewBuilder() if b is nil.
func NewManager(b *Builder) *Manager {
	if b == nil {
		b = NewBuilder()
	}
	return &Manager{
		builder:   b,
		factories: map[string]Factory{},
		specs:     map[string]Spec{},
	}
}

func (m *Manager) Builder() *Builder {
	return m.builder
}

func (m *Manager) Register(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = f
}

// RegisterSchema registers a prototype schema. Get returns a Fresh copy of it.
func (m *Manager) RegisterSchema(name string, s Schema) {
	m.Register(name, func() (Schema, error) { return Fresh(s), nil })
}

// RegisterSpec registers a spec, which is built each time the name is resolved.
// Registered factories take precedence over specs.
func (m *Manager) RegisterSpec(name string, spec Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[name] = spec
}

// CanCreate is true if name is declared by a spec.
func (m *Manager) CanCreate(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.specs[name]
	return ok
}

// Has is true if name can be resolved.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.factories[name]; ok {
		return true
	}
	_, ok := m.specs[name]
	return ok
}

func (m *Manager) Get(name string) (Schema, error) {
	m.mu.RLock()
	factory, hasFactory := m.factories[name]
	spec, hasSpec := m.specs[name]
	m.mu.RUnlock()
	switch {
	case hasFactory:
		s, err := factory()
		if err != nil {
			return nil, errors.Wrapf(err, "creating schema %q", name)
		}
		return s, nil
	case hasSpec:
		s, err := m.builder.Build(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "building schema %q", name)
		}
		return s, nil
	}
	return nil, errors.Wrapf(ErrSchemaNotFound, "%q", name)
}

// Names returns every resolvable name, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool, len(m.factories)+len(m.specs))
	for n := range m.factories {
		seen[n] = true
	}
	for n := range m.specs {
		seen[n] = true
	}
	result := make([]string, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}
