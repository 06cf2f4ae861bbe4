package script

import (
	"fmt"
	"maps"
	"slices"
)

// Module is the evaluated form of a script.
type Module struct {
	name   string
	file   string
	values map[string]any
}

// Name returns the module name (the script's file stem, or "main" for Run).
func (m *Module) Name() string {
	return m.name
}

// File returns the absolute path of the evaluated script.
func (m *Module) File() string {
	return m.file
}

// Get returns the value of a top-level attribute.
func (m *Module) Get(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Names returns the attribute names, sorted.
func (m *Module) Names() []string {
	return slices.Sorted(maps.Keys(m.values))
}

// Values returns a copy of all attributes.
func (m *Module) Values() map[string]any {
	return maps.Clone(m.values)
}

// Lookup returns the values of names, in order.
func (m *Module) Lookup(names ...string) ([]any, error) {
	out := make([]any, 0, len(names))
	for _, name := range names {
		v, ok := m.values[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrNameNotFound, name, m.file)
		}
		out = append(out, v)
	}
	return out, nil
}

// String implements fmt.Stringer.
func (m *Module) String() string {
	return fmt.Sprintf("<module %q from %q>", m.name, m.file)
}
