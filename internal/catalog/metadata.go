package catalog

import (
	"fmt"

	"github.com/agentic-research/gamelist/api"
)

// Metadata holds the field values of one row, ordered by the declarations of
// its kind. Values are strings; "" means unset.
type Metadata struct {
	Kind   api.Kind
	decls  []api.FieldDecl
	values []string
}

// NewMetadata returns empty metadata for kind under decls.
func NewMetadata(decls api.Declarations, kind api.Kind) *Metadata {
	fields := decls.For(kind)
	return &Metadata{
		Kind:   kind,
		decls:  fields,
		values: make([]string, len(fields)),
	}
}

func (m *Metadata) index(key string) int {
	for i, d := range m.decls {
		if d.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value of key, "" when unset or undeclared.
func (m *Metadata) Get(key string) string {
	if i := m.index(key); i >= 0 {
		return m.values[i]
	}
	return ""
}

// Has reports whether key is declared for this kind.
func (m *Metadata) Has(key string) bool {
	return m.index(key) >= 0
}

// Set stores value under key. Keys not declared for the kind are rejected.
func (m *Metadata) Set(key, value string) error {
	i := m.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s has no field %q", ErrValidation, m.Kind, key)
	}
	m.values[i] = value
	return nil
}

// Fields returns the declarations backing this metadata, in order.
func (m *Metadata) Fields() []api.FieldDecl {
	return m.decls
}

// Keys returns the declared field keys in order.
func (m *Metadata) Keys() []string {
	keys := make([]string, len(m.decls))
	for i, d := range m.decls {
		keys[i] = d.Key
	}
	return keys
}

// Values returns a copy of the values in declaration order.
func (m *Metadata) Values() []string {
	out := make([]string, len(m.values))
	copy(out, m.values)
	return out
}

// Map returns the values keyed by field.
func (m *Metadata) Map() map[string]string {
	out := make(map[string]string, len(m.decls))
	for i, d := range m.decls {
		out[d.Key] = m.values[i]
	}
	return out
}

// Entry is one catalog row.
type Entry struct {
	FileID   string
	SystemID string
	Exists   bool
	Metadata *Metadata
}

// Kind is shorthand for e.Metadata.Kind.
func (e *Entry) Kind() api.Kind {
	return e.Metadata.Kind
}
