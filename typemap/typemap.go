// Package typemap converts between host type descriptors and provider SQL
// types in both directions.
package typemap

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tordrt/dmschema/provider"
)

// Fallback keys consulted when no exact host type is registered.
const (
	EnumPlaceholder       = "<enum>"
	ArrayPlaceholder      = "<array>"
	CollectionPlaceholder = "<collection>"
	ObjectPlaceholder     = "<object>"
)

// TypeMap holds the converters of one provider.
type TypeMap struct {
	provider provider.Type

	mu      sync.RWMutex
	forward map[string][]HostConverter
	reverse map[string][]SQLConverter
}

// New creates an empty type map for p.
func New(p provider.Type) *TypeMap {
	return &TypeMap{
		provider: p,
		forward:  make(map[string][]HostConverter),
		reverse:  make(map[string][]SQLConverter),
	}
}

// Provider returns the provider the map belongs to.
func (m *TypeMap) Provider() provider.Type {
	return m.provider
}

// RegisterHost adds a host to SQL converter for each key. Keys are host type
// strings (see HostType.String) or one of the placeholder keys.
func (m *TypeMap) RegisterHost(c HostConverter, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.forward[k] = append(m.forward[k], c)
	}
}

// RegisterSQL adds a SQL to host converter for each base type name.
func (m *TypeMap) RegisterSQL(c SQLConverter, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		n = strings.ToLower(n)
		m.reverse[n] = append(m.reverse[n], c)
	}
}

// tryForward runs the converters for key, most recently registered first.
func (m *TypeMap) tryForward(key string, d HostTypeDescriptor) (SQLTypeDescriptor, bool) {
	m.mu.RLock()
	convs := m.forward[key]
	m.mu.RUnlock()
	for i := len(convs) - 1; i >= 0; i-- {
		if out, ok := convs[i].TryConvert(d); ok {
			return out, true
		}
	}
	return SQLTypeDescriptor{}, false
}

// TryGetSQLType resolves the SQL type for a host descriptor. The lookup order
// is exact type, enum placeholder, array placeholder, collection catalog,
// object placeholder, and JSON for structured values.
func (m *TypeMap) TryGetSQLType(d HostTypeDescriptor) (SQLTypeDescriptor, bool) {
	if d.Type.IsZero() {
		return SQLTypeDescriptor{}, false
	}
	if out, ok := m.tryForward(d.Type.String(), d); ok {
		return out, true
	}

	switch d.Type.Kind {
	case Enum:
		return m.tryForward(EnumPlaceholder, d)
	case Array:
		if out, ok := m.tryForward(ArrayPlaceholder, d); ok {
			return out, true
		}
		return m.tryForward(JSON, d)
	case Collection:
		if !IsSupportedCollection(d.Type.Name) {
			return SQLTypeDescriptor{}, false
		}
		if out, ok := m.tryForward(CollectionPlaceholder, d); ok {
			return out, true
		}
		return m.tryForward(JSON, d)
	case Object:
		if out, ok := m.tryForward(ObjectPlaceholder, d); ok {
			return out, true
		}
		return m.tryForward(JSON, d)
	}
	return SQLTypeDescriptor{}, false
}

// TryGetHostType resolves the host descriptor for a raw SQL type such as
// "numeric(10,2)" or "character varying(255)[]".
func (m *TypeMap) TryGetHostType(sqlType string) (HostTypeDescriptor, bool) {
	parsed := ParseSQLType(sqlType)
	if parsed.SQLTypeName == "" {
		return HostTypeDescriptor{}, false
	}
	if out, ok := m.tryReverse(parsed); ok {
		return out, true
	}

	if elemName, ok := arrayElement(parsed.SQLTypeName); ok {
		elemDesc := parsed
		elemDesc.SQLTypeName = elemName
		if elem, ok := m.tryReverse(elemDesc); ok {
			return HostTypeDescriptor{Type: ArrayOf(elem.Type)}, true
		}
	}
	return HostTypeDescriptor{}, false
}

// arrayElement returns the element type of an array type name, written either
// as "int4[]" or in the PostgreSQL catalog form "_int4".
func arrayElement(name string) (string, bool) {
	if elem, ok := strings.CutSuffix(name, "[]"); ok {
		return elem, true
	}
	if elem, ok := strings.CutPrefix(name, "_"); ok && elem != "" {
		return elem, true
	}
	return "", false
}

func (m *TypeMap) tryReverse(d SQLTypeDescriptor) (HostTypeDescriptor, bool) {
	m.mu.RLock()
	convs := m.reverse[d.SQLTypeName]
	m.mu.RUnlock()
	for i := len(convs) - 1; i >= 0; i-- {
		if out, ok := convs[i].TryConvert(d); ok {
			return out, true
		}
	}
	return HostTypeDescriptor{}, false
}

// Registry holds one type map per provider.
type Registry struct {
	mu   sync.RWMutex
	maps map[provider.Type]*TypeMap
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{maps: make(map[provider.Type]*TypeMap)}
}

// Register stores m under its provider, replacing any previous map.
func (r *Registry) Register(m *TypeMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps[m.provider] = m
}

// Get returns the map registered for p.
func (r *Registry) Get(p provider.Type) (*TypeMap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.maps[p]
	if !ok {
		return nil, fmt.Errorf("no type map registered for provider %q", p)
	}
	return m, nil
}
