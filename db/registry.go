package db

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/typemap"
)

// Factory creates the methods of one provider and recognizes its connections.
type Factory interface {
	SupportsConnection(ex Executor) bool
	New() DatabaseMethods
}

type driverFactory struct {
	provider provider.Type
	drivers  []string
	newFn    func() DatabaseMethods
}

func (f *driverFactory) SupportsConnection(ex Executor) bool {
	if h, ok := ex.(ProviderHinter); ok && h.Provider() != "" {
		return h.Provider() == f.provider
	}
	name := strings.ToLower(ex.DriverName())
	for _, d := range f.drivers {
		if name == d {
			return true
		}
	}
	return false
}

func (f *driverFactory) New() DatabaseMethods {
	return f.newFn()
}

// NewFactory returns a factory that accepts connections opened with one of
// the given driver names, or hinted as p.
func NewFactory(p provider.Type, newFn func() DatabaseMethods, drivers ...string) Factory {
	return &driverFactory{provider: p, drivers: drivers, newFn: newFn}
}

var driverNames = map[provider.Type][]string{
	provider.PostgreSQL: {"pgx", "pgx/v5", "postgres", "cloudsqlpostgres", "nrpostgres"},
	provider.SQLServer:  {"sqlserver", "mssql", "azuresql"},
	provider.MySQL:      {"mysql", "nrmysql"},
	provider.SQLite:     {"sqlite3", "sqlite", "nrsqlite3"},
}

// providerForDriver maps a database/sql driver name to its provider.
func providerForDriver(name string) (provider.Type, bool) {
	name = strings.ToLower(name)
	for _, p := range provider.All() {
		for _, d := range driverNames[p] {
			if d == name {
				return p, true
			}
		}
	}
	return "", false
}

type registration struct {
	name    string
	factory Factory
}

// Registry resolves a connection to the methods of its provider. The first
// registered factory that supports a connection wins.
type Registry struct {
	mu      sync.RWMutex
	entries []registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a factory under name. Registering a name again replaces the
// factory while keeping its position.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries[i].factory = f
			return
		}
	}
	r.entries = append(r.entries, registration{name: name, factory: f})
}

// MethodsFor returns the methods of the first factory supporting ex.
func (r *Registry) MethodsFor(ex Executor) (DatabaseMethods, error) {
	if ex == nil {
		return nil, invalidArgument("connection is required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.factory.SupportsConnection(ex) {
			return e.factory.New(), nil
		}
	}
	return nil, fmt.Errorf("%w: driver %q", ErrProviderNotFound, ex.DriverName())
}

// Names lists the registered factory names in resolution order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

var (
	defaultTypeMaps     *typemap.Registry
	defaultTypeMapsOnce sync.Once
)

// DefaultTypeMaps returns the built in type maps of every provider.
func DefaultTypeMaps() *typemap.Registry {
	defaultTypeMapsOnce.Do(func() {
		defaultTypeMaps = typemap.NewRegistry()
		defaultTypeMaps.Register(PostgresTypeMap())
		defaultTypeMaps.Register(SQLServerTypeMap())
		defaultTypeMaps.Register(MySQLTypeMap())
		defaultTypeMaps.Register(SQLiteTypeMap())
	})
	return defaultTypeMaps
}

func builtinTypeMap(p provider.Type) *typemap.TypeMap {
	tm, err := DefaultTypeMaps().Get(p)
	if err != nil {
		panic(err)
	}
	return tm
}

// NewDefaultRegistry returns a registry with the built in providers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(string(provider.PostgreSQL), NewFactory(provider.PostgreSQL, func() DatabaseMethods { return NewPostgresMethods() }, driverNames[provider.PostgreSQL]...))
	r.Register(string(provider.SQLServer), NewFactory(provider.SQLServer, func() DatabaseMethods { return NewSQLServerMethods() }, driverNames[provider.SQLServer]...))
	r.Register(string(provider.MySQL), NewFactory(provider.MySQL, func() DatabaseMethods { return NewMySQLMethods() }, driverNames[provider.MySQL]...))
	r.Register(string(provider.SQLite), NewFactory(provider.SQLite, func() DatabaseMethods { return NewSQLiteMethods() }, driverNames[provider.SQLite]...))
	return r
}
