package database

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

// Registry owns the named connections of an application. Connections are
// created on first request and live until Purge or Close.
type Registry struct {
	mutex       *sync.Mutex
	defaultName string
	configs     map[string]ConnectionConfig
	configFuncs []ConnectionConfigFunc
	connections map[string]*Connection
	closed      bool
}

// NewRegistry creates a registry. configFuncs are applied to every connection
// it creates.
func NewRegistry(
	defaultName string,
	configs map[string]ConnectionConfig,
	configFuncs ...ConnectionConfigFunc,
) *Registry {
	return &Registry{
		mutex:       &sync.Mutex{},
		defaultName: defaultName,
		configs:     maps.Clone(configs),
		configFuncs: configFuncs,
		connections: map[string]*Connection{},
	}
}

// Connection returns the named connection, the default one when name is
// empty.
func (registry *Registry) Connection(name string) (*Connection, error) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if registry.closed {
		return nil, ErrConnectionClosed
	}

	if name == "" {
		name = registry.defaultName
	}

	if name == "" {
		return nil, ErrMissingConnectionName
	}

	if connection, found := registry.connections[name]; found {
		return connection, nil
	}

	config, found := registry.configs[name]
	if !found {
		return nil, ErrConfiguration{Name: name}
	}

	driver, err := NewDriver(config)
	if err != nil {
		return nil, err
	}

	connection, err := NewConnection(name, driver, registry.configFuncs...)
	if err != nil {
		return nil, err
	}

	registry.connections[name] = connection

	return connection, nil
}

// Table starts a statement on the default connection.
func (registry *Registry) Table(table string) (*QueryBuilder, error) {
	connection, err := registry.Connection("")
	if err != nil {
		return nil, err
	}

	return connection.Table(table), nil
}

// Purge disconnects and forgets the named connection. The next request for it
// creates a new one.
func (registry *Registry) Purge(name string) error {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if name == "" {
		name = registry.defaultName
	}

	connection, found := registry.connections[name]
	if !found {
		return nil
	}

	delete(registry.connections, name)

	return connection.Disconnect()
}

// Names lists the configured connection names.
func (registry *Registry) Names() []string {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return slices.Sorted(maps.Keys(registry.configs))
}

func (registry *Registry) Close() error {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	registry.closed = true

	errs := []error{}
	for name, connection := range registry.connections {
		if err := connection.Disconnect(); err != nil {
			errs = append(errs, err)
		}
		delete(registry.connections, name)
	}

	return errors.Join(errs...)
}
