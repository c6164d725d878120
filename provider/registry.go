package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownProvider = errors.New("provider: unknown provider name")
)

// Factory builds a keyed provider instance. Providers that take no key
// accept a nil key.
type Factory func(key []byte) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a provider factory available under name, typically from an
// init function. Registering two factories under one name is a fatal
// configuration error.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("provider: Register with nil factory")
	}
	if _, dup := registry[name]; dup {
		panic("provider: Register called twice for " + name)
	}
	registry[name] = f
}

// Unregister removes a registered name. Intended for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return f, nil
}

// New looks up name and builds a provider with the given key.
func New(name string, key []byte) (Provider, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f(key)
}

// Names returns the registered provider names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
