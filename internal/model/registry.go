package model

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]*Schema{}
)

// Register makes s available to Lookup under its name. Registering a
// different schema under a name already taken panics.
func Register(s *Schema) *Schema {
	registryMu.Lock()
	defer registryMu.Unlock()
	if prev, ok := registry[s.name]; ok && prev != s {
		panic(misusef("schema %s registered twice", s.name))
	}
	registry[s.name] = s
	return s
}

// Lookup returns the registered schema called name.
func Lookup(name string) (*Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	return s, ok
}

// Resolve is Lookup returning an error for unknown names.
func Resolve(name string) (*Schema, error) {
	s, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Registered returns the names of all registered schemas, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
