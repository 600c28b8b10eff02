package repository

import (
	"sort"
	"sync"
)

// ModulePrefix qualifies injected library modules.
const ModulePrefix = "troupe.libraries.actor."

// Namespace is the shared, process-wide home of injected actor libraries:
// a flat symbol table plus a registry of fully qualified modules.
type Namespace struct {
	mu      sync.RWMutex
	symbols map[string]any
	modules map[string]any
}

func NewNamespace() *Namespace {
	return &Namespace{symbols: map[string]any{}, modules: map[string]any{}}
}

// SharedNamespace is the namespace injections use by default.
var SharedNamespace = NewNamespace()

// Lookup returns the symbol called name.
func (n *Namespace) Lookup(name string) (any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.symbols[name]
	return v, ok
}

// Module returns the module registered under its fully qualified name.
func (n *Namespace) Module(name string) (any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.modules[name]
	return v, ok
}

// SetModule registers a module under its fully qualified name.
func (n *Namespace) SetModule(name string, v any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.modules[name] = v
}

// Symbols returns the symbol names, sorted.
func (n *Namespace) Symbols() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.symbols))
	for s := range n.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (n *Namespace) snapshot() map[string]struct{} {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]struct{}, len(n.symbols))
	for s := range n.symbols {
		out[s] = struct{}{}
	}
	return out
}

func (n *Namespace) setSymbol(name string, v any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.symbols[name] = v
}

// dropAddedSince removes every symbol not present in before.
func (n *Namespace) dropAddedSince(before map[string]struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for s := range n.symbols {
		if _, ok := before[s]; !ok {
			delete(n.symbols, s)
		}
	}
}

// swapModule sets name to v and returns the previous entry.
func (n *Namespace) swapModule(name string, v any) (prev any, had bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	prev, had = n.modules[name]
	n.modules[name] = v
	return prev, had
}

func (n *Namespace) removeModule(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.modules, name)
}
