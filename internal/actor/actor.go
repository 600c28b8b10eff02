// Package actor is the SDK actors are written against. Actors are Go types
// registered at init time against the repository directory that holds their
// tools, files and libraries; the repository package discovers and runs them
// in isolated child processes.
package actor

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/alfredjeanlab/troupe/internal/messaging"
	"github.com/alfredjeanlab/troupe/internal/model"
)

// CurrentActorEnv names the actor being run in the current process.
const CurrentActorEnv = "TROUPE_CURRENT_ACTOR"

// Actor is one step of a workflow.
type Actor interface {
	Process(ctx context.Context, c *Context) error
}

// Registration declares an actor.
type Registration struct {
	// ClassName identifies the implementation, e.g. "FirstActor".
	ClassName string
	// Name identifies the actor in messages and workflows.
	Name        string
	Description string
	// Path is the repository-relative directory of the actor.
	Path     string
	Tags     []string
	Consumes []*model.Schema
	Produces []*model.Schema
	Dialogs  []messaging.Dialog
	New      func() Actor
}

var (
	mu            sync.RWMutex
	registrations []Registration
	libraries     = map[string]map[string]any{}
)

// Register adds r to the process-wide actor registry. Call it from init.
func Register(r Registration) {
	mu.Lock()
	defer mu.Unlock()
	registrations = append(registrations, r)
}

// Registrations returns every registered actor in registration order.
func Registrations() []Registration {
	mu.RLock()
	defer mu.RUnlock()
	return append([]Registration(nil), registrations...)
}

// RegistrationsIn returns the actors declared for the repository-relative
// directory dir.
func RegistrationsIn(dir string) []Registration {
	dir = filepath.Clean(dir)
	mu.RLock()
	defer mu.RUnlock()
	var out []Registration
	for _, r := range registrations {
		if filepath.Clean(r.Path) == dir {
			out = append(out, r)
		}
	}
	return out
}

// RegisterLibrary declares a private library of the actor in the
// repository-relative directory dir. lib is typically a struct of functions.
func RegisterLibrary(dir, name string, lib any) {
	dir = filepath.Clean(dir)
	mu.Lock()
	defer mu.Unlock()
	if libraries[dir] == nil {
		libraries[dir] = map[string]any{}
	}
	libraries[dir][name] = lib
}

// LibrariesIn returns the libraries declared for dir.
func LibrariesIn(dir string) Libraries {
	dir = filepath.Clean(dir)
	mu.RLock()
	defer mu.RUnlock()
	return NewLibraries(libraries[dir])
}

// Libraries is the handle through which an actor reaches its private
// libraries.
type Libraries struct {
	m map[string]any
}

// NewLibraries copies m into a Libraries handle.
func NewLibraries(m map[string]any) Libraries {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Libraries{m: cp}
}

// Get returns the library called name.
func (l Libraries) Get(name string) (any, bool) {
	v, ok := l.m[name]
	return v, ok
}

// Names returns the library names, sorted.
func (l Libraries) Names() []string {
	names := make([]string, 0, len(l.m))
	for n := range l.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
