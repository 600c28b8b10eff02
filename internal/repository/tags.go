package repository

import (
	"sort"
	"sync"
)

// Tag groups the actors that declared it. Workflow phases select actors by
// tag.
type Tag struct {
	Name string

	mu     sync.Mutex
	actors []*ActorDefinition
}

// Actors returns the member actors in the order they were discovered.
func (t *Tag) Actors() []*ActorDefinition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*ActorDefinition(nil), t.actors...)
}

// add records d unless it is already a member.
func (t *Tag) add(d *ActorDefinition) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.actors {
		if a == d {
			return false
		}
	}
	t.actors = append(t.actors, d)
	return true
}

// TagRegistry holds the tags known to a process.
type TagRegistry struct {
	mu   sync.Mutex
	tags map[string]*Tag
}

func NewTagRegistry() *TagRegistry {
	return &TagRegistry{tags: map[string]*Tag{}}
}

// DefaultTags is used by definitions created without WithTags.
var DefaultTags = NewTagRegistry()

// Tag returns the tag called name, creating it on first use.
func (r *TagRegistry) Tag(name string) *Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tags[name]
	if !ok {
		t = &Tag{Name: name}
		r.tags[name] = t
	}
	return t
}

// Names returns the known tag names, sorted.
func (r *TagRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tags))
	for n := range r.tags {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
