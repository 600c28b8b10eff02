// Package repository implements actor definitions: the resources an actor
// directory carries, process-isolated discovery of the actor's metadata,
// the injected execution context, and isolated actor runs.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/alfredjeanlab/troupe/internal/actor"
	"github.com/alfredjeanlab/troupe/internal/events"
	"github.com/alfredjeanlab/troupe/internal/messaging"
)

// ActorDefinition describes one actor directory of a repository.
type ActorDefinition struct {
	directory string
	repoDir   string

	log      *slog.Logger
	launcher Launcher
	tags     *TagRegistry
	pub      events.Publisher
	timeout  time.Duration

	mu          sync.Mutex
	definitions map[DefinitionKind][]string
	discovery   *actor.Metadata
	loaded      []actor.Registration
	isLoaded    bool
}

// Option configures an ActorDefinition.
type Option func(*ActorDefinition)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *ActorDefinition) { d.log = l }
}

// WithLauncher sets how child processes are started. The default re-executes
// the current binary.
func WithLauncher(l Launcher) Option {
	return func(d *ActorDefinition) { d.launcher = l }
}

// WithTags sets the registry discovered actors join. Defaults to DefaultTags.
func WithTags(r *TagRegistry) Option {
	return func(d *ActorDefinition) { d.tags = r }
}

// WithPublisher publishes discovery and run events on pub.
func WithPublisher(pub events.Publisher) Option {
	return func(d *ActorDefinition) { d.pub = pub }
}

// WithTimeout bounds every child process; a child still running after d is
// killed. Zero, the default, waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(a *ActorDefinition) { a.timeout = d }
}

// NewActorDefinition returns the definition of the actor in directory,
// relative to the repository root repoDir.
func NewActorDefinition(directory, repoDir string, opts ...Option) *ActorDefinition {
	d := &ActorDefinition{
		directory:   directory,
		repoDir:     repoDir,
		log:         slog.Default(),
		launcher:    SelfLauncher,
		tags:        DefaultTags,
		pub:         &events.NoopPublisher{},
		definitions: map[DefinitionKind][]string{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Directory returns the repository-relative actor directory.
func (d *ActorDefinition) Directory() string { return d.directory }

// RepoDir returns the repository root.
func (d *ActorDefinition) RepoDir() string { return d.repoDir }

// FullPath returns the resolved absolute actor directory.
func (d *ActorDefinition) FullPath() string {
	return resolvePath(d.repoDir, d.directory)
}

func resolvePath(repoDir, dir string) string {
	p, err := filepath.Abs(filepath.Join(repoDir, dir))
	if err != nil {
		p = filepath.Join(repoDir, dir)
	}
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	return p
}

// Add records a resource of the actor. Only ActorKinds are accepted.
func (d *ActorDefinition) Add(kind DefinitionKind, path string) error {
	if !ActorKind(kind) {
		d.log.Error("attempt to add item type to actor that is not supported", "kind", kind, "directory", d.directory)
		return fmt.Errorf("actors do not support %s: %w", kind, ErrUnsupportedDefinitionKind)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.definitions[kind] = append(d.definitions[kind], path)
	return nil
}

func (d *ActorDefinition) resources(kind DefinitionKind) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.definitions[kind]...)
}

// Tools returns the actor-relative tool directories.
func (d *ActorDefinition) Tools() []string { return d.resources(KindTools) }

// Libraries returns the actor-relative library directories.
func (d *ActorDefinition) Libraries() []string { return d.resources(KindLibraries) }

// Files returns the actor-relative file directories.
func (d *ActorDefinition) Files() []string { return d.resources(KindFiles) }

// Tests returns the actor-relative test directories.
func (d *ActorDefinition) Tests() []string { return d.resources(KindTests) }

// Dump is the packaging view of a definition.
type Dump struct {
	Path      string   `json:"path"`
	Name      string   `json:"name"`
	Tools     []string `json:"tools"`
	Files     []string `json:"files"`
	Libraries []string `json:"libraries"`
	Tests     []string `json:"tests"`
}

// Dump returns the definition's resources. It discovers the actor for its
// name.
func (d *ActorDefinition) Dump(ctx context.Context) (Dump, error) {
	meta, err := d.Discover(ctx)
	if err != nil {
		return Dump{}, err
	}
	return Dump{
		Path:      d.directory,
		Name:      meta.Name,
		Tools:     d.Tools(),
		Files:     d.Files(),
		Libraries: d.Libraries(),
		Tests:     d.Tests(),
	}, nil
}

// Discover returns the actor's metadata, inspecting it in a child process
// on first use. Failures are not cached.
func (d *ActorDefinition) Discover(ctx context.Context) (actor.Metadata, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.discovery != nil {
		return *d.discovery, nil
	}

	d.log.Debug("discovery: starting actor inspection", "directory", d.directory)
	out, code, err := d.spawn(ctx, request{Mode: modeInspect, Definition: d.stateLocked()})
	switch {
	case err != nil:
		d.log.Error("discovery: inspecting actor failed", "directory", d.directory, "err", err)
		return actor.Metadata{}, &InspectionFailedError{Directory: d.directory, Err: err}
	case code != 0:
		d.log.Error("discovery: process inspecting actor failed", "directory", d.directory, "exit_code", code)
		return actor.Metadata{}, &InspectionFailedError{Directory: d.directory, ExitCode: code}
	case out == nil || len(out.Actors) == 0:
		d.log.Error("discovery: process inspecting actor returned no result", "directory", d.directory)
		return actor.Metadata{}, &InspectionFailedError{Directory: d.directory, NoResults: true}
	case len(out.Actors) > 1:
		d.log.Error("discovery: actor directory declares multiple actors", "directory", d.directory, "count", len(out.Actors))
		return actor.Metadata{}, &MultipleActorsError{Directory: d.directory}
	}

	meta := out.Actors[0]
	d.discovery = &meta
	for _, name := range meta.Tags {
		d.tags.Tag(name).add(d)
	}
	event := events.ActorDiscovered{Directory: d.directory, Name: meta.Name, ClassName: meta.ClassName, Tags: meta.Tags}
	d.publish(ctx, events.TopicActorDiscovered, event)
	return meta, nil
}

// Name returns the actor's name.
func (d *ActorDefinition) Name() (string, error) {
	meta, err := d.Discover(context.Background())
	return meta.Name, err
}

// ClassName returns the actor's implementation name.
func (d *ActorDefinition) ClassName() (string, error) {
	meta, err := d.Discover(context.Background())
	return meta.ClassName, err
}

// Description returns the actor's description.
func (d *ActorDefinition) Description() (string, error) {
	meta, err := d.Discover(context.Background())
	return meta.Description, err
}

// Dialogs returns the actor's dialogs.
func (d *ActorDefinition) Dialogs() ([]messaging.Dialog, error) {
	meta, err := d.Discover(context.Background())
	return meta.Dialogs, err
}

// Consumes returns the names of the schemas the actor consumes.
func (d *ActorDefinition) Consumes() ([]string, error) {
	meta, err := d.Discover(context.Background())
	return meta.Consumes, err
}

// Produces returns the names of the schemas the actor produces.
func (d *ActorDefinition) Produces() ([]string, error) {
	meta, err := d.Discover(context.Background())
	return meta.Produces, err
}

// Tags returns the names of the actor's tags.
func (d *ActorDefinition) Tags() ([]string, error) {
	meta, err := d.Discover(context.Background())
	return meta.Tags, err
}

// Load resolves the actor registrations of this directory inside an
// injected execution context on SharedNamespace. The result is memoized.
func (d *ActorDefinition) Load() ([]actor.Registration, error) {
	d.mu.Lock()
	if d.isLoaded {
		defer d.mu.Unlock()
		return d.loaded, nil
	}
	d.mu.Unlock()

	var regs []actor.Registration
	err := d.WithInjectedContext(SharedNamespace, func(*Injection) error {
		regs = d.matchingRegistrations()
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded, d.isLoaded = regs, true
	return regs, nil
}

func (d *ActorDefinition) matchingRegistrations() []actor.Registration {
	full := d.FullPath()
	var out []actor.Registration
	for _, r := range actor.Registrations() {
		if resolvePath(d.repoDir, r.Path) == full {
			out = append(out, r)
		}
	}
	return out
}

// definitionState is the by-value form of a definition sent to a child.
type definitionState struct {
	Directory   string                      `json:"directory"`
	RepoDir     string                      `json:"repo_dir"`
	Definitions map[DefinitionKind][]string `json:"definitions"`
	Discovery   *actor.Metadata             `json:"discovery,omitempty"`
}

func (d *ActorDefinition) stateLocked() definitionState {
	defs := make(map[DefinitionKind][]string, len(d.definitions))
	for k, v := range d.definitions {
		defs[k] = append([]string(nil), v...)
	}
	repo := d.repoDir
	if abs, err := filepath.Abs(repo); err == nil {
		repo = abs
	}
	return definitionState{Directory: d.directory, RepoDir: repo, Definitions: defs, Discovery: d.discovery}
}

func (d *ActorDefinition) state() definitionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked()
}

func definitionFromState(s definitionState, opts ...Option) *ActorDefinition {
	d := NewActorDefinition(s.Directory, s.RepoDir, opts...)
	for k, v := range s.Definitions {
		d.definitions[k] = append([]string(nil), v...)
	}
	d.discovery = s.Discovery
	return d
}
