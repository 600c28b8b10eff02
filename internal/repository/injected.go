package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alfredjeanlab/troupe/internal/actor"
)

// injection serializes injected execution contexts within the process.
var injection sync.Mutex

type envBackup struct {
	key   string
	value string
	had   bool
}

type moduleBackup struct {
	name  string
	value any
	had   bool
}

// Injection is an active injected execution context: the actor's tools on
// PATH, the files and tools markers set, its libraries in a namespace and
// the working directory moved into the actor directory. Restore reverts all
// of it.
type Injection struct {
	def  *ActorDefinition
	ns   *Namespace
	libs actor.Libraries

	env      []envBackup
	symbols  map[string]struct{}
	modules  []moduleBackup
	prevDir  string
	restored bool
}

// Inject enters the injected execution context of d on ns. Only one context
// may be active per process; a second Inject fails with ErrInjectionActive
// until the first is restored.
func (d *ActorDefinition) Inject(ns *Namespace) (*Injection, error) {
	if !injection.TryLock() {
		return nil, ErrInjectionActive
	}
	inj := &Injection{def: d, ns: ns}
	if err := inj.enter(); err != nil {
		inj.Restore()
		return nil, err
	}
	return inj, nil
}

// WithInjectedContext runs fn inside the injected execution context of d.
// The context is restored when fn returns or panics.
func (d *ActorDefinition) WithInjectedContext(ns *Namespace, fn func(*Injection) error) error {
	inj, err := d.Inject(ns)
	if err != nil {
		return err
	}
	defer inj.Restore()
	return fn(inj)
}

func (inj *Injection) enter() error {
	d := inj.def
	full := d.FullPath()
	tools := absolute(full, d.Tools())
	files := absolute(full, d.Files())

	inj.backupEnv("PATH", actor.ToolsEnv, actor.FilesEnv)
	if len(tools) > 0 {
		path := os.Getenv("PATH")
		parts := append([]string{}, tools...)
		if path != "" {
			parts = append([]string{path}, parts...)
		}
		os.Setenv("PATH", strings.Join(parts, string(os.PathListSeparator)))
		os.Setenv(actor.ToolsEnv, tools[0])
	}
	if len(files) > 0 {
		os.Setenv(actor.FilesEnv, files[0])
	}

	inj.symbols = inj.ns.snapshot()
	libs := map[string]any{}
	for _, dir := range d.Libraries() {
		declared := actor.LibrariesIn(filepath.Join(d.directory, dir))
		for _, name := range declared.Names() {
			lib, _ := declared.Get(name)
			libs[name] = lib
			inj.ns.setSymbol(name, lib)
			prev, had := inj.ns.swapModule(ModulePrefix+name, lib)
			inj.modules = append(inj.modules, moduleBackup{name: ModulePrefix + name, value: prev, had: had})
		}
	}
	inj.libs = actor.NewLibraries(libs)

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	inj.prevDir = wd
	if err := os.Chdir(full); err != nil {
		inj.prevDir = ""
		return fmt.Errorf("enter actor directory: %w", err)
	}
	return nil
}

func (inj *Injection) backupEnv(keys ...string) {
	for _, k := range keys {
		v, had := os.LookupEnv(k)
		inj.env = append(inj.env, envBackup{key: k, value: v, had: had})
	}
}

// Libraries returns the libraries injected for the actor.
func (inj *Injection) Libraries() actor.Libraries { return inj.libs }

// Restore reverts the context. It is safe to call more than once.
func (inj *Injection) Restore() {
	if inj.restored {
		return
	}
	inj.restored = true
	defer injection.Unlock()

	if inj.prevDir != "" {
		if err := os.Chdir(inj.prevDir); err != nil {
			inj.def.log.Error("injected context: restore working directory", "dir", inj.prevDir, "err", err)
		}
	}
	for _, b := range inj.env {
		if b.had {
			os.Setenv(b.key, b.value)
		} else {
			os.Unsetenv(b.key)
		}
	}
	if inj.symbols != nil {
		inj.ns.dropAddedSince(inj.symbols)
	}
	for i := len(inj.modules) - 1; i >= 0; i-- {
		b := inj.modules[i]
		if b.had {
			inj.ns.SetModule(b.name, b.value)
		} else {
			inj.ns.removeModule(b.name)
		}
	}
}

func absolute(base string, rel []string) []string {
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		if filepath.IsAbs(r) {
			out = append(out, filepath.Clean(r))
			continue
		}
		out = append(out, filepath.Join(base, r))
	}
	return out
}
