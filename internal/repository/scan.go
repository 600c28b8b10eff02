package repository

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/alfredjeanlab/troupe/internal/actor"
)

// Scan returns a definition for every registered actor directory that
// exists under repoDir, sorted by directory. Each definition carries the
// actor resource directories (tools, libraries, files, tests) found in it.
func Scan(repoDir string, opts ...Option) []*ActorDefinition {
	seen := map[string]struct{}{}
	var dirs []string
	for _, r := range actor.Registrations() {
		dir := filepath.Clean(r.Path)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		if info, err := os.Stat(filepath.Join(repoDir, dir)); err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	defs := make([]*ActorDefinition, 0, len(dirs))
	for _, dir := range dirs {
		d := NewActorDefinition(dir, repoDir, opts...)
		for _, kind := range ActorKinds {
			if info, err := os.Stat(filepath.Join(repoDir, dir, string(kind))); err == nil && info.IsDir() {
				d.Add(kind, string(kind))
			}
		}
		defs = append(defs, d)
	}
	return defs
}
