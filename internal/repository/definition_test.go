package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"reflect"
	"testing"

	"github.com/alfredjeanlab/troupe/internal/events"
)

func TestAdd_Kinds(t *testing.T) {
	d := newDefinition(t.TempDir(), "actors/single")
	for _, k := range []DefinitionKind{KindTools, KindLibraries, KindFiles, KindTests} {
		if err := d.Add(k, string(k)); err != nil {
			t.Errorf("Add(%s): %v", k, err)
		}
	}
	for _, k := range []DefinitionKind{KindActors, KindModels, KindTopics, KindTags, KindWorkflows} {
		if err := d.Add(k, "x"); !errors.Is(err, ErrUnsupportedDefinitionKind) {
			t.Errorf("Add(%s) = %v, want ErrUnsupportedDefinitionKind", k, err)
		}
	}
	if got := d.Tools(); !reflect.DeepEqual(got, []string{"tools"}) {
		t.Errorf("Tools = %v", got)
	}
	if got := d.Tests(); !reflect.DeepEqual(got, []string{"tests"}) {
		t.Errorf("Tests = %v", got)
	}
}

func TestDiscover(t *testing.T) {
	repo := newRepo(t, "actors/single/libraries")
	tags := NewTagRegistry()
	pub := &recordingPublisher{}
	d := newDefinition(repo, "actors/single", WithTags(tags), WithPublisher(pub))
	if err := d.Add(KindLibraries, "libraries"); err != nil {
		t.Fatal(err)
	}

	meta, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if meta.Name != "doubler" || meta.ClassName != "Doubler" {
		t.Errorf("meta = %+v", meta)
	}
	if !reflect.DeepEqual(meta.Consumes, []string{"RepoTestNumber"}) {
		t.Errorf("Consumes = %v", meta.Consumes)
	}
	if !reflect.DeepEqual(meta.Produces, []string{"RepoTestResult"}) {
		t.Errorf("Produces = %v", meta.Produces)
	}

	// Memoized: a broken launcher is never reached again.
	d.launcher = func(context.Context) (*exec.Cmd, error) { return nil, errors.New("spawned twice") }
	name, err := d.Name()
	if err != nil || name != "doubler" {
		t.Errorf("Name = %q, %v", name, err)
	}
	tagNames, _ := d.Tags()
	if !reflect.DeepEqual(tagNames, []string{"RepoTestTag", "OtherTag"}) {
		t.Errorf("Tags = %v", tagNames)
	}

	for _, n := range []string{"RepoTestTag", "OtherTag"} {
		members := tags.Tag(n).Actors()
		if len(members) != 1 || members[0] != d {
			t.Errorf("tag %s members = %v", n, members)
		}
	}
	if tags.Tag("RepoTestTag").add(d) {
		t.Error("adding a member twice should be a no-op")
	}
	if got := pub.count(events.TopicActorDiscovered); got != 1 {
		t.Errorf("discovered events = %d, want 1", got)
	}
}

func TestDiscover_Failures(t *testing.T) {
	tests := []struct {
		dir   string
		check func(t *testing.T, err error)
	}{
		{"actors/multi", func(t *testing.T, err error) {
			var e *MultipleActorsError
			if !errors.As(err, &e) || e.Directory != "actors/multi" {
				t.Errorf("err = %v, want MultipleActorsError", err)
			}
		}},
		{"actors/lint", func(t *testing.T, err error) {
			var e *InspectionFailedError
			if !errors.As(err, &e) || e.ExitCode != 1 || e.NoResults {
				t.Errorf("err = %v, want exit code 1 inspection failure", err)
			}
		}},
		{"actors/empty", func(t *testing.T, err error) {
			var e *InspectionFailedError
			if !errors.As(err, &e) || !e.NoResults {
				t.Errorf("err = %v, want no results inspection failure", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			tags := NewTagRegistry()
			d := newDefinition(newRepo(t, tt.dir), tt.dir, WithTags(tags))
			_, err := d.Discover(context.Background())
			tt.check(t, err)
			if got := tags.Names(); len(got) != 0 {
				t.Errorf("failed discovery registered tags %v", got)
			}
		})
	}
}

func TestDump(t *testing.T) {
	d := newDefinition(newRepo(t, "actors/single"), "actors/single")
	d.Add(KindTools, "tools")
	d.Add(KindFiles, "files")

	dump, err := d.Dump(context.Background())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	raw, err := json.Marshal(dump)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"path", "name", "tools", "files", "libraries", "tests"} {
		if _, ok := got[k]; !ok {
			t.Errorf("dump lacks %q: %s", k, raw)
		}
	}
	if dump.Name != "doubler" || dump.Path != "actors/single" {
		t.Errorf("dump = %+v", dump)
	}
}

func TestLoad(t *testing.T) {
	d := newDefinition(newRepo(t, "actors/multi"), "actors/multi")
	regs, err := d.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(regs) != 2 || regs[0].Name != "first" || regs[1].Name != "second" {
		t.Errorf("Load = %v", regs)
	}
}
