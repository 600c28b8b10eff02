package repository

import "testing"

func TestTagRegistry(t *testing.T) {
	r := NewTagRegistry()
	a := r.Tag("FactsPhaseTag")
	if r.Tag("FactsPhaseTag") != a {
		t.Fatal("Tag should return the same tag for a name")
	}
	r.Tag("ChecksPhaseTag")
	if got := r.Names(); len(got) != 2 || got[0] != "ChecksPhaseTag" || got[1] != "FactsPhaseTag" {
		t.Errorf("Names = %v", got)
	}

	d := NewActorDefinition("actors/a", t.TempDir())
	if !a.add(d) {
		t.Error("first add should report a new member")
	}
	if a.add(d) {
		t.Error("second add should be a no-op")
	}
	if got := a.Actors(); len(got) != 1 {
		t.Errorf("Actors = %d, want 1", len(got))
	}
}

func TestActorKind(t *testing.T) {
	for _, k := range RepositoryKinds {
		want := k == KindTools || k == KindLibraries || k == KindFiles
		if got := ActorKind(k); got != want {
			t.Errorf("ActorKind(%s) = %v, want %v", k, got, want)
		}
	}
	if !ActorKind(KindTests) {
		t.Error("tests are an actor kind")
	}
}
