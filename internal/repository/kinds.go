package repository

// DefinitionKind is a kind of resource found in a repository.
type DefinitionKind string

const (
	KindActors    DefinitionKind = "actors"
	KindFiles     DefinitionKind = "files"
	KindLibraries DefinitionKind = "libraries"
	KindModels    DefinitionKind = "models"
	KindTags      DefinitionKind = "tags"
	KindTests     DefinitionKind = "tests"
	KindTools     DefinitionKind = "tools"
	KindTopics    DefinitionKind = "topics"
	KindWorkflows DefinitionKind = "workflows"
)

var (
	// ActorKinds are the resources an actor may carry.
	ActorKinds = []DefinitionKind{KindTools, KindLibraries, KindFiles, KindTests}

	// RepositoryKinds are the resources a repository may carry.
	RepositoryKinds = []DefinitionKind{KindActors, KindFiles, KindLibraries, KindModels, KindTags, KindTools, KindTopics, KindWorkflows}
)

// ActorKind reports whether actors may carry k.
func ActorKind(k DefinitionKind) bool {
	for _, a := range ActorKinds {
		if a == k {
			return true
		}
	}
	return false
}
