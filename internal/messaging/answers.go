package messaging

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// Dialog is a set of questions an actor may ask. Answers are looked up by
// Scope in the answer file, one TOML table per scope.
type Dialog struct {
	Scope      string      `json:"scope"`
	Title      string      `json:"title,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Components []Component `json:"components,omitempty"`
}

// Component is one question of a Dialog.
type Component struct {
	Key         string `json:"key"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Answers maps dialog scopes to their answers.
type Answers map[string]map[string]any

// LoadAnswers reads an answer file:
//
//	[remove_pam_pkcs11_module_check]
//	confirm = true
func LoadAnswers(path string) (Answers, error) {
	var a Answers
	if _, err := toml.DecodeFile(path, &a); err != nil {
		return nil, fmt.Errorf("loading answers from %s: %w", path, err)
	}
	return a, nil
}

// resolve returns the defaults of d overlaid with the stored answers for its
// scope, and the keys that still have no value.
func (a Answers) resolve(d Dialog) (map[string]any, []string) {
	out := make(map[string]any, len(d.Components))
	stored := a[d.Scope]
	var unanswered []string
	for _, c := range d.Components {
		if v, ok := stored[c.Key]; ok {
			out[c.Key] = v
			continue
		}
		if c.Default != nil {
			out[c.Key] = c.Default
			continue
		}
		unanswered = append(unanswered, c.Key)
	}
	sort.Strings(unanswered)
	return out, unanswered
}

func (a Answers) clone() Answers {
	out := make(Answers, len(a))
	for scope, m := range a {
		cp := make(map[string]any, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[scope] = cp
	}
	return out
}
