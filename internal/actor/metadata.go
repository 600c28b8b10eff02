package actor

import (
	"errors"
	"fmt"

	"github.com/alfredjeanlab/troupe/internal/messaging"
)

const defaultDescription = "There has been no description provided for this actor."

var (
	ErrMissingAttribute   = errors.New("missing actor attribute")
	ErrWrongAttributeType = errors.New("wrong actor attribute type")
)

// Metadata is the discovery record of an actor.
type Metadata struct {
	Name        string             `json:"name"`
	ClassName   string             `json:"class_name"`
	Description string             `json:"description"`
	Path        string             `json:"path"`
	Tags        []string           `json:"tags"`
	Consumes    []string           `json:"consumes"`
	Produces    []string           `json:"produces"`
	Dialogs     []messaging.Dialog `json:"dialogs"`
}

// MetadataOf checks r and returns its discovery record.
func MetadataOf(r Registration) (Metadata, error) {
	who := r.ClassName
	if who == "" {
		who = r.Name
	}
	if r.ClassName == "" {
		return Metadata{}, fmt.Errorf("actor %s: class_name: %w", who, ErrMissingAttribute)
	}
	if r.Name == "" {
		return Metadata{}, fmt.Errorf("actor %s: name: %w", who, ErrMissingAttribute)
	}
	if r.New == nil {
		return Metadata{}, fmt.Errorf("actor %s: constructor: %w", who, ErrMissingAttribute)
	}
	if len(r.Tags) == 0 {
		return Metadata{}, fmt.Errorf("actor %s: tags should contain at least one item: %w", who, ErrWrongAttributeType)
	}
	for _, t := range r.Tags {
		if t == "" {
			return Metadata{}, fmt.Errorf("actor %s: tags should contain only named tags: %w", who, ErrWrongAttributeType)
		}
	}

	m := Metadata{
		Name:        r.Name,
		ClassName:   r.ClassName,
		Description: r.Description,
		Path:        r.Path,
		Tags:        append([]string(nil), r.Tags...),
		Consumes:    []string{},
		Produces:    []string{},
		Dialogs:     []messaging.Dialog{},
	}
	if m.Description == "" {
		m.Description = defaultDescription
	}
	for _, s := range r.Consumes {
		if s == nil {
			return Metadata{}, fmt.Errorf("actor %s: consumes should contain only schemas: %w", who, ErrWrongAttributeType)
		}
		m.Consumes = append(m.Consumes, s.Name())
	}
	for _, s := range r.Produces {
		if s == nil {
			return Metadata{}, fmt.Errorf("actor %s: produces should contain only schemas: %w", who, ErrWrongAttributeType)
		}
		m.Produces = append(m.Produces, s.Name())
	}
	for _, d := range r.Dialogs {
		if d.Scope == "" {
			return Metadata{}, fmt.Errorf("actor %s: dialogs should have a scope: %w", who, ErrWrongAttributeType)
		}
		m.Dialogs = append(m.Dialogs, d)
	}
	return m, nil
}
