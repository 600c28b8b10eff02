// Package catalog exports the actors of a repository as JSONL and ships the
// export to S3 or a git clone.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/troupe/internal/actor"
	"github.com/alfredjeanlab/troupe/internal/messaging"
	"github.com/alfredjeanlab/troupe/internal/repository"
)

// Definition is the part of a repository.ActorDefinition the export reads.
type Definition interface {
	Directory() string
	Discover(ctx context.Context) (actor.Metadata, error)
	Dump(ctx context.Context) (repository.Dump, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	ActorCount int       `json:"actor_count"`
	Tags       []string  `json:"tags"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Entry is the catalog record of one actor.
type Entry struct {
	repository.Dump
	ClassName   string             `json:"class_name"`
	Description string             `json:"description"`
	Tags        []string           `json:"tags"`
	Consumes    []string           `json:"consumes"`
	Produces    []string           `json:"produces"`
	Dialogs     []messaging.Dialog `json:"dialogs,omitempty"`
}

// ExportJSONL discovers every definition and writes the catalog to w:
// a header, then one actor record per definition sorted by directory.
func ExportJSONL(ctx context.Context, defs []Definition, w io.Writer) error {
	sorted := append([]Definition(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Directory() < sorted[j].Directory()
	})

	entries := make([]Entry, 0, len(sorted))
	tagSet := map[string]struct{}{}
	for _, d := range sorted {
		meta, err := d.Discover(ctx)
		if err != nil {
			return fmt.Errorf("discover %s: %w", d.Directory(), err)
		}
		dump, err := d.Dump(ctx)
		if err != nil {
			return fmt.Errorf("dump %s: %w", d.Directory(), err)
		}
		e := Entry{
			Dump:        dump,
			ClassName:   meta.ClassName,
			Description: meta.Description,
			Tags:        meta.Tags,
			Consumes:    meta.Consumes,
			Produces:    meta.Produces,
			Dialogs:     meta.Dialogs,
		}
		for _, t := range meta.Tags {
			tagSet[t] = struct{}{}
		}
		entries = append(entries, e)
	}

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		ActorCount: len(entries),
		Tags:       tags,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, e := range entries {
		if err := enc.Encode(record{Type: "actor", Data: e}); err != nil {
			return fmt.Errorf("encode actor %s: %w", e.Path, err)
		}
	}
	return nil
}
