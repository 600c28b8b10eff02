package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/troupe/internal/actor"
	"github.com/alfredjeanlab/troupe/internal/repository"
	"github.com/alfredjeanlab/troupe/internal/ui"
)

type discovered struct {
	Directory string          `json:"directory"`
	Actor     *actor.Metadata `json:"actor,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// selectDefinitions narrows defs to the given directories, keeping all of
// them when dirs is empty.
func selectDefinitions(defs []*repository.ActorDefinition, dirs []string) ([]*repository.ActorDefinition, error) {
	if len(dirs) == 0 {
		return defs, nil
	}
	byDir := make(map[string]*repository.ActorDefinition, len(defs))
	for _, d := range defs {
		byDir[d.Directory()] = d
	}
	var out []*repository.ActorDefinition
	for _, dir := range dirs {
		d, ok := byDir[strings.TrimSuffix(dir, "/")]
		if !ok {
			return nil, fmt.Errorf("no registered actor in %s", dir)
		}
		out = append(out, d)
	}
	return out, nil
}

var discoverCmd = &cobra.Command{
	Use:     "discover [directory...]",
	Short:   "Inspect actors and print their metadata",
	GroupID: "actors",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := selectDefinitions(definitions(), args)
		if err != nil {
			return err
		}
		tag, _ := cmd.Flags().GetString("tag")

		ctx := context.Background()
		var results []discovered
		failed := 0
		for _, d := range defs {
			r := discovered{Directory: d.Directory()}
			meta, err := d.Discover(ctx)
			if err != nil {
				r.Error = err.Error()
				failed++
			} else {
				if tag != "" && !hasTag(meta, tag) {
					continue
				}
				r.Actor = &meta
			}
			results = append(results, r)
		}

		if jsonOutput {
			if err := printJSON(results); err != nil {
				return err
			}
		} else {
			printDiscovered(results)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d actors failed discovery", failed, len(defs))
		}
		return nil
	},
}

func hasTag(meta actor.Metadata, tag string) bool {
	for _, t := range meta.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func printDiscovered(results []discovered) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCLASS\tTAGS\tCONSUMES\tPRODUCES\tDIRECTORY")
	for _, r := range results {
		if r.Actor == nil {
			fmt.Fprintf(w, "%s\t\t\t\t\t%s\n", ui.RenderError("(failed)"), ui.RenderMuted(r.Directory))
			continue
		}
		a := r.Actor
		tags := make([]string, len(a.Tags))
		for i, t := range a.Tags {
			tags[i] = ui.RenderTag(t)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ui.RenderName(a.Name),
			a.ClassName,
			strings.Join(tags, ","),
			strings.Join(a.Consumes, ","),
			strings.Join(a.Produces, ","),
			ui.RenderMuted(r.Directory),
		)
	}
	w.Flush()
	for _, r := range results {
		if r.Error != "" {
			warnf("%s: %s", r.Directory, r.Error)
		}
	}
}

func init() {
	discoverCmd.Flags().String("tag", "", "only show actors carrying this tag")
}
