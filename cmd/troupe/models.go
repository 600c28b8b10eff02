package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/troupe/internal/model"
	"github.com/alfredjeanlab/troupe/internal/ui"
)

// loadSchemas parses the declarative schema files and registers every
// model they declare.
func loadSchemas(paths []string) error {
	for _, p := range paths {
		schemas, err := readSchemas(p)
		if err != nil {
			return err
		}
		for _, s := range schemas {
			model.Register(s)
		}
	}
	return nil
}

func readSchemas(path string) ([]*model.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schemas: %w", err)
	}
	defer f.Close()
	schemas, err := model.LoadSchemas(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

type modelSummary struct {
	Name   string         `json:"name"`
	Topic  string         `json:"topic,omitempty"`
	Fields []fieldSummary `json:"fields"`
}

type fieldSummary struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Required bool   `json:"required,omitempty"`
	Null     bool   `json:"allow_null,omitempty"`
	Help     string `json:"help"`
}

func summarize(s *model.Schema) modelSummary {
	out := modelSummary{Name: s.Name(), Topic: s.Topic()}
	for _, a := range s.Attrs() {
		o := a.Field.Options()
		out.Fields = append(out.Fields, fieldSummary{
			Name:     a.Name,
			Kind:     a.Field.Kind(),
			Required: o.Required,
			Null:     o.AllowNull,
			Help:     model.HelpOf(a.Field),
		})
	}
	return out
}

var modelsCmd = &cobra.Command{
	Use:     "models",
	Short:   "Inspect message models",
	GroupID: "models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var summaries []modelSummary
		for _, name := range model.Registered() {
			s, _ := model.Lookup(name)
			summaries = append(summaries, summarize(s))
		}
		if jsonOutput {
			return printJSON(summaries)
		}
		printModels(summaries)
		return nil
	},
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Validate declarative model files (default $TROUPE_SCHEMAS)",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			paths = cfg.Schemas
		}
		if len(paths) == 0 {
			return fmt.Errorf("no model files given and TROUPE_SCHEMAS is empty")
		}
		var summaries []modelSummary
		for _, p := range paths {
			schemas, err := readSchemas(p)
			if err != nil {
				return err
			}
			for _, s := range schemas {
				summaries = append(summaries, summarize(s))
			}
		}
		if jsonOutput {
			return printJSON(summaries)
		}
		printModels(summaries)
		fmt.Printf("\n%d models OK\n", len(summaries))
		return nil
	},
}

func printModels(summaries []modelSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tFIELD\tKIND\tFLAGS")
	for _, s := range summaries {
		for _, f := range s.Fields {
			var flags []string
			if f.Required {
				flags = append(flags, "required")
			}
			if f.Null {
				flags = append(flags, "nullable")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ui.RenderName(s.Name), f.Name, f.Kind, strings.Join(flags, ","))
		}
	}
	w.Flush()
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsCheckCmd)
}
