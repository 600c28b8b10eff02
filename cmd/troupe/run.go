package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/troupe/internal/messaging"
	"github.com/alfredjeanlab/troupe/internal/model"
	"github.com/alfredjeanlab/troupe/internal/repository"
	"github.com/alfredjeanlab/troupe/internal/ui"
)

// parseFeed splits a --feed value of the form MODEL=FILE.
func parseFeed(v string) (string, string, error) {
	name, path, ok := strings.Cut(v, "=")
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("invalid --feed %q, want MODEL=FILE", v)
	}
	return name, path, nil
}

func feedFile(m *messaging.InProcess, v string) error {
	name, path, err := parseFeed(v)
	if err != nil {
		return err
	}
	s, err := model.Resolve(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	inst, err := s.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = m.Feed("troupe-cli", inst)
	return err
}

func findActor(defs []*repository.ActorDefinition, name string) (*repository.ActorDefinition, error) {
	for _, d := range defs {
		if d.Directory() == strings.TrimSuffix(name, "/") {
			return d, nil
		}
		if n, err := d.Name(); err == nil && n == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("actor %s not found in %s", name, repoDir)
}

var runCmd = &cobra.Command{
	Use:     "run <actor> [arg...]",
	Short:   "Run an actor in an isolated process",
	GroupID: "actors",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feeds, _ := cmd.Flags().GetStringArray("feed")
		answersPath, _ := cmd.Flags().GetString("answers")
		configModel, _ := cmd.Flags().GetString("config-model")
		commonFiles, _ := cmd.Flags().GetStringSlice("common-files")
		commonTools, _ := cmd.Flags().GetStringSlice("common-tools")

		d, err := findActor(definitions(), args[0])
		if err != nil {
			return err
		}

		opts := []messaging.Option{messaging.WithPublisher(publisher), messaging.WithLogger(logger)}
		if answersPath != "" {
			answers, err := messaging.LoadAnswers(answersPath)
			if err != nil {
				return err
			}
			opts = append(opts, messaging.WithAnswers(answers))
		}
		m := messaging.New(opts...)
		for _, f := range feeds {
			if err := feedFile(m, f); err != nil {
				return err
			}
		}

		call := repository.CallOptions{
			Logging:     logSpec,
			Messaging:   m,
			ToolTimeout: cfg.ToolTimeout,
			CommonFiles: commonFiles,
			CommonTools: commonTools,
		}
		if configModel != "" {
			if call.Config, err = model.Resolve(configModel); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		callArgs := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			callArgs = append(callArgs, a)
		}
		if err := d.Call(call).Run(ctx, callArgs...); err != nil {
			return err
		}
		return printRun(m)
	},
}

type runResult struct {
	Produced []messaging.Message `json:"produced"`
	Errors   []messaging.Message `json:"errors"`
}

func printRun(m *messaging.InProcess) error {
	res := runResult{Produced: m.Messages(), Errors: m.Errors()}
	if jsonOutput {
		return printJSON(res)
	}
	for _, msg := range res.Produced {
		fmt.Printf("%s %s %s\n", ui.RenderName(msg.Type), ui.RenderMuted("from "+msg.Actor), msg.Message.Data)
	}
	for _, msg := range res.Errors {
		var data map[string]any
		_ = json.Unmarshal([]byte(msg.Message.Data), &data)
		fmt.Printf("%s [%v] %v\n", ui.RenderError("error"), data["severity"], data["message"])
	}
	fmt.Printf("\n%d messages, %d errors\n", len(res.Produced), len(res.Errors))
	return nil
}

func init() {
	runCmd.Flags().StringArray("feed", nil, "make a message available to the actor, as MODEL=FILE (repeatable)")
	runCmd.Flags().String("answers", "", "TOML file with dialog answers")
	runCmd.Flags().String("config-model", "", "model of the configuration message handed to the actor")
	runCmd.Flags().StringSlice("common-files", nil, "common files directories")
	runCmd.Flags().StringSlice("common-tools", nil, "common tools directories")
}
