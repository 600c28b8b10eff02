package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/alfredjeanlab/troupe/examples/sysinfo/actors/kernel"
	_ "github.com/alfredjeanlab/troupe/examples/sysinfo/actors/report"
	"github.com/alfredjeanlab/troupe/internal/config"
	"github.com/alfredjeanlab/troupe/internal/events"
	"github.com/alfredjeanlab/troupe/internal/logging"
	"github.com/alfredjeanlab/troupe/internal/repository"
	"github.com/alfredjeanlab/troupe/internal/ui"
)

var (
	repoDir    string
	jsonOutput bool
	noColor    bool

	cfg       *config.Config
	logSpec   logging.Spec
	logger    *slog.Logger
	publisher events.Publisher
)

var rootCmd = &cobra.Command{
	Use:           "troupe <command>",
	Short:         "Discover and run actors in isolated processes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			ui.SetColor(false)
		}
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if !cmd.Flags().Changed("repo") {
			repoDir = cfg.RepoDir
		}
		logSpec = logging.Spec{Level: cfg.LogLevel, Format: cfg.LogFormat}
		logger = logging.New(os.Stderr, logSpec)
		slog.SetDefault(logger)

		if err := loadSchemas(cfg.Schemas); err != nil {
			return err
		}
		if publisher, err = events.Connect(cfg.NATSURL); err != nil {
			return fmt.Errorf("connect event bus: %w", err)
		}
		if cfg.NATSURL != "" {
			logger.Debug("events enabled", "nats_url", cfg.NATSURL)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if publisher != nil {
			publisher.Close()
		}
	},
}

// definitions scans the repository with the CLI's collaborators.
func definitions() []*repository.ActorDefinition {
	opts := []repository.Option{
		repository.WithLogger(logger),
		repository.WithPublisher(publisher),
	}
	if cfg.RunTimeout > 0 {
		opts = append(opts, repository.WithTimeout(cfg.RunTimeout))
	}
	return repository.Scan(repoDir, opts...)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "repository root (default $TROUPE_REPO_DIR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "actors", Title: "Actors:"},
		&cobra.Group{ID: "models", Title: "Models:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Actors
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)

	// Models
	rootCmd.AddCommand(modelsCmd)

	// System
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(childCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error: "+err.Error()))
		os.Exit(1)
	}
}
