package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/troupe/internal/config"
	"github.com/alfredjeanlab/troupe/internal/repository"
)

// childCmd is the entry point of actor child processes started by
// repository.SelfLauncher.
var childCmd = &cobra.Command{
	Use:    repository.ChildCommand,
	Hidden: true,
	Args:   cobra.NoArgs,
	// The child reports through its pipes; skip the root setup but keep the
	// declarative schemas the parent knows about.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	PersistentPostRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		if c, err := config.Load(); err == nil {
			if err := loadSchemas(c.Schemas); err != nil {
				fmt.Fprintf(os.Stderr, "troupe: %v\n", err)
				os.Exit(1)
			}
		}
		os.Exit(repository.ServeChild())
	},
}
