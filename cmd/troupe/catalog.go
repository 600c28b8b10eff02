package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/troupe/internal/catalog"
	"github.com/alfredjeanlab/troupe/internal/config"
)

var catalogCmd = &cobra.Command{
	Use:     "catalog",
	Short:   "Export the actor catalog",
	GroupID: "system",
}

// catalogDestinations returns the destinations enabled in c.
func catalogDestinations(ctx context.Context, c *config.Config) ([]catalog.Destination, error) {
	var dests []catalog.Destination
	if c.CatalogS3Bucket != "" {
		s3, err := catalog.NewS3Destination(ctx, catalog.S3Config{
			Bucket:     c.CatalogS3Bucket,
			Prefix:     c.CatalogS3Prefix,
			Repository: repoDir,
			Region:     c.CatalogS3Region,
			Endpoint:   c.CatalogS3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		dests = append(dests, s3)
		logger.Info("catalog destination enabled", "type", "s3", "bucket", c.CatalogS3Bucket, "key", s3.Key())
	}
	if c.CatalogGitRepo != "" {
		dests = append(dests, catalog.NewGitDestination(c.CatalogGitRepo, c.CatalogGitFile, c.CatalogGitBranch))
		logger.Info("catalog destination enabled", "type", "git", "repo", c.CatalogGitRepo, "file", c.CatalogGitFile)
	}
	return dests, nil
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Discover every actor and export the catalog as JSONL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		toStdout, _ := cmd.Flags().GetBool("stdout")
		ctx := context.Background()

		var defs []catalog.Definition
		for _, d := range definitions() {
			defs = append(defs, d)
		}

		dests, err := catalogDestinations(ctx, cfg)
		if err != nil {
			return err
		}
		if toStdout || len(dests) == 0 {
			if len(dests) == 0 && !toStdout {
				warnf("no catalog destination configured, writing to stdout")
			}
			return catalog.ExportJSONL(ctx, defs, os.Stdout)
		}
		if err := catalog.Publish(ctx, defs, dests, logger); err != nil {
			return fmt.Errorf("publish catalog: %w", err)
		}
		return nil
	},
}

func init() {
	catalogExportCmd.Flags().Bool("stdout", false, "write the catalog to stdout instead of the configured destinations")
	catalogCmd.AddCommand(catalogExportCmd)
}
