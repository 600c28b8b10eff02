// Package config loads troupe settings from an optional TOML file overlaid
// with TROUPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RepoDir   string   // TROUPE_REPO_DIR (default ".")
	Schemas   []string // TROUPE_SCHEMAS (comma separated YAML schema files)
	LogLevel  string   // TROUPE_LOG_LEVEL (default "info")
	LogFormat string   // TROUPE_LOG_FORMAT (default "text")
	NATSURL   string   // TROUPE_NATS_URL (optional, empty = no events)

	RunTimeout  time.Duration // TROUPE_RUN_TIMEOUT (default 0 = unbounded)
	ToolTimeout time.Duration // TROUPE_TOOL_TIMEOUT (default 10m)

	// Catalog export settings
	CatalogS3Bucket   string // TROUPE_CATALOG_S3_BUCKET (enables S3 when set)
	CatalogS3Endpoint string // TROUPE_CATALOG_S3_ENDPOINT (custom endpoint for MinIO)
	CatalogS3Region   string // TROUPE_CATALOG_S3_REGION (default "us-east-1")
	CatalogS3Prefix   string // TROUPE_CATALOG_S3_PREFIX (default "troupe"; the object is PREFIX/<repo>/actors.jsonl)
	CatalogGitRepo    string // TROUPE_CATALOG_GIT_REPO (enables git when set; path to clone)
	CatalogGitFile    string // TROUPE_CATALOG_GIT_FILE (default "actors.jsonl")
	CatalogGitBranch  string // TROUPE_CATALOG_GIT_BRANCH (default "main")
}

// fileConfig is the TOML layout of the file named by TROUPE_CONFIG.
type fileConfig struct {
	RepoDir     string   `toml:"repo_dir"`
	Schemas     []string `toml:"schemas"`
	LogLevel    string   `toml:"log_level"`
	LogFormat   string   `toml:"log_format"`
	NATSURL     string   `toml:"nats_url"`
	RunTimeout  string   `toml:"run_timeout"`
	ToolTimeout string   `toml:"tool_timeout"`
	Catalog     struct {
		S3Bucket   string `toml:"s3_bucket"`
		S3Endpoint string `toml:"s3_endpoint"`
		S3Region   string `toml:"s3_region"`
		S3Prefix   string `toml:"s3_prefix"`
		GitRepo    string `toml:"git_repo"`
		GitFile    string `toml:"git_file"`
		GitBranch  string `toml:"git_branch"`
	} `toml:"catalog"`
}

// Load reads the file named by TROUPE_CONFIG, if any, then applies the
// environment. Environment values win over the file; a missing file is not
// an error.
func Load() (*Config, error) {
	var f fileConfig
	if path := os.Getenv("TROUPE_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("TROUPE_CONFIG %s: %w", path, err)
		}
	}

	c := &Config{
		RepoDir:           envOrDefault("TROUPE_REPO_DIR", orDefault(f.RepoDir, ".")),
		Schemas:           f.Schemas,
		LogLevel:          envOrDefault("TROUPE_LOG_LEVEL", orDefault(f.LogLevel, "info")),
		LogFormat:         envOrDefault("TROUPE_LOG_FORMAT", orDefault(f.LogFormat, "text")),
		NATSURL:           envOrDefault("TROUPE_NATS_URL", f.NATSURL),
		CatalogS3Bucket:   envOrDefault("TROUPE_CATALOG_S3_BUCKET", f.Catalog.S3Bucket),
		CatalogS3Endpoint: envOrDefault("TROUPE_CATALOG_S3_ENDPOINT", f.Catalog.S3Endpoint),
		CatalogS3Region:   envOrDefault("TROUPE_CATALOG_S3_REGION", orDefault(f.Catalog.S3Region, "us-east-1")),
		CatalogS3Prefix:   envOrDefault("TROUPE_CATALOG_S3_PREFIX", orDefault(f.Catalog.S3Prefix, "troupe")),
		CatalogGitRepo:    envOrDefault("TROUPE_CATALOG_GIT_REPO", f.Catalog.GitRepo),
		CatalogGitFile:    envOrDefault("TROUPE_CATALOG_GIT_FILE", orDefault(f.Catalog.GitFile, "actors.jsonl")),
		CatalogGitBranch:  envOrDefault("TROUPE_CATALOG_GIT_BRANCH", orDefault(f.Catalog.GitBranch, "main")),
	}
	if v := os.Getenv("TROUPE_SCHEMAS"); v != "" {
		c.Schemas = splitList(v)
	}

	var err error
	if c.RunTimeout, err = parseDuration("TROUPE_RUN_TIMEOUT", envOrDefault("TROUPE_RUN_TIMEOUT", f.RunTimeout)); err != nil {
		return nil, err
	}
	if c.ToolTimeout, err = parseDuration("TROUPE_TOOL_TIMEOUT", envOrDefault("TROUPE_TOOL_TIMEOUT", orDefault(f.ToolTimeout, "10m"))); err != nil {
		return nil, err
	}
	return c, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
