package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config locates the catalog object. Several repositories can share a
// bucket: each writes PREFIX/<repository name>/actors.jsonl.
type S3Config struct {
	Bucket     string
	Prefix     string
	Repository string // repository root; its base name partitions the bucket
	Region     string
	// Endpoint switches to path-style addressing (MinIO and similar).
	Endpoint string
}

// S3Destination writes the catalog to an S3-compatible bucket.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string
	repo   string
}

func NewS3Destination(ctx context.Context, c S3Config) (*S3Destination, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 catalog: bucket is required")
	}
	repo, err := repositoryName(c.Repository)
	if err != nil {
		return nil, err
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{
		client: client,
		bucket: c.Bucket,
		key:    path.Join(c.Prefix, repo, "actors.jsonl"),
		repo:   repo,
	}, nil
}

func repositoryName(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("s3 catalog: resolve repository %s: %w", dir, err)
	}
	name := filepath.Base(abs)
	if name == string(filepath.Separator) || name == "." {
		return "", fmt.Errorf("s3 catalog: repository %s has no usable name", abs)
	}
	return name, nil
}

// Key is the object key the catalog is written to.
func (d *S3Destination) Key() string { return d.key }

// Write uploads an ExportJSONL export. The repository name and the header's
// actor count are attached as object metadata.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	meta := map[string]string{"repository": d.repo}
	if n, ok := actorCount(data); ok {
		meta["actor-count"] = strconv.Itoa(n)
	}
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s/%s: %w", d.bucket, d.key, err)
	}
	return nil
}

// actorCount reads the header record on the first line of an export.
func actorCount(data []byte) (int, bool) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(nil, len(data)+1)
	if !sc.Scan() {
		return 0, false
	}
	var h header
	if err := json.Unmarshal(sc.Bytes(), &h); err != nil || h.Type != "header" {
		return 0, false
	}
	return h.ActorCount, true
}
