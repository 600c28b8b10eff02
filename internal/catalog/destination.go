package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Destination is a catalog target (S3, git, etc.).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Publish exports defs once and writes the result to every destination.
// A failing destination does not stop the others; their errors are joined.
func Publish(ctx context.Context, defs []Definition, dests []Destination, logger *slog.Logger) error {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, defs, &buf); err != nil {
		return fmt.Errorf("catalog export: %w", err)
	}
	data := buf.Bytes()

	var errs []error
	for i, dest := range dests {
		if err := dest.Write(ctx, data); err != nil {
			logger.Error("catalog destination write failed", "destination", i, "err", err)
			errs = append(errs, err)
		}
	}
	logger.Info("catalog published", "destinations", len(dests), "actors", len(defs), "bytes", len(data))
	return errors.Join(errs...)
}
