// Package logging builds slog loggers from a Spec. A Spec is plain data so
// that an actor child process can reconstruct its parent's logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Spec describes a logger.
type Spec struct {
	Level  string            `json:"level"`
	Format string            `json:"format"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// DefaultSpec logs text at info level.
func DefaultSpec() Spec {
	return Spec{Level: "info", Format: FormatText}
}

// With returns a copy of s carrying an additional attribute.
func (s Spec) With(key, value string) Spec {
	attrs := make(map[string]string, len(s.Attrs)+1)
	for k, v := range s.Attrs {
		attrs[k] = v
	}
	attrs[key] = value
	s.Attrs = attrs
	return s
}

// ParseLevel maps debug, info, warn/warning and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New returns a logger writing to w. Invalid levels fall back to info.
func New(w io.Writer, spec Spec) *slog.Logger {
	level, _ := ParseLevel(spec.Level)
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if spec.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	for k, v := range spec.Attrs {
		logger = logger.With(k, v)
	}
	return logger
}
