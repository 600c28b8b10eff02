// Package idgen generates the identifiers attached to messages and actor
// executions.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// MessagePrefix is prepended to every message ID.
const MessagePrefix = "msg-"

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	length   = 12
)

// MessageID returns a short, URL-safe identifier for a produced message.
func MessageID() (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return MessagePrefix + id, nil
}

// ExecutionID identifies one run of the framework. Messages produced by
// actors invoked under the same execution share it as their context.
func ExecutionID() string {
	return uuid.NewString()
}
