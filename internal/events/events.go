// Package events publishes actor lifecycle and messaging notifications on
// an event bus so that dashboards and audit tooling can follow a run.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TopicMessageProduced = "troupe.message.produced"
	TopicErrorReported   = "troupe.error.reported"
	TopicActorDiscovered = "troupe.actor.discovered"

	TopicRunStarted  = "troupe.actor.run.started"
	TopicRunFinished = "troupe.actor.run.finished"
	TopicRunFailed   = "troupe.actor.run.failed"

	// TopicAll matches every troupe event.
	TopicAll = "troupe.>"
)

// MessageProduced is emitted when an actor produces a message.
type MessageProduced struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Actor   string          `json:"actor"`
	Topic   string          `json:"topic"`
	Context string          `json:"context"`
	Data    json.RawMessage `json:"data"`
}

// ErrorReported is emitted when an actor reports an error.
type ErrorReported struct {
	Actor    string `json:"actor"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Context  string `json:"context"`
}

// ActorDiscovered is emitted once per successful discovery.
type ActorDiscovered struct {
	Directory string   `json:"directory"`
	Name      string   `json:"name"`
	ClassName string   `json:"class_name"`
	Tags      []string `json:"tags"`
}

// RunStarted is emitted before an actor execution process is spawned.
type RunStarted struct {
	ExecutionID string `json:"execution_id"`
	Actor       string `json:"actor"`
	Directory   string `json:"directory"`
}

// RunFinished is emitted after an actor execution process exited cleanly.
type RunFinished struct {
	ExecutionID string        `json:"execution_id"`
	Actor       string        `json:"actor"`
	Produced    int           `json:"produced"`
	Errors      int           `json:"errors"`
	Duration    time.Duration `json:"duration"`
}

// RunFailed is emitted when an actor execution process failed.
type RunFailed struct {
	ExecutionID string `json:"execution_id"`
	Actor       string `json:"actor"`
	ExitCode    int    `json:"exit_code"`
	Error       string `json:"error"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Connect returns a NATS publisher for url, or a NoopPublisher when url is
// empty.
func Connect(url string) (Publisher, error) {
	if url == "" {
		return &NoopPublisher{}, nil
	}
	return NewNATSPublisher(url)
}
