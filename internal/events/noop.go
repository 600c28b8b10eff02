package events

import "context"

// NoopPublisher drops every event. Used when no bus is configured and inside
// actor child processes that report back through their parent.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
