package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// flushTimeout bounds how long Close waits for buffered events.
const flushTimeout = 2 * time.Second

func dial(url, name string, opts []nats.Option) (*nats.Conn, error) {
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name(name)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes each event as JSON on the subject named by its
// topic.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := dial(url, "troupe", opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending events before closing. A troupe command usually
// exits right after its last Publish.
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	defer p.conn.Close()
	if err := p.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("flushing events: %w", err)
	}
	return nil
}

// NATSSubscriber delivers bus events to channels. It reconnects forever.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to url. opts are applied after the defaults,
// so callers can add disconnect and reconnect handlers.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := dial(url, "troupe-subscriber", append(defaults, opts...))
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscription owns the delivery channel of one Subscribe call. Once
// closed, late callbacks from the NATS client are dropped.
type subscription struct {
	sub *nats.Subscription
	ch  chan Envelope

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- Envelope{Topic: msg.Subject, Data: msg.Data}:
	default:
		// slow consumer: drop
	}
}

func (s *subscription) cancel() {
	s.once.Do(func() {
		if s.sub != nil {
			_ = s.sub.Unsubscribe()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		// Pending events are discarded so receivers see the close at once.
		for len(s.ch) > 0 {
			<-s.ch
		}
		close(s.ch)
	})
}

// Subscribe delivers events published under topic, which may use NATS
// wildcards such as TopicAll. The returned cancel function unsubscribes
// and closes the channel; calling it twice is safe.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Envelope, func(), error) {
	sc := &subscription{ch: make(chan Envelope, 64)}

	sub, err := s.conn.Subscribe(topic, sc.deliver)
	if err != nil {
		sc.cancel()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	sc.sub = sub

	// Without a round trip, events published on other connections right
	// after Subscribe returns may not be routed here yet.
	if err := s.conn.Flush(); err != nil {
		sc.cancel()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return sc.ch, sc.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
